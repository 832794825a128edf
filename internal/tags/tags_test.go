package tags

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"
)

func TestParseID3v1RoundTrip(t *testing.T) {
	block := make([]byte, id3v1Size)
	copy(block[0:3], "TAG")
	copy(block[3:33], padField("Test Title", 30))
	copy(block[33:63], padField("Test Artist", 30))
	copy(block[63:93], padField("Test Album", 30))
	copy(block[93:97], "1999")
	// ID3v1.1: comment[28]=0, comment[29]=track number.
	block[97+28] = 0
	block[97+29] = 7
	block[127] = 17 // "Rock"

	m, err := ParseID3v1(block)
	if err != nil {
		t.Fatalf("ParseID3v1: %v", err)
	}
	if m.Title != "Test Title" || m.Artist != "Test Artist" || m.Album != "Test Album" {
		t.Fatalf("fields = %+v", m)
	}
	if m.Year != 1999 {
		t.Fatalf("Year = %d, want 1999", m.Year)
	}
	if m.Track != 7 {
		t.Fatalf("Track = %d, want 7", m.Track)
	}
	if m.Genre != "Rock" {
		t.Fatalf("Genre = %q, want Rock", m.Genre)
	}
}

func padField(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func TestParseID3v1RejectsMissingMarker(t *testing.T) {
	block := make([]byte, id3v1Size)
	copy(block[0:3], "XXX")
	if _, err := ParseID3v1(block); err != ErrNotID3v1 {
		t.Fatalf("err = %v, want ErrNotID3v1", err)
	}
}

func TestParseID3v1RejectsWrongLength(t *testing.T) {
	if _, err := ParseID3v1(make([]byte, 100)); err != ErrNotID3v1 {
		t.Fatalf("err = %v, want ErrNotID3v1", err)
	}
}

// encodeSynchsafe mirrors the tag header's own 7-bits-per-byte size
// encoding, used here only to construct synthetic test fixtures.
func encodeSynchsafe(n uint32) [4]byte {
	return [4]byte{
		byte(n >> 21 & 0x7F),
		byte(n >> 14 & 0x7F),
		byte(n >> 7 & 0x7F),
		byte(n & 0x7F),
	}
}

func buildID3v2Frame(id string, encByte byte, text string) []byte {
	body := append([]byte{encByte}, []byte(text)...)
	var header [10]byte
	copy(header[0:4], id)
	binary.BigEndian.PutUint32(header[4:8], uint32(len(body)))
	return append(header[:], body...)
}

func buildID3v2Tag(frames ...[]byte) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		body.Write(f)
	}
	size := encodeSynchsafe(uint32(body.Len()))
	var header [10]byte
	copy(header[0:3], "ID3")
	header[3] = 3 // major version 2.3
	header[4] = 0
	header[5] = 0 // flags
	copy(header[6:10], size[:])
	return append(header[:], body.Bytes()...)
}

func TestParseID3v2TextFrames(t *testing.T) {
	tag := buildID3v2Tag(
		buildID3v2Frame("TIT2", 0, "Song Name"),
		buildID3v2Frame("TPE1", 0, "Band Name"),
		buildID3v2Frame("TALB", 0, "Album Name"),
		buildID3v2Frame("TRCK", 0, "3/12"),
		buildID3v2Frame("TYER", 0, "2004"),
	)
	m, err := ParseID3v2(tag)
	if err != nil {
		t.Fatalf("ParseID3v2: %v", err)
	}
	if m.Title != "Song Name" || m.Artist != "Band Name" || m.Album != "Album Name" {
		t.Fatalf("fields = %+v", m)
	}
	if m.Track != 3 {
		t.Fatalf("Track = %d, want 3", m.Track)
	}
	if m.Year != 2004 {
		t.Fatalf("Year = %d, want 2004", m.Year)
	}
}

func TestParseID3v2GenreNumericForm(t *testing.T) {
	tag := buildID3v2Tag(buildID3v2Frame("TCON", 0, "(17)"))
	m, err := ParseID3v2(tag)
	if err != nil {
		t.Fatalf("ParseID3v2: %v", err)
	}
	if m.Genre != "Rock" {
		t.Fatalf("Genre = %q, want Rock", m.Genre)
	}
}

func TestParseID3v2RejectsMissingMarker(t *testing.T) {
	if _, err := ParseID3v2([]byte("not an id3 tag at all")); err != ErrNotID3v2 {
		t.Fatalf("err = %v, want ErrNotID3v2", err)
	}
}

func TestParseID3v2APICLocator(t *testing.T) {
	var body bytes.Buffer
	body.WriteByte(0)              // encoding: Latin-1
	body.WriteString("image/jpeg") // MIME
	body.WriteByte(0)
	body.WriteByte(3) // picture type: front cover
	body.WriteString("cover")
	body.WriteByte(0)
	picture := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03}
	body.Write(picture)

	var header [10]byte
	copy(header[0:4], "APIC")
	binary.BigEndian.PutUint32(header[4:8], uint32(body.Len()))
	frame := append(header[:], body.Bytes()...)
	full := buildID3v2Tag(frame)

	m, err := ParseID3v2(full)
	if err != nil {
		t.Fatalf("ParseID3v2: %v", err)
	}
	if !m.HasAlbumArt {
		t.Fatalf("HasAlbumArt = false, want true")
	}
	if m.AlbumArtLength != int64(len(picture)) {
		t.Fatalf("AlbumArtLength = %d, want %d", m.AlbumArtLength, len(picture))
	}
}

func TestDecodeTextLatin1(t *testing.T) {
	// 0xE9 in Latin-1 is U+00E9 (é).
	got := decodeText(encLatin1, []byte{0xE9})
	if got != "é" {
		t.Fatalf("decodeText(Latin1) = %q, want %q", got, "é")
	}
}

func TestDecodeTextUTF16WithBOM(t *testing.T) {
	units := utf16.Encode([]rune("hi"))
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE}) // little-endian BOM
	for _, u := range units {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], u)
		buf.Write(b[:])
	}
	got := decodeText(encUTF16BOM, buf.Bytes())
	if got != "hi" {
		t.Fatalf("decodeText(UTF16BOM) = %q, want %q", got, "hi")
	}
}

func TestDecodeTextUTF16BE(t *testing.T) {
	units := utf16.Encode([]rune("go"))
	var buf bytes.Buffer
	for _, u := range units {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], u)
		buf.Write(b[:])
	}
	got := decodeText(encUTF16BE, buf.Bytes())
	if got != "go" {
		t.Fatalf("decodeText(UTF16BE) = %q, want %q", got, "go")
	}
}

func TestDecodeTextUTF8(t *testing.T) {
	got := decodeText(encUTF8, []byte("caf\xc3\xa9"))
	if got != "café" {
		t.Fatalf("decodeText(UTF8) = %q, want %q", got, "café")
	}
}

func TestParseVorbisComment(t *testing.T) {
	var buf bytes.Buffer
	vendor := "wavepod encoder"
	binary.Write(&buf, binary.LittleEndian, uint32(len(vendor)))
	buf.WriteString(vendor)

	entries := []string{"TITLE=Track One", "ARTIST=Some Artist", "DATE=2010-05-01", "TRACKNUMBER=4"}
	binary.Write(&buf, binary.LittleEndian, uint32(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, uint32(len(e)))
		buf.WriteString(e)
	}

	m, err := ParseVorbisComment(&buf)
	if err != nil {
		t.Fatalf("ParseVorbisComment: %v", err)
	}
	if m.Title != "Track One" || m.Artist != "Some Artist" {
		t.Fatalf("fields = %+v", m)
	}
	if m.Year != 2010 {
		t.Fatalf("Year = %d, want 2010", m.Year)
	}
	if m.Track != 4 {
		t.Fatalf("Track = %d, want 4", m.Track)
	}
}

func TestParseVorbisCommentTruncated(t *testing.T) {
	if _, err := ParseVorbisComment(bytes.NewReader([]byte{0x01, 0x00})); err == nil {
		t.Fatalf("expected error for truncated vendor length")
	}
}
