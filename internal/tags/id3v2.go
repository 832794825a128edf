package tags

import (
	"encoding/binary"
	"errors"
	"strconv"
)

// ErrNotID3v2 is returned when the leading bytes do not carry the "ID3"
// marker.
var ErrNotID3v2 = errors.New("tags: not an ID3v2 block")

// ErrTruncatedID3v2 is returned when a frame header or body runs past
// the end of the supplied buffer.
var ErrTruncatedID3v2 = errors.New("tags: truncated ID3v2 frame")

// synchsafe decodes a 4-byte synchsafe integer (each byte's top bit
// always 0, 7 significant bits per byte), used by ID3v2's tag-size field
// in every version and by ID3v2.4's per-frame size field.
func synchsafe(b []byte) uint32 {
	return uint32(b[0])<<21 | uint32(b[1])<<14 | uint32(b[2])<<7 | uint32(b[3])
}

// ParseID3v2 parses a tag-v2 block starting at the first byte of data
// (data need not be trimmed to the tag's own length; only the header's
// declared size is consumed).
func ParseID3v2(data []byte) (Metadata, error) {
	var m Metadata
	if len(data) < 10 || data[0] != 'I' || data[1] != 'D' || data[2] != '3' {
		return m, ErrNotID3v2
	}
	major := data[3]
	flags := data[5]
	tagSize := synchsafe(data[6:10])

	pos := 10
	if flags&0x40 != 0 { // extended header present
		if pos+4 > len(data) {
			return m, ErrTruncatedID3v2
		}
		extSize := synchsafe(data[pos : pos+4])
		pos += int(extSize)
	}

	end := 10 + int(tagSize)
	if end > len(data) {
		end = len(data)
	}

	for pos+10 <= end {
		id := string(data[pos : pos+4])
		if id == "\x00\x00\x00\x00" {
			break // padding reached
		}
		var frameSize uint32
		if major >= 4 {
			frameSize = synchsafe(data[pos+4 : pos+8])
		} else {
			frameSize = binary.BigEndian.Uint32(data[pos+4 : pos+8])
		}
		bodyStart := pos + 10
		bodyEnd := bodyStart + int(frameSize)
		if bodyEnd > end || bodyEnd < bodyStart {
			return m, ErrTruncatedID3v2
		}
		body := data[bodyStart:bodyEnd]
		applyFrame(&m, id, body)
		pos = bodyEnd
	}

	m.Title = clampText(m.Title)
	m.Artist = clampText(m.Artist)
	m.Album = clampText(m.Album)
	m.Genre = clampText(m.Genre)
	return m, nil
}

func applyFrame(m *Metadata, id string, body []byte) {
	switch id {
	case "TIT2":
		m.Title = trimPadding(textFrame(body))
	case "TPE1":
		m.Artist = trimPadding(textFrame(body))
	case "TALB":
		m.Album = trimPadding(textFrame(body))
	case "TCON":
		m.Genre = trimPadding(resolveGenreFrame(textFrame(body)))
	case "TRCK":
		m.Track = firstInt(textFrame(body))
	case "TPOS":
		m.Disc = firstInt(textFrame(body))
	case "TYER", "TDRC":
		m.Year = firstInt(textFrame(body))
	case "APIC":
		if off, n, ok := apicLocator(body); ok {
			m.HasAlbumArt = true
			m.AlbumArtOffset = off
			m.AlbumArtLength = n
		}
	}
}

// textFrame decodes a standard ID3v2 text frame: one encoding byte
// followed by the encoded text. The whole decoded value is returned,
// including any null- or slash-separated further values; numeric
// fields keep only its leading digits via firstInt.
func textFrame(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	enc := textEncoding(body[0])
	return decodeText(enc, body[1:])
}

// firstInt extracts the leading integer from a text frame's value,
// tolerating the "N/total" form TRCK/TPOS use.
func firstInt(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}

// resolveGenreFrame resolves a TCON value: a bare "(N)" or "N" refers to
// the same 64-entry dictionary tag-v1 uses; anything else is taken
// literally as free text, per common ID3v2 tagger convention.
func resolveGenreFrame(s string) string {
	trimmed := s
	if len(trimmed) > 1 && trimmed[0] == '(' {
		if close := indexByte(trimmed, ')'); close > 0 {
			trimmed = trimmed[1:close]
		}
	}
	if n, err := strconv.Atoi(trimmed); err == nil && n >= 0 && n < len(genreDictionary) {
		return genreDictionary[n]
	}
	return s
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// apicLocator decodes just enough of an APIC frame (encoding byte, MIME
// type, picture type, description) to report where the raw picture
// bytes begin and how long they run, per spec.md §3's "optional
// album-art locator (offset + length)".
func apicLocator(body []byte) (offset, length int64, ok bool) {
	if len(body) < 2 {
		return 0, 0, false
	}
	enc := textEncoding(body[0])
	pos := 1
	// MIME type: null-terminated ASCII/Latin-1 regardless of enc.
	mimeEnd := pos
	for mimeEnd < len(body) && body[mimeEnd] != 0 {
		mimeEnd++
	}
	if mimeEnd >= len(body) {
		return 0, 0, false
	}
	pos = mimeEnd + 1
	if pos >= len(body) {
		return 0, 0, false
	}
	pos++ // picture type byte
	descEnd := textTerminatorIndex(body[pos:], enc)
	if descEnd < 0 {
		return 0, 0, false
	}
	pos += descEnd
	if pos > len(body) {
		return 0, 0, false
	}
	return int64(pos), int64(len(body) - pos), true
}

// textTerminatorIndex finds the byte offset just past a frame's
// null-terminated description field, accounting for UTF-16's two-byte
// terminator.
func textTerminatorIndex(b []byte, enc textEncoding) int {
	step := 1
	if enc == encUTF16BOM || enc == encUTF16BE {
		step = 2
	}
	for i := 0; i+step <= len(b); i += step {
		allZero := true
		for j := 0; j < step; j++ {
			if b[i+j] != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return i + step
		}
	}
	return -1
}
