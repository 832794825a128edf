package tags

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseVorbisComment parses a Vorbis comment list, the form the
// lossless container carries inside its metadata block, per spec.md
// §4.2. Field reads mirror
// other_examples/93ed2487_mewkiz-flac__meta-meta.go.go's NewStreamInfo
// (binary.Read off a reader, one length-prefixed field at a time),
// adjusted to the comment block's little-endian length prefixes.
func ParseVorbisComment(r io.Reader) (Metadata, error) {
	var m Metadata

	var vendorLen uint32
	if err := binary.Read(r, binary.LittleEndian, &vendorLen); err != nil {
		return m, fmt.Errorf("tags: vorbis comment: read vendor length: %w", err)
	}
	if _, err := io.CopyN(io.Discard, r, int64(vendorLen)); err != nil {
		return m, fmt.Errorf("tags: vorbis comment: skip vendor string: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return m, fmt.Errorf("tags: vorbis comment: read comment count: %w", err)
	}

	for i := uint32(0); i < count; i++ {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return m, fmt.Errorf("tags: vorbis comment: read entry %d length: %w", i, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return m, fmt.Errorf("tags: vorbis comment: read entry %d: %w", i, err)
		}
		applyVorbisEntry(&m, string(buf))
	}

	m.Title = clampText(m.Title)
	m.Artist = clampText(m.Artist)
	m.Album = clampText(m.Album)
	m.Genre = clampText(m.Genre)
	return m, nil
}

func applyVorbisEntry(m *Metadata, entry string) {
	eq := strings.IndexByte(entry, '=')
	if eq < 0 {
		return
	}
	key := strings.ToUpper(entry[:eq])
	value := entry[eq+1:]

	switch key {
	case "TITLE":
		m.Title = value
	case "ARTIST":
		m.Artist = value
	case "ALBUM":
		m.Album = value
	case "GENRE":
		m.Genre = value
	case "DATE":
		if y := leadingYear(value); y != 0 {
			m.Year = y
		}
	case "TRACKNUMBER":
		m.Track = firstInt(value)
	case "DISCNUMBER":
		m.Disc = firstInt(value)
	}
}

// leadingYear extracts a four-digit year from a DATE value, which may be
// a bare year or a full ISO-8601 date.
func leadingYear(s string) int {
	if len(s) < 4 {
		return 0
	}
	n, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return n
}
