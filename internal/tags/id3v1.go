package tags

import (
	"errors"
	"strconv"
)

// id3v1Size is the fixed trailing block size tag-v1 always occupies.
const id3v1Size = 128

// ErrNotID3v1 is returned when the trailing 128 bytes do not carry the
// "TAG" marker.
var ErrNotID3v1 = errors.New("tags: not an ID3v1 block")

// genreDictionary is the fixed 64-entry tag-v1 genre table spec.md §4.2
// calls for ("Genre integer codes map to a fixed 64-entry dictionary for
// tag-v1"); this is the original Nullsoft/Winamp table truncated to its
// first 64 canonical entries, which is what ID3v1's single genre byte
// was defined against.
var genreDictionary = [64]string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel",
	"Noise", "Alternative Rock", "Bass", "Soul", "Punk", "Space",
	"Meditative", "Instrumental Pop", "Instrumental Rock", "Ethnic",
	"Gothic", "Darkwave", "Techno-Industrial", "Electronic", "Pop-Folk",
	"Eurodance", "Dream", "Southern Rock", "Comedy", "Cult", "Gangsta",
	"Top 40", "Christian Rap", "Pop/Funk", "Jungle",
}

// ParseID3v1 parses a tag-v1 block, expected to be the final 128 bytes of
// a file. Returns ErrNotID3v1 if the "TAG" marker is absent.
func ParseID3v1(block []byte) (Metadata, error) {
	var m Metadata
	if len(block) != id3v1Size {
		return m, ErrNotID3v1
	}
	if block[0] != 'T' || block[1] != 'A' || block[2] != 'G' {
		return m, ErrNotID3v1
	}

	m.Title = trimPadding(string(block[3:33]))
	m.Artist = trimPadding(string(block[33:63]))
	m.Album = trimPadding(string(block[63:93]))

	yearStr := trimPadding(string(block[93:97]))
	if y, err := strconv.Atoi(yearStr); err == nil {
		m.Year = y
	}

	comment := block[97:127]
	genreByte := block[127]

	// ID3v1.1: zero byte at comment[28] with a non-zero byte at
	// comment[29] means the comment field was split to carry a track
	// number in its last byte.
	if comment[28] == 0 && comment[29] != 0 {
		m.Track = int(comment[29])
	}

	if int(genreByte) < len(genreDictionary) {
		m.Genre = genreDictionary[genreByte]
	}

	m.Title = clampText(m.Title)
	m.Artist = clampText(m.Artist)
	m.Album = clampText(m.Album)
	return m, nil
}
