// Package tags implements the three metadata entry points of spec.md
// §4.2: tag-v1 (trailing 128-byte block), tag-v2 (leading frame-based
// block), and the Vorbis comment block carried inside the lossless
// container. All three parsers produce the same Metadata record shape.
//
// The "parse a self-describing block into a typed Go struct with
// io.Reader-based field readers" shape is grounded on
// other_examples/93ed2487_mewkiz-flac__meta-meta.go.go's NewBlockHeader/
// NewStreamInfo pattern (binary.Read off a length-limited reader); this
// package generalizes that to three distinct block formats feeding one
// shared Metadata shape instead of one format feeding distinct Go types.
package tags

// Metadata is the common record produced by every parser in this
// package, per spec.md §3's "Metadata record": fixed-size text fields,
// scalar year/track/disc/duration, and an optional album-art locator.
// Copy-by-value and empty by construction, as spec.md requires.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Genre  string

	Year        int
	Track       int
	Disc        int
	DurationMS  int

	HasAlbumArt   bool
	AlbumArtOffset int64
	AlbumArtLength int64
}

// maxTextField bounds the fixed-size character buffers spec.md describes;
// parsers truncate (never panic) on oversized input.
const maxTextField = 256

func clampText(s string) string {
	if len(s) <= maxTextField {
		return s
	}
	return s[:maxTextField]
}
