package tags

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// textEncoding is ID3v2's one-byte text-encoding indicator.
type textEncoding byte

const (
	encLatin1     textEncoding = 0
	encUTF16BOM   textEncoding = 1
	encUTF16BE    textEncoding = 2
	encUTF8       textEncoding = 3
)

// decodeText converts a tag text field to a UTF-8 Go string per spec.md
// §4.2: "non-representable code points are dropped rather than
// substituted". golang.org/x/text's decoders substitute U+FFFD for
// anything they can't represent; dropInvalid strips those out afterward
// rather than leaving the substitution character in the result.
func decodeText(enc textEncoding, data []byte) string {
	switch enc {
	case encLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return ""
		}
		return dropInvalid(string(out))
	case encUTF16BOM:
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			// Some writers omit the BOM despite declaring encoding 1;
			// fall back to big-endian-with-BOM-or-native detection.
			out, err = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(data)
			if err != nil {
				return ""
			}
		}
		return dropInvalid(string(out))
	case encUTF16BE:
		out, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
		if err != nil {
			return ""
		}
		return dropInvalid(string(out))
	case encUTF8:
		return dropInvalid(string(data))
	default:
		return dropInvalid(string(data))
	}
}

// dropInvalid removes the Unicode replacement character and any raw
// invalid UTF-8 byte sequences, rather than letting them surface as
// substitution characters.
func dropInvalid(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			i++
			continue
		}
		if r == 0xFFFD {
			i += size
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

// trimPadding strips trailing NUL bytes and spaces, the two common
// fixed-width tag-field fillers.
func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00 ")
}
