package seq

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// How many leading bytes are inspected for NUL characters.
const bytesForBinaryCheck = 1 << 16

var (
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16LE = []byte{0xff, 0xfe}
	bomUTF16BE = []byte{0xfe, 0xff}
)

// Decode converts content to UTF-8 text and reports the character set it
// was decoded from. A byte order mark wins over everything else. Then the
// declared encodings are tried in order, then UTF-8, and finally the
// charset guessed by statistical detection. Content that looks binary, or
// that no candidate decodes cleanly, yields ErrEncodingDetectionFailed.
func Decode(content []byte, declared []string) (text string, charset string, err error) {
	const method = "Decode"
	if len(content) == 0 {
		return "", "utf-8", nil
	}
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		if rest := content[len(bomUTF8):]; utf8.Valid(rest) {
			return string(rest), "utf-8", nil
		}
		return "", "", errorf(method, "invalid UTF-8 after byte order mark: %w", ErrEncodingDetectionFailed)
	case bytes.HasPrefix(content, bomUTF16LE), bytes.HasPrefix(content, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(content); err == nil && utf8.Valid(out) {
			return string(out), "utf-16", nil
		}
		return "", "", errorf(method, "invalid UTF-16: %w", ErrEncodingDetectionFailed)
	}
	for _, name := range declared {
		if isUTF8(name) {
			if utf8.Valid(content) && !isLikelyBinary(content) {
				return string(content), "utf-8", nil
			}
			continue
		}
		if out, ok := decodeWith(name, content); ok {
			return out, strings.ToLower(name), nil
		}
	}
	if isLikelyBinary(content) {
		return "", "", errorf(method, "content contains NUL bytes: %w", ErrEncodingDetectionFailed)
	}
	if utf8.Valid(content) {
		return string(content), "utf-8", nil
	}
	guess, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil {
		return "", "", errorf(method, "%v: %w", err, ErrEncodingDetectionFailed)
	}
	if out, ok := decodeWith(guess.Charset, content); ok {
		return out, strings.ToLower(guess.Charset), nil
	}
	return "", "", errorf(method, "no decoder for detected charset %q: %w", guess.Charset, ErrEncodingDetectionFailed)
}

func isUTF8(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

func lookup(name string) encoding.Encoding {
	if enc, err := htmlindex.Get(name); err == nil {
		return enc
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc
	}
	return nil
}

func decodeWith(name string, content []byte) (string, bool) {
	enc := lookup(name)
	if enc == nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}

// Look at the first few thousand bytes and see if any of them is NUL.
func isLikelyBinary(content []byte) bool {
	if len(content) > bytesForBinaryCheck {
		content = content[:bytesForBinaryCheck]
	}
	return bytes.IndexByte(content, 0) != -1
}
