// Package encoding implements the text-decoding and safety-classification
// cascade: turning raw file bytes into either a UTF-8 string
// suitable for trigram/symbol extraction, or a typed reason the file was
// excluded.
package encoding

import (
	"bytes"
	"unicode/utf8"

	xtextencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Kind identifies how content was classified.
type Kind int

const (
	KindUTF8 Kind = iota
	KindUTF16LE
	KindUTF16BE
	KindLatin1
	KindWindows1252
	KindShiftJIS
	KindBinary
)

// Result is the outcome of Detect: either decodable text plus the kind that
// produced it, or Binary with no text.
type Result struct {
	Kind Kind
	Text string // valid only when Kind != KindBinary
}

const binaryPrecheckBytes = 8 * 1024

// Detect runs the cascade: UTF-8 (with or without
// BOM) first, then UTF-16 BOM sniffing, then — only if transcode is
// enabled — a heuristic Latin-1/Windows-1252/Shift-JIS guess. Content with a
// null byte or more than 10% non-printable bytes in the first 8KB, or that
// fails every heuristic, is classified Binary.
func Detect(raw []byte, transcode bool) Result {
	if len(raw) == 0 {
		return Result{Kind: KindUTF8, Text: ""}
	}

	if b, ok := stripBOM(raw, utf8BOM); ok {
		if utf8.Valid(b) {
			return Result{Kind: KindUTF8, Text: string(b)}
		}
	} else if utf8.Valid(raw) {
		if !looksBinary(raw) {
			return Result{Kind: KindUTF8, Text: string(raw)}
		}
	}

	if b, ok := stripBOM(raw, utf16LEBOM); ok {
		return Result{Kind: KindUTF16LE, Text: decodeUTF16(b, false)}
	}
	if b, ok := stripBOM(raw, utf16BEBOM); ok {
		return Result{Kind: KindUTF16BE, Text: decodeUTF16(b, true)}
	}

	if looksBinary(raw) {
		return Result{Kind: KindBinary}
	}

	if !transcode {
		// Non-UTF-8 text that we're not permitted to transcode is excluded
		// as binary from the caller's perspective.
		return Result{Kind: KindBinary}
	}

	if kind, text, ok := heuristicDecode(raw); ok {
		return Result{Kind: kind, Text: text}
	}
	return Result{Kind: KindBinary}
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

func stripBOM(raw, bom []byte) ([]byte, bool) {
	if len(raw) >= len(bom) && bytes.Equal(raw[:len(bom)], bom) {
		return raw[len(bom):], true
	}
	return nil, false
}

func decodeUTF16(b []byte, bigEndian bool) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	u16 := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if bigEndian {
			u16 = append(u16, uint16(b[i])<<8|uint16(b[i+1]))
		} else {
			u16 = append(u16, uint16(b[i+1])<<8|uint16(b[i]))
		}
	}
	return string(utf16Decode(u16))
}

// looksBinary applies binary heuristic to the first 8KB: a null
// byte, or more than 10% non-printable bytes.
func looksBinary(raw []byte) bool {
	window := raw
	if len(window) > binaryPrecheckBytes {
		window = window[:binaryPrecheckBytes]
	}
	nonPrintable := 0
	for _, b := range window {
		if b == 0 {
			return true
		}
		if b < 0x09 || (b > 0x0D && b < 0x20) {
			nonPrintable++
		}
	}
	return len(window) > 0 && float64(nonPrintable)/float64(len(window)) > 0.10
}

// heuristicDecode guesses Latin-1/Windows-1252 vs Shift-JIS for content that
// failed strict UTF-8 validation. Shift-JIS is tried first when the byte
// stream looks like a plausible lead/trail pair sequence; everything else
// falls back to Windows-1252, which maps every byte 0x00-0xFF so it never
// itself fails to decode.
func heuristicDecode(raw []byte) (Kind, string, bool) {
	if looksShiftJIS(raw) {
		if s, ok := decodeWith(japanese.ShiftJIS, raw); ok {
			return KindShiftJIS, s, true
		}
	}
	if s, ok := decodeWith(charmap.Windows1252, raw); ok {
		return KindWindows1252, s, true
	}
	return KindBinary, "", false
}

func decodeWith(enc xtextencoding.Encoding, raw []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func looksShiftJIS(raw []byte) bool {
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if (b >= 0x81 && b <= 0x9F) || (b >= 0xE0 && b <= 0xFC) {
			if i+1 >= len(raw) {
				return false
			}
			t := raw[i+1]
			if (t >= 0x40 && t <= 0x7E) || (t >= 0x80 && t <= 0xFC) {
				return true
			}
		}
	}
	return false
}

// utf16Decode is a minimal surrogate-pair-aware UTF-16 to rune decoder.
func utf16Decode(u16 []uint16) []rune {
	runes := make([]rune, 0, len(u16))
	for i := 0; i < len(u16); i++ {
		r := u16[i]
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(u16) {
			r2 := u16[i+1]
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				combined := (rune(r)-0xD800)<<10 + (rune(r2) - 0xDC00) + 0x10000
				runes = append(runes, combined)
				i++
				continue
			}
		}
		runes = append(runes, rune(r))
	}
	return runes
}
