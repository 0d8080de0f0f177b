package ncdc

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func isUTF32BigEndianBOM4(b []byte) bool {
	return len(b) >= 4 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0xFE && b[3] == 0xFF
}

func isUTF32LittleEndianBOM4(b []byte) bool {
	return len(b) >= 4 && b[0] == 0xFF && b[1] == 0xFE && b[2] == 0x00 && b[3] == 0x00
}

func isUTF8BOM3(b []byte) bool {
	return len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF
}

func isUTF16BigEndianBOM2(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF
}

func isUTF16LittleEndianBOM2(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE
}

// detectUTF sniffs the byte order mark. Order matters, UTF-32 LE starts
// with the UTF-16 LE mark.
func detectUTF(b []byte) srcEncoding {
	switch {
	case isUTF32BigEndianBOM4(b):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(b):
		return encUTF32LittleEndian
	case isUTF8BOM3(b):
		return encUTF8
	case isUTF16BigEndianBOM2(b):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(b):
		return encUTF16LittleEndian
	default:
		return encUnknown
	}
}

// DecodeBytes converts raw archive file bytes to UTF-8 text with normalized
// line endings. A byte order mark wins, otherwise content sniffing decides;
// archive files come in Latin-1 and Windows-1252 about as often as UTF-8.
func DecodeBytes(raw []byte) (string, error) {
	var out []byte
	var err error

	switch detectUTF(raw) {
	case encUTF8:
		out = raw[3:]
	case encUTF16BigEndian:
		out, err = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(raw)
	case encUTF16LittleEndian:
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(raw)
	case encUTF32BigEndian:
		out, err = utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder().Bytes(raw)
	case encUTF32LittleEndian:
		out, err = utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder().Bytes(raw)
	default:
		enc, name, _ := charset.DetermineEncoding(raw, "text/plain")
		out, err = enc.NewDecoder().Bytes(raw)
		if err != nil {
			err = fmt.Errorf("decoding as %s: %w", name, err)
		}
	}
	if err != nil {
		return "", err
	}
	out = bytes.ReplaceAll(out, []byte("\r\n"), []byte("\n"))
	out = bytes.ReplaceAll(out, []byte("\r"), []byte("\n"))
	return string(out), nil
}
