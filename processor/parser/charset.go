package parser

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/message"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Transcode converts data from enc to UTF-8. A leading byte order mark is
// removed. UTF-16 and UTF-32 without a BOM are read as big endian.
func Transcode(data []byte, enc message.Encoding) ([]byte, error) {
	switch enc {
	case message.EncodingUTF8:
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return nil, invalidEncoding(enc, fmt.Errorf("invalid UTF-8 sequence"))
		}
		return data, nil

	case message.EncodingASCII:
		for i, b := range data {
			if b >= utf8.RuneSelf {
				return nil, invalidEncoding(enc, fmt.Errorf("byte 0x%02x at offset %d", b, i))
			}
		}
		return data, nil

	case message.EncodingUTF16:
		if len(data)%2 != 0 {
			return nil, invalidEncoding(enc, fmt.Errorf("odd length %d", len(data)))
		}
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.UseBOM), data, enc)

	case message.EncodingUTF32:
		if len(data)%4 != 0 {
			return nil, invalidEncoding(enc, fmt.Errorf("length %d not a multiple of 4", len(data)))
		}
		return decodeWith(utf32.UTF32(utf32.BigEndian, utf32.UseBOM), data, enc)

	case message.EncodingLatin1:
		return decodeWith(charmap.ISO8859_1, data, enc)

	default:
		return nil, invalidEncoding(enc, fmt.Errorf("unsupported encoding"))
	}
}

func decodeWith(e encoding.Encoding, data []byte, enc message.Encoding) ([]byte, error) {
	out, err := e.NewDecoder().Bytes(data)
	if err != nil {
		return nil, invalidEncoding(enc, err)
	}
	return out, nil
}

func invalidEncoding(enc message.Encoding, err error) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s: %v", ErrInvalidEncoding, enc, err),
		"parser", "Transcode", "charset conversion")
}
