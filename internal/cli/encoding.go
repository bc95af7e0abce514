package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/roach88/msglog/internal/config"
)

// Message encodings accepted by --encoding.
const (
	EncodingUTF8   = "utf8"
	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

// ValidEncodings lists the accepted --encoding values.
var ValidEncodings = []string{EncodingUTF8, EncodingHex, EncodingBase64}

func checkEncoding(enc string) error {
	if !slices.Contains(ValidEncodings, enc) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid encoding %q: must be one of %v", enc, ValidEncodings))
	}
	return nil
}

// decodeMessage converts a command-line argument to message bytes.
func decodeMessage(s, enc string) ([]byte, error) {
	switch enc {
	case EncodingUTF8:
		return []byte(s), nil
	case EncodingHex:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid hex message", err)
		}
		return b, nil
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid base64 message", err)
		}
		return b, nil
	default:
		return nil, checkEncoding(enc)
	}
}

// defaultReadEncoding picks the output encoding when --encoding is not set.
// JSON output is always base64 so any byte string round-trips. Text output
// is utf8 unless a message is not valid UTF-8.
func defaultReadEncoding(format string, msgs [][]byte) string {
	if format == config.FormatJSON {
		return EncodingBase64
	}
	for _, m := range msgs {
		if !utf8.Valid(m) {
			return EncodingBase64
		}
	}
	return EncodingUTF8
}

// encodeMessage renders message bytes for output. utf8 output of bytes that
// are not valid UTF-8 is lossy.
func encodeMessage(b []byte, enc string) string {
	switch enc {
	case EncodingHex:
		return hex.EncodeToString(b)
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(b)
	default:
		return string(b)
	}
}
