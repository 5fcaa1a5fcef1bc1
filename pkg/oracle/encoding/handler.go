// Package encoding normalizes raw trace bytes to UTF-8 before parsing.
// Simulator hosts are not uniform: logs captured on Windows runners arrive
// as UTF-16 with a BOM, and a few older capture scripts emitted latin-1.
package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// sniffLen is the window http.DetectContentType inspects.
	sniffLen = 512
	// checkLen bounds the null-byte scan.
	checkLen = 1024
	// nullThreshold is the null-byte fraction above which content is
	// treated as binary.
	nullThreshold = 0.15
)

// Handler detects character encodings, converts content to UTF-8, and
// guards against binary input.
type Handler interface {
	// DetectAndDecode returns the UTF-8 bytes, the detected IANA encoding
	// name, and whether detection was certain. When detection is uncertain
	// the configured fallback encoding is applied if valid.
	DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certain bool, err error)

	// IsBinary reports whether the content looks like binary data, by MIME
	// sniffing the first 512 bytes and counting null bytes in the first
	// 1024.
	IsBinary(content []byte) bool
}

type charsetHandler struct {
	defaultEncoding string
}

// NewCharsetHandler returns a Handler backed by x/net/html/charset.
// defaultEncoding may be empty; it is only consulted when detection is
// uncertain.
func NewCharsetHandler(defaultEncoding string) Handler {
	return &charsetHandler{defaultEncoding: defaultEncoding}
}

func (h *charsetHandler) DetectAndDecode(content []byte) ([]byte, string, bool, error) {
	enc, name, certain := charset.DetermineEncoding(content, "")

	if !certain && h.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.defaultEncoding); fallback != nil {
			enc = fallback
			name = fallbackName
			certain = true
		}
	}

	if enc == nil {
		if name == "" {
			name = "utf-8"
		}
		return content, name, certain, nil
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		if name == "" {
			name = "unknown"
		}
		return content, name, certain, fmt.Errorf("convert from %q: %w", name, err)
	}
	return out, name, certain, nil
}

func (h *charsetHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	// UTF-16 sniffs as half null bytes but decodes fine.
	if looksUTF16(content) {
		return false
	}

	sniff := content
	if len(sniff) > sniffLen {
		sniff = sniff[:sniffLen]
	}
	if strings.HasPrefix(http.DetectContentType(sniff), "text/") {
		return false
	}

	check := content
	if len(check) > checkLen {
		check = check[:checkLen]
	}
	nulls := 0
	for _, b := range check {
		if b == 0 {
			nulls++
		}
	}
	return float64(nulls)/float64(len(check)) > nullThreshold
}

// looksUTF16 checks for a UTF-16 byte order mark.
func looksUTF16(content []byte) bool {
	if len(content) < 2 {
		return false
	}
	return (content[0] == 0xFF && content[1] == 0xFE) || (content[0] == 0xFE && content[1] == 0xFF)
}
