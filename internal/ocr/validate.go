// validate.go - Request validation: extension allow-list and size caps

package ocr

import (
	"encoding/base64"
	"path/filepath"
	"strings"
)

const (
	// MaxImageBytes caps the decoded image size
	MaxImageBytes = 20 * 1024 * 1024

	// MaxBase64Chars approximates MaxImageBytes for base64 text, checked before decoding
	MaxBase64Chars = MaxImageBytes * 4 / 3

	// DefaultBase64Filename is used when a base64 request omits filename
	DefaultBase64Filename = "image.png"
)

// AllowedExtensions lists accepted image suffixes, sorted
var AllowedExtensions = []string{".bmp", ".jpeg", ".jpg", ".png", ".tiff", ".webp"}

var allowedExtensionSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(AllowedExtensions))
	for _, ext := range AllowedExtensions {
		set[ext] = struct{}{}
	}
	return set
}()

// ValidateExtension returns the lowercased suffix of filename if it is allowed
func ValidateExtension(filename string) (string, error) {
	base := filepath.Base(filename)
	suffix := filepath.Ext(base)
	if suffix == base {
		// ".png" is a dotfile name, not an extension
		suffix = ""
	}
	suffix = strings.ToLower(suffix)
	if _, ok := allowedExtensionSet[suffix]; !ok {
		return "", InvalidInput("Unsupported file type '%s'. Allowed: %s", suffix, strings.Join(AllowedExtensions, ", "))
	}
	return suffix, nil
}

// ValidateSize rejects images larger than MaxImageBytes
func ValidateSize(n int64) error {
	if n > MaxImageBytes {
		return PayloadTooLarge("File too large. Max %d MB", MaxImageBytes/(1024*1024))
	}
	return nil
}

// ValidateEncodedSize rejects base64 payloads that would decode past MaxImageBytes
func ValidateEncodedSize(n int) error {
	if n > MaxBase64Chars {
		return PayloadTooLarge("Payload too large. Max ~%d MB image", MaxImageBytes/(1024*1024))
	}
	return nil
}

// DecodeBase64 decodes a standard-alphabet base64 payload
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: "Invalid base64: " + err.Error(), Err: err}
	}
	return data, nil
}
