package validate

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"
)

const DefaultMaxUploadBytes int64 = 5 << 20

var (
	ErrEmptyFile     = errors.New("file is empty")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
	ErrNotAnImage    = errors.New("file is not an allowed image type")
	defaultImageMIME = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MinLength(value string, min int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(value)) >= min
}

func LengthBetween(value string, min, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	return n >= min && n <= max
}

// Image checks size and sniffs the content type of an upload.
// allowed defaults to the common web image formats when empty.
func Image(content []byte, maxBytes int64, allowed []string) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyFile
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(content)) > maxBytes {
		return "", ErrFileTooLarge
	}
	if len(allowed) == 0 {
		allowed = defaultImageMIME
	}

	contentType := http.DetectContentType(content)
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, contentType) {
			return contentType, nil
		}
	}
	return "", ErrNotAnImage
}

func ExtensionForMIME(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
