package util

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// DecodeBase64Image decodes a base64 payload that may carry a data-URI prefix.
// The MIME hint from the prefix is returned alongside the bytes.
func DecodeBase64Image(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(s, "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	// Standard alphabet first, URL-safe as a fallback for odd producers.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, hintMIME, nil
	} else if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hintMIME, nil
	} else {
		return nil, "", err
	}
}

// PickMIME prefers the data-URI hint, then sniffs the bytes.
func PickMIME(hint string, data []byte) string {
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/jpeg"
}

func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}
