package meterhttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 << 10

var (
	ErrUnsupportedMediaType = errors.New("meterhttp.errors.unsupported_media_type")
	ErrInvalidBody          = errors.New("meterhttp.errors.invalid_body")
)

// bindJSON decodes a single strict JSON object from the request body.
func bindJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("%w: expected application/json", ErrUnsupportedMediaType)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if len(body) > maxBodySize {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidBody, maxBodySize)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrInvalidBody)
		}
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidBody)
	}
	return nil
}
