package cloudinary

import (
	"errors"
	"fmt"
)

var (
	ErrUploadFailed      = errors.New("upload failed")
	ErrMalformedResponse = errors.New("malformed upload response")
)

// Result is the subset of the provider's resource descriptor the tool uses.
type Result struct {
	PublicID  string `json:"public_id"`
	URL       string `json:"url"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Bytes     int    `json:"bytes"`
}

// APIError is a non-2xx response from the REST upload endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upload endpoint returned status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrUploadFailed
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
