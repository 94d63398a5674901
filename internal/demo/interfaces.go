package demo

import (
	"context"

	"cldupload/internal/cloudinary"
	"cldupload/internal/signature"
)

// SDKUploader interface for dependency injection and testing
type SDKUploader interface {
	UnsignedUpload(ctx context.Context, data []byte, preset, publicID string) (*cloudinary.Result, error)
	Upload(ctx context.Context, data []byte, folder, publicID string, uniqueFilename bool) (*cloudinary.Result, error)
}

// RESTUploader signs parameters and posts them to the upload endpoint.
type RESTUploader interface {
	Sign(params signature.Params) (string, error)
	Upload(ctx context.Context, dataURI string, params signature.Params) (*cloudinary.Result, error)
}

// ReportStore persists run reports. Optional.
type ReportStore interface {
	Put(ctx context.Context, name string, v any) (string, error)
}
