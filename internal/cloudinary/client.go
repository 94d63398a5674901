package cloudinary

import (
	"bytes"
	"context"
	"fmt"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/rs/zerolog/log"

	"cldupload/internal/config"
)

// Same endpoint the REST uploader posts to; the SDK would default to "auto".
const resourceType = "image"

// Client wraps the official SDK for the unsigned and signed upload paths.
type Client struct {
	cld *cld.Cloudinary
}

func NewClient(cfg *config.Config) (*Client, error) {
	conf, err := cldconfig.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary config: %w", err)
	}
	// the SDK copies the configuration into each API at construction
	if cfg.UploadPrefix != "" {
		conf.API.UploadPrefix = cfg.UploadPrefix
	}

	c, err := cld.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	return &Client{cld: c}, nil
}

// UnsignedUpload uploads data under the named unsigned preset. The preset
// decides folder, tags and transformations on the server.
func (c *Client) UnsignedUpload(ctx context.Context, data []byte, preset, publicID string) (*Result, error) {
	log.Ctx(ctx).Debug().Str("preset", preset).Str("public_id", publicID).Msg("unsigned upload")

	resp, err := c.cld.Upload.UnsignedUpload(ctx, bytes.NewReader(data), preset, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	return toResult(resp, err)
}

// Upload performs a signed upload. The SDK canonicalizes and signs the
// parameters itself.
func (c *Client) Upload(ctx context.Context, data []byte, folder, publicID string, uniqueFilename bool) (*Result, error) {
	log.Ctx(ctx).Debug().Str("folder", folder).Str("public_id", publicID).Msg("signed upload")

	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:         folder,
		PublicID:       publicID,
		UniqueFilename: api.Bool(uniqueFilename),
		ResourceType:   resourceType,
	})
	return toResult(resp, err)
}

func toResult(resp *uploader.UploadResult, err error) (*Result, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	// the SDK reports provider-side rejections in the body, not as err
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUploadFailed, resp.Error.Message)
	}

	return &Result{
		PublicID:  resp.PublicID,
		URL:       resp.URL,
		SecureURL: resp.SecureURL,
		Format:    resp.Format,
		Bytes:     resp.Bytes,
	}, nil
}
