package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"cldupload/internal/config"
	"cldupload/internal/signature"
)

// RESTUploader talks to the upload endpoint directly with a hand-built
// multipart body and a locally computed signature.
type RESTUploader struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	apiSecret  string
	algorithm  string
}

func NewRESTUploader(cfg *config.Config, httpClient *http.Client) *RESTUploader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	prefix := strings.TrimRight(cfg.UploadPrefix, "/")
	if prefix == "" {
		prefix = "https://api.cloudinary.com"
	}

	return &RESTUploader{
		httpClient: httpClient,
		endpoint:   fmt.Sprintf("%s/v1_1/%s/image/upload", prefix, url.PathEscape(cfg.CloudName)),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		algorithm:  cfg.SignatureAlgorithm,
	}
}

// Endpoint returns the upload URL requests are posted to.
func (u *RESTUploader) Endpoint() string {
	return u.endpoint
}

// Sign computes the signature for params with the configured secret.
func (u *RESTUploader) Sign(params signature.Params) (string, error) {
	return signature.Sign(params, u.apiSecret, u.algorithm)
}

// SignedParams returns the form fields that Upload would submit alongside the
// file: params plus api_key and signature.
func (u *RESTUploader) SignedParams(params signature.Params) (url.Values, error) {
	if _, ok := params["timestamp"]; !ok {
		return nil, fmt.Errorf("signed upload requires a timestamp parameter")
	}

	sig, err := u.Sign(params)
	if err != nil {
		return nil, err
	}

	form := params.Form()
	form.Set("api_key", u.apiKey)
	form.Set("signature", sig)
	return form, nil
}

// Upload posts dataURI as the file field together with the signed params.
// Form fields and signature are derived from the same params value.
func (u *RESTUploader) Upload(ctx context.Context, dataURI string, params signature.Params) (*Result, error) {
	fields, err := u.SignedParams(params)
	if err != nil {
		return nil, err
	}

	body, contentType, err := buildMultipart(dataURI, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	log.Ctx(ctx).Debug().Str("endpoint", u.endpoint).Str("public_id", fields.Get("public_id")).Msg("rest upload")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func buildMultipart(dataURI string, fields url.Values) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("file", dataURI); err != nil {
		return nil, "", err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		// the data URI above is the only file part
		if k == "file" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields.Get(k)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeResponse(resp *http.Response) (*Result, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil {
			apiErr.Message = er.Error.Message
		}
		return nil, apiErr
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.URL == "" {
		return nil, fmt.Errorf("%w: missing url", ErrMalformedResponse)
	}

	return &result, nil
}
