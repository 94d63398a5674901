package demo

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"cldupload/internal/cloudinary"
	"cldupload/internal/config"
	"cldupload/internal/media"
	"cldupload/internal/signature"
)

// Report records what a full run produced.
type Report struct {
	Image       string    `json:"image"`
	StartedAt   time.Time `json:"started_at"`
	Timestamp   int64     `json:"timestamp"`
	Signature   string    `json:"signature"`
	UnsignedURL string    `json:"unsigned_url"`
	RESTURL     string    `json:"rest_url"`
	SDKURL      string    `json:"sdk_url"`
}

type Runner struct {
	sdk     SDKUploader
	rest    RESTUploader
	archive ReportStore
	plan    *config.Plan
	out     io.Writer
	now     func() time.Time
}

// NewRunner wires the uploaders to a plan. archive may be nil.
func NewRunner(sdk SDKUploader, rest RESTUploader, archive ReportStore, plan *config.Plan, out io.Writer) *Runner {
	return &Runner{
		sdk:     sdk,
		rest:    rest,
		archive: archive,
		plan:    plan,
		out:     out,
		now:     time.Now,
	}
}

// Run executes the unsigned, signature, REST and SDK-signed steps in order,
// printing each URL and the signature. The first failure stops the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	img, err := r.LoadImage(ctx)
	if err != nil {
		return nil, err
	}

	started := r.now()
	report := &Report{Image: img.Path, StartedAt: started}

	unsigned, err := r.Unsigned(ctx, img)
	if err != nil {
		return report, err
	}
	report.UnsignedURL = unsigned.URL

	params := r.RESTParams(started)
	sig, err := r.Sign(ctx, params)
	if err != nil {
		return report, err
	}
	report.Timestamp = signature.Timestamp(started)
	report.Signature = sig

	rest, err := r.REST(ctx, img, params)
	if err != nil {
		return report, err
	}
	report.RESTURL = rest.URL

	signed, err := r.Signed(ctx, img)
	if err != nil {
		return report, err
	}
	report.SDKURL = signed.URL

	if r.archive != nil {
		key, err := r.archive.Put(ctx, strconv.FormatInt(report.Timestamp, 10), report)
		if err != nil {
			return report, err
		}
		log.Ctx(ctx).Info().Str("key", key).Msg("run report archived")
	}

	return report, nil
}

// LoadImage reads the plan's image and applies any preprocessing. It runs
// before any network call so a missing file fails early.
func (r *Runner) LoadImage(ctx context.Context) (*media.Image, error) {
	img, err := media.Load(r.plan.ImagePath)
	if err != nil {
		return nil, err
	}

	prepared, err := media.Prepare(img, r.plan.Prepare)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().
		Str("path", prepared.Path).
		Str("mime", prepared.MimeType).
		Int("bytes", len(prepared.Data)).
		Msg("image loaded")
	return prepared, nil
}

// Unsigned uploads img through the plan's unsigned preset.
func (r *Runner) Unsigned(ctx context.Context, img *media.Image) (*cloudinary.Result, error) {
	result, err := r.sdk.UnsignedUpload(ctx, img.Data, r.plan.Preset, r.plan.UnsignedPublicID)
	if err != nil {
		return nil, fmt.Errorf("unsigned upload: %w", err)
	}
	log.Ctx(ctx).Info().Str("public_id", result.PublicID).Msg("unsigned upload complete")
	fmt.Fprintln(r.out, result.URL)
	return result, nil
}

// RESTParams builds the parameter set used both for signing and for the
// REST upload form.
func (r *Runner) RESTParams(at time.Time) signature.Params {
	return signature.Params{
		"folder":          r.plan.Folder,
		"public_id":       r.plan.RESTPublicID,
		"unique_filename": r.plan.UniqueFilename,
		"timestamp":       signature.Timestamp(at),
	}
}

// Sign computes and prints the signature for params.
func (r *Runner) Sign(ctx context.Context, params signature.Params) (string, error) {
	sig, err := r.rest.Sign(params)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	log.Ctx(ctx).Debug().Str("payload", params.Canonical()).Msg("request signed")
	fmt.Fprintln(r.out, sig)
	return sig, nil
}

// REST posts img as a data URI with params to the upload endpoint.
func (r *Runner) REST(ctx context.Context, img *media.Image, params signature.Params) (*cloudinary.Result, error) {
	result, err := r.rest.Upload(ctx, img.DataURI(), params)
	if err != nil {
		return nil, fmt.Errorf("rest upload: %w", err)
	}
	log.Ctx(ctx).Info().Str("public_id", result.PublicID).Msg("rest upload complete")
	fmt.Fprintln(r.out, result.URL)
	return result, nil
}

// Signed uploads img through the SDK, which signs the request itself.
func (r *Runner) Signed(ctx context.Context, img *media.Image) (*cloudinary.Result, error) {
	result, err := r.sdk.Upload(ctx, img.Data, r.plan.Folder, r.plan.SDKPublicID, r.plan.UniqueFilename)
	if err != nil {
		return nil, fmt.Errorf("signed upload: %w", err)
	}
	log.Ctx(ctx).Info().Str("public_id", result.PublicID).Msg("signed upload complete")
	fmt.Fprintln(r.out, result.URL)
	return result, nil
}
