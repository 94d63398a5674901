package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"cldupload/internal/config"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrNotImage      = errors.New("file is not an image")
)

type Image struct {
	Path     string
	Data     []byte
	MimeType string
}

// Load reads the whole file at path into memory and detects its MIME type.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := DetermineMimeType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotImage, path, mimeType)
	}

	return &Image{
		Path:     path,
		Data:     data,
		MimeType: mimeType,
	}, nil
}

// DetermineMimeType sniffs the content, ignoring any parameters such as charset.
func DetermineMimeType(data []byte) string {
	mt := mimetype.Detect(data)
	mediaType, _, _ := strings.Cut(mt.String(), ";")
	return mediaType
}

// DataURI encodes the image as a base64 data URI.
func (img *Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data))
}

// Prepare applies the optional resize and re-encode steps. img is returned
// unchanged when neither a resize nor a conversion is needed.
func Prepare(img *Image, opts config.PrepareOptions) (*Image, error) {
	if opts.MaxWidth <= 0 && opts.ConvertTo == "" {
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	// never upscale
	resize := opts.MaxWidth > 0 && cfg.Width > opts.MaxWidth
	if !resize && opts.ConvertTo == "" {
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if resize {
		decoded = imaging.Resize(decoded, opts.MaxWidth, 0, imaging.Lanczos)
	}

	format := opts.ConvertTo
	if format == "" {
		format = strings.TrimPrefix(img.MimeType, "image/")
		// gif, bmp and tiff sources are re-encoded losslessly
		if !encodable(format) {
			format = "png"
		}
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	var buf bytes.Buffer
	var mimeType string
	switch strings.ToLower(format) {
	case "png":
		err = png.Encode(&buf, decoded)
		mimeType = "image/png"
	case "webp":
		err = webp.Encode(&buf, decoded, &webp.Options{Quality: float32(quality)})
		mimeType = "image/webp"
	case "jpeg", "jpg":
		err = jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: quality})
		mimeType = "image/jpeg"
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &Image{
		Path:     img.Path,
		Data:     buf.Bytes(),
		MimeType: mimeType,
	}, nil
}

func encodable(format string) bool {
	switch strings.ToLower(format) {
	case "png", "webp", "jpeg", "jpg":
		return true
	}
	return false
}
