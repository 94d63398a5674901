// Package signature implements Cloudinary's request signing scheme.
package signature

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	SHA1   = "sha1"
	SHA256 = "sha256"
)

var ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")

// Keys the provider never includes in the signed payload.
var unsigned = map[string]struct{}{
	"file":          {},
	"api_key":       {},
	"cloud_name":    {},
	"resource_type": {},
	"signature":     {},
}

// Params are upload request parameters. Values may be string, bool, any
// integer type, or []string.
type Params map[string]any

// Timestamp returns t as Unix seconds, the form the provider expects.
func Timestamp(t time.Time) int64 {
	return t.Unix()
}

// Canonical renders p as sorted key=value pairs joined by '&', skipping
// unsigned keys and empty values.
func (p Params) Canonical() string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if _, skip := unsigned[k]; skip {
			continue
		}
		if formatValue(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(p[k]))
	}
	return strings.Join(parts, "&")
}

// Form renders p as form values. Every key is included, so callers must add
// api_key and signature themselves.
func (p Params) Form() url.Values {
	form := url.Values{}
	for k, v := range p {
		if s := formatValue(v); s != "" {
			form.Set(k, s)
		}
	}
	return form
}

// Sign computes the hex digest of the canonical params followed by secret.
// An empty algorithm means SHA1.
func Sign(p Params, secret, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	h.Write([]byte(p.Canonical() + secret))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ValidateAlgorithm reports whether Sign accepts algorithm.
func ValidateAlgorithm(algorithm string) error {
	_, err := newHash(algorithm)
	return err
}

func newHash(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "", SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}
