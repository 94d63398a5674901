package signature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoParams() Params {
	return Params{
		"folder":          "f",
		"public_id":       "p",
		"unique_filename": false,
		"timestamp":       int64(1700000000),
	}
}

func TestSign_KnownVectors(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		secret    string
		algorithm string
		expected  string
	}{
		{
			name:     "demo parameters",
			params:   demoParams(),
			secret:   "s",
			expected: "191a98abc1b3182082837eac4903c519e6aafa37",
		},
		{
			name:      "demo parameters sha256",
			params:    demoParams(),
			secret:    "s",
			algorithm: SHA256,
			expected:  "e60efcd0f39506745ee8508f85aae9492d10204b5f76afc715d06c8619b92cf9",
		},
		{
			name: "provider documentation example",
			params: Params{
				"eager":     "w_400,h_300,c_pad|w_260,h_200,c_crop",
				"public_id": "sample_image",
				"timestamp": 1315060510,
			},
			secret:   "abcd",
			expected: "bfd09f95f331f558cbd1320e67aa8d488770583e",
		},
		{
			name:     "slices are comma joined",
			params:   Params{"tags": []string{"a", "b"}, "timestamp": 1700000000},
			secret:   "s",
			expected: "cf008a5c4a92bc04a5897f6f523d54db58423e9a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Sign(tt.params, tt.secret, tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sig)
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	first, err := Sign(demoParams(), "s", SHA1)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Sign(demoParams(), "s", SHA1)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSign_AnyChangeAltersSignature(t *testing.T) {
	base, err := Sign(demoParams(), "s", SHA1)
	require.NoError(t, err)

	mutations := map[string]func(Params){
		"folder":          func(p Params) { p["folder"] = "g" },
		"public_id":       func(p Params) { p["public_id"] = "q" },
		"unique_filename": func(p Params) { p["unique_filename"] = true },
		"timestamp":       func(p Params) { p["timestamp"] = int64(1700000001) },
		"extra key":       func(p Params) { p["tags"] = "x" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := demoParams()
			mutate(p)
			sig, err := Sign(p, "s", SHA1)
			require.NoError(t, err)
			assert.NotEqual(t, base, sig)
		})
	}

	other, err := Sign(demoParams(), "t", SHA1)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}

func TestSign_IgnoresUnsignedKeys(t *testing.T) {
	base, err := Sign(demoParams(), "s", SHA1)
	require.NoError(t, err)

	p := demoParams()
	p["file"] = "data:image/jpeg;base64,AAAA"
	p["api_key"] = "123"
	p["signature"] = "abc"
	p["resource_type"] = "image"
	p["cloud_name"] = "demo"
	p["context"] = ""

	sig, err := Sign(p, "s", SHA1)
	require.NoError(t, err)
	assert.Equal(t, base, sig)
}

func TestSign_UnsupportedAlgorithm(t *testing.T) {
	_, err := Sign(demoParams(), "s", "md5")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestValidateAlgorithm(t *testing.T) {
	for _, algo := range []string{"", SHA1, SHA256, "SHA256"} {
		assert.NoError(t, ValidateAlgorithm(algo), algo)
	}
	assert.ErrorIs(t, ValidateAlgorithm("md5"), ErrUnsupportedAlgorithm)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t,
		"folder=f&public_id=p&timestamp=1700000000&unique_filename=false",
		demoParams().Canonical(),
	)
}

func TestForm(t *testing.T) {
	form := demoParams().Form()

	assert.Equal(t, "f", form.Get("folder"))
	assert.Equal(t, "p", form.Get("public_id"))
	assert.Equal(t, "false", form.Get("unique_filename"))
	assert.Equal(t, "1700000000", form.Get("timestamp"))
	assert.Len(t, form, 4)
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)
	assert.Equal(t, int64(1700000000), Timestamp(ts))
}
