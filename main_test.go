package main

import (
	"bytes"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cldupload/internal/config"
	"cldupload/internal/media"
	"cldupload/internal/signature"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CLOUD_NAME", "demo")
	t.Setenv("API_KEY", "123456")
	t.Setenv("API_SECRET", "s")
	t.Setenv("PLAN_PATH", "")
	t.Setenv("REPORT_S3_BUCKET", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		planPath, imagePath, envFile, logLevel = "", "", "", ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSignCommand(t *testing.T) {
	out, err := execute(t, "sign")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{40}$`), strings.TrimSpace(out))
}

func TestSignCommand_SHA256(t *testing.T) {
	t.Setenv("SIGNATURE_ALGORITHM", "sha256")

	out, err := execute(t, "sign")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 64)
}

func TestSignCommand_UnsupportedAlgorithm(t *testing.T) {
	t.Setenv("SIGNATURE_ALGORITHM", "md5")

	out, err := execute(t, "sign")
	assert.ErrorIs(t, err, signature.ErrUnsupportedAlgorithm)
	assert.Empty(t, out)
}

func TestRunCommand_MissingImage(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "chase.jpg")

	out, err := execute(t, "run", "--image", missing)
	assert.ErrorIs(t, err, media.ErrImageNotFound)
	assert.Empty(t, out)
}

func TestRunCommand_MissingCredentials(t *testing.T) {
	t.Setenv("API_SECRET", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"sign"})
	err := rootCmd.Execute()

	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(io.Discard, "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger, err = newLogger(io.Discard, "debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	_, err = newLogger(io.Discard, "loud")
	assert.Error(t, err)
}
