package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("EQVIZ_API_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, "Token", cfg.AuthScheme)
	assert.Equal(t, []string{".csv"}, cfg.AllowedExtensions)
	assert.Equal(t, time.Second, cfg.ResetDelay)
	assert.False(t, cfg.ClearCredentialOnUnauthorized)
	assert.Equal(t, DefaultSummaryTemplate, cfg.SummaryTemplate)
}

func TestLoad_TOMLAndTemplate(t *testing.T) {
	t.Setenv("EQVIZ_API_URL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
api_url = "https://viz.example.com/api/"
auth_scheme = "Bearer"
allowed_extensions = ["csv", ".TSV"]
max_upload_mib = 2
reset_delay_ms = 250
clear_credential_on_unauthorized = true

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary_template.txt"), []byte("{{filename}}"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://viz.example.com/api", cfg.APIURL)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.Equal(t, []string{".csv", ".tsv"}, cfg.AllowedExtensions)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.ResetDelay)
	assert.True(t, cfg.ClearCredentialOnUnauthorized)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "{{filename}}", cfg.SummaryTemplate)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EQVIZ_API_URL", "http://10.0.0.5:8000/api")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000/api", cfg.APIURL)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_url = "), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
