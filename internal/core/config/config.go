package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultSummaryTemplate = `{{filename}} (dataset #{{id}}, uploaded {{uploaded}})
  Equipment:        {{total_count}}
  Avg flowrate:     {{avg_flowrate}}
  Avg pressure:     {{avg_pressure}}
  Avg temperature:  {{avg_temperature}}
{{#types}}
  - {{name}}: {{count}}
{{/types}}`

const (
	DefaultAPIURL       = "http://localhost:8000/api"
	DefaultAuthScheme   = "Token"
	DefaultResetDelay   = time.Second
	DefaultMaxUploadMiB = 50
)

type Config struct {
	APIURL     string
	AuthScheme string // "Token" (Django REST framework) or "Bearer"

	// Upload widget behaviour
	AllowedExtensions []string
	MaxUploadBytes    int64
	ResetDelay        time.Duration // how long a finished upload stays on screen

	DownloadDir string

	// ClearCredentialOnUnauthorized logs the user out the first time the
	// backend answers 401. Off by default so the user can retry.
	ClearCredentialOnUnauthorized bool

	SummaryTemplate string

	LogLevel string
	LogFile  string
}

type tomlConfig struct {
	APIURL                        string   `toml:"api_url"`
	AuthScheme                    string   `toml:"auth_scheme"`
	AllowedExtensions             []string `toml:"allowed_extensions"`
	MaxUploadMiB                  int64    `toml:"max_upload_mib"`
	ResetDelayMS                  int      `toml:"reset_delay_ms"`
	DownloadDir                   string   `toml:"download_dir"`
	ClearCredentialOnUnauthorized bool     `toml:"clear_credential_on_unauthorized"`
	Log                           struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

// Dir returns ~/.config/eqviz, or a relative fallback when $HOME is unknown
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".eqviz"
	}
	return filepath.Join(home, ".config", "eqviz")
}

// Defaults returns the configuration used when no file is present
func Defaults() *Config {
	downloads := "."
	if home, err := os.UserHomeDir(); err == nil {
		downloads = filepath.Join(home, "Downloads")
	}
	return &Config{
		APIURL:            DefaultAPIURL,
		AuthScheme:        DefaultAuthScheme,
		AllowedExtensions: []string{".csv"},
		MaxUploadBytes:    DefaultMaxUploadMiB << 20,
		ResetDelay:        DefaultResetDelay,
		DownloadDir:       downloads,
		SummaryTemplate:   DefaultSummaryTemplate,
		LogLevel:          "info",
		LogFile:           filepath.Join(Dir(), "eqviz.log"),
	}
}

// Load reads config from path, or from ~/.config/eqviz/config.toml when
// path is empty. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	configDir := Dir()
	if path == "" {
		path = filepath.Join(configDir, "config.toml")
	} else {
		configDir = filepath.Dir(path)
	}

	if _, err := os.Stat(path); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(path, &tc); err != nil {
			return nil, err
		}
		cfg.apply(tc)
	}

	// If custom summary template exists, use it
	if data, err := os.ReadFile(filepath.Join(configDir, "summary_template.txt")); err == nil {
		cfg.SummaryTemplate = string(data)
	}

	envOverride(&cfg.APIURL, "EQVIZ_API_URL")
	envOverride(&cfg.LogLevel, "EQVIZ_LOG_LEVEL")
	envOverride(&cfg.LogFile, "EQVIZ_LOG_FILE")

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, nil
}

func (c *Config) apply(tc tomlConfig) {
	if tc.APIURL != "" {
		c.APIURL = tc.APIURL
	}
	if tc.AuthScheme != "" {
		c.AuthScheme = tc.AuthScheme
	}
	if len(tc.AllowedExtensions) > 0 {
		exts := make([]string, 0, len(tc.AllowedExtensions))
		for _, e := range tc.AllowedExtensions {
			e = strings.ToLower(strings.TrimSpace(e))
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, e)
		}
		c.AllowedExtensions = exts
	}
	if tc.MaxUploadMiB > 0 {
		c.MaxUploadBytes = tc.MaxUploadMiB << 20
	}
	if tc.ResetDelayMS > 0 {
		c.ResetDelay = time.Duration(tc.ResetDelayMS) * time.Millisecond
	}
	if tc.DownloadDir != "" {
		c.DownloadDir = expandHome(tc.DownloadDir)
	}
	c.ClearCredentialOnUnauthorized = tc.ClearCredentialOnUnauthorized
	if tc.Log.Level != "" {
		c.LogLevel = tc.Log.Level
	}
	if tc.Log.File != "" {
		c.LogFile = expandHome(tc.Log.File)
	}
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
