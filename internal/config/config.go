package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	LogDir     string `toml:"log_dir"`
	ExportDir  string `toml:"export_dir"`
}

// LLM contains the OpenRouter-compatible connection settings shared by the
// lyric lookup, transcription and translation providers.
type LLM struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	TranscriptionModel string `toml:"transcription_model"`
	Referer            string `toml:"referer"`
	Title              string `toml:"title"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Alignment holds the aligner and merger tuning.
type Alignment struct {
	High                   float64 `toml:"high"`
	Medium                 float64 `toml:"medium"`
	Containment            float64 `toml:"containment"`
	TextWeight             float64 `toml:"text_weight"`
	ProximityWeight        float64 `toml:"proximity_weight"`
	ProximityWindowSeconds float64 `toml:"proximity_window_seconds"`
	Anchor                 float64 `toml:"anchor"`
	AnchorTextHigh         float64 `toml:"anchor_text_high"`
	RouteAMean             float64 `toml:"route_a_mean"`
	RouteBMean             float64 `toml:"route_b_mean"`
	RouteBMaxLowFraction   float64 `toml:"route_b_max_low_fraction"`
	// InterpolateGaps re-places unanchored merge segments between anchors.
	InterpolateGaps bool `toml:"interpolate_gaps"`
}

// Window controls cut-window derivation.
type Window struct {
	DefaultSpanSeconds float64 `toml:"default_span_seconds"`
	OverlayHoldSeconds float64 `toml:"overlay_hold_seconds"`
}

// Translation lists the subtitle languages produced for every edition.
type Translation struct {
	TargetLanguages []string `toml:"target_languages"`
}

// Subtitles controls ASS rendering.
type Subtitles struct {
	StyleFile       string `toml:"style_file"`
	PlayResX        int    `toml:"play_res_x"`
	PlayResY        int    `toml:"play_res_y"`
	OverlayMaxChars int    `toml:"overlay_max_chars"`
}

// Media names the external binaries.
type Media struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	YtDlpBinary    string `toml:"ytdlp_binary"`
	DownloadFormat string `toml:"download_format"`
}

// Workflow contains configuration for runner timing and concurrency.
type Workflow struct {
	PollInterval        int `toml:"poll_interval"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
	Workers             int `toml:"workers"`
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"`
	HeartbeatInterval   int `toml:"heartbeat_interval"`
	HeartbeatTimeout    int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ariacut.
//
// Configuration sections by subsystem:
//   - Paths: storage, logs and finished exports
//   - LLM: provider connection shared by lyrics, transcription and translation
//   - Alignment: aligner and merger thresholds
//   - Window: cut-window fallbacks
//   - Translation: subtitle languages
//   - Subtitles: ASS layout
//   - Media: ffmpeg, ffprobe and yt-dlp
//   - Workflow: runner polling, workers and timeouts
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	LLM         LLM         `toml:"llm"`
	Alignment   Alignment   `toml:"alignment"`
	Window      Window      `toml:"window"`
	Translation Translation `toml:"translation"`
	Subtitles   Subtitles   `toml:"subtitles"`
	Media       Media       `toml:"media"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory or next to
// the config file is loaded first; variables already set in the environment win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if err := loadDotEnv(".env", filepath.Join(filepath.Dir(resolvedPath), ".env")); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(paths ...string) error {
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ariacut.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
// ExportDir is created on a best-effort basis so the runner can work when
// the export share is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ExportDir) != "" {
		_ = os.MkdirAll(c.Paths.ExportDir, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the SQLite store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StorageDir, "ariacut.db")
}

// LockPath returns the file guarding a single runner per storage directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StorageDir, "ariacut.lock")
}

// EditionDir returns the working directory of one edition.
func (c *Config) EditionDir(id int64) string {
	return filepath.Join(c.Paths.StorageDir, "editions", strconv.FormatInt(id, 10))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string { return sampleConfig }

// LLMConfig contains common LLM settings used across features.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// TranscriptionLLM returns the settings for audio transcription.
// Falls back to the shared model when no transcription model is configured.
func (c *Config) TranscriptionLLM() LLMConfig {
	cfg := c.GetLLM()
	if model := strings.TrimSpace(c.LLM.TranscriptionModel); model != "" {
		cfg.Model = model
	}
	return cfg
}
