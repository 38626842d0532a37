/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config holds the user-editable configuration, persisted to a YAML
// file in the user scope. Environment variables are read-only overrides at
// runtime.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type ExportConfig struct {
	// OutDir receives exported documents. Relative paths resolve against
	// the working directory.
	OutDir string `yaml:"out_dir"`
	// RasterWidth is the pixel width slides are rendered at for export.
	RasterWidth int  `yaml:"raster_width"`
	Dark        bool `yaml:"dark"`
	Background  bool `yaml:"background"`
	// ViewBackgroundColor is the canvas color used when background is on.
	ViewBackgroundColor string `yaml:"view_background_color"`
}

type PreviewConfig struct {
	// Width is the requested preview width in pixels.
	Width int `yaml:"width"`
	// MaxCacheBytes caps the persistent preview cache; 0 keeps the
	// built-in default.
	MaxCacheBytes int64 `yaml:"max_cache_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the full persisted configuration.
// config_version: bump when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Export        ExportConfig  `yaml:"export"`
	Preview       PreviewConfig `yaml:"preview"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Export:        ExportConfig{OutDir: "exports", RasterWidth: 1600, Background: true, ViewBackgroundColor: "#ffffff"},
		Preview:       PreviewConfig{Width: 320},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn = "FDK_TELEMETRY_OPT_IN"
	EnvExportOutDir   = "FDK_EXPORT_OUT_DIR"
	EnvExportWidth    = "FDK_EXPORT_RASTER_WIDTH"
	EnvPreviewWidth   = "FDK_PREVIEW_WIDTH"
	EnvLogLevel       = "FDK_LOG_LEVEL"
	EnvLogFormat      = "FDK_LOG_FORMAT"
	EnvLogSource      = "FDK_LOG_SOURCE"
	EnvLogFile        = "FDK_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "framedeck")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "framedeck")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "framedeck")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.Export.OutDir) != "" {
		dst.Export.OutDir = strings.TrimSpace(src.Export.OutDir)
	}
	if src.Export.RasterWidth > 0 {
		dst.Export.RasterWidth = src.Export.RasterWidth
	}
	dst.Export.Dark = src.Export.Dark
	dst.Export.Background = src.Export.Background
	if strings.TrimSpace(src.Export.ViewBackgroundColor) != "" {
		dst.Export.ViewBackgroundColor = strings.TrimSpace(src.Export.ViewBackgroundColor)
	}
	if src.Preview.Width > 0 {
		dst.Preview.Width = src.Preview.Width
	}
	if src.Preview.MaxCacheBytes > 0 {
		dst.Preview.MaxCacheBytes = src.Preview.MaxCacheBytes
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportOutDir)); v != "" {
		cfg.Export.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportWidth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Export.RasterWidth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreviewWidth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Preview.Width = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is currently
// overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "general.telemetry_opt_in":
		env = EnvTelemetryOptIn
	case "export.out_dir":
		env = EnvExportOutDir
	case "export.raster_width":
		env = EnvExportWidth
	case "preview.width":
		env = EnvPreviewWidth
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
