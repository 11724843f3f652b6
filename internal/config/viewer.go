package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// ViewerConfig holds the settings for the terminal viewer.
type ViewerConfig struct {
	ServerURL string
	Token     string
	AuthorID  string
}

const defaultViewerConfigPath = "~/.config/statusplay/config.toml"

// LoadViewer locates and parses the viewer config, falling back to
// defaults when the file is missing. Flags still override the result.
func LoadViewer(path string) (ViewerConfig, error) {
	resolved, err := resolveViewerPath(path)
	if err != nil {
		return ViewerConfig{}, err
	}

	cfg := ViewerConfig{ServerURL: "http://localhost:8080"}

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return ViewerConfig{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL string `toml:"server_url"`
		Token     string `toml:"token"`
		AuthorID  string `toml:"author_id"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return ViewerConfig{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	cfg.AuthorID = strings.TrimSpace(raw.AuthorID)

	return cfg, nil
}

func resolveViewerPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultViewerConfigPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
