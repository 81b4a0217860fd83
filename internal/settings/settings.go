// Package settings keeps the user-facing preferences (theme, refresh, desktop
// alerts) in a small config file that is read at startup and rewritten on
// every change.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/vbonduro/propdesk/internal/validate"
)

const (
	keyTheme                = "theme"
	keyRefreshSeconds       = "refresh_interval_seconds"
	keyDesktopNotifications = "desktop_notifications"
	keyAutoRefresh          = "auto_refresh"
)

type Settings struct {
	Theme                string `mapstructure:"theme" json:"theme" validate:"oneof=light dark system"`
	RefreshSeconds       int    `mapstructure:"refresh_interval_seconds" json:"refresh_interval_seconds" validate:"min=30,max=300"`
	DesktopNotifications bool   `mapstructure:"desktop_notifications" json:"desktop_notifications"`
	AutoRefresh          bool   `mapstructure:"auto_refresh" json:"auto_refresh"`
}

func (s Settings) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshSeconds) * time.Second
}

// Defaults returns the settings used when no file exists yet. refresh is
// clamped into the allowed 30s..5m range.
func Defaults(refresh time.Duration) Settings {
	secs := int(refresh / time.Second)
	secs = min(max(secs, 30), 300)
	return Settings{
		Theme:          "system",
		RefreshSeconds: secs,
		AutoRefresh:    true,
	}
}

type Store struct {
	mu        sync.RWMutex
	v         *viper.Viper
	path      string
	current   Settings
	validator *validate.Validator
	logger    *slog.Logger
}

// Open loads settings from path. A missing file yields defaults; it is
// created on the first Update.
func Open(path string, defaults Settings, validator *validate.Validator, logger *slog.Logger) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	v.SetDefault(keyTheme, defaults.Theme)
	v.SetDefault(keyRefreshSeconds, defaults.RefreshSeconds)
	v.SetDefault(keyDesktopNotifications, defaults.DesktopNotifications)
	v.SetDefault(keyAutoRefresh, defaults.AutoRefresh)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
		logger.Info("no settings file, using defaults", "path", path)
	}

	var current Settings
	if err := v.Unmarshal(&current); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := validator.Struct(current); err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return &Store{v: v, path: path, current: current, validator: validator, logger: logger}, nil
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates next, writes it to disk, and makes it current. On error
// the previous settings stay in effect.
func (s *Store) Update(next Settings) (Settings, error) {
	next.Theme = strings.ToLower(strings.TrimSpace(next.Theme))
	if err := s.validator.Struct(next); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Settings{}, fmt.Errorf("failed to create settings dir: %w", err)
	}

	s.v.Set(keyTheme, next.Theme)
	s.v.Set(keyRefreshSeconds, next.RefreshSeconds)
	s.v.Set(keyDesktopNotifications, next.DesktopNotifications)
	s.v.Set(keyAutoRefresh, next.AutoRefresh)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		s.restore()
		return Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}

	s.current = next
	s.logger.Info("settings saved", "theme", next.Theme, "refresh_interval_seconds", next.RefreshSeconds)
	return next, nil
}

func (s *Store) restore() {
	s.v.Set(keyTheme, s.current.Theme)
	s.v.Set(keyRefreshSeconds, s.current.RefreshSeconds)
	s.v.Set(keyDesktopNotifications, s.current.DesktopNotifications)
	s.v.Set(keyAutoRefresh, s.current.AutoRefresh)
}

func (s *Store) RefreshInterval() time.Duration {
	return s.Get().RefreshInterval()
}

func (s *Store) AutoRefresh() bool {
	return s.Get().AutoRefresh
}

func (s *Store) DesktopNotifications() bool {
	return s.Get().DesktopNotifications
}
