package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotConfigured = errors.New("not configured")
	ErrInvalidInput  = errors.New("invalid integration request")
)

// Platform enum
type Platform string

const (
	PlatformSlack  Platform = "slack"
	PlatformNotion Platform = "notion"
)

// Config is the per-platform credential and settings blob. One row per platform.
type Config struct {
	Platform  Platform        `json:"platform"`
	Settings  json.RawMessage `json:"config"`
	Active    bool            `json:"is_active"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type SlackSettings struct {
	BotToken   string   `json:"bot_token"`
	ChannelIDs []string `json:"channel_ids"`
}

type NotionSettings struct {
	APIKey      string   `json:"api_key"`
	DatabaseIDs []string `json:"database_ids"`
}

// Decode unmarshals the settings blob into dst.
func (c *Config) Decode(dst any) error {
	if len(c.Settings) == 0 {
		return fmt.Errorf("%s config is empty", c.Platform)
	}
	return json.Unmarshal(c.Settings, dst)
}

// Repository port for integration configs
type Repository interface {
	// Upsert replaces any previous config for the platform.
	Upsert(ctx context.Context, c *Config) error
	// Active returns ErrNotConfigured when no active row exists.
	Active(ctx context.Context, p Platform) (*Config, error)
	ListActive(ctx context.Context) ([]*Config, error)
}
