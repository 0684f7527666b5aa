package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TokenServerConfig configures `roomchat token serve`. Missing API
// credentials are reported per request, not at startup.
type TokenServerConfig struct {
	APIKey    string `env:"LIVEKIT_API_KEY"`
	APISecret string `env:"LIVEKIT_API_SECRET"`
	Port      int    `env:"TOKEN_SERVER_PORT,default=8000" validate:"min=1,max=65535"`
	TokenTTL  string `env:"TOKEN_TTL,default=6h" validate:"required"`
}

// RoomServerConfig configures `roomchat serve`.
type RoomServerConfig struct {
	APIKey     string `env:"LIVEKIT_API_KEY" validate:"required"`
	APISecret  string `env:"LIVEKIT_API_SECRET" validate:"required"`
	Port       int    `env:"ROOM_SERVER_PORT,default=7880" validate:"min=1,max=65535"`
	STUNServer string `env:"STUN_SERVER,default=stun:stun.l.google.com:19302"`
}

// LoadTokenServer reads the token server configuration from the environment.
// A non-zero port overrides the environment.
func LoadTokenServer(port int) (*TokenServerConfig, error) {
	var cfg TokenServerConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if port != 0 {
		cfg.Port = port
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid token server config: %w", err)
	}
	if _, err := cfg.TTL(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TTL parses TokenTTL.
func (c *TokenServerConfig) TTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid TOKEN_TTL %q: %w", c.TokenTTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid TOKEN_TTL %q: must be positive", c.TokenTTL)
	}
	return d, nil
}

// LoadRoomServer reads the room service configuration from the environment.
// A non-zero port overrides the environment.
func LoadRoomServer(port int) (*RoomServerConfig, error) {
	var cfg RoomServerConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if port != 0 {
		cfg.Port = port
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid room server config: %w", err)
	}
	return &cfg, nil
}

// GetSTUNServers returns the ICE servers the room service offers its peers.
func (c *RoomServerConfig) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}
