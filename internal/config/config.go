package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultIdentity       = "web-user"
	DefaultRoom           = "default"
	DefaultSTUN           = "stun:stun.l.google.com:19302"
	DefaultConnectTimeout = 30 * time.Second
	DefaultHTTPTimeout    = 10 * time.Second
)

// Config holds the chat client configuration
type Config struct {
	// ServerURL is the ws:// or wss:// address of the room service
	ServerURL string

	// TokenURL is the token endpoint; empty means the operator pastes a token
	TokenURL string

	// Token is a pre-supplied credential, used when TokenURL is empty
	Token string

	// Identity and Room are sent to the token endpoint
	Identity string
	Room     string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	ConnectTimeout time.Duration
	HTTPTimeout    time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	ServerURL      string
	TokenURL       string
	Token          string
	Identity       string
	Room           string
	STUNServer     string
	TURNServer     string
	TURNUser       string
	TURNPass       string
	ForceRelay     bool
	ConnectTimeout time.Duration
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		ServerURL:  pick(opts.ServerURL, "LIVEKIT_URL", ""),
		TokenURL:   pick(opts.TokenURL, "TOKEN_URL", ""),
		Token:      pick(opts.Token, "LIVEKIT_TOKEN", ""),
		Identity:   pick(opts.Identity, "CHAT_IDENTITY", DefaultIdentity),
		Room:       pick(opts.Room, "CHAT_ROOM", DefaultRoom),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay: opts.ForceRelay,

		ConnectTimeout: opts.ConnectTimeout,
		HTTPTimeout:    DefaultHTTPTimeout,
	}

	if !cfg.ForceRelay {
		if v, ok := os.LookupEnv("FORCE_RELAY"); ok {
			relay, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid FORCE_RELAY %q: %w", v, err)
			}
			cfg.ForceRelay = relay
		}
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
		if v := os.Getenv("CONNECT_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid CONNECT_TIMEOUT %q: %w", v, err)
			}
			cfg.ConnectTimeout = d
		}
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, errors.New("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// pick returns the flag value, then the environment value, then the default.
func pick(flag, envKey, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return def
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
