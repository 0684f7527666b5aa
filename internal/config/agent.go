package config

import (
	"fmt"

	env "github.com/Netflix/go-env"
	"github.com/samber/lo"
)

const (
	DefaultAgentIdentity = "memory-agent"
	DefaultAgentModel    = "gemini-1.5-flash"
	// DefaultAgentModelURL is Gemini's OpenAI compatible endpoint.
	DefaultAgentModelURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// AgentConfig configures `roomchat agent`. The agent signs its own join
// token, so it needs the API credentials rather than a token endpoint.
type AgentConfig struct {
	ServerURL  string `env:"LIVEKIT_URL,default=ws://localhost:7880" validate:"required"`
	APIKey     string `env:"LIVEKIT_API_KEY" validate:"required"`
	APISecret  string `env:"LIVEKIT_API_SECRET" validate:"required"`
	Identity   string `env:"AGENT_IDENTITY,default=memory-agent" validate:"required"`
	Room       string `env:"AGENT_ROOM,default=default" validate:"required"`
	STUNServer string `env:"STUN_SERVER,default=stun:stun.l.google.com:19302"`

	ModelKey string `env:"GEMINI_API_KEY" validate:"required"`
	Model    string `env:"AGENT_MODEL,default=gemini-1.5-flash" validate:"required"`
	ModelURL string `env:"AGENT_MODEL_URL,default=https://generativelanguage.googleapis.com/v1beta/openai/" validate:"required,url"`

	// MemoryDir holds the memory store; empty keeps memories in process.
	MemoryDir   string `env:"AGENT_MEMORY_DIR"`
	MemoryLimit int    `env:"AGENT_MEMORY_LIMIT,default=5" validate:"min=1,max=50"`
}

// AgentOptions are flag overrides for LoadAgent. Empty fields keep the
// environment value.
type AgentOptions struct {
	ServerURL string
	Identity  string
	Room      string
	MemoryDir string
}

// LoadAgent reads the agent configuration from the environment and applies
// flag overrides.
func LoadAgent(o AgentOptions) (*AgentConfig, error) {
	var cfg AgentConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	cfg.ServerURL = lo.CoalesceOrEmpty(o.ServerURL, cfg.ServerURL)
	cfg.Identity = lo.CoalesceOrEmpty(o.Identity, cfg.Identity)
	cfg.Room = lo.CoalesceOrEmpty(o.Room, cfg.Room)
	cfg.MemoryDir = lo.CoalesceOrEmpty(o.MemoryDir, cfg.MemoryDir)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	return &cfg, nil
}

func (c *AgentConfig) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}
