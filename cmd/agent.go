package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sekhar08/livekit-memory-chat/internal/agent"
	"github.com/sekhar08/livekit-memory-chat/internal/ai"
	"github.com/sekhar08/livekit-memory-chat/internal/auth"
	"github.com/sekhar08/livekit-memory-chat/internal/config"
	"github.com/sekhar08/livekit-memory-chat/internal/memory"
	"github.com/sekhar08/livekit-memory-chat/internal/session"
	"github.com/sekhar08/livekit-memory-chat/internal/ui"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

// agentTokenTTL only has to outlive the join.
const agentTokenTTL = time.Hour

var agentFlags config.AgentOptions

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the memory agent in a room",
	Long: `Join a room as an assistant that answers every message. Replies are
personalised with what the agent remembers about each sender, and every
exchange is remembered.

The agent signs its own token with LIVEKIT_API_KEY / LIVEKIT_API_SECRET and
calls the model through GEMINI_API_KEY (any OpenAI compatible endpoint works
via AGENT_MODEL_URL).

Examples:
  roomchat agent
  roomchat agent --url ws://localhost:7880 --room lobby
  roomchat agent --memory-dir ./agent-memory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAgent(agentFlags)
		if err != nil {
			return err
		}

		credential, err := auth.NewAccessToken(cfg.APIKey, cfg.APISecret).
			SetIdentity(cfg.Identity).
			SetValidFor(agentTokenTTL).
			AddGrant(&auth.VideoGrant{RoomJoin: true, Room: cfg.Room}).
			ToJWT()
		if err != nil {
			return fmt.Errorf("sign agent token: %w", err)
		}

		store, err := memory.Open(cfg.MemoryDir, slog.Default())
		if err != nil {
			return err
		}
		defer store.Close()

		memoryLocation := cfg.MemoryDir
		if memoryLocation == "" {
			memoryLocation = "in process"
		}
		ui.RenderServerInfo(cmd.OutOrStdout(), ui.IconChat+" Memory agent", [][]string{
			{"Room", cfg.Room},
			{"Identity", cfg.Identity},
			{"Server", cfg.ServerURL},
			{"Model", cfg.Model},
			{"Memory", memoryLocation},
			{"STUN", strings.Join(cfg.GetSTUNServers(), ", ")},
		})

		connector := session.NewRTCConnector(webrtc.ICEConfig{STUNServers: cfg.GetSTUNServers()})
		model := ai.NewOpenAIClient(cfg.ModelKey, cfg.ModelURL, cfg.Model)

		return agent.New(connector, store, model, agent.Config{
			ServerURL:   cfg.ServerURL,
			Credential:  credential,
			MemoryLimit: cfg.MemoryLimit,
		}).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)

	agentCmd.Flags().StringVar(&agentFlags.ServerURL, "url", "", "Room service address (or LIVEKIT_URL)")
	agentCmd.Flags().StringVarP(&agentFlags.Room, "room", "R", "", "Room to join (or AGENT_ROOM)")
	agentCmd.Flags().StringVarP(&agentFlags.Identity, "identity", "i", "", "Agent identity (or AGENT_IDENTITY)")
	agentCmd.Flags().StringVar(&agentFlags.MemoryDir, "memory-dir", "", "Keep memories on disk here (or AGENT_MEMORY_DIR)")
}
