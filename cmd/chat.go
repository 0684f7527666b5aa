package cmd

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sekhar08/livekit-memory-chat/internal/config"
)

var chatFlags config.Options

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"c"},
	Short:   "Join a room and chat",
	Long: `Open the chat screen. Enter the room service address and either a token
endpoint or nothing (you will be asked to paste a token), then press enter.

Examples:
  roomchat chat --url wss://my-project.livekit.cloud --token-url http://localhost:8000/token
  roomchat chat --url ws://localhost:7880 --token eyJhbGciOi...
  LOG_LEVEL=debug LOG_FILE=chat.log roomchat chat`,
	Annotations: map[string]string{annotationTUI: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(chatFlags)
		if err != nil {
			return err
		}

		c := NewChatContext(cmd.Context(), cfg)
		defer c.Close()

		err = c.Screen.Run(tea.WithContext(cmd.Context()))
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatFlags.ServerURL, "url", "", "Room service address (ws:// or wss://)")
	chatCmd.Flags().StringVar(&chatFlags.TokenURL, "token-url", "", "Token endpoint")
	chatCmd.Flags().StringVar(&chatFlags.Token, "token", "", "Access token, used when no token endpoint is set")
	chatCmd.Flags().StringVarP(&chatFlags.Identity, "identity", "i", "", "Identity sent to the token endpoint")
	chatCmd.Flags().StringVarP(&chatFlags.Room, "room", "R", "", "Room sent to the token endpoint")
	chatCmd.Flags().StringVarP(&chatFlags.STUNServer, "stun", "s", "", "Custom STUN server")
	chatCmd.Flags().StringVarP(&chatFlags.TURNServer, "turn", "t", "", "Custom TURN server")
	chatCmd.Flags().StringVarP(&chatFlags.TURNUser, "turn-user", "u", "", "TURN username")
	chatCmd.Flags().StringVarP(&chatFlags.TURNPass, "turn-pass", "p", "", "TURN password")
	chatCmd.Flags().BoolVarP(&chatFlags.ForceRelay, "relay", "r", false, "Force relay mode")
	chatCmd.Flags().DurationVar(&chatFlags.ConnectTimeout, "timeout", 0, "Connect timeout (default 30s)")
}
