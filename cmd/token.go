package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sekhar08/livekit-memory-chat/internal/auth"
	"github.com/sekhar08/livekit-memory-chat/internal/config"
	"github.com/sekhar08/livekit-memory-chat/internal/token"
	"github.com/sekhar08/livekit-memory-chat/internal/tokenserver"
	"github.com/sekhar08/livekit-memory-chat/internal/ui"
)

var (
	tokenServePort int

	createIdentity string
	createName     string
	createRoom     string
	createTTL      time.Duration

	fetchURL      string
	fetchIdentity string
	fetchRoom     string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue and fetch room access tokens",
}

var tokenServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the token endpoint",
	Long: `Serve GET /token?identity=<id>&room=<room>, returning
{"identity","room","token"} signed with LIVEKIT_API_KEY / LIVEKIT_API_SECRET.

Examples:
  roomchat token serve
  roomchat token serve --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadTokenServer(tokenServePort)
		if err != nil {
			return err
		}
		ttl, err := cfg.TTL()
		if err != nil {
			return err
		}
		if cfg.APIKey == "" || cfg.APISecret == "" {
			ui.PrintWarning("LIVEKIT_API_KEY or LIVEKIT_API_SECRET is not set; /token will answer 500")
		}

		addr := fmt.Sprintf(":%d", cfg.Port)
		ui.RenderServerInfo(cmd.OutOrStdout(), ui.IconKey+" Token endpoint", [][]string{
			{"Token", fmt.Sprintf("http://localhost%s/token?identity=web-user&room=default", addr)},
			{"Health", fmt.Sprintf("http://localhost%s/health", addr)},
			{"Token TTL", ttl.String()},
		})

		h := tokenserver.NewHandler(cfg.APIKey, cfg.APISecret, ttl)
		return listenAndServe(cmd.Context(), addr, tokenserver.NewRouter(h))
	},
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Sign an access token locally",
	Long: `Sign a room join token with LIVEKIT_API_KEY / LIVEKIT_API_SECRET and print it.
A readable identity is generated when none is given.

Examples:
  roomchat token create --room lobby
  roomchat token create --identity alice --room lobby --ttl 1h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadTokenServer(0)
		if err != nil {
			return err
		}
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return errors.New("LIVEKIT_API_KEY and LIVEKIT_API_SECRET must be set")
		}

		identity := createIdentity
		if identity == "" {
			identity = auth.RandomIdentity()
		}

		jwt, err := auth.NewAccessToken(cfg.APIKey, cfg.APISecret).
			SetIdentity(identity).
			SetName(createName).
			SetValidFor(createTTL).
			AddGrant(&auth.VideoGrant{RoomJoin: true, Room: createRoom}).
			ToJWT()
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}

		return printToken(cmd, jwt)
	},
}

var tokenFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Request a token from a token endpoint",
	Long: `Request a token the same way the chat screen does and print its claims.

Examples:
  roomchat token fetch --url http://localhost:8000/token --identity alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			TokenURL: fetchURL,
			Identity: fetchIdentity,
			Room:     fetchRoom,
		})
		if err != nil {
			return err
		}
		if cfg.TokenURL == "" {
			return errors.New("no token endpoint: pass --url or set TOKEN_URL")
		}

		sp := ui.NewConnectionSpinner("Requesting token from " + cfg.TokenURL)
		sp.Start()
		jwt, err := token.NewFetcher(cfg.HTTPTimeout).Fetch(cmd.Context(), cfg.TokenURL, token.Params{
			Identity: cfg.Identity,
			Room:     cfg.Room,
		})
		if err != nil {
			sp.Error("Token request failed")
			return err
		}
		sp.Success("Token received")

		return printToken(cmd, jwt)
	},
}

func printToken(cmd *cobra.Command, jwt string) error {
	claims, err := auth.ParseUnverified(jwt)
	if err != nil {
		return err
	}

	info := ui.TokenInfo{
		Identity: claims.Identity(),
		Issuer:   claims.Issuer,
		Token:    jwt,
	}
	if claims.Video != nil {
		info.Room = claims.Video.Room
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	slog.Debug("token claims", "identity", info.Identity, "room", info.Room, "expires", info.ExpiresAt)

	ui.RenderTokenSummary(cmd.OutOrStdout(), info)
	return nil
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenServeCmd, tokenCreateCmd, tokenFetchCmd)

	tokenServeCmd.Flags().IntVarP(&tokenServePort, "port", "P", 0, "Listen port (default 8000, or TOKEN_SERVER_PORT)")

	tokenCreateCmd.Flags().StringVarP(&createIdentity, "identity", "i", "", "Participant identity (generated when empty)")
	tokenCreateCmd.Flags().StringVarP(&createName, "name", "n", "", "Display name")
	tokenCreateCmd.Flags().StringVarP(&createRoom, "room", "R", config.DefaultRoom, "Room to grant")
	tokenCreateCmd.Flags().DurationVar(&createTTL, "ttl", 6*time.Hour, "Token lifetime")

	tokenFetchCmd.Flags().StringVar(&fetchURL, "url", "", "Token endpoint (or TOKEN_URL)")
	tokenFetchCmd.Flags().StringVarP(&fetchIdentity, "identity", "i", "", "Identity to request (or CHAT_IDENTITY)")
	tokenFetchCmd.Flags().StringVarP(&fetchRoom, "room", "R", "", "Room to request (or CHAT_ROOM)")
}
