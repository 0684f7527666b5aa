package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sekhar08/livekit-memory-chat/internal/auth"
	"github.com/sekhar08/livekit-memory-chat/internal/config"
	"github.com/sekhar08/livekit-memory-chat/internal/server"
	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/sekhar08/livekit-memory-chat/internal/ui"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

const shutdownTimeout = 5 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local room service",
	Long: `Run a room service that accepts participants holding a valid access token
and relays data channel packets between participants of the same room.

Tokens must be signed with LIVEKIT_API_KEY / LIVEKIT_API_SECRET.

Examples:
  roomchat serve
  roomchat serve --port 7880`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRoomServer(servePort)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		hub := server.NewHub()
		go hub.Run(ctx)

		srv := server.New(hub, auth.NewVerifier(cfg.APIKey, cfg.APISecret), webrtc.ICEConfig{
			STUNServers: cfg.GetSTUNServers(),
		})

		addr := fmt.Sprintf(":%d", cfg.Port)
		ui.RenderServerInfo(cmd.OutOrStdout(), ui.IconRoom+" Room service", [][]string{
			{"Participants", fmt.Sprintf("ws://localhost%s%s", addr, signaling.RTCPath)},
			{"Health", fmt.Sprintf("http://localhost%s/health", addr)},
			{"API key", cfg.APIKey},
			{"STUN", strings.Join(cfg.GetSTUNServers(), ", ")},
		})

		return listenAndServe(ctx, addr, srv.Routes())
	},
}

// listenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Fprintln(os.Stderr)
	ui.PrintInfo("Server stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "P", 0, "Listen port (default 7880, or ROOM_SERVER_PORT)")
}
