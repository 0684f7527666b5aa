package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sekhar08/livekit-memory-chat/internal/config"
	"github.com/sekhar08/livekit-memory-chat/internal/logging"
	"github.com/sekhar08/livekit-memory-chat/internal/ui"
	"github.com/sekhar08/livekit-memory-chat/internal/version"
)

// annotationTUI marks commands that take over the terminal; their logs are
// discarded unless LOG_FILE is set.
const annotationTUI = "tui"

var logCloser io.Closer

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "roomchat",
	Short: "Minimal terminal chat over a real-time room data channel",
	Long: `roomchat joins a real-time room using an access token and exchanges text
messages with the other participants over a WebRTC data channel.

It also ships the two services a local setup needs: a token endpoint that
signs room join tokens, and a small room service that relays data between
participants.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		var w io.Writer = os.Stderr
		if cmd.Annotations[annotationTUI] != "" {
			w = io.Discard
		}
		closer, err := logging.Init(w)
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(err))
		stop()
		os.Exit(1)
	}
}
