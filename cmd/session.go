package cmd

import (
	"context"

	"github.com/sekhar08/livekit-memory-chat/internal/chat"
	"github.com/sekhar08/livekit-memory-chat/internal/config"
	"github.com/sekhar08/livekit-memory-chat/internal/session"
	"github.com/sekhar08/livekit-memory-chat/internal/token"
	"github.com/sekhar08/livekit-memory-chat/internal/ui"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

// ChatContext wires token acquisition, the session connector, the view
// model and the screen for one chat run.
type ChatContext struct {
	Config *config.Config
	Model  *chat.ViewModel
	Screen *ui.ChatUI

	cancel context.CancelFunc
}

func NewChatContext(ctx context.Context, cfg *config.Config) *ChatContext {
	ctx, cancel := context.WithCancel(ctx)

	turnUser, turnPass := cfg.GetTURNCredentials()
	connector := session.NewRTCConnector(webrtc.ICEConfig{
		STUNServers: cfg.GetSTUNServers(),
		TURNServers: cfg.GetTURNServers(),
		TURNUser:    turnUser,
		TURNPass:    turnPass,
		ForceRelay:  cfg.ForceRelay,
	})

	src := &token.Source{
		Static:  cfg.Token,
		Params:  token.Params{Identity: cfg.Identity, Room: cfg.Room},
		Fetcher: token.NewFetcher(cfg.HTTPTimeout),
	}

	vm := chat.New(connector, src,
		chat.WithAddresses(cfg.ServerURL, cfg.TokenURL),
		chat.WithConnectTimeout(cfg.ConnectTimeout),
	)
	screen := ui.NewChatUI(ctx, vm)
	src.Prompter = screen

	return &ChatContext{
		Config: cfg,
		Model:  vm,
		Screen: screen,
		cancel: cancel,
	}
}

// Close stops any connect still in flight and releases the session if the
// screen exited while connected.
func (c *ChatContext) Close() {
	c.cancel()
	c.Model.Disconnect()
}
