package ui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sekhar08/livekit-memory-chat/internal/chat"
	"github.com/sekhar08/livekit-memory-chat/internal/token"
)

// ChatUI runs the chat screen and bridges work happening on other
// goroutines into it.
type ChatUI struct {
	model *ChatModel

	mu      sync.Mutex
	program *tea.Program
}

func NewChatUI(ctx context.Context, vm *chat.ViewModel) *ChatUI {
	return &ChatUI{model: NewChatModel(ctx, vm)}
}

// Run blocks until the operator quits.
func (ui *ChatUI) Run(opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(ui.model, opts...)

	ui.mu.Lock()
	ui.program = p
	ui.mu.Unlock()

	// Send blocks until the event loop reads it, so never call it from the
	// goroutine running Update.
	ui.model.vm.OnChange(func() { go p.Send(changedMsg{}) })
	defer ui.model.vm.OnChange(nil)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat screen: %w", err)
	}
	return nil
}

// PromptToken asks the operator for a token through a modal. It satisfies
// token.Prompter.
func (ui *ChatUI) PromptToken(ctx context.Context) (string, error) {
	ui.mu.Lock()
	p := ui.program
	ui.mu.Unlock()
	if p == nil {
		return "", token.ErrPromptCancelled
	}

	reply := make(chan promptReply, 1)
	p.Send(promptRequestMsg{reply: reply})

	select {
	case r := <-reply:
		if !r.ok {
			return "", token.ErrPromptCancelled
		}
		return r.token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var _ token.Prompter = (*ChatUI)(nil)
