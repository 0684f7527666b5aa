package ui

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sekhar08/livekit-memory-chat/internal/chat"
	"github.com/sekhar08/livekit-memory-chat/internal/mocks"
	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testServerURL = "wss://room.example"

// connectedViewModel returns a view model holding a mocked session that
// expects exactly one Close.
func connectedViewModel(t *testing.T) (*chat.ViewModel, *mocks.MockSession) {
	t.Helper()
	ctrl := gomock.NewController(t)
	connector := mocks.NewMockConnector(ctrl)
	creds := mocks.NewMockCredentials(ctrl)
	sess := mocks.NewMockSession(ctrl)

	done := make(chan struct{})
	sess.EXPECT().Done().Return((<-chan struct{})(done)).AnyTimes()
	sess.EXPECT().Info().Return(signaling.ParticipantInfo{Identity: "web-user"}).AnyTimes()
	sess.EXPECT().Close().Return(nil)
	creds.EXPECT().Acquire(gomock.Any(), "").Return("abc", nil)
	connector.EXPECT().Connect(gomock.Any(), testServerURL, "abc", gomock.Any()).Return(sess, nil)

	vm := chat.New(connector, creds, chat.WithAddresses(testServerURL, ""))
	require.NoError(t, vm.Connect(context.Background()))
	return vm, sess
}

func runningProgram(t *testing.T, screen *ChatUI) *tea.Program {
	t.Helper()
	require.Eventually(t, func() bool {
		screen.mu.Lock()
		defer screen.mu.Unlock()
		return screen.program != nil
	}, 2*time.Second, 10*time.Millisecond)

	screen.mu.Lock()
	defer screen.mu.Unlock()
	return screen.program
}

func TestChatUI_StaysResponsiveAfterDisconnect(t *testing.T) {
	req := require.New(t)
	vm, _ := connectedViewModel(t)
	screen := NewChatUI(context.Background(), vm)

	errCh := make(chan error, 1)
	go func() {
		errCh <- screen.Run(tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
	}()
	p := runningProgram(t, screen)

	go p.Send(tea.KeyMsg{Type: tea.KeyCtrlD})
	req.Eventually(func() bool { return vm.State() == chat.Disconnected }, 2*time.Second, 10*time.Millisecond)

	go p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	select {
	case err := <-errCh:
		req.NoError(err)
	case <-time.After(3 * time.Second):
		t.Fatal("chat screen did not quit after disconnect")
	}
}

func TestChatUI_QuitWhileConnectedReleasesSession(t *testing.T) {
	req := require.New(t)
	vm, _ := connectedViewModel(t)
	screen := NewChatUI(context.Background(), vm)

	errCh := make(chan error, 1)
	go func() {
		errCh <- screen.Run(tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
	}()
	p := runningProgram(t, screen)

	go p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	select {
	case err := <-errCh:
		req.NoError(err)
	case <-time.After(3 * time.Second):
		t.Fatal("chat screen did not quit")
	}
	req.Equal(chat.Disconnected, vm.State())
}

func TestChatUI_PromptTokenWithoutProgram(t *testing.T) {
	ctrl := gomock.NewController(t)
	vm := chat.New(mocks.NewMockConnector(ctrl), mocks.NewMockCredentials(ctrl))
	_, err := NewChatUI(context.Background(), vm).PromptToken(context.Background())
	require.Error(t, err)
}
