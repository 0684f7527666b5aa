package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sekhar08/livekit-memory-chat/internal/mocks"
	"github.com/sekhar08/livekit-memory-chat/internal/session"
	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/sekhar08/livekit-memory-chat/internal/token"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const serverURL = "wss://room.example"

type fixture struct {
	connector *mocks.MockConnector
	creds     *mocks.MockCredentials
	sess      *mocks.MockSession
	done      chan struct{}
	vm        *ViewModel
	onData    session.DataHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		connector: mocks.NewMockConnector(ctrl),
		creds:     mocks.NewMockCredentials(ctrl),
		sess:      mocks.NewMockSession(ctrl),
		done:      make(chan struct{}),
	}
	f.vm = New(f.connector, f.creds, WithAddresses(serverURL, ""))
	f.sess.EXPECT().Done().Return((<-chan struct{})(f.done)).AnyTimes()
	f.sess.EXPECT().Info().Return(signaling.ParticipantInfo{Identity: "web-user", Room: "default"}).AnyTimes()
	return f
}

// connect drives a successful Connect and captures the arrival callback.
func (f *fixture) connect(t *testing.T) {
	t.Helper()
	f.creds.EXPECT().Acquire(gomock.Any(), "").Return("abc", nil)
	f.connector.EXPECT().
		Connect(gomock.Any(), serverURL, "abc", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, onData session.DataHandler) (session.Session, error) {
			f.onData = onData
			return f.sess, nil
		})
	require.NoError(t, f.vm.Connect(context.Background()))
}

func TestConnect_FetchedTokenScenario(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	ctrl := gomock.NewController(t)
	connector := mocks.NewMockConnector(ctrl)
	sess := mocks.NewMockSession(ctrl)
	done := make(chan struct{})
	sess.EXPECT().Done().Return((<-chan struct{})(done)).AnyTimes()
	sess.EXPECT().Info().Return(signaling.ParticipantInfo{}).AnyTimes()
	connector.EXPECT().Connect(gomock.Any(), serverURL, "abc", gomock.Any()).Return(sess, nil)

	src := &token.Source{Params: token.Params{Identity: "web-user", Room: "default"}}
	vm := New(connector, src, WithAddresses(serverURL, srv.URL), WithConnectTimeout(5*time.Second))

	req.NoError(vm.Connect(context.Background()))
	req.Equal(Connected, vm.State())
	req.Equal([]Message{{Sender: SenderSystem, Text: ConnectedText}}, vm.Messages())
}

func TestConnect_EmptyServerURL(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	// no expectations: any network-facing call fails the test
	vm := New(mocks.NewMockConnector(ctrl), mocks.NewMockCredentials(ctrl))

	changed := 0
	vm.OnChange(func() { changed++ })

	err := vm.Connect(context.Background())
	req.ErrorIs(err, session.ErrEmptyServerURL)
	req.Equal(Disconnected, vm.State())
	req.Empty(vm.Messages())
	req.Zero(changed)
}

func TestConnect_TokenFailure(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.creds.EXPECT().Acquire(gomock.Any(), "").Return("", token.ErrPromptCancelled)

	err := f.vm.Connect(context.Background())
	req.ErrorIs(err, token.ErrPromptCancelled)
	req.Equal(Disconnected, f.vm.State())
	req.Empty(f.vm.Messages())
}

func TestConnect_SessionFailure(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.creds.EXPECT().Acquire(gomock.Any(), "").Return("abc", nil)
	f.connector.EXPECT().Connect(gomock.Any(), serverURL, "abc", gomock.Any()).
		Return(nil, &session.ConnectionError{Op: "join", Err: session.ErrRejected})

	err := f.vm.Connect(context.Background())
	var connErr *session.ConnectionError
	req.ErrorAs(err, &connErr)
	req.Equal(Disconnected, f.vm.State())
	req.Empty(f.vm.Messages())
}

func TestConnect_WhileConnected(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	require.ErrorIs(t, f.vm.Connect(context.Background()), ErrAlreadyConnected)
}

func TestConnect_AppliesTimeout(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.vm = New(f.connector, f.creds, WithAddresses(serverURL, ""), WithConnectTimeout(time.Minute))
	f.creds.EXPECT().Acquire(gomock.Any(), "").DoAndReturn(func(ctx context.Context, _ string) (string, error) {
		_, ok := ctx.Deadline()
		req.True(ok)
		return "", errors.New("boom")
	})
	req.Error(f.vm.Connect(context.Background()))
}

func TestSendMessage_Connected(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.connect(t)
	f.sess.EXPECT().Send(gomock.Any(), "hello").Return(nil)

	f.vm.SetCompose("hello")
	req.NoError(f.vm.SendMessage(context.Background()))

	req.Equal([]Message{
		{Sender: SenderSystem, Text: ConnectedText},
		{Sender: SenderSelf, Text: "hello"},
	}, f.vm.Messages())
	req.Empty(f.vm.Compose())
}

func TestSendMessage_NoOps(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.vm.SetCompose("hello")
	req.NoError(f.vm.SendMessage(context.Background()))
	req.Empty(f.vm.Messages())
	req.Equal("hello", f.vm.Compose())

	f.connect(t)
	f.vm.SetCompose("")
	req.NoError(f.vm.SendMessage(context.Background()))
	req.Len(f.vm.Messages(), 1)
}

func TestSendMessage_FailureDisconnects(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.connect(t)
	sendErr := &session.SendError{Op: "send", Err: session.ErrSessionClosed}
	f.sess.EXPECT().Send(gomock.Any(), "hello").Return(sendErr)
	f.sess.EXPECT().Close().Return(nil)

	f.vm.SetCompose("hello")
	err := f.vm.SendMessage(context.Background())
	req.ErrorIs(err, session.ErrSessionClosed)
	req.Equal(Disconnected, f.vm.State())
	req.Equal("hello", f.vm.Compose())
	req.Equal([]Message{
		{Sender: SenderSystem, Text: ConnectedText},
		{Sender: SenderSystem, Text: DisconnectedText},
	}, f.vm.Messages())
}

func TestHandleArrival(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.vm.HandleArrival(session.Arrival{Identity: "peer1", Text: "early"})
	req.Empty(f.vm.Messages())

	f.connect(t)
	f.onData(session.Arrival{Identity: "peer1", Text: "hi"})
	f.onData(session.Arrival{SID: "PA_1", Text: "no identity"})
	f.onData(session.Arrival{Text: "anonymous"})

	req.Equal([]Message{
		{Sender: SenderSystem, Text: ConnectedText},
		{Sender: "peer1", Text: "hi"},
		{Sender: "PA_1", Text: "no identity"},
		{Sender: SenderRemote, Text: "anonymous"},
	}, f.vm.Messages())
}

func TestArrivalDuringConnectIsHeld(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.creds.EXPECT().Acquire(gomock.Any(), "").Return("abc", nil)
	f.connector.EXPECT().Connect(gomock.Any(), serverURL, "abc", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, onData session.DataHandler) (session.Session, error) {
			onData(session.Arrival{Identity: "peer1", Text: "first"})
			return f.sess, nil
		})

	req.NoError(f.vm.Connect(context.Background()))
	req.Equal([]Message{
		{Sender: SenderSystem, Text: ConnectedText},
		{Sender: "peer1", Text: "first"},
	}, f.vm.Messages())
}

func TestDisconnect(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.vm.Disconnect()
	req.Empty(f.vm.Messages())

	f.connect(t)
	f.sess.EXPECT().Close().Return(nil)
	f.vm.Disconnect()
	f.vm.Disconnect()

	req.Equal(Disconnected, f.vm.State())
	req.Equal([]Message{
		{Sender: SenderSystem, Text: ConnectedText},
		{Sender: SenderSystem, Text: DisconnectedText},
	}, f.vm.Messages())

	// arrivals from the released session are ignored
	f.onData(session.Arrival{Identity: "peer1", Text: "late"})
	req.Len(f.vm.Messages(), 2)
}

func TestDisconnect_WhileConnectingClosesLateSession(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.creds.EXPECT().Acquire(gomock.Any(), "").Return("abc", nil)
	f.connector.EXPECT().Connect(gomock.Any(), serverURL, "abc", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, onData session.DataHandler) (session.Session, error) {
			close(entered)
			<-release
			onData(session.Arrival{Identity: "peer1", Text: "too late"})
			return f.sess, nil
		})
	f.sess.EXPECT().Close().Return(nil)

	errCh := make(chan error, 1)
	go func() { errCh <- f.vm.Connect(context.Background()) }()
	<-entered
	req.Equal(Connecting, f.vm.State())

	f.vm.Disconnect()
	req.Equal(Disconnected, f.vm.State())
	close(release)

	req.ErrorIs(<-errCh, ErrConnectAbandoned)
	req.Equal(Disconnected, f.vm.State())
	req.Empty(f.vm.Messages())
}

func TestSessionEndDisconnects(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.connect(t)

	changed := make(chan struct{}, 8)
	f.vm.OnChange(func() { changed <- struct{}{} })
	f.sess.EXPECT().Close().Return(nil)
	close(f.done)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change after session ended")
	}
	req.Equal(Disconnected, f.vm.State())
	req.Equal(Message{Sender: SenderSystem, Text: ConnectionLost}, f.vm.Messages()[1])
}

func TestSenderName(t *testing.T) {
	req := require.New(t)
	req.Equal("alice", SenderName(session.Arrival{Identity: "alice", SID: "PA_1"}))
	req.Equal("PA_1", SenderName(session.Arrival{SID: "PA_1"}))
	req.Equal(SenderRemote, SenderName(session.Arrival{}))
}
