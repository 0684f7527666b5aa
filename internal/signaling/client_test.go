package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name   string
		server string
		token  string
		want   string
		err    bool
	}{
		{"wss host", "wss://room.example", "abc", "wss://room.example/rtc?access_token=abc", false},
		{"trailing slash", "ws://localhost:7880/", "abc", "ws://localhost:7880/rtc?access_token=abc", false},
		{"already rtc", "ws://localhost:7880/rtc", "abc", "ws://localhost:7880/rtc?access_token=abc", false},
		{"https mapped", "https://room.example", "abc", "wss://room.example/rtc?access_token=abc", false},
		{"no token", "ws://localhost:7880", "", "ws://localhost:7880/rtc", false},
		{"bad scheme", "ftp://room.example", "abc", "", true},
		{"no host", "ws://", "abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinURL(tt.server, tt.token)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// newRoomStub accepts one participant, sends the scripted frames and
// forwards whatever the client sends to received.
func newRoomStub(t *testing.T, script []*Message, received chan<- *Message) (*httptest.Server, <-chan string) {
	t.Helper()
	tokens := make(chan string, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens <- r.URL.Query().Get("access_token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range script {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- &msg
		}
	}))
	t.Cleanup(srv.Close)
	return srv, tokens
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientHandler_RoutesMessages(t *testing.T) {
	req := require.New(t)
	received := make(chan *Message, 4)
	script := []*Message{
		MustMessage(MessageTypeJoin, ParticipantInfo{SID: "PA_1", Identity: "web-user", Room: "default"}),
		MustMessage(MessageTypeSignal, SignalPayload{Type: "answer", SDP: "v=0"}),
		MustMessage(MessageTypeError, ErrorPayload{Error: "room is closing"}),
		MustMessage(MessageTypeLeave, LeavePayload{Reason: "server shutdown"}),
	}
	srv, tokens := newRoomStub(t, script, received)

	client := NewClient(wsURL(srv))
	req.NoError(client.Connect(context.Background(), "abc"))
	defer client.Close()
	req.Equal("abc", <-tokens)

	handler := NewHandler(client)
	go handler.Start()

	select {
	case info := <-handler.Joined:
		req.Equal("PA_1", info.SID)
		req.Equal("web-user", info.Identity)
	case <-time.After(2 * time.Second):
		t.Fatal("join not routed")
	}

	select {
	case sig := <-handler.Signal:
		req.Equal("answer", sig.Type)
		req.Equal("v=0", sig.SDP)
	case <-time.After(2 * time.Second):
		t.Fatal("signal not routed")
	}

	select {
	case text := <-handler.Error:
		req.Equal("room is closing", text)
	case <-time.After(2 * time.Second):
		t.Fatal("error not routed")
	}

	select {
	case leave := <-handler.Left:
		req.Equal("server shutdown", leave.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("leave not routed")
	}

	req.NoError(client.SendMessage(MustMessage(MessageTypeSignal, SignalPayload{Type: "offer", SDP: "v=0"})))
	select {
	case msg := <-received:
		req.Equal(MessageTypeSignal, msg.Type)
		var sig SignalPayload
		req.NoError(msg.DecodePayload(&sig))
		req.Equal("offer", sig.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("outgoing message not delivered")
	}
}

func TestClient_CloseFlushesAndStops(t *testing.T) {
	req := require.New(t)
	received := make(chan *Message, 4)
	srv, _ := newRoomStub(t, nil, received)

	client := NewClient(wsURL(srv))
	req.NoError(client.Connect(context.Background(), "abc"))

	handler := NewHandler(client)
	go handler.Start()

	req.NoError(client.SendMessage(MustMessage(MessageTypeLeave, nil)))
	client.Close()
	client.Close()

	select {
	case msg := <-received:
		req.Equal(MessageTypeLeave, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("leave not flushed")
	}

	select {
	case <-handler.Closed:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop")
	}

	req.ErrorIs(client.SendMessage(MustMessage(MessageTypeLeave, nil)), ErrClientClosed)
}

func TestHandler_UnreadSignalsDoNotBlock(t *testing.T) {
	req := require.New(t)
	script := make([]*Message, 0, 40)
	for range 40 {
		script = append(script, MustMessage(MessageTypeSignal, SignalPayload{Type: "candidate"}))
	}
	srv, _ := newRoomStub(t, script, make(chan *Message, 4))

	client := NewClient(wsURL(srv))
	req.NoError(client.Connect(context.Background(), "abc"))

	handler := NewHandler(client)
	go handler.Start()

	req.Eventually(func() bool { return len(handler.Signal) == cap(handler.Signal) }, 2*time.Second, 10*time.Millisecond)
	client.Close()

	select {
	case <-handler.Closed:
	case <-time.After(2 * time.Second):
		t.Fatal("handler blocked on a full signal queue")
	}
}

func TestClient_ConnectRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewClient(wsURL(srv)).Connect(context.Background(), "bad")
	require.ErrorContains(t, err, "401")
}
