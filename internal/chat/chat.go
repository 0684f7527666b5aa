//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat.go -package=mocks

package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sekhar08/livekit-memory-chat/internal/session"
)

const (
	SenderSelf   = "me"
	SenderSystem = "system"
	SenderRemote = "remote"

	ConnectedText    = "Connected to LiveKit room"
	DisconnectedText = "Disconnected"
	ConnectionLost   = "Disconnected: connection lost"
)

var (
	ErrConnectInProgress = errors.New("connection attempt already in progress")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrConnectAbandoned  = errors.New("connection attempt abandoned")
)

// Message is one rendered line of the conversation.
type Message struct {
	Sender string
	Text   string
}

// State of the view model's connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Credentials produces the access token for one connection attempt.
type Credentials interface {
	Acquire(ctx context.Context, endpoint string) (string, error)
}

// ViewModel holds everything the chat screen renders and the single
// session it talks through. All methods are safe for concurrent use.
type ViewModel struct {
	connector   session.Connector
	credentials Credentials
	timeout     time.Duration

	mu        sync.Mutex
	serverURL string
	tokenURL  string
	compose   string
	state     State
	sess      session.Session
	attempt   uint64
	pending   []Message
	messages  []Message
	onChange  func()
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithConnectTimeout bounds each Connect call. Zero means no bound.
func WithConnectTimeout(d time.Duration) Option {
	return func(vm *ViewModel) { vm.timeout = d }
}

// WithAddresses presets the server and token endpoint inputs.
func WithAddresses(serverURL, tokenURL string) Option {
	return func(vm *ViewModel) {
		vm.serverURL = serverURL
		vm.tokenURL = tokenURL
	}
}

// New returns a disconnected view model with an empty log.
func New(connector session.Connector, credentials Credentials, opts ...Option) *ViewModel {
	vm := &ViewModel{
		connector:   connector,
		credentials: credentials,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// OnChange registers fn to be called after every mutation. fn runs outside
// the view model's lock and may call back into it.
func (vm *ViewModel) OnChange(fn func()) {
	vm.mu.Lock()
	vm.onChange = fn
	vm.mu.Unlock()
}

func (vm *ViewModel) notify() {
	vm.mu.Lock()
	fn := vm.onChange
	vm.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (vm *ViewModel) SetServerURL(v string) {
	vm.mu.Lock()
	vm.serverURL = v
	vm.mu.Unlock()
}

func (vm *ViewModel) SetTokenURL(v string) {
	vm.mu.Lock()
	vm.tokenURL = v
	vm.mu.Unlock()
}

func (vm *ViewModel) SetCompose(v string) {
	vm.mu.Lock()
	vm.compose = v
	vm.mu.Unlock()
}

func (vm *ViewModel) ServerURL() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.serverURL
}

func (vm *ViewModel) TokenURL() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.tokenURL
}

func (vm *ViewModel) Compose() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.compose
}

func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Messages returns a copy of the log in display order.
func (vm *ViewModel) Messages() []Message {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]Message, len(vm.messages))
	copy(out, vm.messages)
	return out
}

// Connect acquires a credential and opens a session. An empty server
// address fails before any network activity.
func (vm *ViewModel) Connect(ctx context.Context) error {
	vm.mu.Lock()
	switch vm.state {
	case Connecting:
		vm.mu.Unlock()
		return ErrConnectInProgress
	case Connected:
		vm.mu.Unlock()
		return ErrAlreadyConnected
	}
	if vm.serverURL == "" {
		vm.mu.Unlock()
		return session.ErrEmptyServerURL
	}
	serverURL, tokenURL := vm.serverURL, vm.tokenURL
	vm.state = Connecting
	vm.attempt++
	attempt := vm.attempt
	vm.pending = nil
	vm.mu.Unlock()
	vm.notify()

	if vm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, vm.timeout)
		defer cancel()
	}

	sess, err := vm.open(ctx, serverURL, tokenURL, attempt)
	if err != nil {
		vm.mu.Lock()
		if vm.attempt == attempt {
			vm.state = Disconnected
			vm.pending = nil
		}
		vm.mu.Unlock()
		vm.notify()
		return err
	}

	vm.mu.Lock()
	if vm.attempt != attempt {
		vm.mu.Unlock()
		if err := sess.Close(); err != nil {
			slog.Debug("session close", "err", err)
		}
		return ErrConnectAbandoned
	}
	vm.sess = sess
	vm.state = Connected
	vm.messages = append(vm.messages, Message{Sender: SenderSystem, Text: ConnectedText})
	vm.messages = append(vm.messages, vm.pending...)
	vm.pending = nil
	vm.mu.Unlock()

	slog.Info("connected", "server", serverURL, "identity", sess.Info().Identity, "room", sess.Info().Room)
	go vm.watch(sess)
	vm.notify()
	return nil
}

func (vm *ViewModel) open(ctx context.Context, serverURL, tokenURL string, attempt uint64) (session.Session, error) {
	credential, err := vm.credentials.Acquire(ctx, tokenURL)
	if err != nil {
		slog.Warn("token acquisition failed", "err", err)
		return nil, err
	}
	onData := func(a session.Arrival) { vm.arrive(attempt, a) }
	sess, err := vm.connector.Connect(ctx, serverURL, credential, onData)
	if err != nil {
		slog.Warn("connect failed", "server", serverURL, "err", err)
		return nil, err
	}
	return sess, nil
}

// watch disconnects when the session ends on its own.
func (vm *ViewModel) watch(sess session.Session) {
	<-sess.Done()
	if vm.release(sess, ConnectionLost) {
		slog.Warn("session ended unexpectedly")
	}
}

// SenderName picks the label shown for an arrival.
func SenderName(a session.Arrival) string {
	switch {
	case a.Identity != "":
		return a.Identity
	case a.SID != "":
		return a.SID
	default:
		return SenderRemote
	}
}

// HandleArrival appends an inbound message. Ignored unless connected.
func (vm *ViewModel) HandleArrival(a session.Arrival) {
	vm.mu.Lock()
	if vm.state != Connected {
		vm.mu.Unlock()
		slog.Debug("dropping arrival while not connected")
		return
	}
	vm.messages = append(vm.messages, Message{Sender: SenderName(a), Text: a.Text})
	vm.mu.Unlock()
	vm.notify()
}

// arrive routes arrivals from the session opened by attempt. Messages that
// land while the attempt is still connecting are held until the connected
// notice has been logged.
func (vm *ViewModel) arrive(attempt uint64, a session.Arrival) {
	vm.mu.Lock()
	if vm.attempt != attempt {
		vm.mu.Unlock()
		return
	}
	if vm.state == Connecting {
		vm.pending = append(vm.pending, Message{Sender: SenderName(a), Text: a.Text})
		vm.mu.Unlock()
		return
	}
	vm.mu.Unlock()
	vm.HandleArrival(a)
}

// SendMessage publishes the compose text. The local echo is logged only
// after the session accepts it. A failed send disconnects.
func (vm *ViewModel) SendMessage(ctx context.Context) error {
	vm.mu.Lock()
	text := vm.compose
	sess := vm.sess
	if text == "" || vm.state != Connected || sess == nil {
		vm.mu.Unlock()
		return nil
	}
	vm.mu.Unlock()

	if err := sess.Send(ctx, text); err != nil {
		slog.Warn("send failed", "err", err)
		vm.release(sess, DisconnectedText)
		return err
	}

	vm.mu.Lock()
	if vm.sess == sess {
		vm.messages = append(vm.messages, Message{Sender: SenderSelf, Text: text})
		if vm.compose == text {
			vm.compose = ""
		}
	}
	vm.mu.Unlock()
	vm.notify()
	return nil
}

// Disconnect closes the current session. A connect still in flight is
// abandoned and the session it produces is closed as soon as it arrives.
func (vm *ViewModel) Disconnect() {
	vm.mu.Lock()
	sess := vm.sess
	if sess == nil {
		abandoned := vm.state == Connecting
		if abandoned {
			vm.attempt++
			vm.state = Disconnected
			vm.pending = nil
		}
		vm.mu.Unlock()
		if abandoned {
			slog.Debug("connect abandoned")
			vm.notify()
		}
		return
	}
	vm.mu.Unlock()
	vm.release(sess, DisconnectedText)
}

// release tears down sess if it is still current and reports whether it was.
func (vm *ViewModel) release(sess session.Session, notice string) bool {
	vm.mu.Lock()
	if vm.sess != sess || vm.state != Connected {
		vm.mu.Unlock()
		return false
	}
	vm.sess = nil
	vm.state = Disconnected
	vm.attempt++
	vm.messages = append(vm.messages, Message{Sender: SenderSystem, Text: notice})
	vm.mu.Unlock()

	if err := sess.Close(); err != nil {
		slog.Debug("session close", "err", err)
	}
	vm.notify()
	return true
}
