package version

// Version is the current version of the roomchat binary.
// Release builds override it with:
//   go build -ldflags="-X 'github.com/sekhar08/livekit-memory-chat/internal/version.Version=v1.0.0'"
var Version = "dev"

// UserAgent is sent with token requests and the signaling handshake.
func UserAgent() string {
	return "roomchat/" + Version
}
