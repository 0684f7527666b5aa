package webrtc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTunnelName(t *testing.T) {
	require.True(t, isTunnelName("wg0"))
	require.True(t, isTunnelName("utun3"))
	require.True(t, isTunnelName("CloudflareWARP"))
	require.False(t, isTunnelName("eth0"))
	require.False(t, isTunnelName("en0"))
}

func TestIsCGNAT(t *testing.T) {
	require.True(t, isCGNAT(&net.IPNet{IP: net.ParseIP("100.100.1.2"), Mask: net.CIDRMask(10, 32)}))
	require.True(t, isCGNAT(&net.IPAddr{IP: net.ParseIP("100.64.0.1")}))
	require.False(t, isCGNAT(&net.IPNet{IP: net.ParseIP("192.168.1.10"), Mask: net.CIDRMask(24, 32)}))
}
