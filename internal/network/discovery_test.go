package network

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLocalIPsReturnsRoutableIPv4(t *testing.T) {
	ips, err := GetLocalIPs()
	require.NoError(t, err)

	for _, ip := range ips {
		parsed := net.ParseIP(ip)
		require.NotNil(t, parsed, "not a valid IP: %s", ip)
		assert.NotNil(t, parsed.To4(), "not IPv4: %s", ip)
		assert.False(t, parsed.IsLoopback(), "loopback leaked: %s", ip)
	}
}

func TestProbeHostReadsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mode":"mouse_mover","connected":true,"version":"1.2.3"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	found, ok := probeHost(host, port)
	require.True(t, ok)
	assert.Equal(t, host, found.IP)
	assert.Equal(t, port, found.Port)
	assert.Equal(t, "mouse_mover", found.Mode)
	assert.True(t, found.Connected)
	assert.Equal(t, "1.2.3", found.Version)
}

func TestProbeHostRejectsNonDaemon(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	_, ok := probeHost(host, port)
	assert.False(t, ok)
}
