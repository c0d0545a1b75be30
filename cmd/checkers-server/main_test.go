package main

import (
	"context"
	"testing"
	"time"

	"github.com/park285/checkers-lobby/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.ServerConfig {
	t.Helper()
	cfg, err := config.LoadServer()
	require.NoError(t, err)
	return cfg
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := testConfig(t)
	cmd := newRootCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{
		"--listen-ip", "127.0.0.1",
		"--listen-port", "9100",
		"--udp-port", "9101",
		"--broadcast-ip", "10.0.0.255",
		"--tick", "250ms",
		"--ws-addr", ":9102",
	}))
	assert.Equal(t, "127.0.0.1", cfg.ListenIP)
	assert.Equal(t, 9100, cfg.ListenPort)
	assert.Equal(t, 9101, cfg.UDPPort)
	assert.Equal(t, "10.0.0.255", cfg.BroadcastIP)
	assert.Equal(t, 250*time.Millisecond, cfg.Tick)
	assert.Equal(t, ":9102", cfg.WSAddr)
}

func TestVerboseAndQuietExclusive(t *testing.T) {
	cmd := newRootCommand(testConfig(t))
	cmd.SetArgs([]string{"--verbose", "--quiet"})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "none of the others can be")
}

func TestInvalidPortRejected(t *testing.T) {
	cmd := newRootCommand(testConfig(t))
	cmd.SetArgs([]string{"--listen-port", "70000", "--no-advertise"})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "out of range")
}
