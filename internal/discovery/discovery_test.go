package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())
	return port
}

func TestAdvertiserIsDiscovered(t *testing.T) {
	port := freeUDPPort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	found := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		ip, err := Listen(ctx, port)
		if err != nil {
			errs <- err
			return
		}
		found <- ip
	}()

	adCtx, stopAd := context.WithCancel(ctx)
	adDone := make(chan error, 1)
	go func() {
		adDone <- NewAdvertiser("127.0.0.1", 0, "127.0.0.1", port, WithInterval(20*time.Millisecond)).Run(adCtx)
	}()

	select {
	case ip := <-found:
		assert.Equal(t, "127.0.0.1", ip)
	case err := <-errs:
		t.Fatalf("listen: %v", err)
	}

	stopAd()
	assert.NoError(t, <-adDone)
}

func TestListenTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Listen(ctx, freeUDPPort(t))
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestListenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := Listen(ctx, freeUDPPort(t))
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestAdvertiserBadBind(t *testing.T) {
	err := NewAdvertiser("256.0.0.1", 0, "127.0.0.1", 1).Run(context.Background())
	assert.Error(t, err)
}
