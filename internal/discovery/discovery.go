// Package discovery lets clients find a server on the local network. The
// server broadcasts an empty UDP datagram every second to the lobby port; a
// client waits for one and takes the sender's address.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/park285/checkers-lobby/internal/obslog"
	"go.uber.org/zap"
)

const (
	DefaultInterval = time.Second
	// DefaultTimeout is how long a client waits for an advertisement.
	DefaultTimeout = 3 * time.Second
)

var ErrNoServer = errors.New("discovery: no server found")

// Advertiser periodically announces the server.
type Advertiser struct {
	bind     string
	target   string
	interval time.Duration
	log      *zap.Logger
}

type AdvertiserOption func(*Advertiser)

func WithInterval(d time.Duration) AdvertiserOption {
	return func(a *Advertiser) {
		if d > 0 {
			a.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) AdvertiserOption {
	return func(a *Advertiser) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAdvertiser binds to listenIP:udpPort and announces to
// broadcastIP:lobbyPort.
func NewAdvertiser(listenIP string, udpPort int, broadcastIP string, lobbyPort int, opts ...AdvertiserOption) *Advertiser {
	a := &Advertiser{
		bind:     net.JoinHostPort(listenIP, strconv.Itoa(udpPort)),
		target:   net.JoinHostPort(broadcastIP, strconv.Itoa(lobbyPort)),
		interval: DefaultInterval,
		log:      obslog.L(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run advertises until ctx is done.
func (a *Advertiser) Run(ctx context.Context) error {
	lc := net.ListenConfig{Control: enableBroadcast}
	pc, err := lc.ListenPacket(ctx, "udp4", a.bind)
	if err != nil {
		return fmt.Errorf("advertiser bind %s: %w", a.bind, err)
	}
	defer pc.Close()
	dst, err := net.ResolveUDPAddr("udp4", a.target)
	if err != nil {
		return fmt.Errorf("advertiser target %s: %w", a.target, err)
	}
	a.log.Info("advertiser_started", zap.String("bind", pc.LocalAddr().String()), zap.String("target", a.target))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.log.Info("advertiser_stopped")
			return nil
		case <-ticker.C:
			if _, err := pc.WriteTo(nil, dst); err != nil {
				a.log.Warn("advertiser_send_failed", zap.String("target", a.target), zap.Error(err))
				continue
			}
			a.log.Debug("advertiser_sent", zap.String("target", a.target))
		}
	}
}

// Listen waits on 0.0.0.0:port for one advertisement and returns the
// sender's IP. ctx bounds the wait.
func Listen(ctx context.Context, port int) (string, error) {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
	if err != nil {
		return "", fmt.Errorf("discovery bind: %w", err)
	}
	defer pc.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = pc.SetReadDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = pc.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, 1024)
	_, from, err := pc.ReadFrom(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", ErrNoServer
		}
		return "", fmt.Errorf("discovery read: %w", err)
	}
	if ua, ok := from.(*net.UDPAddr); ok {
		return ua.IP.String(), nil
	}
	host, _, err := net.SplitHostPort(from.String())
	if err != nil {
		return "", err
	}
	return host, nil
}
