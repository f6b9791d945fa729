package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"

	"icc.tech/aes67-agent/internal/metrics"
	"icc.tech/aes67-agent/internal/sap"
	"icc.tech/aes67-agent/internal/sdp"
)

// State is the service lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// pollInterval bounds how long a socket read blocks before the receive
// loop re-checks for cancellation. Stop latency is bounded by it.
const pollInterval = time.Second

// Config carries the discovery service settings.
type Config struct {
	MulticastAddr string        // SAP group; default admin scope 239.255.255.255
	Port          int           // default 9875
	BindInterface string        // interface name for the group join; "" = default
	StreamTimeout time.Duration // announcement age before expiry; default 300s
	SweepInterval time.Duration // expiry scan period; default 60s
	ReadBuffer    int           // socket read buffer in bytes; 0 = kernel default
}

func (c Config) withDefaults() Config {
	if c.MulticastAddr == "" {
		c.MulticastAddr = sap.AddrAdmin
	}
	if c.Port == 0 {
		c.Port = sap.Port
	}
	if c.StreamTimeout == 0 {
		c.StreamTimeout = 300 * time.Second
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 60 * time.Second
	}
	return c
}

// Service owns the SAP multicast socket, the receive loop and the
// periodic expiry sweep, and exposes the stream query surface. One
// Service instance supports repeated Start/Stop cycles; statistics
// survive a stop and reset only with a new instance.
type Service struct {
	cfg      Config
	registry *Registry

	mu        sync.Mutex
	state     State
	conn      *ipv4.PacketConn
	pconn     net.PacketConn
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	notifier  *Notifier
	callbacks []Callback

	packetsReceived atomic.Uint64
	packetsInvalid  atomic.Uint64
	announcements   atomic.Uint64
	deletions       atomic.Uint64
	sdpParseErrors  atomic.Uint64
}

// NewService creates a stopped discovery service.
func NewService(cfg Config) *Service {
	return &Service{
		cfg:      cfg.withDefaults(),
		registry: NewRegistry(),
	}
}

// Start binds the SAP socket, joins the multicast group and launches
// the receive and sweep loops. A no-op when already running. Bind or
// join failure is returned to the caller with no partial state left
// behind.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return nil
	case StateStarting, StateStopping:
		return fmt.Errorf("discovery service busy: %s", s.state)
	}
	s.state = StateStarting

	group := net.ParseIP(s.cfg.MulticastAddr)
	if group == nil || group.To4() == nil {
		s.state = StateStopped
		return fmt.Errorf("invalid multicast address %q", s.cfg.MulticastAddr)
	}

	var ifi *net.Interface
	if s.cfg.BindInterface != "" {
		var err error
		ifi, err = net.InterfaceByName(s.cfg.BindInterface)
		if err != nil {
			s.state = StateStopped
			return fmt.Errorf("bind interface %q: %w", s.cfg.BindInterface, err)
		}
	}

	conn, pconn, err := openSAPSocket(s.cfg.Port, group, ifi, s.cfg.ReadBuffer)
	if err != nil {
		s.state = StateStopped
		return err
	}
	s.conn = conn
	s.pconn = pconn

	s.notifier = NewNotifier()
	for _, cb := range s.callbacks {
		s.notifier.Add(cb)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(2)
	go s.receiveLoop(ctx)
	go s.sweepLoop(ctx)

	s.state = StateRunning
	slog.Info("sap discovery started",
		"group", s.cfg.MulticastAddr,
		"port", s.cfg.Port,
		"interface", s.cfg.BindInterface,
		"stream_timeout", s.cfg.StreamTimeout,
	)
	return nil
}

// Stop cancels both loops, leaves the multicast group and closes the
// socket. Safe to call when already stopped. The registry contents are
// retained for queries after stop.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping

	s.cancel()
	// Closing the socket unblocks any in-flight read immediately and
	// drops the group membership with the descriptor.
	s.pconn.Close()
	notifier := s.notifier
	s.mu.Unlock()

	s.wg.Wait()
	notifier.Close()

	s.mu.Lock()
	s.conn = nil
	s.pconn = nil
	s.notifier = nil
	s.state = StateStopped
	s.mu.Unlock()

	slog.Info("sap discovery stopped")
}

// IsRunning reports whether the service is in the Running state.
func (s *Service) IsRunning() bool {
	return s.CurrentState() == StateRunning
}

// CurrentState returns the lifecycle state.
func (s *Service) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddCallback registers a stream lifecycle callback. Callbacks persist
// across Start/Stop cycles.
func (s *Service) AddCallback(cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
	if s.notifier != nil {
		s.notifier.Add(cb)
	}
}

// Streams returns snapshots of the discovered streams.
func (s *Service) Streams(activeOnly bool) []Stream {
	return s.registry.List(activeOnly)
}

// FindStream returns the first stream matching the multicast address,
// and the port when non-zero.
func (s *Service) FindStream(addr string, port int) (Stream, bool) {
	return s.registry.FindByAddress(addr, port)
}

// FindByName returns the first stream whose session name matches.
func (s *Service) FindByName(name string) (Stream, bool) {
	return s.registry.FindByName(name)
}

// Stats returns a snapshot of the discovery counters.
func (s *Service) Stats() Statistics {
	return Statistics{
		PacketsReceived: s.packetsReceived.Load(),
		PacketsInvalid:  s.packetsInvalid.Load(),
		Announcements:   s.announcements.Load(),
		Deletions:       s.deletions.Load(),
		SDPParseErrors:  s.sdpParseErrors.Load(),
		ActiveStreams:   s.registry.ActiveCount(),
	}
}

// receiveLoop reads SAP datagrams until the context is cancelled.
// Read errors are logged and the loop continues; only cancellation
// ends it.
func (s *Service) receiveLoop(ctx context.Context) {
	defer s.wg.Done()

	buf := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, _, src, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			slog.Warn("sap socket read error", "error", err)
			continue
		}

		sender := netip.Addr{}
		if udp, ok := src.(*net.UDPAddr); ok {
			sender = udp.AddrPort().Addr().Unmap()
		}
		s.handleDatagram(buf[:n], sender)
	}
}

// handleDatagram processes one SAP datagram. Malformed input only ever
// increments a counter; it cannot take the loop down.
func (s *Service) handleDatagram(data []byte, sender netip.Addr) {
	s.packetsReceived.Add(1)
	metrics.SAPPacketsReceivedTotal.Inc()

	pkt, err := sap.Decode(data, sender)
	if err != nil {
		s.packetsInvalid.Add(1)
		metrics.SAPPacketsInvalidTotal.WithLabelValues(invalidReason(err)).Inc()
		slog.Debug("dropped invalid sap packet", "from", sender, "error", err)
		return
	}

	id := pkt.StreamID()
	if pkt.Deletion {
		stream, ok := s.registry.MarkDeleted(id)
		if !ok {
			// Deletion for a stream never announced; not an error.
			return
		}
		s.deletions.Add(1)
		metrics.SAPDeletionsTotal.Inc()
		metrics.ActiveStreams.Set(float64(s.registry.ActiveCount()))
		slog.Info("stream deleted", "stream_id", id,
			"session", stream.Descriptor.SessionName)
		s.publish(Event{Type: EventDeleted, Stream: stream})
		return
	}

	desc := sdp.Parse(pkt.SDP)
	if desc == nil {
		s.sdpParseErrors.Add(1)
		metrics.SDPParseErrorsTotal.Inc()
		slog.Debug("unparseable sdp payload", "stream_id", id, "from", sender)
		return
	}

	stream, isNew := s.registry.Upsert(id, desc, sender.String(), time.Now())
	metrics.ActiveStreams.Set(float64(s.registry.ActiveCount()))
	if !isNew {
		return
	}

	s.announcements.Add(1)
	metrics.SAPAnnouncementsTotal.Inc()
	slog.Info("discovered stream",
		"stream_id", id,
		"session", desc.SessionName,
		"addr", desc.MulticastAddr,
		"port", desc.Port,
		"channels", desc.Channels,
		"conformance", desc.ConformanceLevel,
	)
	s.publish(Event{Type: EventNew, Stream: stream})
}

// sweepLoop periodically deactivates streams whose announcements have
// stopped arriving.
func (s *Service) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired := s.registry.SweepExpired(now, s.cfg.StreamTimeout)
			for _, stream := range expired {
				slog.Info("stream expired", "stream_id", stream.ID,
					"session", stream.Descriptor.SessionName,
					"last_seen", stream.LastSeen)
			}
			if len(expired) > 0 {
				metrics.ActiveStreams.Set(float64(s.registry.ActiveCount()))
			}
		}
	}
}

func (s *Service) publish(ev Event) {
	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()
	if notifier != nil {
		notifier.Publish(ev)
	}
}

// invalidReason maps a decode error to the metrics reason label.
func invalidReason(err error) string {
	switch {
	case errors.Is(err, sap.ErrTooShort):
		return "too_short"
	case errors.Is(err, sap.ErrVersion):
		return "version"
	case errors.Is(err, sap.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, sap.ErrTruncated):
		return "truncated"
	}
	return "other"
}
