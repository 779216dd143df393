// Package dispatch owns the network side of the tracker: it binds one UDP
// listener per configured port, decodes every received OSC message, and
// feeds accepted kinematic poses into the hand sessions.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/handtrack-data/pose.report/internal/monitoring"
	"github.com/handtrack-data/pose.report/internal/pose"
)

// DefaultPorts is the port set the glove firmware transmits on.
var DefaultPorts = []int{9000, 9001, 9002, 9003, 9004, 9005}

// PoseSink consumes accepted pose updates. Implemented by glove.Tracker.
type PoseSink interface {
	Update(deviceRaw string, p pose.JointPose)
}

// Config carries the dispatcher's construction options.
type Config struct {
	// Host is the bind address; empty means all interfaces.
	Host string
	// Ports to listen on. Defaults to DefaultPorts when empty.
	Ports []int
	// Sink receives accepted pose updates. Required.
	Sink PoseSink
	// Stats receives packet accounting. Optional.
	Stats Stats
	// LogInterval controls periodic stats logging. Defaults to one minute.
	LogInterval time.Duration
}

// Dispatcher supervises the per-port listeners. Binding failures on
// individual ports are tolerated; only a fully failed bind is fatal.
type Dispatcher struct {
	host        string
	ports       []int
	sink        PoseSink
	stats       Stats
	logInterval time.Duration
	oscDisp     *osc.StandardDispatcher

	mu    sync.Mutex
	conns []net.PacketConn
}

// New creates a dispatcher from the provided configuration.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("dispatch: a pose sink is required")
	}

	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}

	ports := cfg.Ports
	if len(ports) == 0 {
		ports = DefaultPorts
	}

	logInterval := cfg.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	d := &Dispatcher{
		host:        cfg.Host,
		ports:       ports,
		sink:        cfg.Sink,
		stats:       stats,
		logInterval: logInterval,
	}

	// Every message, whatever its address, flows through the one registered
	// handler; the decoder is the message-type discriminator.
	d.oscDisp = osc.NewStandardDispatcher()
	if err := d.oscDisp.AddMsgHandler("*", d.handleMessage); err != nil {
		return nil, fmt.Errorf("dispatch: failed to register handler: %w", err)
	}

	return d, nil
}

// Bind attempts to open every configured port independently. A failed bind
// is logged and that port skipped; Bind fails only when no port could be
// bound at all.
func (d *Dispatcher) Bind() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, port := range d.ports {
		addr := net.JoinHostPort(d.host, strconv.Itoa(port))
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			monitoring.Logf("could not bind udp %s: %v", addr, err)
			continue
		}
		monitoring.Logf("listening for glove packets on %s", conn.LocalAddr())
		d.conns = append(d.conns, conn)
	}

	if len(d.conns) == 0 {
		return fmt.Errorf("dispatch: no listeners bound on %q ports %v", d.host, d.ports)
	}
	return nil
}

// BoundAddrs returns the local addresses of the successfully bound
// listeners.
func (d *Dispatcher) BoundAddrs() []net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()

	addrs := make([]net.Addr, 0, len(d.conns))
	for _, c := range d.conns {
		addrs = append(addrs, c.LocalAddr())
	}
	return addrs
}

// Run serves all bound listeners until the context is cancelled, then closes
// them and waits for the listener goroutines to drain.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	conns := make([]net.PacketConn, len(d.conns))
	copy(conns, d.conns)
	d.mu.Unlock()

	if len(conns) == 0 {
		return fmt.Errorf("dispatch: Run called with no bound listeners")
	}

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(c net.PacketConn) {
			defer wg.Done()
			d.serveConn(ctx, c)
		}(conn)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.statsLoop(ctx)
	}()

	<-ctx.Done()
	for _, c := range conns {
		c.Close()
	}
	wg.Wait()
	return ctx.Err()
}

// Start binds and runs in one step; it does not return under normal
// operation until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.Bind(); err != nil {
		return err
	}
	return d.Run(ctx)
}

// serveConn keeps one socket served for the lifetime of the context. The
// OSC server returns on any read or parse error; a malformed datagram must
// not take the listener down, so serving resumes until the socket closes.
func (d *Dispatcher) serveConn(ctx context.Context, c net.PacketConn) {
	srv := &osc.Server{Addr: c.LocalAddr().String(), Dispatcher: d.oscDisp}
	for {
		err := srv.Serve(c)
		if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			monitoring.Debugf("listener %s: dropped undecodable datagram: %v", c.LocalAddr(), err)
		}
	}
}

// statsLoop periodically emits packet statistics.
func (d *Dispatcher) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(d.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.stats.LogStats()
		}
	}
}

// handleMessage is invoked for every parsed OSC message on any port.
// Non-kinematic and malformed messages are counted and dropped; accepted
// poses are routed into the sink, whose per-hand sessions serialize
// concurrent updates.
func (d *Dispatcher) handleMessage(msg *osc.Message) {
	d.stats.AddPacket()

	p, device, ok := pose.DecodeKinematic(msg.Address, msg.Arguments)
	if !ok {
		d.stats.AddRejected()
		monitoring.Debugf("rejected message %q with %d args", msg.Address, len(msg.Arguments))
		return
	}

	d.sink.Update(device, p)
	d.stats.AddUpdate(pose.RouteTo(device))
}
