package dispatch

import (
	"sync"
	"time"

	"github.com/handtrack-data/pose.report/internal/monitoring"
	"github.com/handtrack-data/pose.report/internal/pose"
)

// Stats receives packet accounting callbacks from the dispatcher hot path.
type Stats interface {
	// AddPacket records one received message.
	AddPacket()
	// AddRejected records a message that failed kinematic decoding.
	AddRejected()
	// AddUpdate records one accepted pose update for the given hand.
	AddUpdate(h pose.Hand)
	// LogStats emits a periodic summary. Implementations that report
	// elsewhere may no-op.
	LogStats()
}

// noopStats is the safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddPacket()            {}
func (noopStats) AddRejected()          {}
func (noopStats) AddUpdate(_ pose.Hand) {}
func (noopStats) LogStats()             {}

// PacketStats tracks message counters and logs rates on demand.
type PacketStats struct {
	mu            sync.Mutex
	packetCount   int64
	rejectedCount int64
	leftUpdates   int64
	rightUpdates  int64
	lastReset     time.Time
}

func NewPacketStats() *PacketStats {
	return &PacketStats{lastReset: time.Now()}
}

func (ps *PacketStats) AddPacket() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
}

func (ps *PacketStats) AddRejected() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.rejectedCount++
}

func (ps *PacketStats) AddUpdate(h pose.Hand) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if h == pose.Left {
		ps.leftUpdates++
	} else {
		ps.rightUpdates++
	}
}

// GetAndReset returns the counters accumulated since the previous reset and
// zeroes them.
func (ps *PacketStats) GetAndReset() (packets, rejected, left, right int64, duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	duration = now.Sub(ps.lastReset)
	packets = ps.packetCount
	rejected = ps.rejectedCount
	left = ps.leftUpdates
	right = ps.rightUpdates

	ps.packetCount = 0
	ps.rejectedCount = 0
	ps.leftUpdates = 0
	ps.rightUpdates = 0
	ps.lastReset = now
	return
}

// LogStats logs the rates since the previous call and resets the counters.
// Quiet intervals are not logged.
func (ps *PacketStats) LogStats() {
	packets, rejected, left, right, duration := ps.GetAndReset()
	if packets == 0 && rejected == 0 {
		return
	}
	perSec := float64(packets) / duration.Seconds()
	monitoring.Logf("glove stats: %.1f msgs/sec (L=%d R=%d updates, %d rejected)",
		perSec, left, right, rejected)
}

// MultiStats fans callbacks out to several collectors, typically a logging
// PacketStats plus a metrics exporter.
func MultiStats(stats ...Stats) Stats {
	return multiStats(stats)
}

type multiStats []Stats

func (m multiStats) AddPacket() {
	for _, s := range m {
		s.AddPacket()
	}
}

func (m multiStats) AddRejected() {
	for _, s := range m {
		s.AddRejected()
	}
}

func (m multiStats) AddUpdate(h pose.Hand) {
	for _, s := range m {
		s.AddUpdate(h)
	}
}

func (m multiStats) LogStats() {
	for _, s := range m {
		s.LogStats()
	}
}
