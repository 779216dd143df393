// Package glove holds the stateful session model for the two hand units:
// per-hand calibrated pose state and the tracker facade the presentation
// layer consumes.
package glove

import (
	"sync"

	"github.com/handtrack-data/pose.report/internal/pose"
)

// Session owns the live state of one logical hand. All fields are guarded by
// a single mutex; readers receive copies via Snapshot and never alias the
// live pose buffer.
type Session struct {
	mu          sync.Mutex
	pose        pose.JointPose
	offset      pose.JointPose
	calibrated  bool
	deviceLabel string
	packetCount uint64
	hasData     bool
}

// Snapshot is a consistent copy of a session's state at one instant.
type Snapshot struct {
	Pose        pose.JointPose
	DeviceLabel string
	PacketCount uint64
	HasData     bool
}

func NewSession() *Session {
	return &Session{}
}

// Update applies one accepted packet. The first update after construction or
// ResetCalibration captures the raw pose as the calibration offset; every
// stored pose thereafter is raw minus that offset.
func (s *Session) Update(deviceRaw string, raw pose.JointPose) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.calibrated {
		s.offset = raw
		s.calibrated = true
	}
	s.deviceLabel = deviceRaw
	s.pose = raw.Sub(s.offset)
	s.packetCount++
	s.hasData = true
}

// ResetCalibration discards the calibration offset so the next update
// re-zeroes the hand. The device label, packet count and hasData flag are
// intentionally retained.
func (s *Session) ResetCalibration() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calibrated = false
	s.pose = pose.JointPose{}
}

// Snapshot returns an independent copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Pose:        s.pose,
		DeviceLabel: s.deviceLabel,
		PacketCount: s.packetCount,
		HasData:     s.hasData,
	}
}
