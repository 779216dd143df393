package glove

import (
	"sync"
	"testing"

	"github.com/handtrack-data/pose.report/internal/pose"
)

// uniformPose returns a pose with the same components at every joint.
func uniformPose(x, y, z float64) pose.JointPose {
	var p pose.JointPose
	for i := range p {
		p[i] = pose.Vec3{X: x, Y: y, Z: z}
	}
	return p
}

func TestSessionFirstUpdateSelfCalibrates(t *testing.T) {
	s := NewSession()
	s.Update("reality glove (l)", uniformPose(1, 2, 3))

	snap := s.Snapshot()
	if !snap.Pose.IsZero() {
		t.Error("first update should self-calibrate to a zero pose")
	}
	if !snap.HasData {
		t.Error("hasData should be set after the first update")
	}
	if snap.PacketCount != 1 {
		t.Errorf("packetCount = %d, want 1", snap.PacketCount)
	}
	if snap.DeviceLabel != "reality glove (l)" {
		t.Errorf("deviceLabel = %q", snap.DeviceLabel)
	}
}

func TestSessionOffsetSubtraction(t *testing.T) {
	s := NewSession()
	p1 := uniformPose(0.5, -0.5, 0.25)
	p2 := uniformPose(0.75, 0.5, 1.25)

	s.Update("dev", p1)
	s.Update("dev", p2)

	want := p2.Sub(p1)
	snap := s.Snapshot()
	if snap.Pose != want {
		t.Errorf("pose after two updates = %+v, want P2-P1 = %+v", snap.Pose[0], want[0])
	}
	if snap.PacketCount != 2 {
		t.Errorf("packetCount = %d, want 2", snap.PacketCount)
	}
}

func TestSessionOffsetFixedUntilReset(t *testing.T) {
	s := NewSession()
	p1 := uniformPose(1, 1, 1)
	s.Update("dev", p1)
	s.Update("dev", uniformPose(2, 2, 2))
	s.Update("dev", uniformPose(5, 5, 5))

	// Offset stays P1 across subsequent updates.
	if got, want := s.Snapshot().Pose, uniformPose(4, 4, 4); got != want {
		t.Errorf("pose = %+v, want %+v", got[0], want[0])
	}
}

func TestSessionResetCalibration(t *testing.T) {
	s := NewSession()
	s.Update("dev", uniformPose(1, 2, 3))
	s.Update("dev", uniformPose(4, 5, 6))

	s.ResetCalibration()

	snap := s.Snapshot()
	if !snap.Pose.IsZero() {
		t.Error("pose should be zeroed immediately after reset")
	}
	if snap.PacketCount != 2 {
		t.Error("reset must not clear packetCount")
	}
	if !snap.HasData {
		t.Error("reset must not clear hasData")
	}
	if snap.DeviceLabel != "dev" {
		t.Error("reset must not clear deviceLabel")
	}

	// First update after reset re-captures the offset.
	p := uniformPose(7, 8, 9)
	s.Update("dev", p)
	if !s.Snapshot().Pose.IsZero() {
		t.Error("first post-reset update should yield a zero pose")
	}
}

func TestSessionPacketCountUnderConcurrency(t *testing.T) {
	s := NewSession()
	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.Update("dev", uniformPose(1, 0, 0))
			}
		}()
	}
	wg.Wait()

	if got := s.Snapshot().PacketCount; got != workers*perWorker {
		t.Errorf("packetCount = %d, want %d", got, workers*perWorker)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := NewSession()
	s.Update("dev", uniformPose(1, 1, 1))
	s.Update("dev", uniformPose(3, 3, 3))

	snap := s.Snapshot()
	snap.Pose[0].X = 999

	if got := s.Snapshot().Pose[0].X; got == 999 {
		t.Error("mutating a snapshot must not affect the live session")
	}
}
