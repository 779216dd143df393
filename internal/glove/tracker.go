package glove

import "github.com/handtrack-data/pose.report/internal/pose"

// Tracker owns both hand sessions for the process lifetime and is the single
// consumer-facing handle: the dispatcher feeds it decoded packets, the
// presentation layer reads snapshots and triggers recalibration.
type Tracker struct {
	left  *Session
	right *Session
}

func NewTracker() *Tracker {
	return &Tracker{
		left:  NewSession(),
		right: NewSession(),
	}
}

// Update routes one decoded pose to the session selected by the device
// identifier. Safe for concurrent use from multiple listeners; each session
// serializes its own mutations.
func (t *Tracker) Update(deviceRaw string, p pose.JointPose) {
	t.session(pose.RouteTo(deviceRaw)).Update(deviceRaw, p)
}

// GetSnapshot returns an independent copy of one hand's state.
func (t *Tracker) GetSnapshot(h pose.Hand) Snapshot {
	return t.session(h).Snapshot()
}

// Recalibrate resets one hand's calibration offset.
func (t *Tracker) Recalibrate(h pose.Hand) {
	t.session(h).ResetCalibration()
}

// RecalibrateAll resets both hands, the one-button behaviour the display
// layer exposes.
func (t *Tracker) RecalibrateAll() {
	t.left.ResetCalibration()
	t.right.ResetCalibration()
}

func (t *Tracker) session(h pose.Hand) *Session {
	if h == pose.Left {
		return t.left
	}
	return t.right
}
