// Package pose defines the hand pose data model shared across the tracking
// pipeline: the fixed 26-joint pose sequence, the joint name table, and the
// device-to-hand routing policy.
package pose

import "strings"

// NumJoints is the number of tracked joints per hand. The wire protocol
// always carries exactly this many joint blocks; the count and order are
// protocol invariants.
const NumJoints = 26

// JointNames maps joint index to its anatomical name, in protocol order.
// Exported consumers (CSV export, display) rely on this table staying
// index-aligned with JointPose.
var JointNames = [NumJoints]string{
	"Palm",
	"Wrist",
	"Thumb metacarpal",
	"Thumb proximal",
	"Thumb distal",
	"Thumb tip",
	"Index metacarpal",
	"Index proximal",
	"Index intermediate",
	"Index distal",
	"Index tip",
	"Middle metacarpal",
	"Middle proximal",
	"Middle intermediate",
	"Middle distal",
	"Middle tip",
	"Ring metacarpal",
	"Ring proximal",
	"Ring intermediate",
	"Ring distal",
	"Ring tip",
	"Little metacarpal",
	"Little proximal",
	"Little intermediate",
	"Little distal",
	"Little tip",
}

// Vec3 is one joint's stored orientation components.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// JointPose is the full per-hand pose: one Vec3 per joint, indexed in
// protocol order. It is a value type; assignment and function returns copy
// the whole pose, so callers never alias a live buffer.
type JointPose [NumJoints]Vec3

// Sub returns p - o component-wise across all joints.
func (p JointPose) Sub(o JointPose) JointPose {
	var out JointPose
	for i := range p {
		out[i] = Vec3{
			X: p[i].X - o[i].X,
			Y: p[i].Y - o[i].Y,
			Z: p[i].Z - o[i].Z,
		}
	}
	return out
}

// IsZero reports whether every component of every joint is exactly zero.
func (p JointPose) IsZero() bool {
	return p == JointPose{}
}

// Hand identifies one of the two logical hand units.
type Hand int

const (
	Left Hand = iota
	Right
)

func (h Hand) String() string {
	if h == Left {
		return "left"
	}
	return "right"
}

// ParseHand maps a hand name to a Hand. Used by the HTTP surface.
func ParseHand(s string) (Hand, bool) {
	switch strings.ToLower(s) {
	case "left", "l":
		return Left, true
	case "right", "r":
		return Right, true
	}
	return Right, false
}

// RouteTo decides which logical hand a device identifier belongs to. The
// glove firmware reports names like "Reality Glove (L)" and "Reality Glove
// (R)"; anything that does not look left-handed routes to Right, including
// unrecognized identifiers.
func RouteTo(deviceRaw string) Hand {
	name := strings.ToLower(deviceRaw)
	if strings.Contains(name, "(l)") || strings.Contains(name, "left") {
		return Left
	}
	return Right
}
