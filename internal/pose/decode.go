package pose

import (
	"fmt"
	"strings"
)

// Kinematic wire layout. Each message carries 5 header arguments followed by
// 26 joint blocks of 7 values (position x,y,z then orientation qw,qx,qy,qz).
const (
	kinematicMarker = "/kinematic"

	headerArgCount = 5
	valuesPerJoint = 7

	// MinKinematicArgs is the hard lower bound on the argument list. Extra
	// trailing arguments are tolerated and ignored.
	MinKinematicArgs = headerArgCount + NumJoints*valuesPerJoint

	deviceArgIndex = 3

	// Offsets of the orientation quartet within one joint block.
	quatWOffset = 3
	quatXOffset = 4
	quatYOffset = 5
	quatZOffset = 6
)

// DecodeKinematic inspects one received message and, if it is a kinematic
// pose message, extracts the 26-joint pose and the device identifier
// (lowercased). Decoding is all-or-nothing: any argument that fails numeric
// conversion rejects the whole packet with ok=false.
//
// Only qx,qy,qz are stored as the pose X,Y,Z components; qw is consumed
// positionally because the wire format requires it, but its value is
// discarded. The position triple per joint is likewise skipped.
func DecodeKinematic(address string, args []interface{}) (p JointPose, deviceRaw string, ok bool) {
	if !strings.Contains(strings.ToLower(address), kinematicMarker) {
		return JointPose{}, "", false
	}
	if len(args) < MinKinematicArgs {
		return JointPose{}, "", false
	}

	device, err := stringArg(args[deviceArgIndex])
	if err != nil {
		return JointPose{}, "", false
	}
	device = strings.ToLower(device)

	jointData := args[headerArgCount:]
	for i := 0; i < NumJoints; i++ {
		base := i * valuesPerJoint
		if _, err := floatArg(jointData[base+quatWOffset]); err != nil {
			return JointPose{}, "", false
		}
		qx, err := floatArg(jointData[base+quatXOffset])
		if err != nil {
			return JointPose{}, "", false
		}
		qy, err := floatArg(jointData[base+quatYOffset])
		if err != nil {
			return JointPose{}, "", false
		}
		qz, err := floatArg(jointData[base+quatZOffset])
		if err != nil {
			return JointPose{}, "", false
		}
		p[i] = Vec3{X: qx, Y: qy, Z: qz}
	}

	return p, device, true
}

// floatArg coerces the numeric argument types OSC delivers into a float64.
func floatArg(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("argument %v (%T) is not numeric", v, v)
	}
}

func stringArg(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %v (%T) is not a string", v, v)
	}
	return s, nil
}
