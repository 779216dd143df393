package record

import (
	"testing"

	"github.com/handtrack-data/pose.report/internal/pose"
)

func uniformPose(x, y, z float64) pose.JointPose {
	var p pose.JointPose
	for i := range p {
		p[i] = pose.Vec3{X: x, Y: y, Z: z}
	}
	return p
}

func TestRecorderArmSampleDisarm(t *testing.T) {
	r := NewRecorder()

	// Samples before arming are dropped.
	r.Sample(uniformPose(1, 0, 0), uniformPose(0, 1, 0))
	if r.Len() != 0 {
		t.Fatalf("disarmed recorder buffered %d frames", r.Len())
	}

	r.Arm()
	for i := 0; i < 5; i++ {
		r.Sample(uniformPose(float64(i), 0, 0), uniformPose(0, float64(i), 0))
	}
	r.Disarm()

	frames := r.Frames()
	if len(frames) != 5 {
		t.Fatalf("len(Frames()) = %d, want 5", len(frames))
	}
	for i, f := range frames {
		if f.Left[0].X != float64(i) || f.Right[0].Y != float64(i) {
			t.Errorf("frame %d out of order: left=%+v right=%+v", i, f.Left[0], f.Right[0])
		}
	}

	// Samples after disarm do not grow the frozen buffer.
	r.Sample(uniformPose(9, 9, 9), uniformPose(9, 9, 9))
	if r.Len() != 5 {
		t.Errorf("disarmed recorder grew to %d frames", r.Len())
	}
}

func TestRecorderRearmClearsBuffer(t *testing.T) {
	r := NewRecorder()

	r.Arm()
	for i := 0; i < 5; i++ {
		r.Sample(uniformPose(1, 1, 1), uniformPose(2, 2, 2))
	}
	r.Disarm()

	r.Arm()
	if r.Len() != 0 {
		t.Fatalf("re-arming should clear the buffer, got %d frames", r.Len())
	}
	r.Sample(uniformPose(3, 3, 3), uniformPose(4, 4, 4))
	r.Disarm()

	frames := r.Frames()
	if len(frames) != 1 {
		t.Fatalf("len(Frames()) = %d, want 1", len(frames))
	}
	if frames[0].Left[0].X != 3 {
		t.Errorf("stale frame survived re-arm: %+v", frames[0].Left[0])
	}
}

func TestRecorderFramesIsACopy(t *testing.T) {
	r := NewRecorder()
	r.Arm()
	r.Sample(uniformPose(1, 1, 1), uniformPose(1, 1, 1))
	r.Disarm()

	frames := r.Frames()
	frames[0].Left[0].X = 42
	if r.Frames()[0].Left[0].X == 42 {
		t.Error("mutating the returned slice must not affect the buffer")
	}
}

func TestPlaybackRefusesSingleFrame(t *testing.T) {
	r := NewRecorder()
	if _, err := r.Playback(); err != ErrInsufficientFrames {
		t.Errorf("empty buffer: got %v, want ErrInsufficientFrames", err)
	}

	r.Arm()
	r.Sample(uniformPose(1, 0, 0), uniformPose(0, 1, 0))
	r.Disarm()
	if _, err := r.Playback(); err != ErrInsufficientFrames {
		t.Errorf("one frame: got %v, want ErrInsufficientFrames", err)
	}
}

func TestPlaybackIterationAndRestart(t *testing.T) {
	r := NewRecorder()
	r.Arm()
	for i := 0; i < 3; i++ {
		r.Sample(uniformPose(float64(i), 0, 0), uniformPose(0, 0, 0))
	}
	r.Disarm()

	pb, err := r.Playback()
	if err != nil {
		t.Fatalf("Playback() error: %v", err)
	}
	if pb.Len() != 3 {
		t.Fatalf("playback length = %d, want 3", pb.Len())
	}

	for i := 0; i < 3; i++ {
		f, ok := pb.Next()
		if !ok {
			t.Fatalf("Next() exhausted early at %d", i)
		}
		if f.Left[0].X != float64(i) {
			t.Errorf("frame %d left X = %v, want %d", i, f.Left[0].X, i)
		}
	}
	if _, ok := pb.Next(); ok {
		t.Error("Next() should report exhaustion after the last frame")
	}

	pb.Restart()
	if f, ok := pb.Next(); !ok || f.Left[0].X != 0 {
		t.Error("Restart() should rewind to the first frame")
	}
}
