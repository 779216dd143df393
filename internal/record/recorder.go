// Package record provides recording and replay of paired hand pose frames:
// an in-memory frame buffer sampled while armed, a chunked on-disk log
// format, and a replayer for playback.
package record

import (
	"errors"
	"sync"
	"time"

	"github.com/handtrack-data/pose.report/internal/pose"
)

// MinPlaybackFrames is the smallest buffer playback will accept; a single
// frame cannot be animated.
const MinPlaybackFrames = 2

// ErrInsufficientFrames is returned when playback is requested on a buffer
// or log with fewer than MinPlaybackFrames frames.
var ErrInsufficientFrames = errors.New("record: fewer than 2 frames recorded")

// Frame is one paired (left, right) pose snapshot captured at a sampling
// instant.
type Frame struct {
	Left       pose.JointPose `json:"left"`
	Right      pose.JointPose `json:"right"`
	CapturedNs int64          `json:"captured_ns"`
}

// Recorder accumulates frames while armed. It has no notion of time or
// cadence; an external sampler calls Sample on its own schedule. The buffer
// is guarded so playback may begin while a sampler is still winding down.
type Recorder struct {
	mu     sync.Mutex
	armed  bool
	frames []Frame
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Arm clears any previous recording and starts appending.
func (r *Recorder) Arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
	r.armed = true
}

// Disarm freezes the buffer, retaining whatever was appended.
func (r *Recorder) Disarm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = false
}

// Armed reports whether sampling is active.
func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Sample appends one paired frame when armed; otherwise it is a no-op.
func (r *Recorder) Sample(left, right pose.JointPose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.armed {
		return
	}
	r.frames = append(r.frames, Frame{
		Left:       left,
		Right:      right,
		CapturedNs: time.Now().UnixNano(),
	})
}

// Len returns the number of buffered frames.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Frames returns a copy of the buffer in capture order.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Playback returns a restartable iterator over the recorded frames. It
// refuses buffers that cannot be animated.
func (r *Recorder) Playback() (*Playback, error) {
	frames := r.Frames()
	if len(frames) < MinPlaybackFrames {
		return nil, ErrInsufficientFrames
	}
	return &Playback{frames: frames}, nil
}

// Playback iterates a frozen copy of a recording. It never mutates the
// frames it holds.
type Playback struct {
	frames []Frame
	next   int
}

// Len returns the total frame count.
func (p *Playback) Len() int {
	return len(p.frames)
}

// Next returns the next frame in capture order, reporting false when the
// recording is exhausted.
func (p *Playback) Next() (Frame, bool) {
	if p.next >= len(p.frames) {
		return Frame{}, false
	}
	f := p.frames[p.next]
	p.next++
	return f, true
}

// Restart rewinds playback to the first frame.
func (p *Playback) Restart() {
	p.next = 0
}
