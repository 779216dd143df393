// replay-osc retransmits a recorded frame log as live OSC kinematic traffic,
// so the daemon can be exercised without glove hardware on the desk.
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/handtrack-data/pose.report/internal/pose"
	"github.com/handtrack-data/pose.report/internal/record"
)

var (
	logPath  = flag.String("log", "", "Path to a recorded frame log directory")
	host     = flag.String("host", "127.0.0.1", "Destination host")
	port     = flag.Int("port", 9000, "Destination UDP port")
	rate     = flag.Float64("rate", 1.0, "Playback speed multiplier")
	loop     = flag.Bool("loop", false, "Restart from the first frame when the log ends")
	interval = flag.Duration("interval", 50*time.Millisecond, "Frame interval when the log carries no usable timestamps")
)

// kinematicMessage rebuilds the glove wire format from one recorded hand
// pose: a five-value header with the device identifier, then seven values per
// joint with the pose in the orientation slots and an identity w component.
func kinematicMessage(device string, p pose.JointPose) *osc.Message {
	msg := osc.NewMessage("/glove/kinematic")
	msg.Append(int32(0), int32(0), int32(0), device, int32(0))
	for _, v := range p {
		msg.Append(
			float32(v.X), float32(v.Y), float32(v.Z),
			float32(1), float32(v.X), float32(v.Y), float32(v.Z),
		)
	}
	return msg
}

func sendFrame(client *osc.Client, f record.Frame) error {
	if err := client.Send(kinematicMessage("Reality Glove (L)", f.Left)); err != nil {
		return err
	}
	return client.Send(kinematicMessage("Reality Glove (R)", f.Right))
}

// frameDelay derives the pause before the next frame from recorded
// timestamps, scaled by the playback rate.
func frameDelay(prev, next record.Frame) time.Duration {
	delta := next.CapturedNs - prev.CapturedNs
	if delta <= 0 {
		return *interval
	}
	return time.Duration(float64(delta) / *rate)
}

func playOnce(client *osc.Client, rep *record.Replayer) error {
	if err := rep.Seek(0); err != nil {
		return err
	}

	prev, err := rep.ReadFrame()
	if err != nil {
		return err
	}
	if err := sendFrame(client, prev); err != nil {
		return err
	}

	for {
		next, err := rep.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		time.Sleep(frameDelay(prev, next))
		if err := sendFrame(client, next); err != nil {
			return err
		}
		prev = next
	}
}

func main() {
	flag.Parse()

	if *logPath == "" {
		log.Fatal("-log is required")
	}
	if *rate <= 0 {
		log.Fatal("-rate must be positive")
	}

	rep, err := record.NewReplayer(*logPath)
	if err != nil {
		log.Fatalf("Failed to open frame log: %v", err)
	}

	hdr := rep.Header()
	log.Printf("Replaying session %s: %d frames to %s:%d at %.2fx",
		hdr.SessionID, rep.TotalFrames(), *host, *port, *rate)

	client := osc.NewClient(*host, *port)
	for {
		if err := playOnce(client, rep); err != nil {
			log.Fatalf("Replay failed: %v", err)
		}
		if !*loop {
			break
		}
	}
	log.Print("Replay complete")
}
