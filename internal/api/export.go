package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/handtrack-data/pose.report/internal/glove"
	"github.com/handtrack-data/pose.report/internal/monitoring"
	"github.com/handtrack-data/pose.report/internal/pose"
)

// exportCSV streams the current calibrated poses as CSV, one section per hand
// that has received data. Hands with no data are omitted; if neither has any,
// the export is refused.
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	left := s.tracker.GetSnapshot(pose.Left)
	right := s.tracker.GetSnapshot(pose.Right)
	if !left.HasData && !right.HasData {
		s.writeJSONError(w, http.StatusConflict, "No pose data received yet")
		return
	}

	filename := fmt.Sprintf("hand_poses_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	if left.HasData {
		writeHandSection(cw, "=== LEFT GLOVE ===", left)
		if right.HasData {
			cw.Write([]string{})
		}
	}
	if right.HasData {
		writeHandSection(cw, "=== RIGHT GLOVE ===", right)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		// Headers are already out; all that is left is to note the failure.
		monitoring.Logf("csv export failed: %v", err)
	}
}

func writeHandSection(cw *csv.Writer, title string, snap glove.Snapshot) {
	cw.Write([]string{title})
	cw.Write([]string{"Index", "Joint Name", "X", "Y", "Z"})
	for i, v := range snap.Pose {
		cw.Write([]string{
			fmt.Sprintf("%d", i),
			pose.JointNames[i],
			fmt.Sprintf("%.6f", v.X),
			fmt.Sprintf("%.6f", v.Y),
			fmt.Sprintf("%.6f", v.Z),
		})
	}
}
