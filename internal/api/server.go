// Package api exposes the tracking daemon's HTTP control surface: live hand
// snapshots, recalibration, the recorder controls, and CSV export.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/handtrack-data/pose.report/internal/db"
	"github.com/handtrack-data/pose.report/internal/glove"
	"github.com/handtrack-data/pose.report/internal/monitoring"
	"github.com/handtrack-data/pose.report/internal/pose"
	"github.com/handtrack-data/pose.report/internal/record"
	"github.com/handtrack-data/pose.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Observer receives recording lifecycle events. The metrics package satisfies
// it; a nil observer is replaced with a no-op.
type Observer interface {
	SetRecordingArmed(armed bool)
	AddRecordingSaved()
}

type noopObserver struct{}

func (noopObserver) SetRecordingArmed(bool) {}
func (noopObserver) AddRecordingSaved()     {}

type Server struct {
	tracker      *glove.Tracker
	rec          *record.Recorder
	db           *db.DB
	recordingDir string
	obs          Observer
}

// NewServer wires the HTTP surface. db may be nil when metadata persistence
// is disabled.
func NewServer(tracker *glove.Tracker, rec *record.Recorder, db *db.DB, recordingDir string, obs Observer) *Server {
	if obs == nil {
		obs = noopObserver{}
	}
	return &Server{
		tracker:      tracker,
		rec:          rec,
		db:           db,
		recordingDir: recordingDir,
		obs:          obs,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/snapshot", s.showSnapshot)
	mux.HandleFunc("/api/recalibrate", s.recalibrateHandler)
	mux.HandleFunc("/api/record/arm", s.armHandler)
	mux.HandleFunc("/api/record/disarm", s.disarmHandler)
	mux.HandleFunc("/api/record/frames", s.listFrames)
	mux.HandleFunc("/api/recordings", s.listRecordings)
	mux.HandleFunc("/api/export", s.exportCSV)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handSnapshot is the wire form of one hand's live state.
type handSnapshot struct {
	Hand        string         `json:"hand"`
	DeviceLabel string         `json:"device_label"`
	PacketCount uint64         `json:"packet_count"`
	HasData     bool           `json:"has_data"`
	Pose        pose.JointPose `json:"pose"`
}

func toHandSnapshot(h pose.Hand, snap glove.Snapshot) handSnapshot {
	return handSnapshot{
		Hand:        h.String(),
		DeviceLabel: snap.DeviceLabel,
		PacketCount: snap.PacketCount,
		HasData:     snap.HasData,
		Pose:        snap.Pose,
	}
}

// showSnapshot returns one hand when ?hand= is given, otherwise both.
func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if param := r.URL.Query().Get("hand"); param != "" {
		h, ok := pose.ParseHand(param)
		if !ok {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'hand' parameter %q", param))
			return
		}
		if err := json.NewEncoder(w).Encode(toHandSnapshot(h, s.tracker.GetSnapshot(h))); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write snapshot")
		}
		return
	}

	both := map[string]handSnapshot{
		"left":  toHandSnapshot(pose.Left, s.tracker.GetSnapshot(pose.Left)),
		"right": toHandSnapshot(pose.Right, s.tracker.GetSnapshot(pose.Right)),
	}
	if err := json.NewEncoder(w).Encode(both); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write snapshot")
	}
}

// recalibrateHandler resets calibration for one hand, or both when no hand
// parameter is given.
func (s *Server) recalibrateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	param := r.URL.Query().Get("hand")
	if param == "" {
		s.tracker.RecalibrateAll()
		monitoring.Logf("recalibrated both hands")
		json.NewEncoder(w).Encode(map[string]string{"recalibrated": "both"})
		return
	}
	h, ok := pose.ParseHand(param)
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'hand' parameter %q", param))
		return
	}
	s.tracker.Recalibrate(h)
	monitoring.Logf("recalibrated %s hand", h)
	json.NewEncoder(w).Encode(map[string]string{"recalibrated": h.String()})
}

func (s *Server) armHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.rec.Arm()
	s.obs.SetRecordingArmed(true)
	monitoring.Logf("recording armed")
	json.NewEncoder(w).Encode(map[string]bool{"armed": true})
}

// disarmResponse reports what happened to the buffered frames on disarm.
type disarmResponse struct {
	Armed      bool   `json:"armed"`
	FrameCount int    `json:"frame_count"`
	Saved      bool   `json:"saved"`
	ID         string `json:"id,omitempty"`
	LogPath    string `json:"log_path,omitempty"`
}

// disarmHandler stops sampling and persists the buffer when it holds enough
// frames to replay. Shorter buffers stay in memory but are not written out.
func (s *Server) disarmHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.rec.Disarm()
	s.obs.SetRecordingArmed(false)

	frames := s.rec.Frames()
	resp := disarmResponse{Armed: false, FrameCount: len(frames)}
	if len(frames) < record.MinPlaybackFrames {
		monitoring.Logf("recording disarmed with %d frames, not persisting", len(frames))
		json.NewEncoder(w).Encode(resp)
		return
	}

	id := uuid.NewString()
	logPath := filepath.Join(s.recordingDir, id)
	if err := record.WriteLog(logPath, id, frames); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write frame log: %v", err))
		return
	}
	if s.db != nil {
		err := s.db.InsertRecording(db.Recording{
			ID:         id,
			FrameCount: len(frames),
			DurationMs: (frames[len(frames)-1].CapturedNs - frames[0].CapturedNs) / 1e6,
			LogPath:    logPath,
		})
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to register recording: %v", err))
			return
		}
	}
	s.obs.AddRecordingSaved()
	monitoring.Logf("recording %s saved: %d frames at %s", id, len(frames), logPath)

	resp.Saved = true
	resp.ID = id
	resp.LogPath = logPath
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	frames := s.rec.Frames()
	resp := map[string]interface{}{
		"armed":  s.rec.Armed(),
		"count":  len(frames),
		"frames": frames,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write frames")
	}
}

func (s *Server) listRecordings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Recording store not configured")
		return
	}

	recs, err := s.db.ListRecordings()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list recordings: %v", err))
		return
	}
	if recs == nil {
		recs = []db.Recording{}
	}
	if err := json.NewEncoder(w).Encode(recs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write recordings")
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "gloved",
		"version": version.Version,
	})
}
