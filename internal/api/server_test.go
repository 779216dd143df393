package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/handtrack-data/pose.report/internal/db"
	"github.com/handtrack-data/pose.report/internal/glove"
	"github.com/handtrack-data/pose.report/internal/monitoring"
	"github.com/handtrack-data/pose.report/internal/pose"
	"github.com/handtrack-data/pose.report/internal/record"
)

func muteLogs(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(func(format string, v ...interface{}) {})
	t.Cleanup(func() { monitoring.SetLogger(nil) })
}

// testServer builds a server backed by a temp sqlite store and recording dir.
func testServer(t *testing.T) (*Server, *glove.Tracker, *record.Recorder) {
	t.Helper()
	muteLogs(t)

	dir := t.TempDir()
	store, err := db.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tracker := glove.NewTracker()
	rec := record.NewRecorder()
	return NewServer(tracker, rec, store, filepath.Join(dir, "recordings"), nil), tracker, rec
}

func uniformPose(v float64) pose.JointPose {
	var p pose.JointPose
	for i := range p {
		p[i] = pose.Vec3{X: v, Y: v, Z: v}
	}
	return p
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rr, req)
	return rr
}

func TestSnapshotBothHands(t *testing.T) {
	s, tracker, _ := testServer(t)
	tracker.Update("reality glove (l)", uniformPose(1))
	tracker.Update("reality glove (l)", uniformPose(3))

	rr := doRequest(t, s, http.MethodGet, "/api/snapshot")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var body map[string]handSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	left := body["left"]
	if !left.HasData || left.PacketCount != 2 {
		t.Errorf("left = %+v", left)
	}
	if got := left.Pose[0]; got != (pose.Vec3{X: 2, Y: 2, Z: 2}) {
		t.Errorf("left palm = %+v, want calibrated delta", got)
	}
	if body["right"].HasData {
		t.Error("right hand should have no data")
	}
}

func TestSnapshotSingleHandAndValidation(t *testing.T) {
	s, tracker, _ := testServer(t)
	tracker.Update("right glove", uniformPose(1))

	rr := doRequest(t, s, http.MethodGet, "/api/snapshot?hand=right")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var snap handSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Hand != "right" || !snap.HasData {
		t.Errorf("snapshot = %+v", snap)
	}

	if rr := doRequest(t, s, http.MethodGet, "/api/snapshot?hand=sideways"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad hand status = %d, want 400", rr.Code)
	}
	if rr := doRequest(t, s, http.MethodPost, "/api/snapshot"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST snapshot status = %d, want 405", rr.Code)
	}
}

func TestRecalibrate(t *testing.T) {
	s, tracker, _ := testServer(t)
	tracker.Update("left glove", uniformPose(1))
	tracker.Update("left glove", uniformPose(5))
	if tracker.GetSnapshot(pose.Left).Pose.IsZero() {
		t.Fatal("pose should be nonzero before recalibration")
	}

	if rr := doRequest(t, s, http.MethodPost, "/api/recalibrate?hand=left"); rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !tracker.GetSnapshot(pose.Left).Pose.IsZero() {
		t.Error("recalibrate should zero the pose")
	}

	// Next packet re-zeroes against its own values.
	tracker.Update("left glove", uniformPose(9))
	if !tracker.GetSnapshot(pose.Left).Pose.IsZero() {
		t.Error("first packet after recalibration should read zero")
	}

	if rr := doRequest(t, s, http.MethodPost, "/api/recalibrate"); rr.Code != http.StatusOK {
		t.Errorf("recalibrate both status = %d", rr.Code)
	}
	if rr := doRequest(t, s, http.MethodGet, "/api/recalibrate"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET recalibrate status = %d, want 405", rr.Code)
	}
}

func TestRecordLifecycle(t *testing.T) {
	s, tracker, rec := testServer(t)
	tracker.Update("left glove", uniformPose(1))

	if rr := doRequest(t, s, http.MethodPost, "/api/record/arm"); rr.Code != http.StatusOK {
		t.Fatalf("arm status = %d", rr.Code)
	}
	if !rec.Armed() {
		t.Fatal("recorder should be armed")
	}

	// Simulate the sampler.
	for i := 0; i < 3; i++ {
		rec.Sample(tracker.GetSnapshot(pose.Left).Pose, tracker.GetSnapshot(pose.Right).Pose)
	}

	rr := doRequest(t, s, http.MethodGet, "/api/record/frames")
	if rr.Code != http.StatusOK {
		t.Fatalf("frames status = %d", rr.Code)
	}
	var framesResp struct {
		Armed  bool           `json:"armed"`
		Count  int            `json:"count"`
		Frames []record.Frame `json:"frames"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &framesResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !framesResp.Armed || framesResp.Count != 3 || len(framesResp.Frames) != 3 {
		t.Errorf("frames response = %+v", framesResp)
	}

	rr = doRequest(t, s, http.MethodPost, "/api/record/disarm")
	if rr.Code != http.StatusOK {
		t.Fatalf("disarm status = %d: %s", rr.Code, rr.Body.String())
	}
	var disarm disarmResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &disarm); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if disarm.Armed || !disarm.Saved || disarm.FrameCount != 3 || disarm.ID == "" {
		t.Errorf("disarm response = %+v", disarm)
	}

	// The saved log replays.
	rep, err := record.NewReplayer(disarm.LogPath)
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	if rep.TotalFrames() != 3 {
		t.Errorf("replayed frames = %d, want 3", rep.TotalFrames())
	}

	// And the metadata row exists.
	rr = doRequest(t, s, http.MethodGet, "/api/recordings")
	if rr.Code != http.StatusOK {
		t.Fatalf("recordings status = %d", rr.Code)
	}
	var recs []db.Recording
	if err := json.Unmarshal(rr.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != disarm.ID || recs[0].FrameCount != 3 {
		t.Errorf("recordings = %+v", recs)
	}
}

func TestDisarmShortBufferNotPersisted(t *testing.T) {
	s, _, rec := testServer(t)

	rec.Arm()
	rec.Sample(uniformPose(0), uniformPose(0))

	rr := doRequest(t, s, http.MethodPost, "/api/record/disarm")
	if rr.Code != http.StatusOK {
		t.Fatalf("disarm status = %d", rr.Code)
	}
	var disarm disarmResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &disarm); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if disarm.Saved || disarm.FrameCount != 1 {
		t.Errorf("disarm response = %+v", disarm)
	}

	rr = doRequest(t, s, http.MethodGet, "/api/recordings")
	var recs []db.Recording
	if err := json.Unmarshal(rr.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("short buffer should not be persisted, got %+v", recs)
	}
}

func TestExportCSV(t *testing.T) {
	s, tracker, _ := testServer(t)

	// No data yet: refused.
	if rr := doRequest(t, s, http.MethodGet, "/api/export"); rr.Code != http.StatusConflict {
		t.Errorf("empty export status = %d, want 409", rr.Code)
	}

	tracker.Update("reality glove (l)", uniformPose(1))
	tracker.Update("reality glove (l)", uniformPose(2.5))

	rr := doRequest(t, s, http.MethodGet, "/api/export")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "hand_poses_") {
		t.Errorf("content disposition = %q", cd)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "=== LEFT GLOVE ===") {
		t.Error("missing left section header")
	}
	if strings.Contains(body, "=== RIGHT GLOVE ===") {
		t.Error("right section should be omitted without data")
	}
	if !strings.Contains(body, "Index,Joint Name,X,Y,Z") {
		t.Error("missing column header")
	}
	if !strings.Contains(body, "0,Palm,1.500000,1.500000,1.500000") {
		t.Errorf("missing calibrated palm row in:\n%s", body)
	}
	if !strings.Contains(body, "25,Little tip,") {
		t.Error("missing last joint row")
	}
}

func TestExportBothSections(t *testing.T) {
	s, tracker, _ := testServer(t)
	tracker.Update("glove (l)", uniformPose(1))
	tracker.Update("glove (r)", uniformPose(1))

	body := doRequest(t, s, http.MethodGet, "/api/export").Body.String()
	leftIdx := strings.Index(body, "=== LEFT GLOVE ===")
	rightIdx := strings.Index(body, "=== RIGHT GLOVE ===")
	if leftIdx < 0 || rightIdx < 0 || leftIdx > rightIdx {
		t.Fatalf("sections missing or misordered:\n%s", body)
	}
	// Blank row separates the sections.
	between := body[leftIdx:rightIdx]
	if !strings.Contains(between, "\n\n") {
		t.Error("expected blank row between sections")
	}
}

func TestHealth(t *testing.T) {
	s, _, _ := testServer(t)
	rr := doRequest(t, s, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("health body = %s", rr.Body.String())
	}
}
