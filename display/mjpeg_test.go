package display

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

func testFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 48, 64, gocv.MatTypeCV8UC3)
}

func TestStreamHealth(t *testing.T) {

	s := NewStream("127.0.0.1:0", facewatch.NewTrackingState())
	defer s.Close()

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["status"] != "ok" {
		t.Errorf("unexpected health body %v (%v)", body, err)
	}
}

func TestStreamStatus(t *testing.T) {

	state := facewatch.NewTrackingState()
	s := NewStream("127.0.0.1:0", state)
	defer s.Close()

	get := func() Status {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		var st Status
		if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
			t.Fatalf("failed to decode status: %v", err)
		}
		return st
	}

	st := get()

	if st.Verified || st.Outcome != "pending" || st.Box != nil || st.Distance != nil {
		t.Errorf("unexpected initial status %+v", st)
	}

	box := facewatch.FaceBox{X: 5, Y: 6, Width: 70, Height: 80}
	state.Observe(box, true)

	v := facewatch.Matched(0.25)
	v.JobID = "job-1"
	v.CompletedAt = time.Now()
	state.Publish(v)

	s.SetStatsFunc(func() facewatch.DriverStats {
		return facewatch.DriverStats{Processed: 12}
	})

	st = get()

	if !st.Verified || st.Outcome != "match" || st.JobID != "job-1" {
		t.Errorf("unexpected verdict status %+v", st)
	}

	if st.Distance == nil || *st.Distance != 0.25 {
		t.Errorf("expected distance 0.25, got %v", st.Distance)
	}

	if st.Box == nil || *st.Box != box {
		t.Errorf("expected box %v, got %v", box, st.Box)
	}

	if st.Verifications != 1 || st.Driver == nil || st.Driver.Processed != 12 {
		t.Errorf("unexpected counters %+v", st)
	}
}

func TestStreamFrames(t *testing.T) {

	s := NewStream("127.0.0.1:0", facewatch.NewTrackingState())

	srv := httptest.NewServer(s.Router())
	defer srv.Close()
	defer s.Close()

	frame := testFrame()
	defer frame.Close()

	if err := s.Show(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// keep frames flowing so each part is terminated by the next boundary
	stop := make(chan struct{})
	finished := make(chan struct{})

	defer func() {
		close(stop)
		<-finished
	}()

	go func() {
		defer close(finished)

		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Show(frame)
			}
		}
	}()

	resp, err := http.Get(srv.URL + "/stream")

	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] != "frame" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	mr := multipart.NewReader(resp.Body, params["boundary"])

	for i := 0; i < 2; i++ {
		part, err := mr.NextPart()

		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}

		if part.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("part %d: unexpected content type %q", i, part.Header.Get("Content-Type"))
		}

		data, err := io.ReadAll(part)

		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}

		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
			t.Fatalf("part %d: expected JPEG data", i)
		}

		img, err := gocv.IMDecode(data, gocv.IMReadColor)

		if err != nil {
			t.Fatalf("part %d: decode failed: %v", i, err)
		}

		if img.Cols() != 64 || img.Rows() != 48 {
			t.Errorf("part %d: unexpected frame size %dx%d", i, img.Cols(), img.Rows())
		}

		img.Close()
	}
}

func TestStreamClose(t *testing.T) {

	s := NewStream("127.0.0.1:0", facewatch.NewTrackingState())

	if s.QuitRequested() {
		t.Error("unexpected quit before close")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}

	if !s.QuitRequested() {
		t.Error("expected quit after close")
	}

	frame := testFrame()
	defer frame.Close()

	if err := s.Show(frame); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestStreamStart(t *testing.T) {

	s := NewStream("127.0.0.1:0", facewatch.NewTrackingState())
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := NewStream("256.0.0.1:bad", facewatch.NewTrackingState())
	defer bad.Close()

	if err := bad.Start(); err == nil {
		t.Error("expected error listening on invalid address")
	}
}
