package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the encoding quality of streamed frames
const DefaultJPEGQuality = 80

// Status is the JSON body served on /status
type Status struct {
	Verified    bool               `json:"verified"`
	Outcome     string             `json:"outcome"`
	Distance    *float64           `json:"distance,omitempty"`
	JobID       string             `json:"job_id,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Box         *facewatch.FaceBox `json:"box,omitempty"`
	// Verifications is the number of verdicts published
	Verifications uint64 `json:"verifications"`
	// Frames is the number of frames streamed
	Frames uint64                  `json:"frames"`
	Driver *facewatch.DriverStats `json:"driver,omitempty"`
}

// Stream serves annotated frames as an MJPEG stream over HTTP along with
// the current tracking status.  It implements facewatch.Display for headless
// operation.
type Stream struct {
	addr       string
	router     *chi.Mux
	httpServer *http.Server
	state      *facewatch.TrackingState
	stats      func() facewatch.DriverStats
	quality    int

	mu    sync.Mutex
	frame []byte
	// subs are the connected stream clients waiting for the next frame
	subs map[chan struct{}]struct{}

	frames atomic.Uint64
	quit   atomic.Bool
	done   chan struct{}
	once   sync.Once
}

// NewStream returns a stream server listening on addr reporting status from
// state
func NewStream(addr string, state *facewatch.TrackingState) *Stream {

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	s := &Stream{
		addr:    addr,
		router:  r,
		state:   state,
		quality: DefaultJPEGQuality,
		subs:    make(map[chan struct{}]struct{}),
		done:    make(chan struct{}),
	}

	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Get("/stream", s.stream)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// SetQuality sets the JPEG encoding quality between 1 and 100
func (s *Stream) SetQuality(q int) {
	if q >= 1 && q <= 100 {
		s.quality = q
	}
}

// SetStatsFunc sets a function reporting driver counters on /status
func (s *Stream) SetStatsFunc(fn func() facewatch.DriverStats) {
	s.stats = fn
}

// Router returns the chi router for testing
func (s *Stream) Router() *chi.Mux {
	return s.router
}

// Start listens on the configured address and serves requests in the
// background.  A server failure after startup requests the pipeline to quit.
func (s *Stream) Start() error {

	ln, err := net.Listen("tcp", s.addr)

	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	log.Printf("Streaming MJPEG on http://%s/stream", ln.Addr())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Stream server failed: %v", err)
			s.quit.Store(true)
		}
	}()

	return nil
}

// Show encodes img as JPEG and publishes it to connected clients
func (s *Stream) Show(img gocv.Mat) error {

	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, s.quality})

	if err != nil {
		return fmt.Errorf("error encoding frame: %w", err)
	}
	defer buf.Close()

	// copy out of the native buffer as clients read it after Close
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	s.mu.Lock()
	s.frame = data

	for sub := range s.subs {
		select {
		case sub <- struct{}{}:
		default:
			// client has not consumed the previous frame yet
		}
	}
	s.mu.Unlock()

	s.frames.Add(1)
	return nil
}

// QuitRequested returns true once the server has failed or been closed
func (s *Stream) QuitRequested() bool {
	return s.quit.Load()
}

// Close disconnects stream clients and shuts down the HTTP server, it is
// safe to call more than once
func (s *Stream) Close() error {

	var err error

	s.once.Do(func() {
		s.quit.Store(true)
		close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if e := s.httpServer.Shutdown(ctx); e != nil {
			err = fmt.Errorf("shutting down stream server: %w", e)
		}
	})

	return err
}

// latest returns the most recently shown frame
func (s *Stream) latest() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.frame
}

func (s *Stream) subscribe() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := make(chan struct{}, 1)

	// deliver the current frame straight away
	if s.frame != nil {
		sub <- struct{}{}
	}

	s.subs[sub] = struct{}{}
	return sub
}

func (s *Stream) unsubscribe(sub chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, sub)
}

// stream writes frames as a multipart response until the client disconnects
func (s *Stream) stream(w http.ResponseWriter, r *http.Request) {

	log.Printf("New stream client %s", r.RemoteAddr)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	sub := s.subscribe()
	defer s.unsubscribe(sub)

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			log.Printf("Stream client %s disconnected", r.RemoteAddr)
			return

		case <-s.done:
			return

		case <-sub:
			frame := s.latest()

			// write the image to the response writer
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n"))
			w.Write([]byte("Content-Length: " + strconv.Itoa(len(frame)) + "\r\n\r\n"))
			w.Write(frame)

			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// status reports the current verdict and tracked box
func (s *Stream) status(w http.ResponseWriter, r *http.Request) {

	v := s.state.Verdict()

	st := Status{
		Verified:      v.Verified,
		Outcome:       v.Outcome.String(),
		JobID:         v.JobID,
		Verifications: s.state.Published(),
		Frames:        s.frames.Load(),
	}

	if v.HasDistance {
		d := v.Distance
		st.Distance = &d
	}

	if !v.CompletedAt.IsZero() {
		t := v.CompletedAt
		st.CompletedAt = &t
	}

	if box, ok := s.state.Box(); ok {
		st.Box = &box
	}

	if s.stats != nil {
		ds := s.stats()
		st.Driver = &ds
	}

	respondJSON(w, http.StatusOK, st)
}

func (s *Stream) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
