package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/swdee/go-facewatch"
	"github.com/swdee/go-facewatch/audit"
	"github.com/swdee/go-facewatch/capture"
	"github.com/swdee/go-facewatch/config"
	"github.com/swdee/go-facewatch/detect"
	"github.com/swdee/go-facewatch/display"
	"github.com/swdee/go-facewatch/render"
	"github.com/swdee/go-facewatch/tracker"
	"github.com/swdee/go-facewatch/verify"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start tracking and verifying faces from the camera",
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := config.Load(configPath)

		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run builds the pipeline from cfg and runs it until quit
func run(ctx context.Context, cfg *config.Config) error {

	// the reference must be available before the camera is opened
	reference, err := verify.LoadReference(cfg.Reference.Path)

	if err != nil {
		return err
	}

	comparer, err := newComparer(cfg.Verify)

	if err != nil {
		reference.Close()
		return err
	}

	verifier := verify.New(comparer, reference, newPolicy(cfg.Verify))
	defer verifier.Close()

	locator, err := detect.NewHaar(detect.Config{
		CascadePath:  cfg.Detect.Cascade,
		ScaleFactor:  cfg.Detect.ScaleFactor,
		MinNeighbors: cfg.Detect.MinNeighbors,
		MinSize:      image.Pt(cfg.Detect.MinSize, cfg.Detect.MinSize),
		MaxSize:      image.Pt(cfg.Detect.MaxSize, cfg.Detect.MaxSize),
	})

	if err != nil {
		return err
	}
	defer locator.Close()

	painter, closeFont, err := newPainter(cfg.Render)

	if err != nil {
		return err
	}
	defer closeFont()

	state := facewatch.NewTrackingState()
	sched := facewatch.NewScheduler(cfg.Schedule.Period, verifier, state)

	var store *audit.Store

	if cfg.Audit.DatabaseURL != "" {
		store, err = audit.New(ctx, cfg.Audit.DatabaseURL, cfg.Camera.Device)

		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer store.Close()
	}

	sched.SetVerdictHook(verdictHook(store, cfg.Audit))

	cam, err := capture.Open(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)

	if err != nil {
		return err
	}
	cam.SetLoop(cfg.Camera.Loop)

	out, stream, err := newDisplay(cfg.Display, state)

	if err != nil {
		cam.Close()
		return err
	}

	driver := facewatch.NewDriver(cam, locator, sched, state, painter, out)

	if stream != nil {
		stream.SetStatsFunc(driver.Stats)
	}

	log.Printf("Verifying every %d frames against %s", sched.Period(), cfg.Reference.Path)

	return driver.Run(ctx)
}

// newComparer creates the configured comparison backend
func newComparer(cfg config.VerifyConfig) (verify.Comparer, error) {

	client := verify.NewDeepFace(cfg.URL, verify.DeepFaceOptions{
		Model:    cfg.Model,
		Detector: cfg.Detector,
		Metric:   verify.Metric(cfg.Metric),
		Timeout:  cfg.Timeout,
	})

	if cfg.Backend != "embedding" {
		return client, nil
	}

	threshold := cfg.Threshold

	if threshold == 0 {
		var ok bool
		threshold, ok = verify.Threshold(cfg.Model, verify.Metric(cfg.Metric))

		if !ok {
			return nil, fmt.Errorf("no default threshold for model %s and metric %s, set verify.threshold",
				cfg.Model, cfg.Metric)
		}
	}

	return verify.NewEmbeddingComparer(client, verify.Metric(cfg.Metric), threshold, cfg.Model), nil
}

// newPolicy converts the configured match criteria into a Policy
func newPolicy(cfg config.VerifyConfig) verify.Policy {
	return verify.Policy{
		UseLibraryVerdict: cfg.UseLibraryVerdict,
		MaxDistance:       cfg.MaxDistance,
	}
}

// newPainter creates the frame renderer, the returned function releases the
// optional TrueType font
func newPainter(cfg config.RenderConfig) (*render.Painter, func(), error) {

	placement, err := render.ParsePlacement(cfg.Placement)

	if err != nil {
		return nil, nil, err
	}

	painter := render.NewPainter(placement)

	if cfg.Trail > 0 {
		painter.SetTrail(tracker.NewTrail(cfg.Trail), render.DefaultTrailStyle())
	}

	if cfg.Font == "" {
		return painter, func() {}, nil
	}

	ttf, err := render.LoadTTF(cfg.Font, cfg.FontSize)

	if err != nil {
		return nil, nil, err
	}

	painter.SetTTF(ttf)

	return painter, func() { ttf.Close() }, nil
}

// newDisplay creates the configured display outputs, the MJPEG stream is
// returned separately when enabled
func newDisplay(cfg config.DisplayConfig, state *facewatch.TrackingState) (facewatch.Display, *display.Stream, error) {

	var outputs []facewatch.Display
	var stream *display.Stream

	if cfg.ServeMJPEG() {
		stream = display.NewStream(cfg.Addr, state)
		stream.SetQuality(cfg.Quality)

		if err := stream.Start(); err != nil {
			return nil, nil, err
		}

		outputs = append(outputs, stream)
	}

	if cfg.ShowWindow() {
		outputs = append(outputs, display.NewWindow(cfg.Title, cfg.QuitRune()))
	}

	if len(outputs) == 1 {
		return outputs[0], stream, nil
	}

	return display.NewTee(outputs...), stream, nil
}

// verdictHook logs each completed verification and records it in the audit
// store when one is configured
func verdictHook(store *audit.Store, cfg config.AuditConfig) func(facewatch.Verdict) {

	var record func(facewatch.Verdict)

	if store != nil {
		record = store.Hook(cfg.Timeout)
	}

	return func(v facewatch.Verdict) {
		switch {
		case v.Err != nil && !errors.Is(v.Err, verify.ErrNoFace):
			log.Printf("Verification %s frame %d: %s (%v) in %v", v.JobID, v.FrameIndex, v.Outcome, v.Err, v.Latency)
		case v.HasDistance:
			log.Printf("Verification %s frame %d: %s distance %.3f in %v", v.JobID, v.FrameIndex, v.Outcome, v.Distance, v.Latency)
		default:
			log.Printf("Verification %s frame %d: %s in %v", v.JobID, v.FrameIndex, v.Outcome, v.Latency)
		}

		if record != nil {
			record(v)
		}
	}
}
