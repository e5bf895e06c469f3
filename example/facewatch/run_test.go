package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/swdee/go-facewatch"
	"github.com/swdee/go-facewatch/config"
	"github.com/swdee/go-facewatch/render"
	"github.com/swdee/go-facewatch/verify"
	"gocv.io/x/gocv"
)

func TestNewComparer(t *testing.T) {

	cfg := config.Default().Verify

	c, err := newComparer(cfg)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := c.(*verify.DeepFace); !ok {
		t.Errorf("expected DeepFace comparer, got %T", c)
	}

	cfg.Backend = "embedding"

	if c, err = newComparer(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := c.(*verify.EmbeddingComparer); !ok {
		t.Errorf("expected embedding comparer, got %T", c)
	}

	cfg.Model = "custom-model"

	if _, err := newComparer(cfg); err == nil {
		t.Error("expected error without a threshold for an unknown model")
	}

	cfg.Threshold = 0.5

	if _, err := newComparer(cfg); err != nil {
		t.Errorf("expected explicit threshold to be accepted, got %v", err)
	}
}

func TestNewPainter(t *testing.T) {

	cfg := config.Default().Render
	cfg.Placement = "pinned"
	cfg.Trail = 30

	p, closeFont, err := newPainter(cfg)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFont()

	if p.Placement() != render.Pinned {
		t.Errorf("expected pinned placement, got %v", p.Placement())
	}

	cfg.Font = filepath.Join(t.TempDir(), "missing.ttf")

	if _, _, err := newPainter(cfg); err == nil {
		t.Error("expected error for missing font")
	}
}

func TestVerdictHookWithoutStore(t *testing.T) {

	hook := verdictHook(nil, config.Default().Audit)

	// must not panic for any outcome without an audit store
	hook(facewatch.Matched(0.1))
	hook(facewatch.Rejected(facewatch.OutcomeNoFace, verify.ErrNoFace))
	hook(facewatch.Rejected(facewatch.OutcomeFailure, errors.New("timeout")))
}

func TestRunMissingReference(t *testing.T) {

	cfg := config.Default()
	cfg.Reference.Path = filepath.Join(t.TempDir(), "missing.jpg")
	// an unopenable device proves the camera is never reached
	cfg.Camera.Device = "/dev/does-not-exist"

	err := run(context.Background(), cfg)

	if !errors.Is(err, facewatch.ErrReferenceImageNotFound) {
		t.Errorf("expected ErrReferenceImageNotFound, got %v", err)
	}
}

func TestVerifyImageMissingCandidate(t *testing.T) {

	dir := t.TempDir()
	refPath := filepath.Join(dir, "reference.png")

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer img.Close()

	if !gocv.IMWrite(refPath, img) {
		t.Fatalf("failed to write %s", refPath)
	}

	cfg := config.Default()
	cfg.Reference.Path = refPath

	var out bytes.Buffer
	err := verifyImage(context.Background(), cfg, filepath.Join(dir, "missing.png"), &out)

	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}

	if errors.Is(err, facewatch.ErrReferenceImageNotFound) {
		t.Errorf("missing candidate reported as missing reference: %v", err)
	}
}

func TestVerifyImage(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verified": true, "distance": 0.12, "threshold": 0.68, "model": "VGG-Face"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	refPath := filepath.Join(dir, "reference.png")
	imgPath := filepath.Join(dir, "probe.png")

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer img.Close()

	for _, p := range []string{refPath, imgPath} {
		if !gocv.IMWrite(p, img) {
			t.Fatalf("failed to write %s", p)
		}
	}

	cfg := config.Default()
	cfg.Reference.Path = refPath
	cfg.Verify.URL = srv.URL

	var out bytes.Buffer

	if err := verifyImage(context.Background(), cfg, imgPath, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(out.String(), "match distance=0.1200") {
		t.Errorf("unexpected output %q", out.String())
	}

	// distance cutoff rejects the library verdict
	cfg.Verify.MaxDistance = 0.1
	out.Reset()

	if err := verifyImage(context.Background(), cfg, imgPath, &out); err == nil {
		t.Error("expected no match with a tighter distance cutoff")
	}

	if !strings.HasPrefix(out.String(), "no-match") {
		t.Errorf("unexpected output %q", out.String())
	}
}
