package verify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

const (
	defaultDeepFaceURL      = "http://localhost:5005"
	defaultDeepFaceModel    = "VGG-Face"
	defaultDeepFaceDetector = "opencv"
)

// noFaceMarker is the lower cased fragment of the DeepFace error message
// raised when no face could be detected in an input image
const noFaceMarker = "face could not be detected"

// DeepFaceOptions are the model parameters sent with each request
type DeepFaceOptions struct {
	// Model is the face recognition model, eg: VGG-Face, Facenet512, ArcFace
	Model string
	// Detector is the face detector backend, eg: opencv, retinaface, mtcnn
	Detector string
	Metric   Metric
	// Timeout bounds a single HTTP request, zero waits indefinitely
	Timeout time.Duration
}

// DeepFace is a client for the DeepFace REST API.  It implements Comparer
// using the /verify endpoint and Embedder using the /represent endpoint.
type DeepFace struct {
	baseURL string
	opts    DeepFaceOptions
	client  *http.Client
}

// NewDeepFace returns a DeepFace API client
func NewDeepFace(baseURL string, opts DeepFaceOptions) *DeepFace {

	if baseURL == "" {
		baseURL = defaultDeepFaceURL
	}
	if opts.Model == "" {
		opts.Model = defaultDeepFaceModel
	}
	if opts.Detector == "" {
		opts.Detector = defaultDeepFaceDetector
	}
	if opts.Metric == "" {
		opts.Metric = Cosine
	}

	return &DeepFace{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
	}
}

// Options returns the model parameters in use
func (d *DeepFace) Options() DeepFaceOptions {
	return d.opts
}

// verifyRequest is the body of POST /verify
type verifyRequest struct {
	Img1             string `json:"img1"`
	Img2             string `json:"img2"`
	ModelName        string `json:"model_name"`
	DetectorBackend  string `json:"detector_backend"`
	DistanceMetric   string `json:"distance_metric"`
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

// verifyResponse is the body returned by POST /verify
type verifyResponse struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
	Metric    string  `json:"similarity_metric"`
	Time      float64 `json:"time"`
}

// representRequest is the body of POST /represent
type representRequest struct {
	Img              string `json:"img"`
	ModelName        string `json:"model_name"`
	DetectorBackend  string `json:"detector_backend"`
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

// representResponse is the body returned by POST /represent
type representResponse struct {
	Results []struct {
		Embedding      []float64 `json:"embedding"`
		FaceConfidence float64   `json:"face_confidence"`
		FacialArea     struct {
			X int `json:"x"`
			Y int `json:"y"`
			W int `json:"w"`
			H int `json:"h"`
		} `json:"facial_area"`
	} `json:"results"`
}

// errorResponse is the body returned by the API on failure
type errorResponse struct {
	Error string `json:"error"`
}

// Compare verifies whether a and b show the same person
func (d *DeepFace) Compare(ctx context.Context, a, b gocv.Mat) (Comparison, error) {

	img1, err := encodeDataURI(a)
	if err != nil {
		return Comparison{}, err
	}

	img2, err := encodeDataURI(b)
	if err != nil {
		return Comparison{}, err
	}

	req := verifyRequest{
		Img1:             img1,
		Img2:             img2,
		ModelName:        d.opts.Model,
		DetectorBackend:  d.opts.Detector,
		DistanceMetric:   string(d.opts.Metric),
		EnforceDetection: true,
		Align:            true,
	}

	var resp verifyResponse

	if err := d.post(ctx, "/verify", req, &resp); err != nil {
		return Comparison{}, err
	}

	model := resp.Model
	if model == "" {
		model = d.opts.Model
	}

	return Comparison{
		Verified:  resp.Verified,
		Distance:  resp.Distance,
		Threshold: resp.Threshold,
		Model:     model,
	}, nil
}

// Represent returns the embedding of the first face found in img
func (d *DeepFace) Represent(ctx context.Context, img gocv.Mat) ([]float64, error) {

	data, err := encodeDataURI(img)
	if err != nil {
		return nil, err
	}

	req := representRequest{
		Img:              data,
		ModelName:        d.opts.Model,
		DetectorBackend:  d.opts.Detector,
		EnforceDetection: true,
		Align:            true,
	}

	var resp representResponse

	if err := d.post(ctx, "/represent", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty represent result", ErrNoFace)
	}

	return resp.Results[0].Embedding, nil
}

// post sends a JSON request and decodes the JSON response into out
func (d *DeepFace) post(ctx context.Context, endpoint string, in, out any) error {

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// apiError converts a DeepFace error response into an error, wrapping
// ErrNoFace when the API could not find a face
func apiError(status int, body []byte) error {

	msg := strings.TrimSpace(string(body))

	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	if strings.Contains(strings.ToLower(msg), noFaceMarker) {
		return fmt.Errorf("%w: %s", ErrNoFace, msg)
	}

	return fmt.Errorf("API error (status %d): %s", status, msg)
}

// encodeDataURI encodes img as a base64 JPEG data URI
func encodeDataURI(img gocv.Mat) (string, error) {

	if img.Empty() {
		return "", errors.New("can not encode empty image")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
