package verify

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Metric is a face embedding distance metric
type Metric string

const (
	Cosine      Metric = "cosine"
	Euclidean   Metric = "euclidean"
	EuclideanL2 Metric = "euclidean_l2"
)

// ErrUnknownMetric is returned for an unsupported distance metric
var ErrUnknownMetric = errors.New("unknown distance metric")

// thresholds are the distance cutoffs DeepFace uses for each model and
// metric, a distance below the cutoff is a match
var thresholds = map[string]map[Metric]float64{
	"VGG-Face":     {Cosine: 0.68, Euclidean: 1.17, EuclideanL2: 1.17},
	"Facenet":      {Cosine: 0.40, Euclidean: 10, EuclideanL2: 0.80},
	"Facenet512":   {Cosine: 0.30, Euclidean: 23.56, EuclideanL2: 1.04},
	"ArcFace":      {Cosine: 0.68, Euclidean: 4.15, EuclideanL2: 1.13},
	"Dlib":         {Cosine: 0.07, Euclidean: 0.6, EuclideanL2: 0.4},
	"SFace":        {Cosine: 0.593, Euclidean: 10.734, EuclideanL2: 1.055},
	"OpenFace":     {Cosine: 0.10, Euclidean: 0.55, EuclideanL2: 0.55},
	"DeepFace":     {Cosine: 0.23, Euclidean: 64, EuclideanL2: 0.64},
	"DeepID":       {Cosine: 0.015, Euclidean: 45, EuclideanL2: 0.17},
	"GhostFaceNet": {Cosine: 0.65, Euclidean: 35.71, EuclideanL2: 1.10},
}

// Threshold returns the match cutoff for a model and metric
func Threshold(model string, metric Metric) (float64, bool) {

	byMetric, ok := thresholds[model]

	if !ok {
		return 0, false
	}

	t, ok := byMetric[metric]
	return t, ok
}

// Distance computes the distance between two embeddings using metric
func Distance(metric Metric, a, b []float64) (float64, error) {

	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("embedding length mismatch: %d and %d", len(a), len(b))
	}

	switch metric {
	case Cosine:
		na := floats.Norm(a, 2)
		nb := floats.Norm(b, 2)

		// a zero vector has no direction so treat it as maximally distant
		if na == 0 || nb == 0 {
			return 1, nil
		}

		return 1 - floats.Dot(a, b)/(na*nb), nil

	case Euclidean:
		return floats.Distance(a, b, 2), nil

	case EuclideanL2:
		return floats.Distance(l2Normalize(a), l2Normalize(b), 2), nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
}

// l2Normalize returns a unit length copy of v
func l2Normalize(v []float64) []float64 {

	out := make([]float64, len(v))
	copy(out, v)

	if n := floats.Norm(out, 2); n > 0 {
		floats.Scale(1/n, out)
	}

	return out
}
