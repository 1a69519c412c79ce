package input

import (
	"errors"
	"math"
)

// HandPoints is the number of landmarks per hand.
const HandPoints = 21

// FeatureLen is the flattened feature vector length (x, y per point).
const FeatureLen = HandPoints * 2

// Point is one hand landmark in image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PrepareLandmarks flattens a hand into classifier input. Extra points are
// dropped; missing ones are padded with (0, 0).
func PrepareLandmarks(pts []Point) [FeatureLen]float64 {
	var out [FeatureLen]float64
	for i := 0; i < HandPoints && i < len(pts); i++ {
		out[2*i] = pts[i].X
		out[2*i+1] = pts[i].Y
	}
	return out
}

// FistClassifier scores a prepared hand. Index 1 of the result is the fist
// probability.
type FistClassifier interface {
	Classify(features [FeatureLen]float64) ([]float64, error)
}

var errShortPrediction = errors.New("input: classifier returned fewer than 2 classes")

// FistProbability runs c on pts and extracts the fist class.
func FistProbability(c FistClassifier, pts []Point) (float64, error) {
	pred, err := c.Classify(PrepareLandmarks(pts))
	if err != nil {
		return 0, err
	}
	if len(pred) < 2 {
		return 0, errShortPrediction
	}
	return pred[1], nil
}

// HeuristicClassifier scores a fist by how many fingertips sit closer to the
// wrist than their knuckles do. It needs no model weights.
type HeuristicClassifier struct{}

// Landmark indices (wrist, then knuckle/tip pairs for the four fingers).
const wrist = 0

var fingers = [4][2]int{{5, 8}, {9, 12}, {13, 16}, {17, 20}}

func (HeuristicClassifier) Classify(f [FeatureLen]float64) ([]float64, error) {
	pt := func(i int) Point { return Point{X: f[2*i], Y: f[2*i+1]} }
	w := pt(wrist)
	curled := 0
	for _, fg := range fingers {
		knuckle, tip := pt(fg[0]), pt(fg[1])
		if dist(tip, w) < dist(knuckle, w)*1.1 {
			curled++
		}
	}
	p := float64(curled) / float64(len(fingers))
	return []float64{1 - p, p}, nil
}

func dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }
