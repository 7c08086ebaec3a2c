package session

import (
	"errors"
	"math"
)

// Slider bounds, matching the range inputs of the weight panel.
const (
	SliderMin     = 0.0
	SliderMax     = 1.0
	SliderStep    = 0.01
	SliderDefault = 0.25

	stepsPerUnit = 100
)

var (
	// ErrNoMetrics is returned when weights are requested for an empty catalog.
	ErrNoMetrics = errors.New("no routing metrics available")
	// ErrSliderOutOfRange is returned for a slider index outside the catalog.
	ErrSliderOutOfRange = errors.New("slider index out of range")
	// ErrInvalidSliderValue is returned for NaN or infinite slider values.
	ErrInvalidSliderValue = errors.New("slider value must be a finite number")
)

// WeightVector holds one weight per metric, in catalog order.
type WeightVector []float64

// Sum returns the sum of the weights.
func (w WeightVector) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Normalize divides each raw value by the sum of all values. A sum of exactly
// zero yields the uniform vector 1/N. Negative values are not rejected: they
// enter the sum like any other number, so the result may then fall outside
// [0, 1]. An empty input has no defined normalization and returns ErrNoMetrics.
func Normalize(raw []float64) (WeightVector, error) {
	n := len(raw)
	if n == 0 {
		return nil, ErrNoMetrics
	}

	var sum float64
	for _, v := range raw {
		sum += v
	}

	out := make(WeightVector, n)
	if sum == 0 {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out, nil
	}

	for i, v := range raw {
		out[i] = v / sum
	}
	return out, nil
}

// WeightPanel holds the raw slider value for each metric.
type WeightPanel struct {
	values []float64
}

// NewWeightPanel creates n sliders at SliderDefault.
func NewWeightPanel(n int) *WeightPanel {
	values := make([]float64, n)
	for i := range values {
		values[i] = SliderDefault
	}
	return &WeightPanel{values: values}
}

// Len returns the number of sliders.
func (p *WeightPanel) Len() int {
	return len(p.values)
}

// Set moves slider i. Like a range input, the value is clamped to
// [SliderMin, SliderMax] and snapped to SliderStep; the stored value is returned.
func (p *WeightPanel) Set(i int, v float64) (float64, error) {
	if i < 0 || i >= len(p.values) {
		return 0, ErrSliderOutOfRange
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidSliderValue
	}

	v = math.Max(SliderMin, math.Min(SliderMax, v))
	v = math.Round(v*stepsPerUnit) / stepsPerUnit
	p.values[i] = v
	return v, nil
}

// Values returns a copy of the raw slider values.
func (p *WeightPanel) Values() []float64 {
	return append([]float64(nil), p.values...)
}

// Weights normalizes the current slider values. It is recomputed on every call.
func (p *WeightPanel) Weights() (WeightVector, error) {
	return Normalize(p.values)
}
