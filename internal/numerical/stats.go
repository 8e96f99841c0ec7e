package numerical

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the samples of one frame.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Sum    float64 `json:"sum"`
	// ArgMax is the row-major index of the first maximum.
	ArgMax int `json:"argmax"`
}

// FrameStats computes Stats over data. NaN results (empty input, NaN
// samples) are reported as 0 so the value stays JSON encodable.
func FrameStats(data []float64) Stats {
	if len(data) == 0 {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(data, nil)
	if len(data) == 1 {
		std = 0
	}
	return Stats{
		Count:  len(data),
		Min:    finite(floats.Min(data)),
		Max:    finite(floats.Max(data)),
		Mean:   finite(mean),
		StdDev: finite(std),
		Sum:    finite(floats.Sum(data)),
		ArgMax: floats.MaxIdx(data),
	}
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) {
		return 0
	}
	return SuppressNaN(v)
}
