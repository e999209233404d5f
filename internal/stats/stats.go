// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package stats computes per-plane statistics for filtered images.
package stats

import (
	"fmt"
	"math"

	"github.com/mlnoga/pixfilter/internal/plane"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Planes with more samples than this use a randomly sampled median
var MaxExactMedianSamples = 128 * 1024

// Number of histogram bins used for the mode
const ModeBins = 256

// Basic statistics on data arrays. NaN samples are skipped
type BasicStats struct {
	Min    float32 `json:"min"`    // Minimum
	Max    float32 `json:"max"`    // Maximum
	Mean   float32 `json:"mean"`   // Mean (average)
	StdDev float32 `json:"stdDev"` // Standard deviation (population)
	Median float32 `json:"median"` // Median, exact or sampled
	Mode   float32 `json:"mode"`   // Center of the fullest histogram bin
	Count  int     `json:"count"`  // Number of non-NaN samples
}

// Pretty print basic stats to string
func (s *BasicStats) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g Median %.6g Mode %.6g Count %d",
		s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.Mode, s.Count)
}

// Pretty print basic stats to CSV header
func (s *BasicStats) ToCSVHeader() string {
	return "Min,Max,Mean,StdDev,Median,Mode,Count"
}

// Pretty print basic stats to CSV line item
func (s *BasicStats) ToCSVLine() string {
	return fmt.Sprintf("%.6g,%.6g,%.6g,%.6g,%.6g,%.6g,%d",
		s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.Mode, s.Count)
}

// Calculate statistics for a data array. Returns all zeroes if there are no valid samples
func CalcBasicStats(data []float32) (s *BasicStats) {
	s = &BasicStats{}
	if len(data) == 0 {
		return s
	}
	buf := GetArrayOfFloat64FromPool(len(data))
	defer PutArrayOfFloat64IntoPool(buf)
	valid := buf[:0]
	for _, d := range data {
		if !math.IsNaN(float64(d)) {
			valid = append(valid, float64(d))
		}
	}
	s.Count = len(valid)
	if s.Count == 0 {
		return s
	}

	mean, stdDev := stat.PopMeanStdDev(valid, nil)
	s.Mean, s.StdDev = float32(mean), float32(stdDev)

	s.Min, s.Max = float32(floats.Min(valid)), float32(floats.Max(valid))

	if s.Count <= MaxExactMedianSamples {
		samples := GetArrayOfFloat32FromPool(s.Count)
		for i, v := range valid {
			samples[i] = float32(v)
		}
		s.Median = QSelectMedianFloat32(samples)
		PutArrayOfFloat32IntoPool(samples)
	} else {
		samples := GetArrayOfFloat32FromPool(MaxExactMedianSamples)
		s.Median = FastApproxMedian(valid, samples)
		PutArrayOfFloat32IntoPool(samples)
	}

	bins := make([]int32, ModeBins)
	Histogram(valid, s.Min, s.Max, bins)
	s.Mode, _ = GetPeak(bins, s.Min, s.Max)
	return s
}

// Calculates statistics for each channel of the image, in channel order
func CalcImageStats(img *plane.Image) []*BasicStats {
	res := make([]*BasicStats, len(img.Channels))
	for i, ch := range img.Channels {
		res[i] = CalcBasicStats(ch.Data)
	}
	return res
}

// Approximates the median from random samples of the data
func FastApproxMedian(data []float64, samples []float32) float32 {
	max := uint32(len(data))
	rng := fastrand.RNG{}
	for i := range samples {
		index := rng.Uint32n(max)
		samples[i] = float32(data[index])
	}
	return QSelectMedianFloat32(samples)
}
