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

package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/mlnoga/pixfilter/internal/plane"
	"gonum.org/v1/gonum/floats"
)

// Upper end of the displayable range
const DisplayMax = 255

// Normalization mode for mapping raw correlation output to [0, DisplayMax]
type NormMode int

const (
	NormAbsMax NormMode = iota // |x| / max|x| * 255. The default
	NormMinMax                 // (x-min) / (max-min) * 255
	NormNone                   // clamp x to [0,255]
)

func (m NormMode) String() string {
	switch m {
	case NormAbsMax:
		return "abs-max"
	case NormMinMax:
		return "min-max"
	case NormNone:
		return "none"
	}
	return fmt.Sprintf("NormMode(%d)", int(m))
}

func ParseNormMode(s string) (NormMode, error) {
	switch strings.ToLower(s) {
	case "", "abs-max", "absmax", "abs":
		return NormAbsMax, nil
	case "min-max", "minmax":
		return NormMinMax, nil
	case "none", "clamp":
		return NormNone, nil
	}
	return NormAbsMax, fmt.Errorf("unknown normalization mode '%s'", s)
}

func (m NormMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *NormMode) UnmarshalText(text []byte) (err error) {
	*m, err = ParseNormMode(string(text))
	return err
}

// Maps a raw plane to integer values in [0,255], truncated toward zero.
// If the divisor of the chosen mode is zero, or not finite, the result is all zero.
// NaN samples map to zero.
func Normalize(raw *plane.Plane, mode NormMode) *plane.Plane {
	switch mode {
	case NormMinMax:
		min, max := minMax(raw.Data)
		div := max - min
		if !usableDivisor(div) {
			return plane.New(raw.Width, raw.Height)
		}
		return raw.Map(func(x float32) float32 {
			return toDisplay((float64(x) - min) / div * DisplayMax)
		})

	case NormNone:
		return raw.Map(func(x float32) float32 { return toDisplay(float64(x)) })

	default:
		abs := raw.Map(func(x float32) float32 { return float32(math.Abs(float64(x))) })
		_, max := minMax(abs.Data)
		if !usableDivisor(max) {
			return plane.New(raw.Width, raw.Height)
		}
		return abs.Map(func(x float32) float32 {
			return toDisplay(float64(x) / max * DisplayMax)
		})
	}
}

// Minimum and maximum of the non-NaN samples. Zero for empty input
func minMax(data []float32) (min, max float64) {
	vals := make([]float64, 0, len(data))
	for _, d := range data {
		if !math.IsNaN(float64(d)) {
			vals = append(vals, float64(d))
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	return floats.Min(vals), floats.Max(vals)
}

func usableDivisor(d float64) bool {
	return d != 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// Clamps to [0,255] and truncates. NaN maps to 0
func toDisplay(v float64) float32 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > DisplayMax {
		return DisplayMax
	}
	return float32(math.Trunc(v))
}
