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

package stats

import (
	"math"
)

// Calculate histogram of data between min and max into given bins.
// Values outside [min,max] are counted in the first or last bin
func Histogram(data []float64, min, max float32, bins []int32) {
	for i := range bins {
		bins[i] = 0
	}
	if len(bins) == 0 {
		return
	}
	last := len(bins) - 1
	scale := 0.0
	if max > min {
		scale = float64(len(bins)) / float64(max-min)
	}
	for _, d := range data {
		index := int((d - float64(min)) * scale)
		if index < 0 || math.IsNaN(d) {
			index = 0
		} else if index > last {
			index = last
		}
		bins[index]++
	}
}

// Returns the center and the count of the fullest histogram bin
func GetPeak(bins []int32, min, max float32) (x float32, y int32) {
	maxIndex, maxValue := 0, int32(math.MinInt32)
	for i, v := range bins {
		if v > maxValue {
			maxIndex, maxValue = i, v
		}
	}
	if len(bins) == 0 {
		return min, 0
	}
	x = min + (float32(maxIndex)+0.5)*(max-min)/float32(len(bins))
	return x, maxValue
}
