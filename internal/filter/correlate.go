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

// Package filter implements kernel correlation, normalization to the 8-bit range,
// the piecewise-linear point transform, and their per-channel application to images.
package filter

import (
	"github.com/mlnoga/pixfilter/internal/kernel"
	"github.com/mlnoga/pixfilter/internal/plane"
)

// Correlates the plane with the kernel using zero padding. See CorrelatePadded
func Correlate(p *plane.Plane, k *kernel.Kernel) *plane.Plane {
	return CorrelatePadded(p, k, PadZero)
}

// Correlates the plane with the kernel, without flipping the kernel.
//
// The plane is padded by rows/2 rows on top and bottom and cols/2 columns left and right.
// Output sample (i,j) is the sum of the products of the kernel with the window
// whose top-left corner is (i,j) in padded coordinates, plus the bias once.
// For even kernel sizes this window reaches one row further up than down, which
// is intended. The kernel anchor is ignored. The output is raw: neither clamped nor scaled.
func CorrelatePadded(p *plane.Plane, k *kernel.Kernel, pad Padding) *plane.Plane {
	out := plane.New(p.Width, p.Height)
	if p.Width == 0 || p.Height == 0 {
		return out
	}
	kRows, kCols := k.Rows(), k.Cols()
	padTop, padLeft := kRows/2, kCols/2
	coeffs, bias := k.Coefficients(), k.Bias()

	// column lookup is identical for every row, so resolve it once
	colIndex := make([]int, p.Width+kCols-1)
	for x := range colIndex {
		colIndex[x] = pad.index(x-padLeft, p.Width)
	}

	plane.ApplyRows(p.Height, func(lower, upper int) {
		for i := lower; i < upper; i++ {
			dest := out.Row(i)
			for j := range dest {
				sum := 0.0
				for r := 0; r < kRows; r++ {
					y := pad.index(i+r-padTop, p.Height)
					if y < 0 {
						continue
					}
					src, kRow := p.Row(y), coeffs[r*kCols:(r+1)*kCols]
					for c, kc := range kRow {
						if x := colIndex[j+c]; x >= 0 {
							sum += kc * float64(src[x])
						}
					}
				}
				dest[j] = float32(sum + bias)
			}
		}
	})
	return out
}
