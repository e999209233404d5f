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

package yiq

import (
	"github.com/mlnoga/pixfilter/internal/filter"
	"github.com/mlnoga/pixfilter/internal/plane"
)

// Applies the luma point transform (midpoint 0.5, maximum 1) to the Y band only
func FilterLuma(img *plane.Image) (*plane.Image, error) {
	return FilterLumaWith(img, filter.CurveLuma.Apply)
}

// Converts to YIQ, replaces Y with fn(Y), and converts back. The I and Q planes
// entering the inverse conversion are exactly those of the forward conversion.
func FilterLumaWith(img *plane.Image, fn filter.PlaneFunc) (*plane.Image, error) {
	yiqImg, err := ToYIQ(img)
	if err != nil {
		return nil, err
	}
	substituted, err := yiqImg.WithLuma(fn(yiqImg.Y))
	if err != nil {
		return nil, err
	}
	return ToRGB(substituted), nil
}
