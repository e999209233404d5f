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
	"github.com/mlnoga/pixfilter/internal/plane"
)

// Piecewise-linear point transform with midpoint Mid over the domain [0, Max]:
// y=2x up to the midpoint, y=Max-2(x-Mid) above it, clamped to [0, Max].
type Curve struct {
	Mid float32 `json:"mid"`
	Max float32 `json:"max"`
}

var (
	Curve8Bit = Curve{Mid: 128, Max: 255} // for 8-bit samples
	CurveLuma = Curve{Mid: 0.5, Max: 1}   // for YIQ luma
)

// Evaluates the curve at x
func (c Curve) Eval(x float32) float32 {
	var y float32
	if x <= c.Mid {
		y = 2 * x
	} else {
		y = c.Max - 2*(x-c.Mid)
	}
	if y < 0 {
		return 0
	}
	if y > c.Max {
		return c.Max
	}
	return y
}

// Applies the curve to every sample of the plane, returning a new plane
func (c Curve) Apply(p *plane.Plane) *plane.Plane {
	return p.Map(c.Eval)
}
