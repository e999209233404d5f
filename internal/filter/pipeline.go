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
	"runtime"

	"github.com/mlnoga/pixfilter/internal/kernel"
	"github.com/mlnoga/pixfilter/internal/plane"
	"github.com/remeh/sizedwaitgroup"
)

// A function from one plane to a new plane of the same dimensions
type PlaneFunc func(p *plane.Plane) *plane.Plane

// Splits the image into its channels, applies fn to each channel concurrently,
// and merges the results in the original channel order. The input is not modified.
func Process(img *plane.Image, fn PlaneFunc) (*plane.Image, error) {
	chans := img.Split()
	outs := make([]*plane.Plane, len(chans))

	swg := sizedwaitgroup.New(runtime.GOMAXPROCS(0))
	for i, ch := range chans {
		swg.Add()
		go func(i int, ch *plane.Plane) {
			defer swg.Done()
			outs[i] = fn(ch)
		}(i, ch)
	}
	swg.Wait()

	for i, out := range outs {
		if out == nil || !out.SameShape(chans[i]) {
			return nil, fmt.Errorf("%w: channel %d changed shape", plane.ErrShapeMismatch, i)
		}
	}
	res, err := plane.Merge(img.Order, outs)
	if err != nil {
		return nil, err
	}
	res.ID, res.FileName = img.ID, img.FileName
	return res, nil
}

// Correlates every channel with the kernel and normalizes the result
func CorrelateImage(img *plane.Image, k *kernel.Kernel, pad Padding, mode NormMode) (*plane.Image, error) {
	return Process(img, func(p *plane.Plane) *plane.Plane {
		return Normalize(CorrelatePadded(p, k, pad), mode)
	})
}

// Applies the point transform curve to every channel
func PointImage(img *plane.Image, c Curve) (*plane.Image, error) {
	return Process(img, c.Apply)
}
