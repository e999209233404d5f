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

// Package yiq converts 8-bit RGB images to the YIQ color model and back,
// and filters the luma band while leaving chrominance untouched.
package yiq

import (
	"errors"
	"fmt"

	"github.com/mlnoga/pixfilter/internal/plane"
	"gonum.org/v1/gonum/mat"
)

var ErrNotColor = errors.New("not a three-channel color image")

// RGB in [0,1] to YIQ
var Forward = mat.NewDense(3, 3, []float64{
	0.299, 0.587, 0.114,
	0.596, -0.274, -0.322,
	0.211, -0.523, 0.312,
})

// YIQ to RGB in [0,1]. Inverts Forward up to the precision of the constants
var Inverse = mat.NewDense(3, 3, []float64{
	1, 0.956, 0.621,
	1, -0.272, -0.647,
	1, -1.106, 1.703,
})

// A YIQ image. Y is roughly in [0,1], I and Q are signed.
// Order is the channel order the RGB image is restored to.
type YIQImage struct {
	ID       int
	FileName string
	Order    plane.ChannelOrder
	Y, I, Q  *plane.Plane
}

// Returns a copy of the image with the luma plane replaced. I and Q are shared, not copied
func (y *YIQImage) WithLuma(luma *plane.Plane) (*YIQImage, error) {
	if !luma.SameShape(y.Y) {
		return nil, fmt.Errorf("%w: luma %s, image %s", plane.ErrShapeMismatch, luma.DimensionsToString(), y.Y.DimensionsToString())
	}
	res := *y
	res.Y = luma
	return &res, nil
}

// Converts an 8-bit RGB or BGR image to YIQ. Samples are divided by 255 first
func ToYIQ(img *plane.Image) (*YIQImage, error) {
	if len(img.Channels) != 3 {
		return nil, fmt.Errorf("%w: %d channels", ErrNotColor, len(img.Channels))
	}
	ri, gi, bi, err := img.Order.RGBIndices()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotColor, err.Error())
	}
	rs, gs, bs := img.Channels[ri], img.Channels[gi], img.Channels[bi]
	width, height := img.Width(), img.Height()
	res := &YIQImage{
		ID:       img.ID,
		FileName: img.FileName,
		Order:    img.Order,
		Y:        plane.New(width, height),
		I:        plane.New(width, height),
		Q:        plane.New(width, height),
	}

	m := coefficients(Forward)
	plane.ApplyRows(height, func(lower, upper int) {
		for i := lower * width; i < upper*width; i++ {
			r, g, b := float64(rs.Data[i])/255, float64(gs.Data[i])/255, float64(bs.Data[i])/255
			res.Y.Data[i] = float32(m[0][0]*r + m[0][1]*g + m[0][2]*b)
			res.I.Data[i] = float32(m[1][0]*r + m[1][1]*g + m[1][2]*b)
			res.Q.Data[i] = float32(m[2][0]*r + m[2][1]*g + m[2][2]*b)
		}
	})
	return res, nil
}

// Converts a YIQ image back to 8 bits per channel, in the original channel order.
// Each channel is clamped to [0,1], scaled by 255 and truncated
func ToRGB(y *YIQImage) *plane.Image {
	width, height := y.Y.Width, y.Y.Height
	order := y.Order
	if order != plane.BGR {
		order = plane.RGB
	}
	res := plane.NewImage(order, width, height)
	res.ID, res.FileName = y.ID, y.FileName
	ri, gi, bi, _ := order.RGBIndices()
	rs, gs, bs := res.Channels[ri], res.Channels[gi], res.Channels[bi]

	m := coefficients(Inverse)
	plane.ApplyRows(height, func(lower, upper int) {
		for i := lower * width; i < upper*width; i++ {
			yy, ii, qq := float64(y.Y.Data[i]), float64(y.I.Data[i]), float64(y.Q.Data[i])
			rs.Data[i] = to8Bit(m[0][0]*yy + m[0][1]*ii + m[0][2]*qq)
			gs.Data[i] = to8Bit(m[1][0]*yy + m[1][1]*ii + m[1][2]*qq)
			bs.Data[i] = to8Bit(m[2][0]*yy + m[2][1]*ii + m[2][2]*qq)
		}
	})
	return res
}

// Copies a 3x3 matrix into an array for the inner loops
func coefficients(d *mat.Dense) (m [3][3]float64) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = d.At(r, c)
		}
	}
	return m
}

func to8Bit(v float64) float32 {
	if !(v > 0) { // also catches NaN
		return 0
	}
	if v > 1 {
		v = 1
	}
	return float32(int(v * 255))
}
