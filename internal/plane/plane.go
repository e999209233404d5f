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

package plane

import (
	"errors"
	"fmt"
)

var ErrShapeMismatch = errors.New("plane dimensions do not match")

// A single channel of samples. Row-major, Data[y*Width+x].
// Samples are float32 so intermediate results may be negative or exceed the 8-bit range.
type Plane struct {
	Width  int
	Height int
	Data   []float32
}

// Creates a zero-initialized plane of given dimensions
func New(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}
}

// Creates a plane with every sample set to v
func NewFilled(width, height int, v float32) *Plane {
	p := New(width, height)
	for i := range p.Data {
		p.Data[i] = v
	}
	return p
}

// Creates a plane around the given data, which is not copied
func NewFromData(width, height int, data []float32) (*Plane, error) {
	if width < 0 || height < 0 || len(data) != width*height {
		return nil, fmt.Errorf("%w: %dx%d plane with %d samples", ErrShapeMismatch, width, height, len(data))
	}
	return &Plane{Width: width, Height: height, Data: data}, nil
}

// Returns the sample in column x of row y
func (p *Plane) At(x, y int) float32 { return p.Data[y*p.Width+x] }

// Sets the sample in column x of row y
func (p *Plane) Set(x, y int, v float32) { p.Data[y*p.Width+x] = v }

// Returns row y as a subslice of the plane data
func (p *Plane) Row(y int) []float32 { return p.Data[y*p.Width : (y+1)*p.Width] }

// Returns a deep copy
func (p *Plane) Clone() *Plane {
	return &Plane{
		Width:  p.Width,
		Height: p.Height,
		Data:   append([]float32(nil), p.Data...),
	}
}

// True if both planes have the same width and height
func (p *Plane) SameShape(o *Plane) bool {
	return p.Width == o.Width && p.Height == o.Height
}

func (p *Plane) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Returns a new plane with fn applied to every sample. Parallelized across rows.
func (p *Plane) Map(fn func(float32) float32) *Plane {
	out := New(p.Width, p.Height)
	width := p.Width
	ApplyRows(p.Height, func(lower, upper int) {
		src, dest := p.Data[lower*width:upper*width], out.Data[lower*width:upper*width]
		for i, d := range src {
			dest[i] = fn(d)
		}
	})
	return out
}
