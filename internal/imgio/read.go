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

// Package imgio reads and writes 8-bit images as planar float32 data.
package imgio

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/pixfilter/internal/plane"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Read an image file into planar form. Grayscale files yield one channel, all others RGB
func ReadFile(fileName string, id int) (*plane.Image, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := Decode(bufio.NewReader(file), id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	img.FileName = fileName
	return img, nil
}

// Decode an image from a reader. Returns the image and the name of its format
func Decode(r io.Reader, id int) (*plane.Image, string, error) {
	decoded, format, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}
	img := FromImage(decoded)
	img.ID = id
	return img, format, nil
}

// Converts a golang image into planar 8-bit samples in [0,255]
func FromImage(src image.Image) *plane.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if isGray(src.ColorModel()) {
		res := plane.NewImage(plane.Gray, width, height)
		gs := res.Channels[0]
		plane.ApplyRows(height, func(lower, upper int) {
			for y := lower; y < upper; y++ {
				for x := 0; x < width; x++ {
					c := color.GrayModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
					gs.Data[y*width+x] = float32(c.Y)
				}
			}
		})
		return res
	}

	res := plane.NewImage(plane.RGB, width, height)
	rs, gs, bs := res.Channels[0], res.Channels[1], res.Channels[2]
	if s, ok := src.(*image.NRGBA); ok {
		plane.ApplyRows(height, func(lower, upper int) {
			for y := lower; y < upper; y++ {
				for x := 0; x < width; x++ {
					i, c := y*width+x, s.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
					rs.Data[i], gs.Data[i], bs.Data[i] = float32(c.R), float32(c.G), float32(c.B)
				}
			}
		})
		return res
	}

	plane.ApplyRows(height, func(lower, upper int) {
		for y := lower; y < upper; y++ {
			for x := 0; x < width; x++ {
				// fully transparent pixels come back as black
				col, _ := colorful.MakeColor(src.At(bounds.Min.X+x, bounds.Min.Y+y))
				r, g, b := col.RGB255()
				i := y*width + x
				rs.Data[i], gs.Data[i], bs.Data[i] = float32(r), float32(g), float32(b)
			}
		}
	})
	return res
}

func isGray(m color.Model) bool {
	return m == color.GrayModel || m == color.Gray16Model
}
