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

package imgio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlnoga/pixfilter/internal/plane"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var ErrUnknownFormat = errors.New("unknown image format")

// Output image formats
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatTIFF
	FormatBMP
)

var formatNames = []string{"png", "jpeg", "tiff", "bmp"}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// Returns the MIME content type for the format
func (f Format) ContentType() string {
	return "image/" + f.String()
}

// Determines the output format from a file name suffix
func FormatFromFileName(fileName string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	f, err := ParseFormat(ext)
	if err != nil {
		return f, fmt.Errorf("%s: %w", fileName, err)
	}
	return f, nil
}

// Parses a format name or common file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	}
	return FormatPNG, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Write an image to a file, choosing the format by suffix. Quality only applies to JPEG
func WriteFile(fileName string, img *plane.Image, quality int) error {
	format, err := FormatFromFileName(fileName)
	if err != nil {
		return err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := Encode(writer, img, format, quality); err != nil {
		return err
	}
	return writer.Flush()
}

// Encode an image in the given format
func Encode(w io.Writer, img *plane.Image, format Format, quality int) error {
	goImg, err := ToImage(img)
	if err != nil {
		return err
	}
	switch format {
	case FormatPNG:
		return png.Encode(w, goImg)
	case FormatJPEG:
		return jpeg.Encode(w, goImg, &jpeg.Options{Quality: quality})
	case FormatTIFF:
		return tiff.Encode(w, goImg, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case FormatBMP:
		return bmp.Encode(w, goImg)
	}
	return fmt.Errorf("%w: %v", ErrUnknownFormat, format)
}

// Converts planar samples into a golang image. Samples are clamped to [0,255] and truncated,
// NaNs are written as zero
func ToImage(img *plane.Image) (image.Image, error) {
	width, height := img.Width(), img.Height()
	rect := image.Rect(0, 0, width, height)

	if img.Order == plane.Gray {
		if len(img.Channels) != 1 {
			return nil, fmt.Errorf("%w: gray image with %d channels", plane.ErrChannelCount, len(img.Channels))
		}
		res := image.NewGray(rect)
		gs := img.Channels[0]
		plane.ApplyRows(height, func(lower, upper int) {
			for y := lower; y < upper; y++ {
				for x := 0; x < width; x++ {
					res.SetGray(x, y, color.Gray{to8Bit(gs.Data[y*width+x])})
				}
			}
		})
		return res, nil
	}

	ri, gi, bi, err := img.Order.RGBIndices()
	if err != nil {
		return nil, err
	}
	if len(img.Channels) != 3 {
		return nil, fmt.Errorf("%w: %v image with %d channels", plane.ErrChannelCount, img.Order, len(img.Channels))
	}
	res := image.NewNRGBA(rect)
	rs, gs, bs := img.Channels[ri], img.Channels[gi], img.Channels[bi]
	plane.ApplyRows(height, func(lower, upper int) {
		for y := lower; y < upper; y++ {
			for x := 0; x < width; x++ {
				i := y*width + x
				res.SetNRGBA(x, y, color.NRGBA{to8Bit(rs.Data[i]), to8Bit(gs.Data[i]), to8Bit(bs.Data[i]), 255})
			}
		}
	})
	return res, nil
}

func to8Bit(v float32) uint8 {
	if math.IsNaN(float64(v)) || v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
