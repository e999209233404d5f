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
	"strings"
)

var ErrChannelCount = errors.New("channel count does not match channel order")

// Order of the channels in an image
type ChannelOrder int

const (
	Gray ChannelOrder = iota // single luminance channel
	RGB                      // channel 0 is red
	BGR                      // channel 0 is blue, as delivered by some decoders
)

func (o ChannelOrder) String() string {
	switch o {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	case BGR:
		return "bgr"
	}
	return fmt.Sprintf("ChannelOrder(%d)", int(o))
}

// Number of channels an image with this order carries
func (o ChannelOrder) NumChannels() int {
	if o == Gray {
		return 1
	}
	return 3
}

// Indices of the red, green and blue channel. Fails for gray images
func (o ChannelOrder) RGBIndices() (r, g, b int, err error) {
	switch o {
	case RGB:
		return 0, 1, 2, nil
	case BGR:
		return 2, 1, 0, nil
	}
	return 0, 0, 0, fmt.Errorf("no color channels in %s image", o)
}

// Parses "gray", "rgb" or "bgr", case-insensitive
func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch strings.ToLower(s) {
	case "gray", "grey", "mono":
		return Gray, nil
	case "rgb":
		return RGB, nil
	case "bgr":
		return BGR, nil
	}
	return Gray, fmt.Errorf("unknown channel order '%s'", s)
}

func (o ChannelOrder) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *ChannelOrder) UnmarshalText(text []byte) (err error) {
	*o, err = ParseChannelOrder(string(text))
	return err
}

// An image: equal-sized planes in a fixed channel order
type Image struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output
	Order    ChannelOrder
	Channels []*Plane
}

// Creates a zero-initialized image with the given order and dimensions
func NewImage(order ChannelOrder, width, height int) *Image {
	chans := make([]*Plane, order.NumChannels())
	for i := range chans {
		chans[i] = New(width, height)
	}
	return &Image{Order: order, Channels: chans}
}

// Combines planes into an image. All planes must share dimensions,
// and their number must match the channel order. Planes are not copied.
func Merge(order ChannelOrder, chans []*Plane) (*Image, error) {
	if len(chans) != order.NumChannels() {
		return nil, fmt.Errorf("%w: %d planes for %s", ErrChannelCount, len(chans), order)
	}
	for i, ch := range chans[1:] {
		if !ch.SameShape(chans[0]) {
			return nil, fmt.Errorf("%w: channel %d is %s, channel 0 is %s",
				ErrShapeMismatch, i+1, ch.DimensionsToString(), chans[0].DimensionsToString())
		}
	}
	return &Image{Order: order, Channels: append([]*Plane(nil), chans...)}, nil
}

// Returns the channels in order. The slice is a copy, the planes are shared
func (img *Image) Split() []*Plane {
	return append([]*Plane(nil), img.Channels...)
}

func (img *Image) Width() int  { return img.Channels[0].Width }
func (img *Image) Height() int { return img.Channels[0].Height }

// Number of samples across all channels
func (img *Image) Samples() int { return len(img.Channels) * img.Width() * img.Height() }

func (img *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%dx%d", img.Width(), img.Height(), len(img.Channels))
}

// Returns a deep copy
func (img *Image) Clone() *Image {
	chans := make([]*Plane, len(img.Channels))
	for i, ch := range img.Channels {
		chans[i] = ch.Clone()
	}
	return &Image{ID: img.ID, FileName: img.FileName, Order: img.Order, Channels: chans}
}

// Returns the image with its color channels arranged in the given order. Planes are shared.
// Gray images cannot be reordered into color orders or vice versa
func (img *Image) Reorder(order ChannelOrder) (*Image, error) {
	if order == img.Order {
		return img, nil
	}
	sr, sg, sb, err := img.Order.RGBIndices()
	if err != nil {
		return nil, err
	}
	dr, dg, db, err := order.RGBIndices()
	if err != nil {
		return nil, err
	}
	if len(img.Channels) != 3 {
		return nil, fmt.Errorf("%w: %d planes for %s", ErrChannelCount, len(img.Channels), img.Order)
	}
	chans := make([]*Plane, 3)
	chans[dr], chans[dg], chans[db] = img.Channels[sr], img.Channels[sg], img.Channels[sb]
	return &Image{ID: img.ID, FileName: img.FileName, Order: order, Channels: chans}, nil
}
