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

// Package filter wraps the pixel filters as JSON-configurable operators.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mlnoga/pixfilter/internal/filter"
	"github.com/mlnoga/pixfilter/internal/kernel"
	"github.com/mlnoga/pixfilter/internal/ops"
	"github.com/mlnoga/pixfilter/internal/plane"
	"github.com/mlnoga/pixfilter/internal/stats"
	"github.com/mlnoga/pixfilter/internal/yiq"
)

// Correlates each channel with a kernel and normalizes the result. Takes n inputs, produces n outputs.
// The kernel is read from KernelFile, or parsed from Kernel if no file is given
type OpCorrelate struct {
	ops.OpUnaryBase
	KernelFile string          `json:"kernelFile,omitempty"`
	Kernel     string          `json:"kernel,omitempty"`
	Norm       filter.NormMode `json:"norm"`
	Padding    filter.Padding  `json:"padding"`

	k *kernel.Kernel
}

var _ ops.Operator = (*OpCorrelate)(nil) // this type is an Operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpCorrelateDefault() }) } // register the operator for JSON decoding

func NewOpCorrelateDefault() *OpCorrelate { return NewOpCorrelate("", filter.NormAbsMax, filter.PadZero) }

func NewOpCorrelate(kernelFile string, norm filter.NormMode, pad filter.Padding) *OpCorrelate {
	op := OpCorrelate{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "correlate", Active: true}},
		KernelFile:  kernelFile,
		Norm:        norm,
		Padding:     pad,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Creates a correlation operator for an already parsed kernel
func NewOpCorrelateKernel(k *kernel.Kernel, norm filter.NormMode, pad filter.Padding) *OpCorrelate {
	op := NewOpCorrelate("", norm, pad)
	op.Kernel = k.String()
	op.k = k
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpCorrelate) UnmarshalJSON(data []byte) error {
	type defaults OpCorrelate
	def := defaults(*NewOpCorrelateDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpCorrelate(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Loads the kernel once, then wraps each input
func (op *OpCorrelate) MakePromises(ins []ops.Promise, c *ops.Context) (outs []ops.Promise, err error) {
	if err := op.Init(); err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Log, "Correlating with %dx%d kernel, bias %g, %v normalization and %v padding\n",
		op.k.Rows(), op.k.Cols(), op.k.Bias(), op.Norm, op.Padding)
	return op.OpUnaryBase.MakePromises(ins, c)
}

// Reads or parses the kernel, unless already done
func (op *OpCorrelate) Init() (err error) {
	if op.k != nil {
		return nil
	}
	switch {
	case op.KernelFile != "":
		op.k, err = kernel.ReadFile(op.KernelFile)
	case op.Kernel != "":
		op.k, err = kernel.ParseString(op.Kernel)
	default:
		err = errors.New("correlate operator without kernel")
	}
	return err
}

func (op *OpCorrelate) Apply(img *plane.Image, c *ops.Context) (result *plane.Image, err error) {
	if !op.Active {
		return img, nil
	}
	if err := op.Init(); err != nil {
		return nil, fmt.Errorf("%d: %w", img.ID, err)
	}
	result, err = filter.CorrelateImage(img, op.k, op.Padding, op.Norm)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", img.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Correlated %s image\n", img.ID, img.DimensionsToString())
	return result, nil
}

// Applies the piecewise linear point transform to each channel. Takes n inputs, produces n outputs
type OpPoint struct {
	ops.OpUnaryBase
	filter.Curve
}

var _ ops.Operator = (*OpPoint)(nil) // this type is an Operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpPointDefault() }) } // register the operator for JSON decoding

func NewOpPointDefault() *OpPoint { return NewOpPoint(filter.Curve8Bit) }

func NewOpPoint(curve filter.Curve) *OpPoint {
	op := OpPoint{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "point", Active: true}},
		Curve:       curve,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpPoint) UnmarshalJSON(data []byte) error {
	type defaults OpPoint
	def := defaults(*NewOpPointDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpPoint(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

func (op *OpPoint) Apply(img *plane.Image, c *ops.Context) (result *plane.Image, err error) {
	if !op.Active {
		return img, nil
	}
	fmt.Fprintf(c.Log, "%d: Applying point transform with midpoint %g and maximum %g\n", img.ID, op.Mid, op.Max)
	result, err = filter.PointImage(img, op.Curve)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", img.ID, err)
	}
	return result, nil
}

// Applies a point transform to the luma band of a color image. Takes n inputs, produces n outputs
type OpLuma struct {
	ops.OpUnaryBase
	filter.Curve
}

var _ ops.Operator = (*OpLuma)(nil) // this type is an Operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpLumaDefault() }) } // register the operator for JSON decoding

func NewOpLumaDefault() *OpLuma { return NewOpLuma(filter.CurveLuma) }

func NewOpLuma(curve filter.Curve) *OpLuma {
	op := OpLuma{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "luma", Active: true}},
		Curve:       curve,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpLuma) UnmarshalJSON(data []byte) error {
	type defaults OpLuma
	def := defaults(*NewOpLumaDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpLuma(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

func (op *OpLuma) Apply(img *plane.Image, c *ops.Context) (result *plane.Image, err error) {
	if !op.Active {
		return img, nil
	}
	fmt.Fprintf(c.Log, "%d: Applying luma transform with midpoint %g and maximum %g\n", img.ID, op.Mid, op.Max)
	result, err = yiq.FilterLumaWith(img, op.Curve.Apply)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", img.ID, err)
	}
	return result, nil
}

// Logs per-channel statistics. Takes n inputs, produces the same n outputs
type OpStats struct {
	ops.OpUnaryBase
}

var _ ops.Operator = (*OpStats)(nil) // this type is an Operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpStatsDefault() }) } // register the operator for JSON decoding

func NewOpStatsDefault() *OpStats { return NewOpStats(true) }

func NewOpStats(active bool) *OpStats {
	op := OpStats{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "stats", Active: active}},
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpStats) UnmarshalJSON(data []byte) error {
	type defaults OpStats
	def := defaults(*NewOpStatsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpStats(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

func (op *OpStats) Apply(img *plane.Image, c *ops.Context) (result *plane.Image, err error) {
	if !op.Active {
		return img, nil
	}
	orderNames := []string{"gray"}
	if img.Order != plane.Gray {
		orderNames = []string{"c0", "c1", "c2"}
		if ri, gi, bi, err := img.Order.RGBIndices(); err == nil {
			orderNames[ri], orderNames[gi], orderNames[bi] = "r", "g", "b"
		}
	}
	for i, s := range stats.CalcImageStats(img) {
		name := fmt.Sprintf("c%d", i)
		if i < len(orderNames) {
			name = orderNames[i]
		}
		fmt.Fprintf(c.Log, "%d: %s %v\n", img.ID, name, s)
	}
	return img, nil
}

// Rearranges the color channels of each image into the given order. Takes n inputs, produces n outputs
type OpOrder struct {
	ops.OpUnaryBase
	Order plane.ChannelOrder `json:"order"`
}

var _ ops.Operator = (*OpOrder)(nil) // this type is an Operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpOrderDefault() }) } // register the operator for JSON decoding

func NewOpOrderDefault() *OpOrder { return NewOpOrder(plane.RGB) }

func NewOpOrder(order plane.ChannelOrder) *OpOrder {
	op := OpOrder{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "order", Active: true}},
		Order:       order,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpOrder) UnmarshalJSON(data []byte) error {
	type defaults OpOrder
	def := defaults(*NewOpOrderDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpOrder(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Gray images pass through unchanged
func (op *OpOrder) Apply(img *plane.Image, c *ops.Context) (result *plane.Image, err error) {
	if !op.Active || img.Order == plane.Gray || img.Order == op.Order {
		return img, nil
	}
	fmt.Fprintf(c.Log, "%d: Reordering channels from %v to %v\n", img.ID, img.Order, op.Order)
	result, err = img.Reorder(op.Order)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", img.ID, err)
	}
	return result, nil
}
