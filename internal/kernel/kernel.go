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

// Package kernel holds correlation kernels and reads them from their text format.
//
// A kernel file has a header line "m n bias" with three integers, followed by
// m lines of n whitespace-separated real coefficients each:
//
//	3 3 0
//	0 1 0
//	1 -4 1
//	0 1 0
package kernel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Position of the reference point within a kernel
type Anchor struct {
	Row int
	Col int
}

// An immutable correlation kernel: rows x cols coefficients plus a bias,
// which is added once per output sample.
type Kernel struct {
	rows   int
	cols   int
	bias   float64
	anchor Anchor
	coeffs []float64 // row-major
}

// Creates a kernel from row-major coefficients, which are copied.
// The anchor is set to the center. It has no effect on correlation.
func New(rows, cols int, bias float64, coeffs []float64) (*Kernel, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("invalid kernel size %dx%d", rows, cols)
	}
	if len(coeffs) != rows*cols {
		return nil, fmt.Errorf("%dx%d kernel needs %d coefficients, got %d", rows, cols, rows*cols, len(coeffs))
	}
	return &Kernel{
		rows:   rows,
		cols:   cols,
		bias:   bias,
		anchor: Anchor{rows / 2, cols / 2},
		coeffs: append([]float64(nil), coeffs...),
	}, nil
}

// Like New, but panics on error. For constant kernels
func MustNew(rows, cols int, bias float64, coeffs []float64) *Kernel {
	k, err := New(rows, cols, bias, coeffs)
	if err != nil {
		panic(err)
	}
	return k
}

// The 1x1 identity kernel [[1]] with zero bias
func Identity() *Kernel { return MustNew(1, 1, 0, []float64{1}) }

// A rows x cols averaging kernel with zero bias
func Box(rows, cols int) *Kernel {
	coeffs := make([]float64, rows*cols)
	for i := range coeffs {
		coeffs[i] = 1 / float64(rows*cols)
	}
	return MustNew(rows, cols, 0, coeffs)
}

func (k *Kernel) Rows() int      { return k.rows }
func (k *Kernel) Cols() int      { return k.cols }
func (k *Kernel) Bias() float64  { return k.bias }
func (k *Kernel) Anchor() Anchor { return k.anchor }

// Coefficient in row r, column c
func (k *Kernel) At(r, c int) float64 { return k.coeffs[r*k.cols+c] }

// Returns a copy of the row-major coefficients
func (k *Kernel) Coefficients() []float64 { return append([]float64(nil), k.coeffs...) }

// Sum of all coefficients, excluding the bias
func (k *Kernel) Sum() float64 {
	sum := 0.0
	for _, c := range k.coeffs {
		sum += c
	}
	return sum
}

// Serializes the kernel in its text file format
func (k *Kernel) String() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "%d %d %s\n", k.rows, k.cols, strconv.FormatFloat(k.bias, 'g', -1, 64))
	for r := 0; r < k.rows; r++ {
		for c := 0; c < k.cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(k.At(r, c), 'g', -1, 64))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// A malformed kernel file. Line is 1-based
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("kernel format error on line %d: %s", e.Line, e.Msg)
}

// True if err is or wraps a *FormatError
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
