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
	"strings"
)

// How samples outside the plane are obtained during correlation
type Padding int

const (
	PadZero      Padding = iota // constant 0
	PadReplicate                // repeat the edge sample
	PadReflect                  // mirror at the edge, edge sample included: ..1 0 | 0 1 2..
	PadWrap                     // tile the plane
)

func (p Padding) String() string {
	switch p {
	case PadZero:
		return "zero"
	case PadReplicate:
		return "replicate"
	case PadReflect:
		return "reflect"
	case PadWrap:
		return "wrap"
	}
	return fmt.Sprintf("Padding(%d)", int(p))
}

func ParsePadding(s string) (Padding, error) {
	switch strings.ToLower(s) {
	case "", "zero", "constant":
		return PadZero, nil
	case "replicate", "clamp", "edge":
		return PadReplicate, nil
	case "reflect", "mirror":
		return PadReflect, nil
	case "wrap", "tile":
		return PadWrap, nil
	}
	return PadZero, fmt.Errorf("unknown padding '%s'", s)
}

func (p Padding) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Padding) UnmarshalText(text []byte) (err error) {
	*p, err = ParsePadding(string(text))
	return err
}

// Maps index into [0, size). Returns -1 for zero padding outside the plane
func (p Padding) index(index, size int) int {
	if index >= 0 && index < size {
		return index
	}
	switch p {
	case PadReplicate:
		if index < 0 {
			return 0
		}
		return size - 1
	case PadReflect:
		period := 2 * size
		index %= period
		if index < 0 {
			index += period
		}
		if index >= size {
			index = period - index - 1
		}
		return index
	case PadWrap:
		index %= size
		if index < 0 {
			index += size
		}
		return index
	}
	return -1
}
