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

package kernel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Upper bound on rows*cols accepted from a kernel header
const MaxCoefficients = 1 << 20

// Reads a kernel from the file with the given name
func ReadFile(fileName string) (*Kernel, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	k, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return k, nil
}

// Parses a kernel from a string in the text file format
func ParseString(s string) (*Kernel, error) {
	return Parse(strings.NewReader(s))
}

// Parses a kernel in the text file format. Lines after the last kernel row are ignored.
// Returns a *FormatError if the header is not three integers, if the size is not positive,
// if a row does not have exactly n real numbers, or if rows are missing.
func Parse(r io.Reader) (*Kernel, error) {
	scanner := bufio.NewScanner(r)
	line := 0

	line++
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &FormatError{line, "missing header"}
	}
	header := strings.Fields(scanner.Text())
	if len(header) != 3 {
		return nil, &FormatError{line, fmt.Sprintf("header has %d fields, want 3 (m n bias)", len(header))}
	}
	var dims [3]int
	for i, tok := range header {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &FormatError{line, fmt.Sprintf("header field %d '%s' is not an integer", i+1, tok)}
		}
		dims[i] = v
	}
	rows, cols, bias := dims[0], dims[1], dims[2]
	if rows < 1 || cols < 1 {
		return nil, &FormatError{line, fmt.Sprintf("invalid kernel size %dx%d", rows, cols)}
	}

	if rows > MaxCoefficients/cols {
		return nil, &FormatError{line, fmt.Sprintf("kernel too large: %dx%d, at most %d coefficients", rows, cols, MaxCoefficients)}
	}

	var coeffs []float64
	for row := 0; row < rows; row++ {
		line++
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, &FormatError{line, fmt.Sprintf("found %d rows, want %d", row, rows)}
		}
		toks := strings.Fields(scanner.Text())
		if len(toks) != cols {
			return nil, &FormatError{line, fmt.Sprintf("row has %d fields, want %d", len(toks), cols)}
		}
		for _, tok := range toks {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, &FormatError{line, fmt.Sprintf("'%s' is not a number", tok)}
			}
			coeffs = append(coeffs, v)
		}
	}

	return New(rows, cols, float64(bias), coeffs)
}
