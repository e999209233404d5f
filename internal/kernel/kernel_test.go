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
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLaplacian(t *testing.T) {
	k, err := ParseString("3 3 0\n0 1 0\n1 -4 1\n0 1 0\n")
	if err != nil {
		t.Fatal(err)
	}
	if k.Rows() != 3 || k.Cols() != 3 || k.Bias() != 0 {
		t.Errorf("kernel %dx%d bias %g; want 3x3 bias 0", k.Rows(), k.Cols(), k.Bias())
	}
	want := []float64{0, 1, 0, 1, -4, 1, 0, 1, 0}
	for i, c := range k.Coefficients() {
		if c != want[i] {
			t.Errorf("k[%d]=%g; want %g", i, c, want[i])
		}
	}
	if k.At(1, 1) != -4 {
		t.Errorf("At(1,1)=%g; want -4", k.At(1, 1))
	}
	if k.Sum() != 0 {
		t.Errorf("Sum()=%g; want 0", k.Sum())
	}
	if a := k.Anchor(); a.Row != 1 || a.Col != 1 {
		t.Errorf("anchor=%v; want {1 1}", a)
	}
}

func TestParseRealsAndBias(t *testing.T) {
	k, err := ParseString("2 3 -7\n0.5 1e-1 -2.25\n\t3  4 5\r\n\nignored trailing text\n")
	if err != nil {
		t.Fatal(err)
	}
	if k.Bias() != -7 {
		t.Errorf("bias=%g; want -7", k.Bias())
	}
	want := []float64{0.5, 0.1, -2.25, 3, 4, 5}
	for i, c := range k.Coefficients() {
		if c != want[i] {
			t.Errorf("k[%d]=%g; want %g", i, c, want[i])
		}
	}
}

func TestParseErrors(t *testing.T) {
	tcs := []struct {
		Name string
		In   string
		Line int
	}{
		{"empty", "", 1},
		{"short header", "3 3\n0 1 0\n", 1},
		{"long header", "3 3 0 1 1\n", 1},
		{"float header", "3 3 0.5\n", 1},
		{"zero rows", "0 3 0\n", 1},
		{"negative cols", "1 -1 0\n1\n", 1},
		{"short row", "2 2 0\n1 2\n3\n", 3},
		{"long row", "2 2 0\n1 2 3\n3 4\n", 2},
		{"missing rows", "3 3 0\n0 1 0\n1 -4 1\n", 4},
		{"blank row", "2 2 0\n\n1 2\n", 2},
		{"bad number", "1 2 0\n1 x\n", 2},
		{"oversized header", "200000 200000 0\n1 2\n", 1},
		{"overflowing header", "3037000500 3037000500 0\n1\n", 1},
		{"one past limit", "1025 1024 0\n1\n", 1},
	}
	for _, tc := range tcs {
		k, err := ParseString(tc.In)
		if k != nil {
			t.Errorf("%s: got kernel %v; want nil", tc.Name, k)
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%s: err=%v; want *FormatError", tc.Name, err)
			continue
		}
		if fe.Line != tc.Line {
			t.Errorf("%s: line=%d; want %d", tc.Name, fe.Line, tc.Line)
		}
		if !IsFormatError(err) {
			t.Errorf("%s: IsFormatError=false; want true", tc.Name)
		}
	}
}

func TestParseAtLimit(t *testing.T) {
	// a header at the limit is accepted, the missing rows are reported
	_, err := ParseString("1024 1024 0\n1\n")
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Line != 2 {
		t.Errorf("err=%v; want *FormatError on line 2", err)
	}
}

func TestStringParsesBack(t *testing.T) {
	in := MustNew(2, 3, 4, []float64{1, -0.5, 2, 0.25, 0, 3})
	out, err := ParseString(in.String())
	if err != nil {
		t.Fatal(err)
	}
	if out.Rows() != in.Rows() || out.Cols() != in.Cols() || out.Bias() != in.Bias() {
		t.Fatalf("parsed %dx%d bias %g; want %dx%d bias %g", out.Rows(), out.Cols(), out.Bias(), in.Rows(), in.Cols(), in.Bias())
	}
	for r := 0; r < in.Rows(); r++ {
		for c := 0; c < in.Cols(); c++ {
			if out.At(r, c) != in.At(r, c) {
				t.Errorf("At(%d,%d)=%g; want %g", r, c, out.At(r, c), in.At(r, c))
			}
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "filtro.txt")
	if err := os.WriteFile(name, []byte("1 1 3\n2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	k, err := ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if k.At(0, 0) != 2 || k.Bias() != 3 {
		t.Errorf("kernel %v; want [[2]] bias 3", k)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("1 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(bad); !IsFormatError(err) {
		t.Errorf("err=%v; want wrapped *FormatError", err)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.txt")); err == nil || IsFormatError(err) {
		t.Errorf("err=%v; want file system error", err)
	}
}

func TestConstructors(t *testing.T) {
	if _, err := New(0, 1, 0, nil); err == nil {
		t.Errorf("New(0,1) succeeded; want error")
	}
	if _, err := New(2, 2, 0, []float64{1, 2, 3}); err == nil {
		t.Errorf("New(2,2) with 3 coefficients succeeded; want error")
	}
	id := Identity()
	if id.Rows() != 1 || id.Cols() != 1 || id.At(0, 0) != 1 || id.Bias() != 0 {
		t.Errorf("Identity()=%v; want [[1]] bias 0", id)
	}
	box := Box(3, 3)
	if s := box.Sum(); s < 0.999999 || s > 1.000001 {
		t.Errorf("Box(3,3).Sum()=%g; want 1", s)
	}

	coeffs := []float64{1, 2}
	k := MustNew(1, 2, 0, coeffs)
	coeffs[0] = 99
	k.Coefficients()[1] = 99
	if k.At(0, 0) != 1 || k.At(0, 1) != 2 {
		t.Errorf("kernel shares coefficient storage with caller")
	}
}
