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
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlnoga/pixfilter/internal/filter"
	"github.com/mlnoga/pixfilter/internal/kernel"
	"github.com/mlnoga/pixfilter/internal/ops"
	"github.com/mlnoga/pixfilter/internal/plane"
	"github.com/mlnoga/pixfilter/internal/yiq"
)

const laplacian = "3 3 0\n0 1 0\n1 -4 1\n0 1 0\n"

func flatPromise(order plane.ChannelOrder, v float32) ops.Promise {
	return func() (*plane.Image, error) {
		img := plane.NewImage(order, 8, 8)
		for i := range img.Channels {
			img.Channels[i] = plane.NewFilled(8, 8, v)
		}
		img.ID = 1
		return img, nil
	}
}

func run(t *testing.T, op ops.Operator, in ops.Promise) (*plane.Image, string) {
	t.Helper()
	log := bytes.Buffer{}
	c := ops.NewContext(&log, 2)
	promises, err := op.MakePromises([]ops.Promise{in}, c)
	if err != nil {
		t.Fatal(err)
	}
	outs, err := ops.MaterializeAll(promises, c.MaxThreads, false)
	if err != nil {
		t.Fatal(err)
	}
	return outs[0], log.String()
}

func TestUnmarshalDefaults(t *testing.T) {
	op, err := ops.UnmarshalOperator([]byte(`{"type":"correlate","kernel":"1 1 0\n1\n"}`))
	if err != nil {
		t.Fatal(err)
	}
	corr := op.(*OpCorrelate)
	if !corr.Active || corr.Norm != filter.NormAbsMax || corr.Padding != filter.PadZero {
		t.Errorf("correlate defaults=%+v", corr)
	}

	op, err = ops.UnmarshalOperator([]byte(`{"type":"point","max":200}`))
	if err != nil {
		t.Fatal(err)
	}
	if p := op.(*OpPoint); p.Mid != 128 || p.Max != 200 || !p.Active {
		t.Errorf("point=%+v; want mid 128 max 200", p)
	}

	op, err = ops.UnmarshalOperator([]byte(`{"type":"luma"}`))
	if err != nil {
		t.Fatal(err)
	}
	if l := op.(*OpLuma); l.Curve != filter.CurveLuma {
		t.Errorf("luma curve=%+v; want %+v", l.Curve, filter.CurveLuma)
	}

	if _, err := ops.UnmarshalOperator([]byte(`{"type":"correlate","norm":"median"}`)); err == nil {
		t.Errorf("bad norm accepted")
	}
}

func TestCorrelateJSONRoundTrip(t *testing.T) {
	k, _ := kernel.ParseString(laplacian)
	op := NewOpCorrelateKernel(k, filter.NormMinMax, filter.PadReplicate)
	bs, err := json.Marshal(op)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ops.UnmarshalOperator(bs)
	if err != nil {
		t.Fatalf("%s: %v", bs, err)
	}
	corr := back.(*OpCorrelate)
	if corr.Norm != filter.NormMinMax || corr.Padding != filter.PadReplicate || corr.Kernel != k.String() {
		t.Errorf("round trip %s gave %+v", bs, corr)
	}
}

func TestOpCorrelate(t *testing.T) {
	var op OpCorrelate
	if err := json.Unmarshal([]byte(`{"type":"correlate","padding":"replicate","kernel":"3 3 0\n0 1 0\n1 -4 1\n0 1 0\n"}`), &op); err != nil {
		t.Fatal(err)
	}
	out, log := run(t, &op, flatPromise(plane.RGB, 200))
	for c, ch := range out.Channels {
		for i, d := range ch.Data {
			if d != 0 {
				t.Fatalf("channel %d out[%d]=%f; want 0", c, i, d)
			}
		}
	}
	if !strings.Contains(log, "1: Correlated 8x8x3 image") {
		t.Errorf("log=%q", log)
	}
}

func TestOpCorrelateKernelFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "box.txt")
	if err := os.WriteFile(fileName, []byte(kernel.Box(3, 3).String()), 0644); err != nil {
		t.Fatal(err)
	}
	op := NewOpCorrelate(fileName, filter.NormNone, filter.PadReplicate)
	out, _ := run(t, op, flatPromise(plane.Gray, 50))
	for i, d := range out.Channels[0].Data {
		if d != 50 {
			t.Fatalf("out[%d]=%f; want 50", i, d)
		}
	}

	bad := filepath.Join(t.TempDir(), "bad.txt")
	os.WriteFile(bad, []byte("3 3\n"), 0644)
	_, err := NewOpCorrelate(bad, filter.NormNone, filter.PadZero).MakePromises([]ops.Promise{flatPromise(plane.Gray, 1)}, ops.NewContext(io.Discard, 1))
	if !kernel.IsFormatError(err) {
		t.Errorf("err=%v; want format error", err)
	}
	_, err = NewOpCorrelateDefault().MakePromises([]ops.Promise{flatPromise(plane.Gray, 1)}, ops.NewContext(io.Discard, 1))
	if err == nil {
		t.Errorf("correlate without kernel succeeded")
	}
}

func TestOpPointAndLuma(t *testing.T) {
	out, _ := run(t, NewOpPointDefault(), flatPromise(plane.BGR, 200))
	if out.Order != plane.BGR || out.Channels[2].Data[0] != 111 {
		t.Errorf("point: order %v sample %f; want bgr 111", out.Order, out.Channels[2].Data[0])
	}

	out, _ = run(t, NewOpLumaDefault(), flatPromise(plane.RGB, 100))
	if d := out.Channels[0].Data[0]; d < 199 || d > 201 {
		t.Errorf("luma: sample %f; want about 200", d)
	}

	c := ops.NewContext(io.Discard, 1)
	_, err := NewOpLumaDefault().Apply(plane.NewImage(plane.Gray, 2, 2), c)
	if !errors.Is(err, yiq.ErrNotColor) {
		t.Errorf("err=%v; want ErrNotColor", err)
	}
}

func TestOpStats(t *testing.T) {
	in := flatPromise(plane.BGR, 42)
	out, log := run(t, NewOpStatsDefault(), in)
	if out.Channels[0].Data[0] != 42 {
		t.Errorf("stats modified the image")
	}
	for _, prefix := range []string{"1: b Min 42", "1: g Min 42", "1: r Min 42"} {
		if !strings.Contains(log, prefix) {
			t.Errorf("log %q misses %q", log, prefix)
		}
	}
}

func TestPipelineJSON(t *testing.T) {
	dir := t.TempDir()
	src := `{"type":"seq","steps":[
		{"type":"point"},
		{"type":"stats"},
		{"type":"correlate","kernel":"1 1 0\n1\n","norm":"none"},
		{"type":"save","filePattern":"` + filepath.ToSlash(filepath.Join(dir, "out%d.png")) + `"}
	]}`
	var seq ops.OpSequence
	if err := json.Unmarshal([]byte(src), &seq); err != nil {
		t.Fatal(err)
	}
	if len(seq.Steps) != 4 {
		t.Fatalf("steps=%d; want 4", len(seq.Steps))
	}
	out, _ := run(t, &seq, flatPromise(plane.RGB, 64))
	if out.Channels[1].Data[0] != 128 {
		t.Errorf("sample=%f; want 128", out.Channels[1].Data[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "out1.png")); err != nil {
		t.Errorf("output not saved: %v", err)
	}
}

func TestOpOrder(t *testing.T) {
	in := func() (*plane.Image, error) {
		img := plane.NewImage(plane.RGB, 2, 2)
		img.Channels[0] = plane.NewFilled(2, 2, 10)
		return img, nil
	}
	out, log := run(t, NewOpOrder(plane.BGR), in)
	if out.Order != plane.BGR || out.Channels[2].Data[0] != 10 {
		t.Errorf("order %v red %f; want bgr 10", out.Order, out.Channels[2].Data[0])
	}
	if !strings.Contains(log, "from rgb to bgr") {
		t.Errorf("log=%q", log)
	}
	gray, _ := run(t, NewOpOrder(plane.BGR), flatPromise(plane.Gray, 1))
	if gray.Order != plane.Gray {
		t.Errorf("gray reordered to %v", gray.Order)
	}
}
