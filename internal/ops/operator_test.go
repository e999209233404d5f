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

package ops

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlnoga/pixfilter/internal/imgio"
	"github.com/mlnoga/pixfilter/internal/plane"
)

func promiseOf(img *plane.Image, err error) Promise {
	return func() (*plane.Image, error) { return img, err }
}

func TestMaterializeAll(t *testing.T) {
	imgs := []*plane.Image{plane.NewImage(plane.Gray, 2, 2), plane.NewImage(plane.Gray, 3, 3), plane.NewImage(plane.Gray, 4, 4)}
	ins := []Promise{promiseOf(imgs[0], nil), promiseOf(nil, errors.New("a")), promiseOf(imgs[2], nil), promiseOf(nil, errors.New("b"))}
	outs, err := MaterializeAll(ins, 2, false)
	if err == nil || !strings.Contains(err.Error(), "a") || !strings.Contains(err.Error(), "b") {
		t.Errorf("err=%v; want both errors", err)
	}
	if len(outs) != 2 || outs[0] != imgs[0] || outs[1] != imgs[2] {
		t.Errorf("outs=%v; want images 0 and 2", outs)
	}

	outs, err = MaterializeAll(ins[:1], 0, true)
	if err != nil || len(outs) != 0 {
		t.Errorf("forget: outs=%v err=%v; want none", outs, err)
	}
}

func TestRemoveNils(t *testing.T) {
	a, b := plane.NewImage(plane.Gray, 1, 1), plane.NewImage(plane.Gray, 1, 1)
	res := RemoveNils([]*plane.Image{nil, a, nil, b})
	if len(res) != 2 || res[0] != a || res[1] != b {
		t.Errorf("res=%v; want [a b]", res)
	}
}

func TestNewContext(t *testing.T) {
	c := NewContext(io.Discard, 3)
	if c.MaxThreads < 1 || c.MaxThreads > 3 {
		t.Errorf("threads=%d; want 1..3", c.MaxThreads)
	}
	if c.MemoryMB <= 0 || c.ImageMemoryMB > c.MemoryMB || c.Quality != 95 {
		t.Errorf("context=%+v", c)
	}
	if !strings.Contains(c.String(), "threads") {
		t.Errorf("string=%q", c.String())
	}
}

func TestLoadSaveSequence(t *testing.T) {
	dir := t.TempDir()
	img := plane.NewImage(plane.RGB, 4, 3)
	img.Channels[1] = plane.NewFilled(4, 3, 77)
	for _, name := range []string{"a.png", "b.png"} {
		if err := imgio.WriteFile(filepath.Join(dir, name), img, 95); err != nil {
			t.Fatal(err)
		}
	}

	seq := NewOpSequence(
		NewOpLoadMany([]string{filepath.Join(dir, "*.png")}),
		NewOpSave(filepath.Join(dir, "out%d.bmp")),
	)
	log := bytes.Buffer{}
	c := NewContext(&log, 2)
	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	outs, err := MaterializeAll(promises, c.MaxThreads, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 2 {
		t.Fatalf("got %d images; want 2", len(outs))
	}
	for id := 0; id < 2; id++ {
		back, err := imgio.ReadFile(filepath.Join(dir, "out"+string(rune('0'+id))+".bmp"), id)
		if err != nil {
			t.Fatal(err)
		}
		if back.Channels[1].Data[5] != 77 {
			t.Errorf("image %d green=%f; want 77", id, back.Channels[1].Data[5])
		}
	}
	if !strings.Contains(log.String(), "Found 2 files.") {
		t.Errorf("log=%q", log.String())
	}
}

func TestRestrictPaths(t *testing.T) {
	c := NewContext(io.Discard, 1)
	c.RestrictPaths = true
	if _, err := NewOpLoad(0, "/etc/passwd").MakePromises(nil, c); !errors.Is(err, ErrPathNotAllowed) {
		t.Errorf("err=%v; want ErrPathNotAllowed", err)
	}
	_, err := NewOpSave("../out.png").Apply(plane.NewImage(plane.Gray, 1, 1), c)
	if !errors.Is(err, ErrPathNotAllowed) {
		t.Errorf("err=%v; want ErrPathNotAllowed", err)
	}
}

func TestLoadMissing(t *testing.T) {
	c := NewContext(io.Discard, 1)
	if _, err := NewOpLoadMany([]string{filepath.Join(t.TempDir(), "*.png")}).MakePromises(nil, c); err == nil {
		t.Errorf("loading no files succeeded")
	}
	promises, err := NewOpLoad(5, filepath.Join(t.TempDir(), "missing.png")).MakePromises(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := promises[0](); err == nil || !strings.HasPrefix(err.Error(), "5: ") {
		t.Errorf("err=%v; want error prefixed with image id", err)
	}
}

func TestSequenceJSON(t *testing.T) {
	seq := NewOpSequence(NewOpLoadMany([]string{"*.jpg"}), NewOpForEach(NewOpSave("x%02d.png")))
	bs, err := json.Marshal(seq)
	if err != nil {
		t.Fatal(err)
	}
	var back OpSequence
	if err := json.Unmarshal(bs, &back); err != nil {
		t.Fatalf("%s: %v", bs, err)
	}
	if len(back.Steps) != 2 {
		t.Fatalf("steps=%d; want 2", len(back.Steps))
	}
	lm, ok := back.Steps[0].(*OpLoadMany)
	if !ok || len(lm.FilePatterns) != 1 || lm.FilePatterns[0] != "*.jpg" {
		t.Errorf("step 0=%#v", back.Steps[0])
	}
	fe, ok := back.Steps[1].(*OpForEach)
	if !ok {
		t.Fatalf("step 1=%#v", back.Steps[1])
	}
	save, ok := fe.Operation.(*OpSave)
	if !ok || save.FileName(7) != "x07.png" || !save.Active {
		t.Errorf("operation=%#v", fe.Operation)
	}

	// Apply must be bound to the unmarshaled operator, not the defaults
	dir := t.TempDir()
	var s OpSave
	if err := json.Unmarshal([]byte(`{"type":"save","filePattern":"`+filepath.ToSlash(filepath.Join(dir, "s.png"))+`"}`), &s); err != nil {
		t.Fatal(err)
	}
	if _, err := s.OpUnaryBase.Apply(plane.NewImage(plane.Gray, 2, 2), NewContext(io.Discard, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "s.png")); err != nil {
		t.Errorf("save via base Apply: %v", err)
	}

	if _, err := UnmarshalOperator([]byte(`{"type":"nope"}`)); err == nil {
		t.Errorf("unknown type accepted")
	}
}
