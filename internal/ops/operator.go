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
	"fmt"
	"io"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/mlnoga/pixfilter/internal/plane"
	"github.com/pbnjay/memory"
)

// Memory assumed per image in flight, including intermediate planes
const ImageFootprintMB = 256

// An execution context for operators
type Context struct {
	Log           io.Writer
	MemoryMB      int  // memory.TotalMemory()/1024/1024
	ImageMemoryMB int  // MemoryMB*7/10
	MaxThreads    int  `json:"maxThreads"`
	Quality       int  `json:"quality"`       // JPEG output quality
	RestrictPaths bool `json:"restrictPaths"` // only relative paths inside the current tree
}

// Creates a context. Threads default to GOMAXPROCS, and are capped by the memory budget
func NewContext(log io.Writer, maxThreads int) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
	}
	imageMemoryMB := memoryMB * 7 / 10
	if byMemory := imageMemoryMB / ImageFootprintMB; byMemory >= 1 && byMemory < maxThreads {
		maxThreads = byMemory
	}
	return &Context{
		Log:           log,
		MemoryMB:      memoryMB,
		ImageMemoryMB: imageMemoryMB,
		MaxThreads:    maxThreads,
		Quality:       95,
	}
}

// Pretty print the resource limits
func (c *Context) String() string {
	return fmt.Sprintf("%d threads, %s of %s memory for images", c.MaxThreads,
		humanize.IBytes(uint64(c.ImageMemoryMB)<<20), humanize.IBytes(uint64(c.MemoryMB)<<20))
}

// A promise for an image. Returns a materialized image, or an error
type Promise func() (img *plane.Image, err error)

// Materializes all promises with given concurrency limit
func MaterializeAll(ins []Promise, maxThreads int, forget bool) (outs []*plane.Image, err error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	if !forget {
		outs = make([]*plane.Image, len(ins))
	}
	limiter := make(chan bool, maxThreads)
	errs := make(chan error, len(ins))
	for i, in := range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			img, err := theIn() // materialize the promise
			if err != nil {
				errs <- err
				return
			}
			if !forget {
				outs[i] = img
			}
			errs <- nil
		}(i, in)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	for i := 0; i < len(ins); i++ { // collect errors
		e := <-errs
		if e != nil {
			if err == nil {
				err = e
			} else {
				err = fmt.Errorf("%s; %s", err.Error(), e.Error())
			}
		}
	}
	return RemoveNils(outs), err
}

// Remove nils from an array of images, editing the underlying array in place
func RemoveNils(imgs []*plane.Image) []*plane.Image {
	o := 0
	for i := 0; i < len(imgs); i++ {
		if imgs[i] != nil {
			imgs[o] = imgs[i]
			o++
		}
	}
	for i := o; i < len(imgs); i++ {
		imgs[i] = nil
	}
	return imgs[:o]
}

// An general image processing operator: takes n promises as inputs,
// and produces m promises as output or an error
type Operator interface {
	GetType() string
	IsActive() bool
	MakePromises(ins []Promise, c *Context) (outs []Promise, err error)
}

// Base type for operators, including type information for JSON serializing/deserializing
type OpBase struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool  { return op.Active }

// Factory method for operators. For JSON serializing/deserializing
type OperatorFactory func() Operator

// Mapping from operator type strings to factory method for the type
var operatorFactories = map[string]OperatorFactory{}

// Returns the operator factory for a given type string
func GetOperatorFactory(t string) OperatorFactory {
	return operatorFactories[t]
}

// Registers a factory under the type string of the operator it creates
func SetOperatorFactory(f OperatorFactory) {
	op := f()
	t := op.GetType()
	if GetOperatorFactory(t) != nil {
		panic(fmt.Sprintf("error: re-registering operator key %s\n", t))
	}
	operatorFactories[t] = f
}

// Unmarshals a single polymorphic operator from JSON, using the factory registered for its type
func UnmarshalOperator(raw []byte) (Operator, error) {
	var base OpBase
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}
	factory := GetOperatorFactory(base.Type)
	if factory == nil {
		return nil, fmt.Errorf("unknown operator type '%s' in raw JSON message '%s'", base.Type, string(raw))
	}
	op := factory()
	if err := json.Unmarshal(raw, op); err != nil {
		return nil, err
	}
	return op, nil
}

// A unary image processing operator: given n promises as inputs,
// applies itself to each of them individually and returns n output promises or an error
type OperatorUnary interface {
	Operator
	Apply(img *plane.Image, c *Context) (result *plane.Image, err error)
}

// Abstract base type for unary operators. Subtypes assign their Apply method
// to the Apply field on construction and after unmarshaling
type OpUnaryBase struct {
	OpBase
	Apply func(img *plane.Image, c *Context) (result *plane.Image, err error) `json:"-"`
}

func (op *OpUnaryBase) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("%s operator with %d inputs", op.Type, len(ins))
	}
	outs = make([]Promise, len(ins))
	for i, in := range ins {
		outs[i] = op.MakePromise(in, c)
	}
	return outs, nil
}

func (op *OpUnaryBase) MakePromise(in Promise, c *Context) (out Promise) {
	return func() (img *plane.Image, err error) {
		if img, err = in(); err != nil {
			return nil, err // materialize input promise
		}
		if img, err = op.Apply(img, c); err != nil {
			return nil, err // apply unary operator
		}
		return img, nil
	}
}

// Applies a sequence of operators to a promise. Number of inputs, outputs as per the chained steps
type OpSequence struct {
	OpBase
	Steps    []Operator        `json:"-"`     // the actual steps
	StepsRaw []json.RawMessage `json:"steps"` // helper for unmarshaling
}

func init() { SetOperatorFactory(func() Operator { return NewOpSequenceDefault() }) } // register the operator for JSON decoding

func NewOpSequenceDefault() *OpSequence { return NewOpSequence() }

func NewOpSequence(steps ...Operator) *OpSequence {
	return &OpSequence{
		OpBase: OpBase{Type: "seq", Active: true},
		Steps:  steps,
	}
}

// Unmarshals a sequence of polymorphic operators from JSON via the temporary op.StepsRaw
func (op *OpSequence) UnmarshalJSON(b []byte) error {
	type alias OpSequence
	def := alias(*NewOpSequenceDefault())
	if err := json.Unmarshal(b, &def); err != nil {
		return err
	}
	*op = OpSequence(def)

	for _, raw := range op.StepsRaw {
		step, err := UnmarshalOperator(raw)
		if err != nil {
			return err
		}
		op.Steps = append(op.Steps, step)
	}
	op.StepsRaw = nil
	return nil
}

// Appends one or more operators to the existing sequence
func (op *OpSequence) Append(steps ...Operator) {
	op.Steps = append(op.Steps, steps...)
}

// Marshals a sequence with polymorphic operators to JSON.
// Uses the actual op.Steps with label "steps", and ignores op.StepsRaw
func (op *OpSequence) MarshalJSON() (bs []byte, err error) {
	buf := bytes.Buffer{}
	buf.WriteString("{\"type\":")
	inner, err := json.Marshal(op.Type)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	fmt.Fprintf(&buf, ",\"active\":%v,\"steps\":", op.Active)
	steps := op.Steps
	if steps == nil {
		steps = []Operator{}
	}
	inner, err = json.Marshal(steps)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	buf.WriteRune('}')
	return buf.Bytes(), nil
}

func (op *OpSequence) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if !op.Active {
		return ins, nil
	}
	return op.applyRecursive(op.Steps, ins, c)
}

func (op *OpSequence) applyRecursive(steps []Operator, ins []Promise, c *Context) (outs []Promise, err error) {
	if len(steps) == 0 {
		return ins, nil
	}
	if steps[0].IsActive() {
		if ins, err = steps[0].MakePromises(ins, c); err != nil {
			return nil, err
		}
	}
	return op.applyRecursive(steps[1:], ins, c)
}

// Applies a single operator to each input. Takes n inputs, produces n outputs
type OpForEach struct {
	OpBase
	Operation Operator `json:"operation"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpForEachDefault() }) } // register the operator for JSON decoding

func NewOpForEachDefault() *OpForEach { return NewOpForEach(nil) }

func NewOpForEach(operation Operator) *OpForEach {
	return &OpForEach{
		OpBase:    OpBase{Type: "forEach", Active: operation != nil},
		Operation: operation,
	}
}

// Unmarshals the polymorphic embedded operation from JSON
func (op *OpForEach) UnmarshalJSON(b []byte) error {
	var raw struct {
		OpBase
		Operation json.RawMessage `json:"operation"`
	}
	raw.OpBase = OpBase{Type: "forEach", Active: true}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	op.OpBase = raw.OpBase
	op.Operation = nil
	if len(raw.Operation) > 0 && string(raw.Operation) != "null" {
		operation, err := UnmarshalOperator(raw.Operation)
		if err != nil {
			return err
		}
		op.Operation = operation
	}
	return nil
}

// Applies the operation to each input separately
func (op *OpForEach) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) == 0 {
		return ins, nil
	}
	if op.Operation == nil {
		return nil, fmt.Errorf("%s operator has no operation to apply", op.Type)
	}
	for _, in := range ins {
		out, err := op.Operation.MakePromises([]Promise{in}, c)
		if err != nil {
			return nil, err
		}
		if len(out) != 1 {
			return nil, errors.New(op.Type + " operator needs exactly one promise from embedded operation")
		}
		outs = append(outs, out[0])
	}
	return outs, nil
}
