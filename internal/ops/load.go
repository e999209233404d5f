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
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mlnoga/pixfilter/internal/imgio"
	"github.com/mlnoga/pixfilter/internal/plane"
)

var ErrPathNotAllowed = errors.New("path outside current directory tree")

// Load a single image from a single filename. Takes zero inputs, produces one output
type OpLoad struct {
	OpBase
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadDefault() }) } // register the operator for JSON decoding

func NewOpLoadDefault() *OpLoad { return NewOpLoad(0, "") }

func NewOpLoad(id int, fileName string) *OpLoad {
	return &OpLoad{
		OpBase:   OpBase{Type: "load", Active: true},
		ID:       id,
		FileName: fileName,
	}
}

// Load image from a file. Takes no inputs
func (op *OpLoad) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, fmt.Errorf("%s operator with non-zero input", op.Type)
	}
	if c.RestrictPaths && !isPathAllowed(op.FileName) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotAllowed, op.FileName)
	}

	out := func() (img *plane.Image, err error) {
		return op.Apply(nil, c) // no inputs to materialize
	}
	return []Promise{out}, nil
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func isPathAllowed(p string) bool {
	if filepath.IsAbs(p) {
		return false // relative paths only
	}
	if strings.Contains(p, "..") {
		return false // no going outside the tree
	}
	return true
}

// Reads the image. Ignores any image argument provided
func (op *OpLoad) Apply(img *plane.Image, c *Context) (result *plane.Image, err error) {
	img, err = imgio.ReadFile(op.FileName, op.ID)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", op.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Loaded %s image (%s) from %s\n",
		img.ID, img.DimensionsToString(), humanize.IBytes(uint64(img.Samples())*4), img.FileName)
	return img, nil
}

// Load many images from a slice of filename patterns with wildcards.
// Takes zero inputs, produces n outputs
type OpLoadMany struct {
	OpBase
	FilePatterns []string `json:"filePatterns"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadManyDefault() }) } // register the operator for JSON decoding

func NewOpLoadManyDefault() *OpLoadMany { return NewOpLoadMany(nil) }

func NewOpLoadMany(filePatterns []string) *OpLoadMany {
	return &OpLoadMany{
		OpBase:       OpBase{Type: "loadMany", Active: true},
		FilePatterns: filePatterns,
	}
}

// Turn filename wildcards into list of file load operators
func (op *OpLoadMany) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, fmt.Errorf("%s operator with non-zero input", op.Type)
	}
	for _, pattern := range op.FilePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if c.RestrictPaths && !isPathAllowed(match) {
				fmt.Fprintf(c.Log, "Pattern match %s outside current directory tree, skipping\n", match)
				continue
			}
			opLoad := NewOpLoad(len(outs), match)
			promises, err := opLoad.MakePromises(nil, c)
			if err != nil {
				return nil, err
			}
			outs = append(outs, promises...)
		}
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%s operator with no files to load from pattern %v", op.Type, op.FilePatterns)
	}
	fmt.Fprintf(c.Log, "Found %d files.\n", len(outs))
	return outs, nil
}

// Saves given promise under a given filename, with pattern expansion for %d based on the image id.
// Takes one input, produces one output (the materialized but unchanged input)
type OpSave struct {
	OpUnaryBase
	FilePattern string `json:"filePattern"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveDefault() }) } // register the operator for JSON decoding

func NewOpSaveDefault() *OpSave { return NewOpSave("") }

func NewOpSave(filenamePattern string) *OpSave {
	op := OpSave{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "save", Active: filenamePattern != ""}},
		FilePattern: filenamePattern,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSave) UnmarshalJSON(data []byte) error {
	type defaults OpSave
	def := defaults(*NewOpSaveDefault())
	def.Active = true
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpSave(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Returns the file name for the given image id
func (op *OpSave) FileName(id int) string {
	if strings.Contains(op.FilePattern, "%") {
		return fmt.Sprintf(op.FilePattern, id)
	}
	return op.FilePattern
}

func (op *OpSave) Apply(img *plane.Image, c *Context) (result *plane.Image, err error) {
	if !op.Active || op.FilePattern == "" {
		return img, nil
	}
	fileName := op.FileName(img.ID)
	if c.RestrictPaths && !isPathAllowed(fileName) {
		return nil, fmt.Errorf("%d: %w: %s", img.ID, ErrPathNotAllowed, fileName)
	}
	fmt.Fprintf(c.Log, "%d: Writing %s pixel %v image to %s\n", img.ID, img.DimensionsToString(), img.Order, fileName)
	if err := imgio.WriteFile(fileName, img, c.Quality); err != nil {
		return nil, fmt.Errorf("%d: error writing to file %s: %w", img.ID, fileName, err)
	}
	return img, nil
}
