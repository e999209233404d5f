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

package stats

import (
	"sync"
)

// Pool of constant sized scratch arrays of a given element type, to reduce memory allocation overhead
type sizedPool[T any] struct {
	sync.RWMutex
	m map[int]*sync.Pool
}

func newSizedPool[T any]() *sizedPool[T] {
	return &sizedPool[T]{m: make(map[int]*sync.Pool)}
}

// Returns the pool for arrays of the given size, creating it if necessary
func (p *sizedPool[T]) pool(size int) *sync.Pool {
	p.RLock()
	pool := p.m[size]
	p.RUnlock()
	if pool != nil {
		return pool
	}
	p.Lock()
	defer p.Unlock()
	if pool = p.m[size]; pool == nil {
		pool = &sync.Pool{New: func() interface{} { return make([]T, size) }}
		p.m[size] = pool
	}
	return pool
}

// Retrieves an array of given size from the pool. Contents are undefined
func (p *sizedPool[T]) Get(size int) []T {
	return p.pool(size).Get().([]T)
}

// Returns an array to the pool
func (p *sizedPool[T]) Put(arr []T) {
	p.pool(cap(arr)).Put(arr[:cap(arr)])
}

var poolFloat32 = newSizedPool[float32]()
var poolFloat64 = newSizedPool[float64]()

// Retrieves an array of given size from pool
func GetArrayOfFloat32FromPool(size int) []float32 { return poolFloat32.Get(size) }

// Returns an array of given size to the pool
func PutArrayOfFloat32IntoPool(arr []float32) { poolFloat32.Put(arr) }

// Retrieves an array of given size from pool
func GetArrayOfFloat64FromPool(size int) []float64 { return poolFloat64.Get(size) }

// Returns an array of given size to the pool
func PutArrayOfFloat64IntoPool(arr []float64) { poolFloat64.Put(arr) }
