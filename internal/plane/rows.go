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

package plane

import (
	"runtime"
)

// A row function. Processes output rows [lower, upper). Must only write its own rows.
type RowFunction func(lower, upper int)

// Apply given row function to rows [0, height). Splits into 8*NumCPU() work packages
// and limits parallelism to NumCPU(). Returns when all rows are done.
func ApplyRows(height int, rf RowFunction) {
	if height <= 0 {
		return
	}
	numCPU := runtime.NumCPU()
	numBatches := 8 * numCPU
	batchSize := (height + numBatches - 1) / numBatches
	if numCPU == 1 || batchSize >= height {
		rf(0, height)
		return
	}

	sem := make(chan bool, numCPU)
	for lower := 0; lower < height; lower += batchSize {
		upper := lower + batchSize
		if upper > height {
			upper = height
		}

		sem <- true
		go func(lower, upper int) {
			rf(lower, upper)
			<-sem
		}(lower, upper)
	}

	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
}
