// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package world

import (
	"math"

	"golang.org/x/exp/constraints"

	"StreamCore/world/internal/space"
)

type (
	// IVec3 addresses regions and chunks.
	IVec3 = space.Vec3[int32]
	// FVec3 is a position in world space.
	FVec3 = space.Vec3[float64]
)

// Offset is the drift of the world origin accumulated by origin shifts,
// measured in regions and in chunks. The zero value is no drift.
type Offset struct {
	Region IVec3
	Chunk  IVec3
}

// AddOffset adds offset to value in a numbering that has no zero:
// ..., -2, -1, 1, 2, ...  Stepping across zero skips it.
// AddOffset(0, 0) is 0.
func AddOffset(value, offset int32) int32 {
	return addOffset(value, offset)
}

// AddOffsetVec is AddOffset applied to every axis.
func AddOffsetVec(value, offset IVec3) IVec3 {
	return IVec3{
		addOffset(value[0], offset[0]),
		addOffset(value[1], offset[1]),
		addOffset(value[2], offset[2]),
	}
}

// AddOffsetF is the floating point form of AddOffsetVec.
func AddOffsetF(value FVec3, offset IVec3) FVec3 {
	return FVec3{
		addOffset(value[0], float64(offset[0])),
		addOffset(value[1], float64(offset[1])),
		addOffset(value[2], float64(offset[2])),
	}
}

func addOffset[T constraints.Signed | constraints.Float](value, offset T) T {
	r := value + offset
	if offset != 0 && ((offset >= r && r > 0) || (offset <= r && r < 0)) {
		r += sign(r)
	} else if r == 0 {
		r += sign(offset)
	}
	return r
}

// MakeChunk folds a chunk index into the [1, width] range of a region on
// every axis. Negative indices fold to the top of the range, so -1 maps
// to width.
func MakeChunk(raw IVec3, width int32) IVec3 {
	return IVec3{
		makeChunk(raw[0], width),
		makeChunk(raw[1], width),
		makeChunk(raw[2], width),
	}
}

func makeChunk(c, width int32) int32 {
	orig := c
	if c > width || c < -width {
		c %= width
	}
	switch {
	case c == 0 && orig > 0:
		return width
	case c == 0:
		return 1
	case orig > 0:
		return c
	default:
		return width - (abs(c) - 1)
	}
}

// dense maps a zero-free index to the plain integers: 1 -> 0, -1 -> -1.
func dense(v int32) int32 {
	if v > 0 {
		return v - 1
	}
	return v
}

// sparse is the inverse of dense.
func sparse(v int32) int32 {
	if v >= 0 {
		return v + 1
	}
	return v
}

func denseVec(v IVec3) IVec3  { return IVec3{dense(v[0]), dense(v[1]), dense(v[2])} }
func sparseVec(v IVec3) IVec3 { return IVec3{sparse(v[0]), sparse(v[1]), sparse(v[2])} }

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// chunkIndex returns the zero-free global index of the chunk holding p
// on one axis, with the chunk drift of the origin removed.
func chunkIndex(p float64, size, drift int32) int32 {
	return sparse(int32(math.Floor(p/float64(size))) - drift)
}

// keyOf returns the region and local chunk holding the world position p.
func keyOf(p FVec3, size IVec3, width int32, off Offset) TensorKey {
	var g IVec3
	for i := range g {
		g[i] = chunkIndex(p[i], size[i], off.Chunk[i])
	}
	return TensorKey{Region: regionOf(g, width, off), Chunk: MakeChunk(g, width)}
}

// regionOf returns the region holding the zero-free global chunk g.
func regionOf(g IVec3, width int32, off Offset) IVec3 {
	var r IVec3
	for i := range r {
		r[i] = sparse(floorDiv(dense(g[i]), width))
	}
	return AddOffsetVec(r, off.Region.Neg())
}

// globalChunk is the inverse of regionOf and MakeChunk: the dense global
// chunk index addressed by region and local chunk.
func globalChunk(region, chunk IVec3, width int32, off Offset) IVec3 {
	r := AddOffsetVec(region, off.Region)
	var g IVec3
	for i := range g {
		g[i] = dense(r[i])*width + chunk[i] - 1
	}
	return g
}

// RegionDelta returns the step MoveRegion needs to go from one region to
// another. Axes where from is still zero get the target itself.
func RegionDelta(from, to IVec3) IVec3 {
	var d IVec3
	for i := range d {
		if from[i] == 0 {
			d[i] = to[i]
		} else {
			d[i] = dense(to[i]) - dense(from[i])
		}
	}
	return d
}

func sign[T constraints.Signed | constraints.Float](v T) T {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
