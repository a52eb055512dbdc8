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

package space

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Number is the set of component types a vector can hold.
type Number interface {
	constraints.Signed | constraints.Float
}

// Vec3 is a three component vector used for both integer cell
// addresses and floating point world positions.
type Vec3[I Number] [3]I

func (v Vec3[I]) Add(other Vec3[I]) Vec3[I] {
	return Vec3[I]{v[0] + other[0], v[1] + other[1], v[2] + other[2]}
}

func (v Vec3[I]) Sub(other Vec3[I]) Vec3[I] {
	return Vec3[I]{v[0] - other[0], v[1] - other[1], v[2] - other[2]}
}

func (v Vec3[I]) Mul(i I) Vec3[I] { return Vec3[I]{v[0] * i, v[1] * i, v[2] * i} }

// MulVec multiplies component by component.
func (v Vec3[I]) MulVec(other Vec3[I]) Vec3[I] {
	return Vec3[I]{v[0] * other[0], v[1] * other[1], v[2] * other[2]}
}

func (v Vec3[I]) Neg() Vec3[I] { return Vec3[I]{-v[0], -v[1], -v[2]} }

func (v Vec3[I]) Max(other Vec3[I]) Vec3[I] {
	return Vec3[I]{max(v[0], other[0]), max(v[1], other[1]), max(v[2], other[2])}
}

func (v Vec3[I]) Min(other Vec3[I]) Vec3[I] {
	return Vec3[I]{min(v[0], other[0]), min(v[1], other[1]), min(v[2], other[2])}
}

// Less reports whether every component of v is strictly less than other's.
func (v Vec3[I]) Less(other Vec3[I]) bool {
	return v[0] < other[0] && v[1] < other[1] && v[2] < other[2]
}

// LessEq reports whether every component of v is less than or equal to other's.
func (v Vec3[I]) LessEq(other Vec3[I]) bool {
	return v[0] <= other[0] && v[1] <= other[1] && v[2] <= other[2]
}

func (v Vec3[I]) Norm() float64 { return math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])) }

func (v Vec3[I]) Sum() I { return v[0] + v[1] + v[2] }

// HasZero reports whether any component is zero.
func (v Vec3[I]) HasZero() bool { return v[0] == 0 || v[1] == 0 || v[2] == 0 }

func (v Vec3[I]) IsZero() bool { return v[0] == 0 && v[1] == 0 && v[2] == 0 }

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3[I]) IsFinite() bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func (v Vec3[I]) String() string {
	return fmt.Sprintf("(%v, %v, %v)", v[0], v[1], v[2])
}

// Convert casts every component of v to another number type.
func Convert[O, I Number](v Vec3[I]) Vec3[O] {
	return Vec3[O]{O(v[0]), O(v[1]), O(v[2])}
}
