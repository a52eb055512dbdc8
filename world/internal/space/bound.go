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

// AABB is an axis aligned box covering [Lower, Upper).
type AABB[I Number] struct {
	Upper, Lower Vec3[I]
}

// Box builds the AABB starting at origin with the given extent.
func Box[I Number](origin, size Vec3[I]) AABB[I] {
	return AABB[I]{Lower: origin, Upper: origin.Add(size)}
}

// Contains reports whether point lies inside the box. The lower face is
// inclusive and the upper face exclusive, so neighbouring boxes never
// both claim a point.
func (b AABB[I]) Contains(point Vec3[I]) bool {
	return b.Lower.LessEq(point) && point.Less(b.Upper)
}

// Touch reports whether the two boxes overlap with a non-empty volume.
func (b AABB[I]) Touch(other AABB[I]) bool {
	return b.Lower.Less(other.Upper) && other.Lower.Less(b.Upper)
}

func (b AABB[I]) Union(other AABB[I]) AABB[I] {
	return AABB[I]{
		Upper: b.Upper.Max(other.Upper),
		Lower: b.Lower.Min(other.Lower),
	}
}

// Surface returns half of the box surface area, which is all the tree
// needs to compare insertion costs.
func (b AABB[I]) Surface() I {
	d := b.Upper.Sub(b.Lower)
	return d[0]*d[1] + d[1]*d[2] + d[2]*d[0]
}

// Translate moves the box by delta.
func (b AABB[I]) Translate(delta Vec3[I]) AABB[I] {
	return AABB[I]{Upper: b.Upper.Add(delta), Lower: b.Lower.Add(delta)}
}
