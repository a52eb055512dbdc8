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
	"sort"
)

// ScopeCheck reports whether the chunk at offset pos from the observer
// is inside a streaming scope of radius scope. The shape is an ellipsoid
// stretched along X and Y and limited to one chunk layer above and below.
// The observer's own chunk is not part of the scope.
func ScopeCheck(pos IVec3, scope int32) bool {
	if pos.IsZero() {
		return false
	}
	if abs(pos[1]) > 1 {
		return false
	}
	x, y, z := float64(pos[0]), float64(pos[1]), float64(pos[2])
	return x*x/3+y*y/3+z*z <= float64(scope)*float64(scope)
}

func scopeDistance(pos IVec3) float64 {
	x, y, z := float64(pos[0]), float64(pos[1]), float64(pos[2])
	return x*x/3 + y*y/3 + z*z
}

// scopeList caches the offsets accepted by ScopeCheck, nearest first, so
// the chunks closest to the observer are ticketed and loaded first.
type scopeList struct {
	scope   int32
	offsets []IVec3
}

func (l *scopeList) get(scope int32) []IVec3 {
	if l.offsets == nil || l.scope != scope {
		l.scope = scope
		l.offsets = calcScope(scope)
	}
	return l.offsets
}

func calcScope(scope int32) []IVec3 {
	offsets := []IVec3{}
	for x := -scope; x <= scope; x++ {
		for y := -scope; y <= scope; y++ {
			for z := -scope; z <= scope; z++ {
				if pos := (IVec3{x, y, z}); ScopeCheck(pos, scope) {
					offsets = append(offsets, pos)
				}
			}
		}
	}
	sort.SliceStable(offsets, func(i, j int) bool {
		return scopeDistance(offsets[i]) < scopeDistance(offsets[j])
	})
	return offsets
}
