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

	"golang.org/x/exp/maps"

	"StreamCore/scene"
)

// TensorKey addresses the bucket of one chunk.
type TensorKey struct {
	Region IVec3
	Chunk  IVec3
}

func (k TensorKey) less(o TensorKey) bool {
	if k.Region != o.Region {
		return lessVec(k.Region, o.Region)
	}
	return lessVec(k.Chunk, o.Chunk)
}

// lessVec orders positions by Z, then Y, then X.
func lessVec(a, b IVec3) bool {
	for i := 2; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func sortVecs(v []IVec3) []IVec3 {
	sort.Slice(v, func(i, j int) bool { return lessVec(v[i], v[j]) })
	return v
}

// Tensor buckets the root 3D entities of the scene by the chunk they
// stand in. It is rebuilt from scratch every tick.
type Tensor map[TensorKey][]scene.Handle

// Keys returns the occupied keys in a stable order.
func (t Tensor) Keys() []TensorKey {
	keys := maps.Keys(t)
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// Len returns the number of entities in all buckets.
func (t Tensor) Len() (n int) {
	for _, b := range t {
		n += len(b)
	}
	return
}
