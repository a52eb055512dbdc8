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
	"math/rand"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestAddOffset(t *testing.T) {
	for _, tc := range []struct{ value, offset, want int32 }{
		{1, 1, 2},
		{5, 2, 7},
		{1, -1, -1},
		{-1, 1, 1},
		{-1, -1, -2},
		{3, -3, -1},
		{3, -2, 1},
		{2, -3, -2},
		{-3, 3, 1},
		{-3, 2, -1},
		{-2, 3, 2},
		{1, 0, 1},
		{-4, 0, -4},
		{0, 0, 0},
	} {
		if got := AddOffset(tc.value, tc.offset); got != tc.want {
			t.Errorf("AddOffset(%d, %d) = %d, want %d", tc.value, tc.offset, got, tc.want)
		}
	}
}

func TestAddOffsetSymmetry(t *testing.T) {
	for v := int32(-40); v <= 40; v++ {
		if v == 0 {
			continue
		}
		for o := int32(-40); o <= 40; o++ {
			r := AddOffset(v, o)
			if r == 0 {
				t.Fatalf("AddOffset(%d, %d) hit zero", v, o)
			}
			if back := AddOffset(r, -o); back != v {
				t.Errorf("AddOffset(AddOffset(%d, %d), %d) = %d", v, o, -o, back)
			}
		}
	}
}

// Starting from zero is the one place where the round trip breaks: zero
// is not a valid index, so the way back lands on 1.
func TestAddOffsetZeroBoundary(t *testing.T) {
	if got := AddOffset(0, 3); got != 4 {
		t.Errorf("AddOffset(0, 3) = %d, want 4", got)
	}
	if got := AddOffset(AddOffset(0, 3), -3); got != 1 {
		t.Errorf("round trip from 0 = %d, want 1", got)
	}
	if got := AddOffset(0, -1); got != -2 {
		t.Errorf("AddOffset(0, -1) = %d, want -2", got)
	}
}

func TestAddOffsetF(t *testing.T) {
	got := AddOffsetF(FVec3{1, -1, 2.5}, IVec3{-1, 1, 0})
	if want := (FVec3{-1, 1, 2.5}); got != want {
		t.Errorf("AddOffsetF = %v, want %v", got, want)
	}
}

func TestMakeChunk(t *testing.T) {
	const w = 6
	for _, tc := range []struct{ raw, want int32 }{
		{1, 1}, {6, 6}, {7, 1}, {12, 6}, {13, 1},
		{-1, 6}, {-6, 1}, {-7, 6}, {-12, 1}, {0, 1},
	} {
		if got := MakeChunk(IVec3{tc.raw, tc.raw, tc.raw}, w); got != (IVec3{tc.want, tc.want, tc.want}) {
			t.Errorf("MakeChunk(%d) = %v, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestMakeChunkRange(t *testing.T) {
	for w := int32(1); w <= 10; w++ {
		for n := int32(-200); n <= 200; n++ {
			c := MakeChunk(IVec3{n, n, n}, w)
			for _, v := range c {
				if v < 1 || v > w {
					t.Fatalf("MakeChunk(%d, %d) = %v out of range", n, w, c)
				}
			}
			if n == 0 {
				continue
			}
			// same as folding the dense index
			d := dense(n) % w
			if d < 0 {
				d += w
			}
			if c[0] != d+1 {
				t.Errorf("MakeChunk(%d, %d) = %d, want %d", n, w, c[0], d+1)
			}
		}
	}
}

func TestRegionOfAndGlobalChunk(t *testing.T) {
	const w = 6
	size := IVec3{10, 10, 10}
	for _, off := range []Offset{{}, {Chunk: IVec3{-13, 4, 0}}, {Region: IVec3{2, -1, 0}}} {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 2000; i++ {
			p := FVec3{
				rng.Float64()*4000 - 2000,
				rng.Float64()*4000 - 2000,
				rng.Float64()*4000 - 2000,
			}
			k := keyOf(p, size, w, off)
			if k.Region.HasZero() {
				t.Fatalf("%v: region %v has a zero axis", p, k.Region)
			}
			origin := globalChunk(k.Region, k.Chunk, w, off).Add(off.Chunk).MulVec(size)
			dim := DimensionInfo{Type: ChunkTypeCube, Size: size}
			if !Belongs(dim, FVec3{float64(origin[0]), float64(origin[1]), float64(origin[2])}, p) {
				t.Fatalf("offset %v: %v mapped to %v anchored at %v", off, p, k, origin)
			}
		}
	}
}

func TestKeyOfScenario(t *testing.T) {
	k := keyOf(FVec3{25, 0, 25}, IVec3{10, 10, 10}, 6, Offset{})
	if want := (TensorKey{Region: IVec3{1, 1, 1}, Chunk: IVec3{3, 1, 3}}); k != want {
		t.Errorf("keyOf = %v, want %v", k, want)
	}
	k = keyOf(FVec3{-0.5, -61, 59.9}, IVec3{10, 10, 10}, 6, Offset{})
	if want := (TensorKey{Region: IVec3{-1, -2, 1}, Chunk: IVec3{6, 6, 6}}); k != want {
		t.Errorf("keyOf = %v, want %v", k, want)
	}
}

func TestMathNeighbour(t *testing.T) {
	const w = 6
	o := NewObserver(zaptest.NewLogger(t))
	o.SetWorldMetrics(IVec3{10, 10, 10}, w)

	for _, g := range []IVec3{{1, 1, 1}, {6, -1, 7}, {-6, 13, -13}, {40, -41, 2}} {
		o.SetTarget(1)
		o.SetChunk(g)
		o.MoveRegion(RegionDelta(o.Region(), regionOf(g, w, Offset{})))

		for x := int32(-14); x <= 14; x++ {
			for y := int32(-2); y <= 2; y++ {
				for z := int32(-14); z <= 14; z += 3 {
					d := IVec3{x, y, z}
					region, chunk := o.MathNeighbour(d)
					var n IVec3
					for i := range n {
						n[i] = sparse(dense(g[i]) + d[i])
					}
					wantRegion, wantChunk := regionOf(n, w, Offset{}), MakeChunk(n, w)
					if region != wantRegion || chunk != wantChunk {
						t.Fatalf("from %v by %v: got %v/%v, want %v/%v",
							g, d, region, chunk, wantRegion, wantChunk)
					}
				}
			}
		}
	}
}

func TestMoveRegion(t *testing.T) {
	o := NewObserver(zaptest.NewLogger(t))
	o.SetWorldMetrics(IVec3{10, 10, 10}, 6)

	o.MoveRegion(RegionDelta(o.Region(), IVec3{-1, 2, 1}))
	if got := o.Region(); got != (IVec3{-1, 2, 1}) {
		t.Fatalf("first move = %v", got)
	}
	path := []IVec3{{1, 1, 1}, {-3, -1, 2}, {5, -7, -1}, {-1, 1, -1}}
	for _, target := range path {
		o.MoveRegion(RegionDelta(o.Region(), target))
		if got := o.Region(); got != target {
			t.Errorf("move to %v landed on %v", target, got)
		}
		if o.Region().HasZero() {
			t.Errorf("region %v has a zero axis", o.Region())
		}
	}
}

func TestMoveRegionCarriesOverZero(t *testing.T) {
	o := NewObserver(zaptest.NewLogger(t))
	o.SetWorldMetrics(IVec3{10, 10, 10}, 6)
	o.MoveRegion(IVec3{-1, -1, -1})
	o.MoveRegion(IVec3{2, 1, -1})
	if got, want := o.Region(), (IVec3{2, 1, -2}); got != want {
		t.Errorf("MoveRegion = %v, want %v", got, want)
	}
}

func TestSetTargetResets(t *testing.T) {
	o := NewObserver(zaptest.NewLogger(t))
	o.SetWorldMetrics(IVec3{10, 10, 10}, 6)
	o.SetTarget(7)
	o.SetChunk(IVec3{3, 3, 3})
	o.MoveRegion(IVec3{1, 1, 1})
	o.targetPosition = FVec3{1, 2, 3}

	o.SetTarget(9)
	if h, ok := o.Target(); !ok || h != 9 {
		t.Errorf("Target() = %v, %v", h, ok)
	}
	if !o.Region().IsZero() || !o.Chunk().IsZero() || !o.TargetPosition().IsZero() {
		t.Errorf("state kept after SetTarget: %v %v %v", o.Region(), o.Chunk(), o.TargetPosition())
	}
}
