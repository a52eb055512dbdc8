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
	"os"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/save/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	logobserver "go.uber.org/zap/zaptest/observer"
)

func samplePayloads() map[IVec3][]byte {
	return map[IVec3][]byte{
		{1, 1, 1}: encodeChunkPayload(IVec3{1, 1, 1}, [][]byte{[]byte("first")}),
		{3, 2, 5}: encodeChunkPayload(IVec3{3, 2, 5}, [][]byte{[]byte("a"), []byte("b")}),
		{6, 6, 6}: encodeChunkPayload(IVec3{6, 6, 6}, nil),
	}
}

func TestSector(t *testing.T) {
	seen := make(map[[2]int]IVec3)
	for z := int32(1); z <= 10; z++ {
		for y := int32(1); y <= 10; y++ {
			for x := int32(1); x <= 10; x++ {
				sx, sz := Sector(IVec3{x, y, z}, 10)
				require.True(t, sx >= 0 && sx < 32 && sz >= 0 && sz < 32)
				if prev, ok := seen[[2]int{sx, sz}]; ok {
					t.Fatalf("chunks %v and %v share sector (%d, %d)", prev, IVec3{x, y, z}, sx, sz)
				}
				seen[[2]int{sx, sz}] = IVec3{x, y, z}
			}
		}
	}
	sx, sz := Sector(IVec3{1, 1, 1}, 6)
	assert.Equal(t, [2]int{0, 0}, [2]int{sx, sz})
	sx, sz = Sector(IVec3{6, 6, 6}, 6)
	assert.Equal(t, [2]int{215 % 32, 215 / 32}, [2]int{sx, sz})
}

func TestRegionStorageRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressGzip, CompressZlib, CompressNone, CompressZstd} {
		t.Run(c.String(), func(t *testing.T) {
			dir := t.TempDir()
			s, err := NewRegionStorage(zaptest.NewLogger(t), dir, 6, c)
			require.NoError(t, err)
			defer s.Close()

			pos := IVec3{-2, 1, 3}
			want := samplePayloads()
			require.NoError(t, s.WriteRegion(pos, want))
			assert.FileExists(t, filepath.Join(dir, "r.-2.1.3.mca"))
			assert.NoFileExists(t, s.RegionFile(pos)+".tmp")

			got, err := s.ReadRegion(pos)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// rewriting replaces the previous content
			delete(want, IVec3{3, 2, 5})
			require.NoError(t, s.WriteRegion(pos, want))
			got, err = s.ReadRegion(pos)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestRegionStorageEmpty(t *testing.T) {
	s, err := NewRegionStorage(zaptest.NewLogger(t), t.TempDir(), 6, CompressGzip)
	require.NoError(t, err)

	got, err := s.ReadRegion(IVec3{1, 1, 1})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.WriteRegion(IVec3{1, 1, 1}, samplePayloads()))
	require.NoError(t, s.WriteRegion(IVec3{1, 1, 1}, map[IVec3][]byte{}))
	assert.NoFileExists(t, s.RegionFile(IVec3{1, 1, 1}))

	err = s.WriteRegion(IVec3{1, 1, 1}, map[IVec3][]byte{{7, 1, 1}: []byte("x")})
	assert.ErrorIs(t, err, ErrChunkOutOfRange)
	assert.NoFileExists(t, s.RegionFile(IVec3{1, 1, 1}))
}

func TestRegionStorageTooWide(t *testing.T) {
	_, err := NewRegionStorage(zap.NewNop(), t.TempDir(), 11, CompressGzip)
	assert.ErrorIs(t, err, ErrRegionTooWide)
	_, err = NewRegionStorage(zap.NewNop(), t.TempDir(), 0, CompressGzip)
	assert.ErrorIs(t, err, ErrRegionTooWide)
	_, err = NewRegionStorage(zap.NewNop(), t.TempDir(), 10, CompressGzip)
	assert.NoError(t, err)
}

func TestRegionStorageSkipsCorruptSector(t *testing.T) {
	core, logs := logobserver.New(zapcore.ErrorLevel)
	s, err := NewRegionStorage(zap.New(core), t.TempDir(), 6, CompressGzip)
	require.NoError(t, err)

	good, err := CompressSector(CompressGzip, []byte("payload"))
	require.NoError(t, err)
	r, err := region.Create(s.RegionFile(IVec3{1, 1, 1}))
	require.NoError(t, err)
	require.NoError(t, r.WriteSector(0, 0, []byte{9, 1, 2, 3}))
	sx, sz := Sector(IVec3{2, 1, 1}, 6)
	require.NoError(t, r.WriteSector(sx, sz, good))
	require.NoError(t, r.PadToFullSector())
	require.NoError(t, r.Close())

	got, err := s.ReadRegion(IVec3{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, map[IVec3][]byte{{2, 1, 1}: []byte("payload")}, got)
	require.Equal(t, 1, logs.FilterMessage("Read chunk sector fail").Len())
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save", "world.db")
	s, err := OpenSQLiteStorage(zaptest.NewLogger(t), path, CompressZstd)
	require.NoError(t, err)

	want := samplePayloads()
	require.NoError(t, s.WriteRegion(IVec3{2, 1, 1}, want))
	require.NoError(t, s.WriteRegion(IVec3{-1, 1, 1}, map[IVec3][]byte{{1, 1, 1}: []byte("x")}))

	regions, err := s.Regions()
	require.NoError(t, err)
	assert.Equal(t, []IVec3{{-1, 1, 1}, {2, 1, 1}}, regions)
	require.NoError(t, s.Close())

	// reopen and read back
	s, err = OpenSQLiteStorage(zaptest.NewLogger(t), path, CompressGzip)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.ReadRegion(IVec3{2, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.WriteRegion(IVec3{2, 1, 1}, nil))
	got, err = s.ReadRegion(IVec3{2, 1, 1})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = OpenSQLiteStorage(zap.NewNop(), "", CompressGzip)
	assert.Error(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
