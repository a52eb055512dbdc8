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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	want := DefaultConfig()
	want.ChunkWidth = 16
	want.RegionWidth = 8
	want.Scope = 4

	for _, tc := range []struct {
		name, content string
	}{
		{"World.xml", `<?xml version="1.0" encoding="utf-8"?>
<Configs>
	<ChunkType Value="Cube"/>
	<DefaultCubeChunkWidth Value="16"/>
	<DefaultRegionWidth Value=" 8 "/>
	<DefaultScope Value="4"/>
</Configs>`},
		{"world.toml", `
ChunkType = "Cube"
DefaultCubeChunkWidth = 16
DefaultRegionWidth = 8
DefaultScope = 4
`},
		{"world.yaml", `
ChunkType: Cube
DefaultCubeChunkWidth: 16
DefaultRegionWidth: 8
DefaultScope: 4
`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadConfig(writeConfig(t, tc.name, tc.content))
			require.NoError(t, err)
			assert.Equal(t, want, got)

			dim, err := got.Dimension()
			require.NoError(t, err)
			assert.Equal(t, IVec3{16, 10, 10}, dim.Size)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	got, err := LoadConfig(writeConfig(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)

	got, err = LoadConfig(writeConfig(t, "World.xml", "<Configs></Configs>"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)
}

func TestLoadConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name, file, content string
		err                 error
	}{
		{"chunk type", "World.xml", `<Configs><ChunkType Value="Sphere"/></Configs>`, ErrUnknownChunkType},
		{"xml number", "World.xml", `<Configs><DefaultScope Value="far"/></Configs>`, ErrInvalidConfig},
		{"xml root", "World.xml", `<Settings></Settings>`, ErrInvalidConfig},
		{"toml key", "world.toml", "DefaultScope = 3\nViewDistance = 8\n", ErrInvalidConfig},
		{"yaml field", "world.yaml", "ViewDistance: 8\n", ErrInvalidConfig},
		{"region width", "world.toml", "DefaultRegionWidth = 0\n", ErrInvalidConfig},
		{"negative scope", "world.yaml", "DefaultScope: -1\n", ErrInvalidConfig},
		{"extension", "world.json", "{}", ErrUnknownConfigFormat},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.file, tc.content))
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
