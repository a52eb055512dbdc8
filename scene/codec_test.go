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

package scene_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StreamCore/scene"
)

func TestMarshalRelativeToLocalOrigin(t *testing.T) {
	root := scene.NewEntity("crate", true)
	root.Transform.Translation = scene.Position{105, 0, 5}
	lid := scene.NewEntity("lid", true)
	lid.Transform.Translation = scene.Position{0, 1, 0}
	require.NoError(t, root.AddChild(lid))

	data, err := root.Marshal(scene.SaveContext{LocalOrigin: [3]float64{-100, 0, 0}})
	require.NoError(t, err)

	got, err := scene.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, root.UUID, got.UUID)
	assert.Equal(t, "crate", got.Name)
	assert.True(t, got.Space3D())
	assert.Equal(t, scene.Position{5, 0, 5}, got.Transform.Translation)
	assert.Equal(t, scene.NilHandle, got.Handle())

	require.Len(t, got.Children(), 1)
	child := got.Children()[0]
	assert.Equal(t, lid.UUID, child.UUID)
	assert.Same(t, got, child.Parent())
	// children stay relative to their parent
	assert.Equal(t, scene.Position{0, 1, 0}, child.Transform.Translation)
}

func TestMarshalIgnoresOriginForFlatEntities(t *testing.T) {
	flat := scene.NewEntity("ui", false)
	flat.Transform.Translation = scene.Position{1, 2, 3}

	data, err := flat.Marshal(scene.SaveContext{LocalOrigin: [3]float64{-100, -100, -100}})
	require.NoError(t, err)
	got, err := scene.Unmarshal(data)
	require.NoError(t, err)

	assert.False(t, got.Space3D())
	assert.Equal(t, scene.Position{1, 2, 3}, got.Transform.Translation)
}

func TestUnmarshalMalformed(t *testing.T) {
	_, err := scene.Unmarshal([]byte{0x0a, 0x00})
	assert.ErrorIs(t, err, scene.ErrMalformedEntity)
}
