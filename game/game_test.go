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

package game

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StreamCore/world"
)

func testConfig(t *testing.T, storage string) Config {
	t.Helper()
	dir := t.TempDir()
	worldConfig := filepath.Join(dir, "World.toml")
	require.NoError(t, os.WriteFile(worldConfig, []byte("DefaultScope = 1\n"), 0o644))

	c := DefaultConfig()
	c.LevelName = filepath.Join(dir, "world")
	c.WorldConfig = worldConfig
	c.Storage = storage
	c.TickInterval = duration{time.Millisecond}
	c.SaveInterval = duration{}
	c.StatsInterval = duration{}
	c.Spawn = [3]float64{25, 5, 25}
	return c
}

func TestGameRestoresObserver(t *testing.T) {
	for _, storage := range []string{"region", "sqlite"} {
		t.Run(storage, func(t *testing.T) {
			log := zaptest.NewLogger(t)
			config := testConfig(t, storage)
			config.Walk = [3]float64{20, 0, 0}

			g, err := NewGame(log, config)
			require.NoError(t, err)
			g.Run(context.Background(), 5)
			h, ok := g.Chunks().Observer().Target()
			require.True(t, ok)
			e, ok := g.Scene().Get(h)
			require.True(t, ok)
			assert.Greater(t, e.Transform.Translation[0], 25.0)
			id := e.UUID
			require.NoError(t, g.Close())

			lv, err := readLevel(config.LevelName)
			require.NoError(t, err)
			assert.Equal(t, id, lv.Observer)
			assert.False(t, lv.Region.HasZero())

			config.Walk = [3]float64{}
			g, err = NewGame(log, config)
			require.NoError(t, err)
			defer g.Close()
			g.Run(context.Background(), 2)

			h, ok = g.Chunks().Observer().Target()
			require.True(t, ok)
			e, ok = g.Scene().Get(h)
			require.True(t, ok)
			assert.Equal(t, id, e.UUID)
			assert.Equal(t, 1, g.Scene().Len())
		})
	}
}

func TestGameRunStopsOnCancel(t *testing.T) {
	config := testConfig(t, "region")
	config.SaveInterval = duration{time.Millisecond}
	config.StatsInterval = duration{time.Millisecond}
	g, err := NewGame(zaptest.NewLogger(t), config)
	require.NoError(t, err)
	defer g.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	g.Run(ctx, 0)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	assert.Positive(t, g.Chunks().Stats().LoadedChunks)
}

func TestNewGameErrors(t *testing.T) {
	log := zaptest.NewLogger(t)

	config := testConfig(t, "tape")
	_, err := NewGame(log, config)
	assert.ErrorIs(t, err, errUnknownStorage)

	config = testConfig(t, "region")
	config.Compression = "lz4"
	_, err = NewGame(log, config)
	assert.ErrorIs(t, err, world.ErrUnknownCompression)

	config = testConfig(t, "region")
	config.WorldConfig = filepath.Join(t.TempDir(), "World.yaml")
	require.NoError(t, os.WriteFile(config.WorldConfig, []byte("ChunkType: Sphere\n"), 0o644))
	_, err = NewGame(log, config)
	assert.ErrorIs(t, err, world.ErrUnknownChunkType)

	config = testConfig(t, "region")
	require.NoError(t, os.MkdirAll(config.LevelName, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(config.LevelName, levelFile), []byte("seed = 1\n"), 0o644))
	_, err = NewGame(log, config)
	var unknown errUnknownLevelKeys
	assert.ErrorAs(t, err, &unknown)
}
