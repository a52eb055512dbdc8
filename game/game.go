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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"StreamCore/scene"
	"StreamCore/world"
)

var errUnknownStorage = errors.New("unknown storage")

// Game drives a streamed world: one scene, one observer walking through
// it and the chunk logic keeping the world around the observer resident.
type Game struct {
	log *zap.Logger

	config Config
	dir    string
	scene  *scene.Scene
	chunks *world.SceneChunkLogic
}

// NewGame opens the level storage, initializes the chunk logic and
// places the observer, either restored from level.toml or freshly spawned.
func NewGame(log *zap.Logger, config Config) (*Game, error) {
	worldConfig := world.DefaultConfig()
	if config.WorldConfig != "" {
		var err error
		if worldConfig, err = world.LoadConfig(config.WorldConfig); err != nil {
			return nil, err
		}
	}
	compression, err := world.ParseCompression(config.Compression)
	if err != nil {
		return nil, err
	}
	storage, err := createStorage(log.Named("storage"), config.LevelName, config.Storage, worldConfig.RegionWidth, compression)
	if err != nil {
		return nil, err
	}

	opts := []world.Option{world.WithLimiter(config.ChunkLoadingLimiter.Limiter())}
	if ttl := config.TicketTTL.Duration; ttl > 0 {
		opts = append(opts, world.WithTicketExpiry(world.TimeToLive{TTL: ttl}))
	}
	sc := scene.New(log.Named("scene"))
	chunks := world.NewSceneChunkLogic(log.Named("chunks"), sc, storage, worldConfig, opts...)
	if err := chunks.Init(); err != nil {
		_ = storage.Close()
		return nil, err
	}

	g := &Game{
		log:    log.Named("game"),
		config: config,
		dir:    config.LevelName,
		scene:  sc,
		chunks: chunks,
	}
	chunks.AddViewer(chunkLog{log: log.Named("viewer")})
	sc.AddUpdater(&walker{scene: sc, observer: chunks.Observer(), velocity: config.Walk})

	if err := g.placeObserver(); err != nil {
		_ = storage.Close()
		return nil, err
	}
	return g, nil
}

func createStorage(log *zap.Logger, dir, kind string, width int32, compression world.Compression) (world.Storage, error) {
	switch kind {
	case "region", "":
		return world.NewRegionStorage(log, filepath.Join(dir, "region"), width, compression)
	case "sqlite":
		return world.OpenSQLiteStorage(log, filepath.Join(dir, "chunks.db"), compression)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownStorage, kind)
}

// placeObserver follows the observer stored with the level, or spawns a
// new one.
func (g *Game) placeObserver() error {
	lv, err := readLevel(g.dir)
	switch {
	case err == nil:
		g.log.Info("Restore observer",
			zap.Stringer("uuid", lv.Observer),
			zap.Stringer("region", lv.Region),
			zap.Stringer("chunk", lv.Chunk))
		return g.chunks.RestoreObserver(lv.Observer, lv.Region, lv.Chunk)
	case errors.Is(err, os.ErrNotExist):
		e := scene.NewEntity("observer", true)
		e.Transform.Translation = g.config.Spawn
		h, err := g.scene.Register(e)
		if err != nil {
			return err
		}
		g.log.Info("Spawn observer", zap.Stringer("uuid", e.UUID), zap.Any("position", e.Transform.Translation))
		g.chunks.SetObserver(h)
		return g.chunks.InitializeRegions()
	default:
		return err
	}
}

// Run ticks the world until ctx is done, or for ticks ticks if ticks is
// positive.
func (g *Game) Run(ctx context.Context, ticks int) {
	ticker := time.NewTicker(g.config.TickInterval.Duration)
	defer ticker.Stop()
	saveC, stopSave := every(g.config.SaveInterval.Duration)
	defer stopSave()
	statsC, stopStats := every(g.config.StatsInterval.Duration)
	defer stopStats()

	last := time.Now()
	for n := 0; ticks <= 0 || n < ticks; {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.chunks.Update(now.Sub(last))
			last = now
			n++
		case <-saveC:
			if err := g.Save(); err != nil {
				g.log.Error("Save world fail", zap.Error(err))
			}
		case <-statsC:
			g.logStats()
		}
	}
}

// every returns a nil channel when d is not positive.
func every(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (g *Game) logStats() {
	s := g.chunks.Stats()
	g.log.Info("World stats",
		zap.Int("regions", s.Regions),
		zap.Int("chunks", s.Chunks),
		zap.Int("loaded", s.LoadedChunks),
		zap.Int("entities", s.Entities),
		zap.Int("scene", g.scene.Len()))
}

// Save persists the world and the observer.
func (g *Game) Save() error {
	err := g.chunks.Save()
	return multierr.Append(err, g.saveLevel())
}

func (g *Game) saveLevel() error {
	o := g.chunks.Observer()
	h, ok := o.Target()
	if !ok {
		return nil
	}
	e, ok := g.scene.Get(h)
	if !ok || o.Region().HasZero() {
		return nil
	}
	return writeLevel(g.dir, levelData{
		Observer: e.UUID,
		Region:   o.Region(),
		Chunk:    o.Chunk(),
		Saved:    time.Now().UTC().Truncate(time.Second),
	})
}

// Close saves everything and releases the storage.
func (g *Game) Close() error {
	err := g.saveLevel()
	return multierr.Append(err, g.chunks.Close())
}

func (g *Game) Scene() *scene.Scene            { return g.scene }
func (g *Game) Chunks() *world.SceneChunkLogic { return g.chunks }

// walker moves the observed entity at a constant velocity.
type walker struct {
	scene    *scene.Scene
	observer *world.Observer
	velocity [3]float64
}

func (w *walker) Update(dt time.Duration) {
	if w.velocity == ([3]float64{}) {
		return
	}
	h, ok := w.observer.Target()
	if !ok {
		return
	}
	e, ok := w.scene.Get(h)
	if !ok {
		return
	}
	s := dt.Seconds()
	e.Transform.Translation = e.Transform.Translation.Add([3]float64{
		w.velocity[0] * s,
		w.velocity[1] * s,
		w.velocity[2] * s,
	})
}

type chunkLog struct {
	log *zap.Logger
}

func (v chunkLog) ViewChunkLoad(region, chunk world.IVec3, entities int) {
	v.log.Debug("Chunk loaded",
		zap.Stringer("region", region),
		zap.Stringer("chunk", chunk),
		zap.Int("entities", entities))
}

func (v chunkLog) ViewChunkUnload(region, chunk world.IVec3) {
	v.log.Debug("Chunk unloaded", zap.Stringer("region", region), zap.Stringer("chunk", chunk))
}
