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
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"StreamCore/world/internal/space"
)

var ErrChunkOutOfRange = errors.New("chunk position out of region range")

// RegionCreateInfo describes a region about to be allocated.
type RegionCreateInfo struct {
	Log       *zap.Logger
	Width     int32
	Dimension DimensionInfo
	Position  IVec3

	host host
}

// RegionAllocator creates regions for the logic. Custom allocators must
// return the result of NewRegion, possibly after inspecting it.
type RegionAllocator func(info RegionCreateInfo) *Region

// Region is a cube of Width³ chunks and the unit of storage I/O.
type Region struct {
	log      *zap.Logger
	host     host
	width    int32
	dim      DimensionInfo
	position IVec3

	chunks map[IVec3]*Chunk
	// cached holds the stored payload of every chunk of the region,
	// loaded or not, as last read or saved.
	cached map[IVec3][]byte

	containsObserver atomic.Bool
}

// NewRegion creates an empty region. Chunks are created on demand by
// InitializeChunk.
func NewRegion(info RegionCreateInfo) *Region {
	log := info.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Region{
		log:      log.With(zap.Stringer("region", info.Position)),
		host:     info.host,
		width:    info.Width,
		dim:      info.Dimension,
		position: info.Position,
		chunks:   make(map[IVec3]*Chunk),
		cached:   make(map[IVec3][]byte),
	}
}

func (r *Region) Position() IVec3 { return r.position }
func (r *Region) Width() int32    { return r.width }

// WorldPosition returns the lower corner of the region in world space.
func (r *Region) WorldPosition() FVec3 {
	g := globalChunk(r.position, IVec3{1, 1, 1}, r.width, r.host.worldOffset()).Add(r.host.worldOffset().Chunk)
	return space.Convert[float64](g.MulVec(r.dim.Size))
}

// Bounds returns the box covered by the region in world space.
func (r *Region) Bounds() space.AABB[float64] {
	size := space.Convert[float64](r.dim.Size).Mul(float64(r.width))
	return space.Box(r.WorldPosition(), size)
}

func (r *Region) inRange(pos IVec3) bool {
	one := IVec3{1, 1, 1}
	return one.LessEq(pos) && pos.LessEq(IVec3{r.width, r.width, r.width})
}

// GetChunk returns the initialized chunk at pos, or nil.
func (r *Region) GetChunk(pos IVec3) *Chunk { return r.chunks[pos] }

// Chunks returns the initialized chunks ordered by position.
func (r *Region) Chunks() []*Chunk {
	chunks := make([]*Chunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return lessVec(chunks[i].position, chunks[j].position) })
	return chunks
}

// IsChunkLoaded reports whether the chunk at pos exists and is Loaded.
func (r *Region) IsChunkLoaded(pos IVec3) bool {
	c := r.chunks[pos]
	return c != nil && c.state == StateLoaded
}

// InitializeChunk creates the chunk at pos and preloads its cached
// payload if there is one.
func (r *Region) InitializeChunk(pos IVec3) (*Chunk, error) {
	if !r.inRange(pos) {
		return nil, fmt.Errorf("%w: %v in region of width %d", ErrChunkOutOfRange, pos, r.width)
	}
	if c, ok := r.chunks[pos]; ok {
		r.log.DPanic("Chunk already initialized", zap.Stringer("chunk", pos))
		return c, nil
	}
	c := newChunk(r, pos)
	r.chunks[pos] = c
	if data, ok := r.cached[pos]; ok {
		c.PreLoad(data)
	}
	return c, nil
}

// Load reads the stored chunks of the region into the cache.
func (r *Region) Load(storage Storage) error {
	if storage == nil {
		return nil
	}
	data, err := storage.ReadRegion(r.position)
	if err != nil {
		return fmt.Errorf("load region %v: %w", r.position, err)
	}
	if data == nil {
		data = make(map[IVec3][]byte)
	}
	r.cached = data
	return nil
}

// PostLoad preloads every initialized chunk that has not seen its
// payload yet.
func (r *Region) PostLoad() {
	for pos, c := range r.chunks {
		if c.state != StateUnloaded {
			continue
		}
		if data, ok := r.cached[pos]; ok {
			c.PreLoad(data)
		}
	}
}

// Save stores every chunk of the region. Chunks that have become empty
// are removed from storage.
func (r *Region) Save(storage Storage) (err error) {
	for pos, c := range r.chunks {
		data, e := c.Save()
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		if data == nil {
			delete(r.cached, pos)
		} else {
			r.cached[pos] = data
		}
	}
	if storage != nil {
		err = multierr.Append(err, storage.WriteRegion(r.position, r.cached))
	}
	return err
}

// Unload unloads every chunk. A region holding the observer is kept
// unless force is set.
func (r *Region) Unload(force bool) bool {
	if r.ContainsObserver() && !force {
		return false
	}
	for _, c := range r.chunks {
		c.Unload()
	}
	r.chunks = make(map[IVec3]*Chunk)
	return true
}

// RemoveChunk keeps the content of the chunk at pos in the cache, then
// unloads and forgets the chunk.
func (r *Region) RemoveChunk(pos IVec3) error {
	c, ok := r.chunks[pos]
	if !ok {
		return nil
	}
	data, err := c.Save()
	if err != nil {
		return err
	}
	if data == nil {
		delete(r.cached, pos)
	} else {
		r.cached[pos] = data
	}
	c.Unload()
	delete(r.chunks, pos)
	return nil
}

// IsAlive reports whether any chunk of the region is initialized.
func (r *Region) IsAlive() bool { return len(r.chunks) > 0 }

func (r *Region) ContainsObserver() bool { return r.containsObserver.Load() }
func (r *Region) OnEnter()               { r.containsObserver.Store(true) }
func (r *Region) OnExit()                { r.containsObserver.Store(false) }

// Update ages the tickets of every chunk and returns the chunks left
// without any ticket.
func (r *Region) Update(dt time.Duration, expiry TicketExpiry) []IVec3 {
	var expired []IVec3
	for _, c := range r.Chunks() {
		if c.ageTickets(expiry, dt) == 0 {
			expired = append(expired, c.position)
		}
	}
	return expired
}

func (r *Region) translatePreloaded(d FVec3) {
	for _, c := range r.chunks {
		c.translatePreloaded(d)
	}
}
