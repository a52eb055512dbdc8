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
	"fmt"
	"time"

	"go.uber.org/zap"

	"StreamCore/scene"
	"StreamCore/world/internal/space"
)

// LoadState is the streaming state of a chunk.
type LoadState uint8

const (
	StateUnloaded LoadState = iota
	StatePreLoaded
	StateLoaded
	StateUnload
)

func (s LoadState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StatePreLoaded:
		return "preloaded"
	case StateLoaded:
		return "loaded"
	case StateUnload:
		return "unload"
	}
	return fmt.Sprintf("LoadState(%d)", uint8(s))
}

// Axis selects axes of a vector.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY
	AxisZ

	AxisNone Axis = 0
	AxisAll       = AxisX | AxisY | AxisZ
)

// Chunk is the unit of streaming: a box of the world together with the
// entities that were read for it but are not in the scene yet.
type Chunk struct {
	log      *zap.Logger
	region   *Region
	dim      DimensionInfo
	position IVec3

	state     LoadState
	tickets   []Ticket
	preloaded []*scene.Entity
}

func newChunk(r *Region, position IVec3) *Chunk {
	return &Chunk{
		log:      r.log.With(zap.Stringer("chunk", position)),
		region:   r,
		dim:      r.dim,
		position: position,
	}
}

// Belongs reports whether point lies in the chunk of shape dim whose
// lower corner is at position.
func Belongs(dim DimensionInfo, position, point FVec3) bool {
	return space.Box(position, space.Convert[float64](dim.Size)).Contains(point)
}

// Belongs reports whether point lies inside the chunk.
func (c *Chunk) Belongs(point FVec3) bool {
	return Belongs(c.dim, c.WorldPosition(AxisNone), point)
}

// WorldPosition returns the lower corner of the chunk in world space,
// moved to the middle of the chunk on the axes in center.
func (c *Chunk) WorldPosition(center Axis) FVec3 {
	anchor := c.region.WorldPosition()
	var p FVec3
	for i := range p {
		size := float64(c.dim.Size[i])
		p[i] = anchor[i] + float64(c.position[i]-1)*size
		if center&(1<<i) != 0 {
			p[i] += size / 2
		}
	}
	return p
}

func (c *Chunk) Position() IVec3       { return c.position }
func (c *Chunk) RegionPosition() IVec3 { return c.region.position }
func (c *Chunk) Region() *Region       { return c.region }
func (c *Chunk) State() LoadState      { return c.state }
func (c *Chunk) Dimension() DimensionInfo {
	return c.dim
}

func (c *Chunk) key() TensorKey { return TensorKey{Region: c.region.position, Chunk: c.position} }

// Preloaded returns the number of entities waiting for Load.
func (c *Chunk) Preloaded() int { return len(c.preloaded) }

// PreLoad reads a stored chunk payload. Entities are moved from chunk
// local to world positions and kept aside until Load. A payload written
// for another chunk, or one that cannot be decoded, is dropped as a whole.
func (c *Chunk) PreLoad(payload []byte) bool {
	pos, blobs, err := DecodeChunkPayload(payload)
	if err == nil && pos != c.position {
		err = fmt.Errorf("%w: stored for %v", ErrChunkPositionMismatch, pos)
	}
	if err != nil {
		c.log.Error("Preload chunk fail", zap.Error(err))
		return false
	}

	origin := c.WorldPosition(AxisNone)
	entities := make([]*scene.Entity, 0, len(blobs))
	for i, b := range blobs {
		e, err := scene.Unmarshal(b)
		if err != nil {
			c.log.Error("Preload entity fail", zap.Int("index", i), zap.Error(err))
			return false
		}
		e.GlobalTranslate(origin)
		entities = append(entities, e)
	}

	c.preloaded = append(c.preloaded, entities...)
	c.state = StatePreLoaded
	c.log.Debug("Preloaded chunk", zap.Int("entities", len(entities)))
	return true
}

// Load moves the preloaded entities into the scene.
func (c *Chunk) Load() bool {
	h := c.region.host
	sc := h.liveScene()
	n := 0
	for _, e := range c.preloaded {
		handle, err := sc.Register(e)
		if err != nil {
			c.log.Error("Register entity fail", zap.Stringer("uuid", e.UUID), zap.Error(err))
			continue
		}
		h.entityLoaded(e, handle)
		n++
	}
	c.preloaded = nil
	c.state = StateLoaded
	h.notifyLoad(c, n)
	return true
}

// Unload destroys every entity standing in the chunk, loaded or not.
func (c *Chunk) Unload() bool {
	h := c.region.host
	sc := h.liveScene()
	for _, e := range h.bucket(c.key()) {
		sc.Destroy(e)
	}
	c.preloaded = nil
	c.state = StateUnload
	h.notifyUnload(c)
	return true
}

// Save serializes the entities of the chunk relative to its lower
// corner. It returns nil when there is nothing to store.
func (c *Chunk) Save() ([]byte, error) {
	h := c.region.host
	handles := h.bucket(c.key())
	if len(handles) == 0 && len(c.preloaded) == 0 {
		return nil, nil
	}

	origin := c.WorldPosition(AxisNone)
	ctx := scene.SaveContext{LocalOrigin: origin.Neg()}
	blobs := make([][]byte, 0, len(handles)+len(c.preloaded))
	appendEntity := func(e *scene.Entity) error {
		b, err := e.Marshal(ctx)
		if err != nil {
			return fmt.Errorf("save chunk %v: %w", c.position, err)
		}
		blobs = append(blobs, b)
		return nil
	}

	sc := h.liveScene()
	for _, handle := range handles {
		if e, ok := sc.Get(handle); ok {
			if err := appendEntity(e); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range c.preloaded {
		if err := appendEntity(e); err != nil {
			return nil, err
		}
	}
	if len(blobs) == 0 {
		return nil, nil
	}
	return encodeChunkPayload(c.position, blobs), nil
}

// AddTicket inserts t after every ticket of equal or higher priority.
func (c *Chunk) AddTicket(t Ticket) {
	c.tickets = insertTicket(c.tickets, t)
}

// RemoveTicket drops every ticket of type typ.
func (c *Chunk) RemoveTicket(typ TicketType) {
	kept := c.tickets[:0]
	for _, t := range c.tickets {
		if t.Type != typ {
			kept = append(kept, t)
		}
	}
	c.tickets = kept
}

// HasTicket reports whether the chunk holds a ticket of type typ.
func (c *Chunk) HasTicket(typ TicketType) bool {
	for _, t := range c.tickets {
		if t.Type == typ {
			return true
		}
	}
	return false
}

// FirstTicket returns the ticket served first, or the zero Ticket.
func (c *Chunk) FirstTicket() Ticket {
	if len(c.tickets) == 0 {
		return Ticket{}
	}
	return c.tickets[0]
}

// Tickets returns a copy of the tickets in serving order.
func (c *Chunk) Tickets() []Ticket {
	tickets := make([]Ticket, len(c.tickets))
	copy(tickets, c.tickets)
	return tickets
}

// ageTickets drops expired tickets and returns how many are left.
func (c *Chunk) ageTickets(expiry TicketExpiry, dt time.Duration) int {
	kept := c.tickets[:0]
	for _, t := range c.tickets {
		if expiry.Advance(&t, dt) {
			kept = append(kept, t)
		}
	}
	c.tickets = kept
	return len(kept)
}

func (c *Chunk) translatePreloaded(d FVec3) {
	for _, e := range c.preloaded {
		e.GlobalTranslate(d)
	}
}

// OnEnter and OnExit forward to the owning region.
func (c *Chunk) OnEnter() { c.region.OnEnter() }
func (c *Chunk) OnExit()  { c.region.OnExit() }
