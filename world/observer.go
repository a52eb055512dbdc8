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
	"go.uber.org/zap"

	"StreamCore/scene"
)

// Observer follows a target entity and keeps track of the region and
// chunk it stands in. Region and chunk are zero until the first update
// after SetTarget, and never contain a zero axis afterwards.
type Observer struct {
	log *zap.Logger

	target    scene.Handle
	hasTarget bool

	region, lastRegion IVec3
	chunk, lastChunk   IVec3
	targetPosition     FVec3

	chunkSize     IVec3
	regionWidth   int32
	scope         int32
	shiftDistance int32
}

// NewObserver returns an observer with no target. SetWorldMetrics must be
// called before the first SetChunk.
func NewObserver(log *zap.Logger) *Observer {
	return &Observer{log: log}
}

// SetWorldMetrics sets the chunk size and region width used to fold
// chunk indices.
func (o *Observer) SetWorldMetrics(chunkSize IVec3, regionWidth int32) {
	o.chunkSize = chunkSize
	o.regionWidth = regionWidth
}

func (o *Observer) SetShiftDist(distance int32) { o.shiftDistance = distance }

// SetScope sets the streaming radius in chunks.
func (o *Observer) SetScope(scope int32) { o.scope = scope }

func (o *Observer) Scope() int32 { return o.scope }

func (o *Observer) ShiftDistance() int32 { return o.shiftDistance }

// SetTarget binds the observer to another entity and forgets every
// position derived from the previous one.
func (o *Observer) SetTarget(target scene.Handle) {
	o.target = target
	o.hasTarget = target != scene.NilHandle
	o.region, o.lastRegion = IVec3{}, IVec3{}
	o.chunk, o.lastChunk = IVec3{}, IVec3{}
	o.targetPosition = FVec3{}
}

func (o *Observer) Target() (scene.Handle, bool) { return o.target, o.hasTarget }

// SetChunk stores the local chunk of a global chunk index.
func (o *Observer) SetChunk(raw IVec3) {
	o.chunk = MakeChunk(raw, o.regionWidth)
	if o.chunk.HasZero() {
		o.log.DPanic("observer chunk has a zero axis",
			zap.Stringer("raw", raw), zap.Stringer("chunk", o.chunk))
	}
}

// MoveRegion steps the region by delta, skipping zero on every axis.
// An axis that is still zero takes delta as is.
func (o *Observer) MoveRegion(delta IVec3) {
	for i := range o.region {
		if o.region[i] == 0 {
			o.region[i] = delta[i]
		} else {
			o.region[i] = AddOffset(o.region[i], delta[i])
		}
	}
	if o.region.HasZero() {
		o.log.DPanic("observer region has a zero axis",
			zap.Stringer("delta", delta), zap.Stringer("region", o.region))
	}
}

// MathNeighbour resolves the region and local chunk lying delta chunks
// away from the observer's chunk.
func (o *Observer) MathNeighbour(delta IVec3) (region, chunk IVec3) {
	w := o.regionWidth
	var regionDelta IVec3
	for i := range regionDelta {
		if delta[i] >= 0 {
			regionDelta[i] = (o.chunk[i] - 1 + delta[i]) / w
		} else {
			regionDelta[i] = (o.chunk[i] - w + delta[i]) / w
		}
	}
	region = AddOffsetVec(o.region, regionDelta)
	chunk = MakeChunk(AddOffsetVec(o.chunk, delta), w)
	return
}

func (o *Observer) Region() IVec3         { return o.region }
func (o *Observer) Chunk() IVec3          { return o.chunk }
func (o *Observer) LastRegion() IVec3     { return o.lastRegion }
func (o *Observer) LastChunk() IVec3      { return o.lastChunk }
func (o *Observer) TargetPosition() FVec3 { return o.targetPosition }
