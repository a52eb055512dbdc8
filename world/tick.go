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
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"StreamCore/world/internal/space"
)

// tick runs the streaming part of Update under the tick lock.
func (l *SceneChunkLogic) tick(dt time.Duration) bool {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	if !l.ready {
		l.log.Error("Update before Init", zap.Error(ErrNotInitialized))
		return false
	}

	l.subtickObserver()
	l.updateContainers()
	l.subtickExpiry(dt)
	l.subtickShift()
	l.loadObserverScope()
	l.subtickStart()
	return true
}

// subtickObserver moves the observer to the chunk its target stands in.
func (l *SceneChunkLogic) subtickObserver() {
	g, ok := l.calculateCurrentChunk()
	l.tracking = ok
	if !ok {
		return
	}
	o := l.observer
	w := l.config.RegionWidth
	region, chunk := regionOf(g, w, l.offset), MakeChunk(g, w)
	if region == o.region && chunk == o.chunk {
		return
	}

	if r := l.regions[o.region]; r != nil {
		if c := r.GetChunk(o.chunk); c != nil {
			c.OnExit()
		} else {
			r.OnExit()
		}
	}

	o.lastRegion, o.lastChunk = o.region, o.chunk
	o.SetChunk(g)
	o.MoveRegion(RegionDelta(o.region, region))
	if o.region != region {
		l.log.DPanic("Observer region diverged",
			zap.Stringer("region", o.region), zap.Stringer("expected", region))
	}

	r := l.getOrLoadRegion(o.region)
	if c := r.GetChunk(o.chunk); c != nil {
		c.OnEnter()
	} else {
		r.OnEnter()
	}
	l.log.Debug("Observer changed chunk",
		zap.Stringer("region", o.region),
		zap.Stringer("chunk", o.chunk),
		zap.Stringer("last region", o.lastRegion),
		zap.Stringer("last chunk", o.lastChunk),
	)
}

// updateContainers rebuilds the tensor from the root 3D entities and
// makes sure each occupied chunk exists.
func (l *SceneChunkLogic) updateContainers() {
	tensor := make(Tensor, len(l.tensor))
	for _, h := range l.scene.Roots() {
		e, ok := l.scene.Get(h)
		if !ok || !e.Space3D() {
			continue
		}
		pos := FVec3(e.Transform.Translation)
		if !pos.IsFinite() {
			continue
		}
		key := keyOf(pos, l.dim.Size, l.config.RegionWidth, l.offset)
		tensor[key] = append(tensor[key], h)
	}
	l.tensor = tensor

	for _, key := range tensor.Keys() {
		if _, err := l.materialize(key); err != nil {
			l.log.DPanic("Materialize chunk fail",
				zap.Stringer("region", key.Region),
				zap.Stringer("chunk", key.Chunk),
				zap.Error(err))
		}
	}
}

// subtickExpiry ages the tickets of every chunk. Chunks left without a
// ticket are saved to their region and unloaded. Regions left without
// chunks, away from the observer, are saved and evicted.
func (l *SceneChunkLogic) subtickExpiry(dt time.Duration) {
	if l.expiry.Lifetime() <= 0 {
		return
	}
	o := l.observer
	near := l.regionsNearObserver()
	for _, pos := range l.regionKeys() {
		r := l.regions[pos]
		for _, chunk := range r.Update(dt, l.expiry) {
			if pos == o.region && chunk == o.chunk {
				continue
			}
			if err := r.RemoveChunk(chunk); err != nil {
				l.log.Error("Evict chunk fail",
					zap.Stringer("region", pos),
					zap.Stringer("chunk", chunk),
					zap.Error(err))
				continue
			}
			delete(l.tensor, TensorKey{Region: pos, Chunk: chunk})
		}

		if r.IsAlive() || r.ContainsObserver() || near[pos] {
			continue
		}
		if err := r.Save(l.storage); err != nil {
			l.log.Error("Save region fail", zap.Stringer("region", pos), zap.Error(err))
			continue
		}
		l.dropRegion(pos)
		l.log.Debug("Evicted region", zap.Stringer("region", pos))
	}
}

// regionsNearObserver returns the regions touching the box of the
// observer scope.
func (l *SceneChunkLogic) regionsNearObserver() map[IVec3]bool {
	near := make(map[IVec3]bool)
	if !l.tracking {
		return near
	}
	size := space.Convert[float64](l.dim.Size)
	half := size.Mul(float64(l.observer.scope + 1))
	target := l.observer.targetPosition
	box := space.AABB[float64]{Lower: target.Sub(half), Upper: target.Add(half)}
	l.index.Find(space.TouchBound(box), func(n *regionNode) bool {
		near[n.Value.position] = true
		return true
	})
	return near
}

// subtickShift moves the world origin back to the observer once it went
// further than the shift distance on any axis. Keys stay the same since
// the offset absorbs the move.
func (l *SceneChunkLogic) subtickShift() {
	o := l.observer
	if !l.tracking || o.shiftDistance <= 0 {
		return
	}
	var d IVec3
	shift := false
	for i := range d {
		k := int32(math.Floor(o.targetPosition[i] / float64(l.dim.Size[i])))
		if abs(k) > o.shiftDistance {
			d[i] = k
			shift = true
		}
	}
	if !shift {
		return
	}

	delta := space.Convert[float64](d.MulVec(l.dim.Size)).Neg()
	for _, h := range l.scene.Roots() {
		if e, ok := l.scene.Get(h); ok {
			e.GlobalTranslate(delta)
		}
	}
	for _, r := range l.regions {
		r.translatePreloaded(delta)
	}
	l.offset.Chunk = l.offset.Chunk.Sub(d)
	o.targetPosition = o.targetPosition.Add(delta)
	l.reindex()
	l.log.Info("Shifted world origin",
		zap.Stringer("chunks", d),
		zap.Stringer("offset", l.offset.Chunk))
}

// loadObserverScope refreshes the Observer ticket of every chunk in the
// observer scope, its own chunk included.
func (l *SceneChunkLogic) loadObserverScope() {
	o := l.observer
	if o.region.HasZero() || o.chunk.HasZero() {
		return
	}
	t := l.observerTicket(scopeTicketLevel)
	l.updateChunk(IVec3{}, t)
	for _, d := range l.scope.get(o.scope) {
		l.updateChunk(d, t)
	}
}

// subtickStart loads the chunks whose first ticket is Start, nearest to
// the observer first, for as long as the limiter allows.
func (l *SceneChunkLogic) subtickStart() {
	var pending []*Chunk
	for _, pos := range l.regionKeys() {
		for _, c := range l.regions[pos].Chunks() {
			if c.FirstTicket().Type == TicketStart {
				pending = append(pending, c)
			}
		}
	}
	if len(pending) == 0 {
		return
	}
	if l.tracking {
		target := l.observer.targetPosition
		dist := make(map[*Chunk]float64, len(pending))
		for _, c := range pending {
			dist[c] = c.WorldPosition(AxisAll).Sub(target).Norm()
		}
		sort.SliceStable(pending, func(i, j int) bool { return dist[pending[i]] < dist[pending[j]] })
	}

	for i, c := range pending {
		if err := l.loadChunk(c); err != nil {
			if errors.Is(err, ErrReachRateLimit) {
				l.log.Debug("Chunk loading deferred", zap.Int("pending", len(pending)-i))
				break
			}
			l.log.Error("Load chunk fail", zap.Error(err))
		}
	}
}

func (l *SceneChunkLogic) loadChunk(c *Chunk) error {
	if !l.limiter.Allow() {
		return ErrReachRateLimit
	}
	c.Load()
	c.RemoveTicket(TicketStart)
	c.AddTicket(l.observerTicket(residentTicketLevel))
	return nil
}
