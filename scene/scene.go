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

package scene

import (
	"errors"
	"sync"
	"time"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRegistered = errors.New("entity already registered")
	ErrNotRoot           = errors.New("only root entities can be registered")
)

// Handle addresses a registered entity: slot index in the high half,
// generation in the low half. A destroyed entity's handle never
// resolves again, even after its slot is reused.
type Handle uint64

// NilHandle never refers to an entity.
const NilHandle Handle = 0

func makeHandle(index, generation uint32) Handle {
	return Handle(uint64(index)<<32 | uint64(generation))
}

func (h Handle) Index() uint32      { return uint32(h >> 32) }
func (h Handle) Generation() uint32 { return uint32(h) }

// Updater is ticked by the scene once per frame.
type Updater interface {
	Update(dt time.Duration)
}

// Scene owns the live root entities.
type Scene struct {
	log *zap.Logger

	mu          sync.RWMutex
	generations []uint32
	free        []uint32
	live        *intmap.Map[Handle, *Entity]
	roots       []Handle
	updaters    []Updater
}

func New(log *zap.Logger) *Scene {
	return &Scene{
		log:  log,
		live: intmap.New[Handle, *Entity](256),
	}
}

// Register adds a root entity to the scene.
func (s *Scene) Register(e *Entity) (Handle, error) {
	if e.parent != nil {
		return NilHandle, ErrNotRoot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.handle != NilHandle && s.live.Has(e.handle) {
		return NilHandle, ErrAlreadyRegistered
	}

	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.generations))
		s.generations = append(s.generations, 0)
	}
	s.generations[index]++
	h := makeHandle(index, s.generations[index])

	e.handle = h
	s.live.Put(h, e)
	s.roots = append(s.roots, h)
	return h, nil
}

// Destroy removes the entity and its subtree. It reports whether h was live.
func (s *Scene) Destroy(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live.Get(h)
	if !ok {
		return false
	}
	s.live.Del(h)
	e.handle = NilHandle
	for i, r := range s.roots {
		if r == h {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			break
		}
	}
	s.free = append(s.free, h.Index())
	return true
}

func (s *Scene) Get(h Handle) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.Get(h)
}

// Roots returns the handles of the root entities in registration order.
func (s *Scene) Roots() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roots := make([]Handle, len(s.roots))
	copy(roots, s.roots)
	return roots
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.Len()
}

func (s *Scene) AddUpdater(u Updater) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updaters = append(s.updaters, u)
}

// Update ticks every updater. Updaters may register or destroy entities.
func (s *Scene) Update(dt time.Duration) {
	s.mu.RLock()
	updaters := make([]Updater, len(s.updaters))
	copy(updaters, s.updaters)
	s.mu.RUnlock()

	for _, u := range updaters {
		u.Update(dt)
	}
}
