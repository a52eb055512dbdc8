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
	"math"

	"github.com/google/uuid"
)

var (
	ErrAlreadyParented = errors.New("entity already has a parent")
	ErrRecursivePath   = errors.New("entity would become its own ancestor")
)

type Position [3]float64

// IsValid reports whether every component is a finite number.
func (p *Position) IsValid() bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsNaN(p[2]) &&
		!math.IsInf(p[0], 0) && !math.IsInf(p[1], 0) && !math.IsInf(p[2], 0)
}

func (p Position) Add(d [3]float64) Position {
	return Position{p[0] + d[0], p[1] + d[1], p[2] + d[2]}
}

// Transform holds the translation of an entity, relative to its parent
// or to the world for roots.
type Transform struct {
	Translation Position
}

// Entity is a node of the scene tree.
type Entity struct {
	UUID      uuid.UUID
	Name      string
	Transform Transform

	space3D  bool
	parent   *Entity
	children []*Entity
	handle   Handle
}

// NewEntity creates an unregistered entity. Only 3D entities take part
// in world streaming.
func NewEntity(name string, space3D bool) *Entity {
	return &Entity{UUID: uuid.New(), Name: name, space3D: space3D}
}

func (e *Entity) Space3D() bool { return e.space3D }

func (e *Entity) Parent() *Entity { return e.parent }

func (e *Entity) Children() []*Entity { return e.children }

// Handle returns the scene handle, or NilHandle when not registered.
func (e *Entity) Handle() Handle { return e.handle }

// AddChild attaches child under e. A cycle is reported before an
// existing parent.
func (e *Entity) AddChild(child *Entity) error {
	for p := e; p != nil; p = p.parent {
		if p == child {
			return ErrRecursivePath
		}
	}
	if child.parent != nil {
		return ErrAlreadyParented
	}
	child.parent = e
	e.children = append(e.children, child)
	return nil
}

// GlobalTranslate moves a 3D entity by d in world space. Other entities
// are left alone.
func (e *Entity) GlobalTranslate(d [3]float64) {
	if !e.space3D {
		return
	}
	e.Transform.Translation = e.Transform.Translation.Add(d)
}

// WorldPosition sums translations up to the root.
func (e *Entity) WorldPosition() Position {
	pos := e.Transform.Translation
	for p := e.parent; p != nil; p = p.parent {
		pos = pos.Add(p.Transform.Translation)
	}
	return pos
}
