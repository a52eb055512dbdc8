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
	"fmt"

	"github.com/Tnze/go-mc/nbt"
	"github.com/google/uuid"
)

var ErrMalformedEntity = errors.New("malformed entity data")

// SaveContext carries the values an entity needs while it is serialized.
type SaveContext struct {
	// LocalOrigin is added to the translation of 3D roots, so that
	// positions are stored relative to the container being saved.
	LocalOrigin [3]float64
}

type entityTag struct {
	UUID     string      `nbt:"UUID"`
	Name     string      `nbt:"Name"`
	Space3D  bool        `nbt:"Space3D"`
	Pos      []float64   `nbt:"Pos"`
	Children []entityTag `nbt:"Children,omitempty"`
}

// Marshal encodes e and its subtree as NBT.
func (e *Entity) Marshal(ctx SaveContext) ([]byte, error) {
	data, err := nbt.Marshal(e.tag(ctx.LocalOrigin))
	if err != nil {
		return nil, fmt.Errorf("encode entity %s: %w", e.UUID, err)
	}
	return data, nil
}

func (e *Entity) tag(origin [3]float64) entityTag {
	pos := e.Transform.Translation
	if e.space3D {
		pos = pos.Add(origin)
	}
	t := entityTag{
		UUID:    e.UUID.String(),
		Name:    e.Name,
		Space3D: e.space3D,
		Pos:     []float64{pos[0], pos[1], pos[2]},
	}
	for _, c := range e.children {
		t.Children = append(t.Children, c.tag([3]float64{}))
	}
	return t
}

// Unmarshal decodes an entity written by Marshal. The result is not
// registered in any scene.
func Unmarshal(data []byte) (*Entity, error) {
	var t entityTag
	if err := nbt.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntity, err)
	}
	return fromTag(&t)
}

func fromTag(t *entityTag) (*Entity, error) {
	id, err := uuid.Parse(t.UUID)
	if err != nil {
		return nil, fmt.Errorf("%w: uuid %q: %v", ErrMalformedEntity, t.UUID, err)
	}
	if len(t.Pos) != 3 {
		return nil, fmt.Errorf("%w: position has %d components", ErrMalformedEntity, len(t.Pos))
	}
	e := &Entity{
		UUID:      id,
		Name:      t.Name,
		Transform: Transform{Translation: Position{t.Pos[0], t.Pos[1], t.Pos[2]}},
		space3D:   t.Space3D,
	}
	for i := range t.Children {
		child, err := fromTag(&t.Children[i])
		if err != nil {
			return nil, err
		}
		if err := e.AddChild(child); err != nil {
			return nil, err
		}
	}
	return e, nil
}
