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

package space

import (
	"container/heap"
	"fmt"

	"golang.org/x/exp/constraints"
)

// Node is a box of a Tree. Only leaves carry a Value.
type Node[I constraints.Float, V any] struct {
	Box      AABB[I]
	Value    V
	parent   *Node[I, V]
	children [2]*Node[I, V]
}

func (n *Node[I, V]) leaf() bool { return n.children[0] == nil }

func (n *Node[I, V]) other(child *Node[I, V]) *Node[I, V] {
	switch child {
	case n.children[0]:
		return n.children[1]
	case n.children[1]:
		return n.children[0]
	}
	panic("space: node is not a child of its parent")
}

func (n *Node[I, V]) slot(child *Node[I, V]) **Node[I, V] {
	switch child {
	case n.children[0]:
		return &n.children[0]
	case n.children[1]:
		return &n.children[1]
	}
	panic("space: node is not a child of its parent")
}

func (n *Node[I, V]) each(test func(AABB[I]) bool, foreach func(*Node[I, V]) bool) bool {
	if n == nil || !test(n.Box) {
		return true
	}
	if n.leaf() {
		return foreach(n)
	}
	return n.children[0].each(test, foreach) && n.children[1].each(test, foreach)
}

func (n *Node[I, V]) String() string {
	if n.leaf() {
		return fmt.Sprint(n.Value)
	}
	return fmt.Sprintf("{%v, %v}", n.children[0], n.children[1])
}

// Tree is a bounding volume hierarchy. Insertion picks the sibling with
// the lowest surface area cost, internal nodes are rotated on the way up.
// The zero value is an empty tree.
type Tree[I constraints.Float, V any] struct {
	root *Node[I, V]
	size int
}

func (t *Tree[I, V]) Len() int { return t.size }

// Insert adds a leaf and returns it. Keep the node to Delete it later.
func (t *Tree[I, V]) Insert(box AABB[I], value V) *Node[I, V] {
	leaf := &Node[I, V]{Box: box, Value: value}
	t.size++
	if t.root == nil {
		t.root = leaf
		return leaf
	}

	sibling := t.bestSibling(box)
	parent := &Node[I, V]{
		Box:      sibling.Box.Union(box),
		parent:   sibling.parent,
		children: [2]*Node[I, V]{sibling, leaf},
	}
	if sibling.parent == nil {
		t.root = parent
	} else {
		*sibling.parent.slot(sibling) = parent
	}
	sibling.parent = parent
	leaf.parent = parent

	t.refit(parent)
	return leaf
}

// Delete removes a leaf returned by Insert and returns its value.
func (t *Tree[I, V]) Delete(n *Node[I, V]) V {
	t.size--
	p := n.parent
	n.parent = nil
	if p == nil {
		t.root = nil
		return n.Value
	}

	sibling := p.other(n)
	grand := p.parent
	sibling.parent = grand
	if grand == nil {
		t.root = sibling
	} else {
		*grand.slot(p) = sibling
		t.refit(grand)
	}
	return n.Value
}

// Find calls foreach for every leaf whose box, and every ancestor box,
// passes test. Returning false from foreach stops the walk.
func (t *Tree[I, V]) Find(test func(AABB[I]) bool, foreach func(n *Node[I, V]) bool) {
	t.root.each(test, foreach)
}

func (t *Tree[I, V]) String() string {
	if t.root == nil {
		return "{}"
	}
	return t.root.String()
}

func (t *Tree[I, V]) bestSibling(box AABB[I]) *Node[I, V] {
	best := t.root
	bestCost := t.root.Box.Union(box).Surface()
	leafCost := box.Surface()

	queue := candidates[I, V]{{node: t.root}}
	for queue.Len() > 0 {
		c := heap.Pop(&queue).(candidate[I, V])
		merged := c.node.Box.Union(box).Surface()
		if cost := c.inherited + merged; cost < bestCost {
			bestCost = cost
			best = c.node
		}
		inherited := c.inherited + merged - c.node.Box.Surface()
		if !c.node.leaf() && inherited+leafCost < bestCost {
			heap.Push(&queue, candidate[I, V]{node: c.node.children[0], inherited: inherited})
			heap.Push(&queue, candidate[I, V]{node: c.node.children[1], inherited: inherited})
		}
	}
	return best
}

func (t *Tree[I, V]) refit(n *Node[I, V]) {
	for p := n; p != nil; p = p.parent {
		p.Box = p.children[0].Box.Union(p.children[1].Box)
		t.rotate(p)
	}
}

// rotate swaps one child of n with n's sibling when that shrinks n.
func (t *Tree[I, V]) rotate(n *Node[I, V]) {
	if n.leaf() || n.parent == nil {
		return
	}
	sibling := n.parent.other(n)
	current := n.Box.Surface()
	for i := range n.children {
		keep, lift := n.children[1-i], n.children[i]
		if keep.Box.Union(sibling.Box).Surface() >= current {
			continue
		}
		*n.parent.slot(sibling) = lift
		lift.parent = n.parent
		n.children[i] = sibling
		sibling.parent = n
		n.Box = n.children[0].Box.Union(n.children[1].Box)
		return
	}
}

// TouchPoint matches boxes containing point.
func TouchPoint[I Number](point Vec3[I]) func(AABB[I]) bool {
	return func(bound AABB[I]) bool { return bound.Contains(point) }
}

// TouchBound matches boxes overlapping other.
func TouchBound[I Number](other AABB[I]) func(AABB[I]) bool {
	return func(bound AABB[I]) bool { return bound.Touch(other) }
}

type (
	candidates[I constraints.Float, V any] []candidate[I, V]
	candidate[I constraints.Float, V any]  struct {
		node      *Node[I, V]
		inherited I
	}
)

func (h candidates[I, V]) Len() int           { return len(h) }
func (h candidates[I, V]) Less(i, j int) bool { return h[i].inherited < h[j].inherited }
func (h candidates[I, V]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidates[I, V]) Push(x any)        { *h = append(*h, x.(candidate[I, V])) }
func (h *candidates[I, V]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
