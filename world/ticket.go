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
	"sort"
	"time"

	"golang.org/x/exp/slices"
)

// TicketType says why a chunk is kept resident. Greater values win.
type TicketType uint8

const (
	TicketUnknown TicketType = iota
	TicketObserver
	TicketForced
	TicketStart
)

func (t TicketType) String() string {
	switch t {
	case TicketObserver:
		return "observer"
	case TicketForced:
		return "forced"
	case TicketStart:
		return "start"
	}
	return "unknown"
}

// DefaultTicketLevel is the level of a ticket nobody cared to rank.
const DefaultTicketLevel = 10

const (
	startTicketLevel    = 5
	scopeTicketLevel    = 2
	residentTicketLevel = 1
)

// Ticket is a claim keeping a chunk loaded. Within one type a lower
// level has a higher priority.
type Ticket struct {
	Type  TicketType
	Level uint16
	// Remaining is the lifetime left. Zero never expires.
	Remaining time.Duration
}

// Before reports whether t must be served before other.
func (t Ticket) Before(other Ticket) bool {
	if t.Type != other.Type {
		return t.Type > other.Type
	}
	return t.Level < other.Level
}

func (t Ticket) same(other Ticket) bool {
	return t.Type == other.Type && t.Level == other.Level
}

// insertTicket keeps tickets sorted. A ticket equal in type and level to
// one already present refreshes its lifetime instead of being added.
func insertTicket(tickets []Ticket, t Ticket) []Ticket {
	for i := range tickets {
		if tickets[i].same(t) {
			if cur := tickets[i].Remaining; cur != 0 && (t.Remaining == 0 || t.Remaining > cur) {
				tickets[i].Remaining = t.Remaining
			}
			return tickets
		}
	}
	// upper bound: after every ticket that t is not before
	i := sort.Search(len(tickets), func(i int) bool { return t.Before(tickets[i]) })
	return slices.Insert(tickets, i, t)
}

// TicketExpiry decides how tickets age between ticks.
type TicketExpiry interface {
	// Lifetime is stamped on tickets as they are issued. Zero means forever.
	Lifetime() time.Duration
	// Advance ages t by dt and reports whether it is still valid.
	Advance(t *Ticket, dt time.Duration) bool
}

// NeverExpire keeps every ticket forever, so chunks and regions are never
// evicted once resident.
type NeverExpire struct{}

func (NeverExpire) Lifetime() time.Duration              { return 0 }
func (NeverExpire) Advance(*Ticket, time.Duration) bool { return true }

// TimeToLive lets tickets expire TTL after they were last issued. Forced
// tickets are exempt.
type TimeToLive struct {
	TTL time.Duration
}

func (e TimeToLive) Lifetime() time.Duration { return e.TTL }

// Advance ages t by dt and reports whether it is still alive.
func (e TimeToLive) Advance(t *Ticket, dt time.Duration) bool {
	if t.Type == TicketForced || t.Remaining == 0 {
		return true
	}
	t.Remaining -= dt
	return t.Remaining > 0
}
