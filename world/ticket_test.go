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
	"math/rand"
	"testing"
	"time"
)

func TestTicketBefore(t *testing.T) {
	start := Ticket{Type: TicketStart, Level: 5}
	forced := Ticket{Type: TicketForced, Level: 0}
	observer1 := Ticket{Type: TicketObserver, Level: 1}
	observer2 := Ticket{Type: TicketObserver, Level: 2}

	for _, tc := range []struct {
		a, b Ticket
		want bool
	}{
		{start, forced, true},
		{forced, start, false},
		{forced, observer1, true},
		{observer1, observer2, true},
		{observer2, observer1, false},
		{observer1, observer1, false},
		{observer2, Ticket{}, true},
	} {
		if got := tc.a.Before(tc.b); got != tc.want {
			t.Errorf("%v/%d before %v/%d = %v", tc.a.Type, tc.a.Level, tc.b.Type, tc.b.Level, got)
		}
	}
}

func TestTicketPriority(t *testing.T) {
	tickets := []Ticket{
		{Type: TicketObserver, Level: 2},
		{Type: TicketObserver, Level: 1},
		{Type: TicketForced, Level: 7},
		{Type: TicketForced, Level: 3},
		{Type: TicketStart, Level: 5},
		{Type: TicketUnknown, Level: DefaultTicketLevel},
	}
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		rng.Shuffle(len(tickets), func(i, j int) { tickets[i], tickets[j] = tickets[j], tickets[i] })

		r := NewRegion(RegionCreateInfo{Width: 2, Position: IVec3{1, 1, 1}})
		c := newChunk(r, IVec3{1, 1, 1})
		for _, tk := range tickets {
			c.AddTicket(tk)
		}

		got := c.Tickets()
		if len(got) != len(tickets) {
			t.Fatalf("got %d tickets, want %d", len(got), len(tickets))
		}
		if first := c.FirstTicket(); first != (Ticket{Type: TicketStart, Level: 5}) {
			t.Fatalf("round %d: first ticket = %+v", round, first)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Before(got[i-1]) {
				t.Fatalf("round %d: tickets out of order: %+v", round, got)
			}
		}
	}
}

func TestTicketRefresh(t *testing.T) {
	var tickets []Ticket
	tickets = insertTicket(tickets, Ticket{Type: TicketObserver, Level: 2, Remaining: time.Second})
	tickets = insertTicket(tickets, Ticket{Type: TicketObserver, Level: 2, Remaining: 3 * time.Second})
	if len(tickets) != 1 || tickets[0].Remaining != 3*time.Second {
		t.Fatalf("refresh: %+v", tickets)
	}
	tickets = insertTicket(tickets, Ticket{Type: TicketObserver, Level: 2, Remaining: time.Second})
	if tickets[0].Remaining != 3*time.Second {
		t.Errorf("shorter lifetime replaced a longer one: %+v", tickets)
	}
	tickets = insertTicket(tickets, Ticket{Type: TicketObserver, Level: 2})
	tickets = insertTicket(tickets, Ticket{Type: TicketObserver, Level: 2, Remaining: time.Hour})
	if tickets[0].Remaining != 0 {
		t.Errorf("forever ticket got a lifetime: %+v", tickets)
	}
}

func TestRemoveTicket(t *testing.T) {
	r := NewRegion(RegionCreateInfo{Width: 2, Position: IVec3{1, 1, 1}})
	c := newChunk(r, IVec3{1, 1, 1})
	c.AddTicket(Ticket{Type: TicketStart, Level: startTicketLevel})
	c.AddTicket(Ticket{Type: TicketObserver, Level: 1})
	c.AddTicket(Ticket{Type: TicketObserver, Level: 2})

	c.RemoveTicket(TicketStart)
	if c.HasTicket(TicketStart) {
		t.Error("start ticket still present")
	}
	if first := c.FirstTicket(); first.Type != TicketObserver || first.Level != 1 {
		t.Errorf("first ticket = %+v", first)
	}
	c.RemoveTicket(TicketObserver)
	if first := c.FirstTicket(); first.Type != TicketUnknown {
		t.Errorf("first ticket of empty chunk = %+v", first)
	}
}

func TestTimeToLive(t *testing.T) {
	e := TimeToLive{TTL: time.Second}
	observer := Ticket{Type: TicketObserver, Level: 1, Remaining: e.Lifetime()}
	if !e.Advance(&observer, 600*time.Millisecond) {
		t.Fatal("ticket expired early")
	}
	if e.Advance(&observer, 600*time.Millisecond) {
		t.Error("ticket outlived its lifetime")
	}

	forced := Ticket{Type: TicketForced, Remaining: time.Millisecond}
	forever := Ticket{Type: TicketObserver}
	for i := 0; i < 10; i++ {
		if !e.Advance(&forced, time.Second) || !e.Advance(&forever, time.Second) {
			t.Fatal("exempt ticket expired")
		}
	}

	never := NeverExpire{}
	if never.Lifetime() != 0 || !never.Advance(&observer, time.Hour) {
		t.Error("NeverExpire expired a ticket")
	}
}
