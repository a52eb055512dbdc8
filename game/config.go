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

package game

import (
	"time"

	"golang.org/x/time/rate"
)

// Config is the application config read from config.toml.
type Config struct {
	// LevelName is the directory holding the saved world.
	LevelName string `toml:"level-name"`
	// WorldConfig is the world layout file, World.xml or its TOML/YAML
	// twin. Empty uses the built-in defaults.
	WorldConfig string `toml:"world-config"`
	// Storage is "region" (one region file per region) or "sqlite".
	Storage     string `toml:"storage"`
	Compression string `toml:"compression"`

	TickInterval  duration `toml:"tick-interval"`
	SaveInterval  duration `toml:"save-interval"`
	StatsInterval duration `toml:"stats-interval"`
	// TicketTTL lets chunks away from the observer unload. Zero keeps
	// everything resident.
	TicketTTL duration `toml:"ticket-ttl"`

	ChunkLoadingLimiter Limiter `toml:"chunk-loading-limiter"`

	// Spawn is where a fresh observer is created.
	Spawn [3]float64 `toml:"spawn"`
	// Walk is the velocity of the observer in units per second.
	Walk [3]float64 `toml:"walk"`
}

// DefaultConfig is the base readConfig decodes config.toml onto.
func DefaultConfig() Config {
	return Config{
		LevelName:     "world",
		Storage:       "region",
		Compression:   "gzip",
		TickInterval:  duration{50 * time.Millisecond},
		SaveInterval:  duration{time.Minute},
		StatsInterval: duration{10 * time.Second},
		ChunkLoadingLimiter: Limiter{
			Every: duration{10 * time.Millisecond},
			N:     32,
		},
		Spawn: [3]float64{5, 5, 5},
	}
}

// Limiter is a token bucket refilled once Every, holding up to N tokens.
type Limiter struct {
	Every duration `toml:"every"`
	N     int
}

// Limiter builds the rate limiter. A zero Every is unlimited.
func (l *Limiter) Limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(l.Every.Duration), l.N)
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
