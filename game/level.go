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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"StreamCore/world"
)

const levelFile = "level.toml"

// levelData is what the level remembers besides its chunks: the entity
// being observed and where it was.
type levelData struct {
	Observer uuid.UUID   `toml:"observer"`
	Region   world.IVec3 `toml:"region"`
	Chunk    world.IVec3 `toml:"chunk"`
	Saved    time.Time   `toml:"saved"`
}

func readLevel(dir string) (lv levelData, err error) {
	meta, err := toml.DecodeFile(filepath.Join(dir, levelFile), &lv)
	if err != nil {
		return levelData{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		var err errUnknownLevelKeys
		for _, key := range undecoded {
			err = append(err, key.String())
		}
		return levelData{}, err
	}
	if lv.Observer == uuid.Nil {
		return levelData{}, fmt.Errorf("%s: no observer", levelFile)
	}
	return lv, nil
}

func writeLevel(dir string, lv levelData) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(lv); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, levelFile)
	if err := os.WriteFile(path+".tmp", buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(path+".tmp", path)
}

type errUnknownLevelKeys []string

func (e errUnknownLevelKeys) Error() string {
	return fmt.Sprintf("unknown level keys: %v", []string(e))
}
