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
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownChunkType    = errors.New("unknown chunk type")
	ErrInvalidConfig       = errors.New("invalid world config")
	ErrUnknownConfigFormat = errors.New("unknown world config format")
)

// ChunkType is the shape of a chunk. Only cubes are supported.
type ChunkType string

const ChunkTypeCube ChunkType = "Cube"

// DimensionInfo describes the shape and extent of chunks.
type DimensionInfo struct {
	Type ChunkType
	Size IVec3
}

// Config is the world layout read from World.xml or its TOML/YAML twin.
type Config struct {
	ChunkType     ChunkType `toml:"ChunkType" yaml:"ChunkType"`
	ChunkWidth    int32     `toml:"DefaultCubeChunkWidth" yaml:"DefaultCubeChunkWidth"`
	ChunkHeight   int32     `toml:"DefaultCubeChunkHeight" yaml:"DefaultCubeChunkHeight"`
	ChunkDepth    int32     `toml:"DefaultCubeChunkDepth" yaml:"DefaultCubeChunkDepth"`
	RegionWidth   int32     `toml:"DefaultRegionWidth" yaml:"DefaultRegionWidth"`
	ShiftDistance int32     `toml:"DefaultShiftDistance" yaml:"DefaultShiftDistance"`
	Scope         int32     `toml:"DefaultScope" yaml:"DefaultScope"`
}

// DefaultConfig returns the layout used when World.xml sets nothing:
// cube chunks of width 10, regions of width 6, shift distance and scope 10.
func DefaultConfig() Config {
	return Config{
		ChunkType:     ChunkTypeCube,
		ChunkWidth:    10,
		ChunkHeight:   10,
		ChunkDepth:    10,
		RegionWidth:   6,
		ShiftDistance: 10,
		Scope:         10,
	}
}

// Dimension validates the config and returns the chunk shape.
func (c Config) Dimension() (DimensionInfo, error) {
	if c.ChunkType != ChunkTypeCube {
		return DimensionInfo{}, fmt.Errorf("%w: %q", ErrUnknownChunkType, c.ChunkType)
	}
	switch {
	case c.ChunkWidth <= 0 || c.ChunkHeight <= 0 || c.ChunkDepth <= 0:
		return DimensionInfo{}, fmt.Errorf("%w: chunk size %dx%dx%d", ErrInvalidConfig, c.ChunkWidth, c.ChunkHeight, c.ChunkDepth)
	case c.RegionWidth <= 0:
		return DimensionInfo{}, fmt.Errorf("%w: region width %d", ErrInvalidConfig, c.RegionWidth)
	case c.ShiftDistance <= 0:
		return DimensionInfo{}, fmt.Errorf("%w: shift distance %d", ErrInvalidConfig, c.ShiftDistance)
	case c.Scope < 0:
		return DimensionInfo{}, fmt.Errorf("%w: scope %d", ErrInvalidConfig, c.Scope)
	}
	return DimensionInfo{
		Type: ChunkTypeCube,
		Size: IVec3{c.ChunkWidth, c.ChunkHeight, c.ChunkDepth},
	}, nil
}

// LoadConfig reads a world config, picking the format from the file
// extension. Options missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read world config: %w", err)
	}
	c := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		err = decodeXMLConfig(data, &c)
	case ".toml":
		err = decodeTOMLConfig(data, &c)
	case ".yaml", ".yml":
		err = decodeYAMLConfig(data, &c)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownConfigFormat, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := c.Dimension(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func decodeTOMLConfig(data []byte, c *Config) error {
	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: unknown keys [%s]", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAMLConfig(data []byte, c *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// xmlValue is an option node: <DefaultScope Value="10"/>.
type xmlValue struct {
	Value string `xml:"Value,attr"`
}

type xmlConfig struct {
	XMLName       xml.Name  `xml:"Configs"`
	ChunkType     *xmlValue `xml:"ChunkType"`
	ChunkWidth    *xmlValue `xml:"DefaultCubeChunkWidth"`
	ChunkHeight   *xmlValue `xml:"DefaultCubeChunkHeight"`
	ChunkDepth    *xmlValue `xml:"DefaultCubeChunkDepth"`
	RegionWidth   *xmlValue `xml:"DefaultRegionWidth"`
	ShiftDistance *xmlValue `xml:"DefaultShiftDistance"`
	Scope         *xmlValue `xml:"DefaultScope"`
}

func decodeXMLConfig(data []byte, c *Config) error {
	var x xmlConfig
	if err := xml.Unmarshal(data, &x); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if x.ChunkType != nil {
		c.ChunkType = ChunkType(x.ChunkType.Value)
	}
	for _, opt := range []struct {
		name string
		node *xmlValue
		dst  *int32
	}{
		{"DefaultCubeChunkWidth", x.ChunkWidth, &c.ChunkWidth},
		{"DefaultCubeChunkHeight", x.ChunkHeight, &c.ChunkHeight},
		{"DefaultCubeChunkDepth", x.ChunkDepth, &c.ChunkDepth},
		{"DefaultRegionWidth", x.RegionWidth, &c.RegionWidth},
		{"DefaultShiftDistance", x.ShiftDistance, &c.ShiftDistance},
		{"DefaultScope", x.Scope, &c.Scope},
	} {
		if opt.node == nil {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(opt.node.Value), 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, opt.name, err)
		}
		*opt.dst = int32(v)
	}
	return nil
}
