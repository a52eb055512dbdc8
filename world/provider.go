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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Tnze/go-mc/save/region"
)

// Storage persists the chunk payloads of regions. A region is always
// read and written as a whole.
type Storage interface {
	// ReadRegion returns the stored payload of every chunk of the region,
	// keyed by local chunk position. A region never written is empty.
	ReadRegion(pos IVec3) (map[IVec3][]byte, error)
	// WriteRegion replaces the stored chunks of the region.
	WriteRegion(pos IVec3, chunks map[IVec3][]byte) error
	Close() error
}

var (
	// ErrReachRateLimit is returned when the chunk loading limiter denies
	// a load. The load is retried on a later tick.
	ErrReachRateLimit = errors.New("reach rate limit")
	ErrRegionTooWide  = errors.New("region too wide for region file")
)

// sectorsPerFile is the number of chunk sectors of a region file.
const sectorsPerFile = 32 * 32

// RegionStorage keeps each region in its own region file
// (r.<x>.<y>.<z>.mca). Chunks are laid out in the 32x32 sector table in
// X, then Y, then Z order, so the width of a region is limited to 10.
type RegionStorage struct {
	log         *zap.Logger
	dir         string
	width       int32
	compression Compression
}

// NewRegionStorage stores regions as region files under dir, creating it
// if needed. A region must fit in one file, so width is at most 10.
func NewRegionStorage(log *zap.Logger, dir string, width int32, compression Compression) (*RegionStorage, error) {
	if width <= 0 || int(width)*int(width)*int(width) > sectorsPerFile {
		return nil, fmt.Errorf("%w: %d", ErrRegionTooWide, width)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create region directory: %w", err)
	}
	return &RegionStorage{
		log:         log,
		dir:         dir,
		width:       width,
		compression: compression,
	}, nil
}

// RegionFile returns the path of the file holding the region at pos.
func (p *RegionStorage) RegionFile(pos IVec3) string {
	return filepath.Join(p.dir, fmt.Sprintf("r.%d.%d.%d.mca", pos[0], pos[1], pos[2]))
}

// Sector returns the sector of the region file holding chunk.
func Sector(chunk IVec3, width int32) (x, z int) {
	w := int(width)
	i := int(chunk[0]-1) + w*(int(chunk[1]-1)+w*int(chunk[2]-1))
	return i % 32, i / 32
}

// ReadRegion reads every sector of the region file. Sectors that fail to
// decompress are logged and skipped.
func (p *RegionStorage) ReadRegion(pos IVec3) (chunks map[IVec3][]byte, errRet error) {
	chunks = make(map[IVec3][]byte)
	r, err := region.Open(p.RegionFile(pos))
	if errors.Is(err, fs.ErrNotExist) {
		return chunks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open region fail: %w", err)
	}
	defer func(r *region.Region) {
		err2 := r.Close()
		if errRet == nil && err2 != nil {
			errRet = fmt.Errorf("close region fail: %w", err2)
		}
	}(r)

	for z := int32(1); z <= p.width; z++ {
		for y := int32(1); y <= p.width; y++ {
			for x := int32(1); x <= p.width; x++ {
				chunk := IVec3{x, y, z}
				sx, sz := Sector(chunk, p.width)
				if !r.ExistSector(sx, sz) {
					continue
				}
				data, err := r.ReadSector(sx, sz)
				if err == nil {
					data, err = DecompressSector(data)
				}
				if err != nil {
					p.log.Error("Read chunk sector fail",
						zap.Stringer("region", pos),
						zap.Stringer("chunk", chunk),
						zap.Error(err))
					continue
				}
				chunks[chunk] = data
			}
		}
	}
	return chunks, nil
}

// WriteRegion writes a fresh region file next to the old one and
// replaces it. An empty region removes the file.
func (p *RegionStorage) WriteRegion(pos IVec3, chunks map[IVec3][]byte) error {
	path := p.RegionFile(pos)
	if len(chunks) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove region fail: %w", err)
		}
		return nil
	}

	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale region fail: %w", err)
	}
	r, err := region.Create(tmp)
	if err != nil {
		return fmt.Errorf("create region fail: %w", err)
	}
	if err := p.writeSectors(r, chunks); err != nil {
		_ = r.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := r.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close region fail: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace region fail: %w", err)
	}
	return nil
}

func (p *RegionStorage) writeSectors(r *region.Region, chunks map[IVec3][]byte) error {
	for chunk, payload := range chunks {
		one := IVec3{1, 1, 1}
		if !one.LessEq(chunk) || !chunk.LessEq(IVec3{p.width, p.width, p.width}) {
			return fmt.Errorf("%w: %v", ErrChunkOutOfRange, chunk)
		}
		data, err := CompressSector(p.compression, payload)
		if err != nil {
			return err
		}
		sx, sz := Sector(chunk, p.width)
		if err := r.WriteSector(sx, sz, data); err != nil {
			return fmt.Errorf("write sector of chunk %v fail: %w", chunk, err)
		}
	}
	if err := r.PadToFullSector(); err != nil {
		return fmt.Errorf("pad region fail: %w", err)
	}
	return nil
}

func (p *RegionStorage) Close() error { return nil }
