// Command dumpregion prints the chunks and entities stored in region files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tnze/go-mc/save/region"

	"StreamCore/scene"
	"StreamCore/world"
)

var width = flag.Int("width", 6, "Region width in chunks")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-width n] r.x.y.z.mca...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := dump(path, int32(*width)); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func dump(path string, width int32) error {
	r, err := region.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Println(path)
	for z := int32(1); z <= width; z++ {
		for y := int32(1); y <= width; y++ {
			for x := int32(1); x <= width; x++ {
				chunk := world.IVec3{x, y, z}
				sx, sz := world.Sector(chunk, width)
				if !r.ExistSector(sx, sz) {
					continue
				}
				data, err := r.ReadSector(sx, sz)
				if err != nil {
					fmt.Printf("  chunk %v: read sector (%d, %d): %v\n", chunk, sx, sz, err)
					continue
				}
				dumpChunk(chunk, data)
			}
		}
	}
	return nil
}

func dumpChunk(chunk world.IVec3, data []byte) {
	compression := world.Compression(data[0])
	payload, err := world.DecompressSector(data)
	if err != nil {
		fmt.Printf("  chunk %v: %v\n", chunk, err)
		return
	}
	pos, blobs, err := world.DecodeChunkPayload(payload)
	if err != nil {
		fmt.Printf("  chunk %v: %v\n", chunk, err)
		return
	}
	note := ""
	if pos != chunk {
		note = fmt.Sprintf(" (stored for %v)", pos)
	}
	fmt.Printf("  chunk %v%s: %d entities, %d bytes %s\n", chunk, note, len(blobs), len(data), compression)
	for _, b := range blobs {
		e, err := scene.Unmarshal(b)
		if err != nil {
			fmt.Printf("    %v\n", err)
			continue
		}
		printEntity(e, 2)
	}
}

func printEntity(e *scene.Entity, depth int) {
	p := e.Transform.Translation
	fmt.Printf("%s%s %s (%.2f, %.2f, %.2f)\n", strings.Repeat("  ", depth), e.UUID, e.Name, p[0], p[1], p[2])
	for _, c := range e.Children() {
		printEntity(c, depth+1)
	}
}
