// Command seedregion fills a level with randomly placed entities.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"StreamCore/scene"
	"StreamCore/world"
)

var (
	level       = flag.String("level", "world", "Level directory")
	worldConfig = flag.String("world-config", "", "World config file, empty uses the defaults")
	compression = flag.String("compression", "gzip", "Sector compression")
	count       = flag.Int("n", 1000, "Number of entities")
	radius      = flag.Float64("radius", 300, "Entities are placed within this distance of the origin")
	seed        = flag.Int64("seed", 1, "Random seed")
)

func main() {
	flag.Parse()
	logger := unwrap(zap.NewDevelopment())
	defer logger.Sync()

	config := world.DefaultConfig()
	if *worldConfig != "" {
		config = unwrap(world.LoadConfig(*worldConfig))
	}
	c := unwrap(world.ParseCompression(*compression))
	storage := unwrap(world.NewRegionStorage(logger.Named("storage"), filepath.Join(*level, "region"), config.RegionWidth, c))

	sc := scene.New(logger.Named("scene"))
	chunks := world.NewSceneChunkLogic(logger.Named("chunks"), sc, storage, config)
	if err := chunks.Init(); err != nil {
		panic(err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *count; i++ {
		e := scene.NewEntity(fmt.Sprintf("crate-%d", i), true)
		e.Transform.Translation = scene.Position{
			(rng.Float64()*2 - 1) * *radius,
			rng.Float64() * float64(config.ChunkHeight),
			(rng.Float64()*2 - 1) * *radius,
		}
		if _, err := sc.Register(e); err != nil {
			panic(err)
		}
	}

	chunks.Update(time.Millisecond)
	if err := chunks.Close(); err != nil {
		panic(err)
	}
	s := chunks.Stats()
	logger.Info("Level seeded",
		zap.String("level", *level),
		zap.Int("entities", s.Entities),
		zap.Int("regions", s.Regions),
		zap.Int("chunks", s.Chunks))
}

func unwrap[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
