package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/hexworld/internal/broadcast"
	"github.com/gravitas-games/hexworld/internal/config"
	"github.com/gravitas-games/hexworld/internal/console"
	"github.com/gravitas-games/hexworld/internal/persistence"
	"github.com/gravitas-games/hexworld/internal/persistence/indexdb"
	"github.com/gravitas-games/hexworld/internal/server"
	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/snapshot"
)

func main() {
	log.Println("Starting hexworld server...")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/server.yaml"
	}

	cfg, err := config.Load(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("No configuration at %s, using defaults", configPath)
		cfg = config.Default()
	case err != nil:
		log.Fatalf("Failed to load configuration: %v", err)
	default:
		log.Printf("Configuration loaded from %s", configPath)
	}

	// Engine and tile data
	var engineIO engine.IO
	if cfg.Engine.Resources != "" {
		engineIO = engine.NewFilesystemIO(cfg.Engine.Resources)
	} else {
		fsIO, err := engine.FilesystemIOFromCwd()
		if err != nil {
			log.Fatalf("Failed to locate resources: %v", err)
		}
		engineIO = fsIO
	}
	eng := engine.New(log.New(os.Stderr, "[engine] ", log.LstdFlags))
	if err := eng.Setup(engineIO); err != nil {
		log.Fatalf("engine setup failed: %v", err)
	}
	log.Printf("Loaded %d tile types", eng.TileTypes().Len())

	// Snapshot index
	dataDir := cfg.Persistence.DataDir
	var idx *indexdb.SQLiteIndex
	var snapIndex persistence.SnapshotIndex
	if cfg.Persistence.Index {
		idx, err = indexdb.OpenSQLite(filepath.Join(dataDir, indexdb.FileName))
		if err != nil {
			log.Fatalf("Failed to open index: %v", err)
		}
		defer idx.Close()
		snapIndex = idx
	}
	writer := persistence.NewWriter(dataDir, snapIndex, nil)

	var startTick uint64
	if cfg.Persistence.LoadLatest {
		if path := persistence.LatestSnapshot(dataDir); path != "" {
			snap, err := snapshot.ReadFile(path)
			if err != nil {
				log.Fatalf("Failed to read snapshot %s: %v", path, err)
			}
			if err := eng.ImportSnapshot(snap); err != nil {
				log.Fatalf("Failed to restore snapshot %s: %v", path, err)
			}
			startTick = snap.Header.Tick
			log.Printf("Restored snapshot %s (tick %d)", path, startTick)
		}
	}

	if m := cfg.Engine.DefaultMap; m != nil {
		if _, err := eng.Map(m.Name); err != nil {
			gen, err := eng.NewGenerator(engine.GeneratorSpec{Kind: m.Generator, Types: m.Types, Seed: m.Seed, Scale: m.Scale, Rivers: m.Rivers, RiverType: m.RiverType})
			if err != nil {
				log.Fatalf("Invalid default map generator: %v", err)
			}
			info, err := eng.GenerateMap(m.Name, m.Width, m.Height, m.WrapsX, gen)
			if err != nil {
				log.Fatalf("Failed to generate default map: %v", err)
			}
			log.Printf("Generated default map %q (%d tiles)", info.Name, info.Tiles)
			if idx != nil {
				idx.RecordMap(indexdb.MapRow{Name: info.Name, Width: int(info.Width), Height: int(info.Height), WrapsX: info.WrapsX, Tiles: info.Tiles, GeneratedTick: startTick})
			}
		}
	}

	// Event pump
	bus := engine.NewSimpleEventBus()
	snapCh := make(chan snapshot.SnapshotV1, 2)
	pump := engine.NewPump(eng, bus, engine.PumpConfig{
		TickRateHz:    cfg.Server.TickRate,
		InboxSize:     cfg.Engine.InboxSize,
		SnapshotEvery: cfg.Persistence.SnapshotEveryTicks,
		Snapshots:     snapCh,
		Logger:        log.New(os.Stderr, "[pump] ", log.LstdFlags),
	})
	pump.SetTick(startTick)
	if idx != nil {
		defer persistence.WatchMaps(bus, eng, idx)()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writer.Run(ctx, snapCh)
	}()

	// Redis (optional)
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Connected to Redis")
		defer redisClient.Close()

		publisher := broadcast.New(redisClient, cfg.Redis.EventsChannel, nil)
		publisher.Attach(bus)
		defer publisher.Close(bus)
	}

	// Create and initialize server
	var opts []server.Option
	if idx != nil {
		opts = append(opts, server.WithCatalog(idx))
	}
	srv, err := server.New(cfg, pump, redisClient, opts...)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		addr := cfg.Server.Addr()
		log.Printf("Server listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- pump.Run(ctx)
	}()

	if cfg.Console.Enabled {
		save := func() (string, error) {
			return writer.Write(eng.ExportSnapshot(pump.Tick()))
		}
		c := console.New(pump, save, os.Stdout, nil)
		go func() {
			if err := c.Run(os.Stdin); err != nil {
				log.Printf("Console stopped: %v", err)
			}
		}()
	}

	// Wait for interrupt signal, a Quit input or an error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	pumpStopped := false
	select {
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	case err := <-pumpDone:
		pumpStopped = true
		if err != nil {
			log.Printf("Pump stopped: %v", err)
		} else {
			log.Println("Quit requested, shutting down...")
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown
	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	pump.Stop()
	if !pumpStopped {
		<-pumpDone
	}
	// The pump no longer offers snapshots; let the writer drain what is queued.
	close(snapCh)
	<-writerDone

	if cfg.Persistence.SnapshotEveryTicks > 0 {
		if path, err := writer.Write(eng.ExportSnapshot(pump.Tick())); err != nil {
			log.Printf("Final snapshot failed: %v", err)
		} else {
			log.Printf("Final snapshot written to %s", path)
		}
	}

	log.Println("Server stopped")
}
