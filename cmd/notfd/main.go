// Command notfd is the host process: it wires an operator Runtime, an Event
// Loop, and a Scene rooted at a small built-in demo Description, then
// optionally exposes the scene over httpapi's debug HTTP surface, drives it
// from a Redis fact feed, and periodically snapshots it to Postgres. Wiring
// order mirrors the teacher's cmd/workflow-runner main.go: bootstrap
// collaborators, start each optional one in its own goroutine reporting to a
// shared error channel, then block on a shutdown signal or the first
// component error.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/notf/common/config"
	"github.com/lyzr/notf/common/logger"
	"github.com/lyzr/notf/common/server"
	"github.com/lyzr/notf/eventloop"
	"github.com/lyzr/notf/httpapi"
	"github.com/lyzr/notf/operator"
	"github.com/lyzr/notf/operator/kinds"
	"github.com/lyzr/notf/scene"
	"github.com/lyzr/notf/storage"
	"github.com/lyzr/notf/value"
)

func main() {
	cfg, err := config.Load("notfd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "notfd: config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := eventloop.New(log)
	rt := operator.NewRuntime(ctx, loop)
	kinds.Register(rt)

	sc, err := scene.New(rt, rootDescription())
	if err != nil {
		log.Error("failed to build scene", "error", err)
		os.Exit(1)
	}
	log.Info("scene built", "root_state", "running")

	errChan := make(chan error, 3)

	if cfg.HTTP.Enabled {
		srv := server.New("notfd-http", cfg.HTTP.Port, httpapi.New(sc, log), log)
		go func() {
			log.Info("starting http debug surface", "port", cfg.HTTP.Port)
			if err := srv.Start(ctx); err != nil {
				errChan <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		feed := eventloop.NewRedisFactFeed(client, log, cfg.Redis.Stream, cfg.Redis.ConsumerGroup, cfg.Redis.ConsumerName, loop, func(msg eventloop.FactMessage) {
			if err := applyFactMessage(sc, msg); err != nil {
				log.Error("fact feed: failed to apply message", "fact", msg.Fact, "error", err)
			}
		})
		go func() {
			log.Info("starting redis fact feed", "stream", cfg.Redis.Stream)
			if err := feed.Run(ctx); err != nil && err != context.Canceled {
				errChan <- fmt.Errorf("redis fact feed: %w", err)
			}
		}()
	}

	if cfg.Storage.Enabled {
		store, err := storage.New(ctx, cfg.Storage, log)
		if err != nil {
			log.Error("failed to connect storage", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure storage schema", "error", err)
			os.Exit(1)
		}
		go runSnapshotLoop(ctx, sc, store, log)
	}

	go func() {
		log.Info("starting event loop")
		loop.Run(ctx)
	}()

	log.Info("notfd started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("component failed", "error", err)
		cancel()
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}

	loop.Shutdown()
	log.Info("notfd shut down")
}

// applyFactMessage drives msg against the root fact it names. Only the
// "next" kind is applied; a message of any other kind (fail, complete) is
// ignored without logging and without an error.
func applyFactMessage(sc *scene.Scene, msg eventloop.FactMessage) error {
	if msg.Kind != "next" {
		return nil
	}
	root := sc.Node(sc.Root())
	reference, ok := root.Interop(msg.Fact)
	if !ok {
		return fmt.Errorf("no fact named %q", msg.Fact)
	}
	v, err := value.FromJSON(msg.Payload, &reference)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return sc.DriveFact(msg.Fact, v)
}

// runSnapshotLoop periodically content-addresses the root node's interface
// state into storage until ctx is cancelled.
func runSnapshotLoop(ctx context.Context, sc *scene.Scene, store *storage.Store, log *logger.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	previous, hadPrevious, err := store.Latest(ctx, "/")
	if err != nil {
		log.Error("snapshot: failed to load previous snapshot", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			doc, err := sc.InterfaceJSON(sc.Root())
			if err != nil {
				log.Error("snapshot: failed to encode root interface", "error", err)
				continue
			}
			if hadPrevious {
				if patch, err := store.Diff(previous, doc); err == nil && len(patch) > 2 {
					log.Info("snapshot: root interface changed", "patch", string(patch))
				}
			}
			if _, err := store.Save(ctx, "/", doc); err != nil {
				log.Error("snapshot: failed to save", "error", err)
				continue
			}
			previous, hadPrevious = doc, true
		}
	}
}

// rootDescription is the built-in demo scene: a root node exposing a single
// "count" fact, driven by a free-running Sine operator in its only state.
// Its purpose is to give the host process something to run and httpapi
// something to serve out of the box; a real deployment would build its
// Description from configuration or a compiled definition instead.
func rootDescription() *scene.Description {
	numberSchema := value.Schema{int64(value.KindNumber)}
	sineArgs, err := value.FromDenotable(value.Object{
		{Key: "frequency", Value: value.MustFromDenotable(0.1)},
		{Key: "amplitude", Value: value.MustFromDenotable(1.0)},
		{Key: "samples", Value: value.MustFromDenotable(32.0)},
	})
	if err != nil {
		panic(fmt.Sprintf("notfd: building demo sine args: %v", err))
	}

	return &scene.Description{
		Name: "root",
		Interface: []scene.InterfaceSlot{
			{Name: "count", Schema: numberSchema},
		},
		InitialState: "running",
		States: map[string]*scene.StateDescription{
			"running": {
				Operators: []scene.OperatorSpec{
					{Name: "ticker", Kind: "Sine", Args: sineArgs},
				},
				Connections: []scene.Connection{
					{Source: "ticker", Sink: "|count"},
				},
				Claim: "ticker",
			},
		},
		Transitions: map[[2]string]bool{
			{"", "running"}: true,
		},
	}
}
