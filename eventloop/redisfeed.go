package eventloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lyzr/notf/common/logger"
	"github.com/redis/go-redis/v9"
)

// FactMessage is one externally-sourced emission bound for a named root
// interface operator — the host-to-core surface spec describes as
// scene.get_fact(name).next(value)/.fail(error)/.complete().
type FactMessage struct {
	Fact    string
	Kind    string // "next", "fail", or "complete"
	Payload string // JSON-encoded Value, empty for complete
}

// RedisFactFeed consumes a Redis stream of externally-produced facts and
// re-enters the event loop with one ScheduleEvent per message, exactly
// the XREADGROUP-then-ACK consumer loop the teacher's run request
// consumer uses for work distribution — repurposed here to carry fact
// emissions instead of run requests.
type RedisFactFeed struct {
	client        *redis.Client
	log           *logger.Logger
	stream        string
	consumerGroup string
	consumerName  string
	loop          *Loop
	handle        func(FactMessage)
}

// NewRedisFactFeed wires a feed that will call handle, on the Loop's logic
// thread, for every fact message consumed from stream.
func NewRedisFactFeed(client *redis.Client, log *logger.Logger, stream, consumerGroup, consumerName string, loop *Loop, handle func(FactMessage)) *RedisFactFeed {
	return &RedisFactFeed{
		client:        client,
		log:           log,
		stream:        stream,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
		loop:          loop,
		handle:        handle,
	}
}

// Run blocks, reading stream messages until ctx is cancelled. Every
// decoded FactMessage is handed to the event loop via ScheduleEvent, never
// invoked directly on this goroutine — only the logic thread is allowed
// to touch the operator graph.
func (f *RedisFactFeed) Run(ctx context.Context) error {
	if err := f.client.XGroupCreateMkStream(ctx, f.stream, f.consumerGroup, "0").Err(); err != nil && !errors.Is(err, redis.Nil) {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("redisfeed: failed to create consumer group: %w", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := f.consumeOnce(ctx); err != nil {
				f.log.ErrorContext(ctx, "redisfeed: consume failed", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (f *RedisFactFeed) consumeOnce(ctx context.Context) error {
	streams, err := f.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    f.consumerGroup,
		Consumer: f.consumerName,
		Streams:  []string{f.stream, ">"},
		Count:    8,
		Block:    5 * time.Second,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redisfeed: XREADGROUP: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			msg, ok := decodeFactMessage(message)
			if ok {
				f.loop.ScheduleEvent(func(context.Context) { f.handle(msg) })
			}
			if err := f.client.XAck(ctx, f.stream, f.consumerGroup, message.ID).Err(); err != nil {
				f.log.ErrorContext(ctx, "redisfeed: ack failed", "message_id", message.ID, "error", err)
			}
		}
	}
	return nil
}

func decodeFactMessage(message redis.XMessage) (FactMessage, bool) {
	fact, ok := message.Values["fact"].(string)
	if !ok || fact == "" {
		return FactMessage{}, false
	}
	kind, _ := message.Values["kind"].(string)
	if kind == "" {
		kind = "next"
	}
	payload, _ := message.Values["payload"].(string)
	return FactMessage{Fact: fact, Kind: kind, Payload: payload}, true
}
