// Package telemetry publishes server runtime stats (connection count,
// current frame number, in-flight transfer progress) to Redis so an
// external dashboard can watch a running recorder without talking the
// wire protocol itself. It is optional: a nil Publisher is always
// safe to call through. Grounded on the teacher's pkg/redis client,
// generalised from device state fields to server stats.
package telemetry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher publishes server stats to a single Redis channel, mirroring
// the teacher's WriteAndPublishInt hash-plus-publish pattern.
type Publisher struct {
	client  *redis.Client
	ctx     context.Context
	key     string
	channel string
}

// NewPublisher connects to addr and returns a Publisher that writes
// under the fixed hash key "tes:server" and publishes on channel. A nil
// *Publisher is valid and every method on it is a no-op, so callers can
// construct one conditionally and use it unconditionally.
func NewPublisher(addr, channel string) (*Publisher, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: connect to redis at %s: %w", addr, err)
	}
	return &Publisher{client: client, ctx: ctx, key: "tes:server", channel: channel}, nil
}

// PublishConnectionCount reports the current live connection count.
func (p *Publisher) PublishConnectionCount(n int) error {
	return p.publishInt("connections", n)
}

// PublishFrame reports the current frame number.
func (p *Publisher) PublishFrame(frame uint32) error {
	return p.publishInt("frame", int(frame))
}

// PublishTransferProgress reports the opaque progress counter
// (resource.Packer.Progress) of a resource key currently in flight.
// The value's encoding is specific to the resource kind; it is not a
// byte count.
func (p *Publisher) PublishTransferProgress(resourceKey uint64, progress uint64) error {
	if p == nil {
		return nil
	}
	pipe := p.client.Pipeline()
	field := fmt.Sprintf("transfer:%d", resourceKey)
	pipe.HSet(p.ctx, p.key, field, progress)
	pipe.Publish(p.ctx, p.channel, fmt.Sprintf("%s:%d", field, progress))
	_, err := pipe.Exec(p.ctx)
	return err
}

func (p *Publisher) publishInt(field string, value int) error {
	if p == nil {
		return nil
	}
	pipe := p.client.Pipeline()
	pipe.HSet(p.ctx, p.key, field, value)
	pipe.Publish(p.ctx, p.channel, fmt.Sprintf("%s:%d", field, value))
	_, err := pipe.Exec(p.ctx)
	return err
}

// Close closes the underlying Redis client. Safe to call on nil.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
