// Package pulse broadcasts score updates over Redis Pub/Sub so live
// dashboards track targets without polling. Publishing is fire-and-forget:
// a lost pulse costs one screen refresh, never a vote.
package pulse

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"veritas/pkg/domain"
)

// Update is the message published after a target's score moves.
type Update struct {
	TargetID         string    `json:"targetId"`
	NewScore         float64   `json:"newScore"`
	TotalVotes       int       `json:"totalVotes"`
	IntegrityIndex   float64   `json:"integrityIndex"`
	IsTopTierVerdict bool      `json:"isTopTierVerdict"`
	VoterTier        string    `json:"voterTier"`
	Timestamp        time.Time `json:"timestamp"`
}

func channel(targetID domain.TargetID) string {
	return "pulse:" + targetID.String()
}

// Publisher is the slice of the pulse the ballot box needs.
type Publisher interface {
	Publish(ctx context.Context, targetID domain.TargetID, update Update)
}

// RedisPublisher broadcasts updates per target channel.
type RedisPublisher struct {
	rdb    *goredis.Client
	logger *slog.Logger
}

func NewRedisPublisher(rdb *goredis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: logger}
}

// Publish sends one update. Failures are logged and dropped; there is no
// retry on the vote path.
func (p *RedisPublisher) Publish(ctx context.Context, targetID domain.TargetID, update Update) {
	data, err := json.Marshal(update)
	if err != nil {
		p.logger.WarnContext(ctx, "pulse marshal failed", "target_id", targetID, "error", err)
		return
	}
	if err := p.rdb.Publish(ctx, channel(targetID), data).Err(); err != nil {
		p.logger.WarnContext(ctx, "pulse publish failed", "target_id", targetID, "error", err)
	}
}

// NopPublisher drops every update. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.TargetID, Update) {}

// Subscription is an active per-target update stream.
type Subscription struct {
	sub    *goredis.PubSub
	Ch     <-chan Update
	cancel context.CancelFunc
}

// Close unsubscribes and stops the stream.
func (s *Subscription) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// Subscribe streams updates for one target until Close.
func (p *RedisPublisher) Subscribe(ctx context.Context, targetID domain.TargetID) *Subscription {
	sub := p.rdb.Subscribe(ctx, channel(targetID))

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Update, 16)

	go func() {
		defer close(ch)
		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var update Update
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					p.logger.Warn("pulse unmarshal failed", "error", err)
					continue
				}
				select {
				case ch <- update:
				case <-subCtx.Done():
					return
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription{sub: sub, Ch: ch, cancel: cancel}
}
