package event

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// Firehose channel carrying every event.
	eventsChannel = "tracking:events"
	// Per-trip channel prefix so clients can subscribe to a single trip.
	tripChannelPrefix = "tracking:events:"
)

// RedisBus publishes events over Redis pub/sub. Publish failures are
// logged and swallowed so a broker outage degrades to lost events, never
// to failed tracking operations.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus creates a RedisBus on the given client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("marshal event")
		return nil
	}

	if err := b.client.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Str("trip_id", ev.TripID).Msg("publish event")
		return nil
	}

	if err := b.client.Publish(ctx, tripChannelPrefix+ev.TripID, payload).Err(); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Str("trip_id", ev.TripID).Msg("publish trip event")
	}

	return nil
}

var _ Bus = (*RedisBus)(nil)
