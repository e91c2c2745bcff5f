// Package persist implements the tiered write-through strategy: the
// in-memory TripState is authoritative, a Redis entry with TTL is the warm
// tier and a Mongo document is the durable tier. Writes to both external
// tiers are best-effort and bounded by a timeout; their failures are
// logged and absorbed so transient outages degrade to in-memory-only
// tracking instead of failing the caller's operation.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracking/internal/domain"
)

const tripCachePrefix = "tracking:trip:"

// ErrSnapshotNotFound is returned by LoadSnapshot when neither tier has a
// document for the trip.
var ErrSnapshotNotFound = errors.New("trip snapshot not found")

// Bridge fans a trip snapshot out to the cache and durable tiers. Either
// client may be nil, in which case that tier is skipped entirely.
type Bridge struct {
	cache     *redis.Client
	documents *mongo.Collection
	cacheTTL  time.Duration
	opTimeout time.Duration
}

// NewBridge creates a Bridge. cacheTTL bounds the warm-tier entry
// lifetime; opTimeout bounds every external write.
func NewBridge(cache *redis.Client, documents *mongo.Collection, cacheTTL, opTimeout time.Duration) *Bridge {
	return &Bridge{
		cache:     cache,
		documents: documents,
		cacheTTL:  cacheTTL,
		opTimeout: opTimeout,
	}
}

// SaveSnapshot writes the snapshot through both tiers, best-effort.
func (b *Bridge) SaveSnapshot(ctx context.Context, state *domain.TripState) {
	snap := FromState(state, "", time.Now())
	b.writeCache(ctx, snap)
	b.writeDocument(ctx, snap)
}

// Finalize performs the authoritative final durable write for a stopped
// trip and drops the warm-tier entry.
func (b *Bridge) Finalize(ctx context.Context, state *domain.TripState, reason domain.StopReason) {
	snap := FromState(state, reason, time.Now())
	b.writeDocument(ctx, snap)

	if b.cache == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	if err := b.cache.Del(opCtx, tripCachePrefix+snap.TripID).Err(); err != nil {
		log.Warn().Err(err).Str("trip_id", snap.TripID).Msg("drop cached trip snapshot")
	}
}

// LoadSnapshot reads a snapshot, preferring the cache tier. This is the
// recovery path for a restarted process, not the live read path: live
// reads come from the in-memory registry.
func (b *Bridge) LoadSnapshot(ctx context.Context, tripID string) (*Snapshot, error) {
	if b.cache != nil {
		opCtx, cancel := context.WithTimeout(ctx, b.opTimeout)
		data, err := b.cache.Get(opCtx, tripCachePrefix+tripID).Bytes()
		cancel()
		if err == nil {
			var snap Snapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				return &snap, nil
			}
			log.Warn().Str("trip_id", tripID).Msg("corrupt cached snapshot, falling through")
		} else if err != redis.Nil {
			log.Warn().Err(err).Str("trip_id", tripID).Msg("read cached trip snapshot")
		}
	}

	if b.documents != nil {
		opCtx, cancel := context.WithTimeout(ctx, b.opTimeout)
		defer cancel()

		var snap Snapshot
		err := b.documents.FindOne(opCtx, bson.M{"_id": tripID}).Decode(&snap)
		if err == nil {
			return &snap, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn().Err(err).Str("trip_id", tripID).Msg("read durable trip snapshot")
		}
	}

	return nil, ErrSnapshotNotFound
}

func (b *Bridge) writeCache(ctx context.Context, snap Snapshot) {
	if b.cache == nil {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Str("trip_id", snap.TripID).Msg("marshal trip snapshot")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()

	if err := b.cache.Set(opCtx, tripCachePrefix+snap.TripID, data, b.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("trip_id", snap.TripID).Msg("cache trip snapshot")
	}
}

func (b *Bridge) writeDocument(ctx context.Context, snap Snapshot) {
	if b.documents == nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()

	_, err := b.documents.ReplaceOne(opCtx,
		bson.M{"_id": snap.TripID}, snap, options.Replace().SetUpsert(true))
	if err != nil {
		log.Warn().Err(err).Str("trip_id", snap.TripID).Msg("persist trip snapshot")
	}
}
