package reports

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache guarda o snapshot de relatórios no Redis e avisa a camada de
// renderização via Pub/Sub quando há versão nova.
type RedisCache struct {
	Client       *redis.Client
	SnapshotKey  string
	Channel      string
	LiveFetchKey string // gravada pelo ingest a cada busca do placar ao vivo
	TTL          time.Duration
}

func NewRedisCache(c *redis.Client, snapshotKey, channel, liveFetchKey string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		Client:       c,
		SnapshotKey:  snapshotKey,
		Channel:      channel,
		LiveFetchKey: liveFetchKey,
		TTL:          ttl,
	}
}

// StoreSnapshot grava o snapshot serializado e publica o aviso de refresh.
// Falha no aviso não invalida o snapshot já gravado.
func (r *RedisCache) StoreSnapshot(ctx context.Context, payload []byte) error {
	if err := r.Client.Set(ctx, r.SnapshotKey, payload, r.TTL).Err(); err != nil {
		return err
	}
	return r.Client.Publish(ctx, r.Channel, "refresh").Err()
}

// ReferenceTime devolve o instante da última busca do feed ao vivo, para o
// relatório ficar coerente com um feed defasado em vez de seguir o relógio.
// Sem registro (ou com registro ilegível) vale o fallback.
func (r *RedisCache) ReferenceTime(ctx context.Context, fallback time.Time) time.Time {
	v, err := r.Client.Get(ctx, r.LiveFetchKey).Result()
	if err != nil {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return fallback
	}
	return t.UTC()
}
