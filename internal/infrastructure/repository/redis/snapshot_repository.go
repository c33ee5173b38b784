package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
)

const (
	defaultPrefix = "fpl:snapshot:"
	metaSuffix    = ":meta"
	// sorted set of gameweek tagged keys scored by gameweek, used by retention
	gameweekIndex = "index:gw"
)

// SnapshotRepository stores the {data, gameweek} envelope under prefix+key
// and the {timestamp, gw} metadata under prefix+key+":meta".
type SnapshotRepository struct {
	client *goredis.Client
	prefix string
}

// Open parses redisURL, pings the server and returns a repository.
func Open(ctx context.Context, redisURL string) (*SnapshotRepository, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewSnapshotRepository(client, ""), nil
}

func NewSnapshotRepository(client *goredis.Client, prefix string) *SnapshotRepository {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultPrefix
	}
	return &SnapshotRepository{client: client, prefix: prefix}
}

func (r *SnapshotRepository) Close() error {
	return r.client.Close()
}

func (r *SnapshotRepository) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *SnapshotRepository) Get(ctx context.Context, key string) (snapshot.Entry, bool, error) {
	values, err := r.client.MGet(ctx, r.dataKey(key), r.metaKey(key)).Result()
	if err != nil {
		return snapshot.Entry{}, false, fmt.Errorf("mget snapshot key=%s: %w", key, err)
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return snapshot.Entry{}, false, nil
	}

	rawData, _ := values[0].(string)
	rawMeta, _ := values[1].(string)

	var env snapshot.Envelope
	if err := sonic.UnmarshalString(rawData, &env); err != nil {
		return snapshot.Entry{}, false, fmt.Errorf("decode snapshot data key=%s: %w", key, err)
	}
	var meta snapshot.Metadata
	if err := sonic.UnmarshalString(rawMeta, &meta); err != nil {
		return snapshot.Entry{}, false, fmt.Errorf("decode snapshot meta key=%s: %w", key, err)
	}

	return snapshot.Assemble(key, env, meta), true, nil
}

func (r *SnapshotRepository) Put(ctx context.Context, entry snapshot.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	rawData, err := sonic.Marshal(snapshot.EnvelopeOf(entry))
	if err != nil {
		return fmt.Errorf("encode snapshot data key=%s: %w", entry.Key, err)
	}
	rawMeta, err := sonic.Marshal(snapshot.MetadataOf(entry))
	if err != nil {
		return fmt.Errorf("encode snapshot meta key=%s: %w", entry.Key, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.dataKey(entry.Key), rawData, 0)
		pipe.Set(ctx, r.metaKey(entry.Key), rawMeta, 0)
		if entry.Gameweek > 0 {
			pipe.ZAdd(ctx, r.indexKey(), goredis.Z{Score: float64(entry.Gameweek), Member: entry.Key})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write snapshot key=%s: %w", entry.Key, err)
	}
	return nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.dataKey(key), r.metaKey(key))
		pipe.ZRem(ctx, r.indexKey(), key)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("delete snapshot key=%s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepository) PurgeBefore(ctx context.Context, before int) (int, error) {
	if before <= 1 {
		return 0, nil
	}

	keys, err := r.client.ZRangeByScore(ctx, r.indexKey(), &goredis.ZRangeBy{
		Min: "1",
		Max: "(" + strconv.Itoa(before),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list snapshots before gw=%d: %w", before, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	redisKeys := make([]string, 0, len(keys)*2)
	members := make([]any, 0, len(keys))
	for _, key := range keys {
		redisKeys = append(redisKeys, r.dataKey(key), r.metaKey(key))
		members = append(members, key)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, redisKeys...)
		pipe.ZRem(ctx, r.indexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge snapshots before gw=%d: %w", before, err)
	}
	return len(keys), nil
}

func (r *SnapshotRepository) dataKey(key string) string {
	return r.prefix + key
}

func (r *SnapshotRepository) metaKey(key string) string {
	return r.prefix + key + metaSuffix
}

func (r *SnapshotRepository) indexKey() string {
	return r.prefix + gameweekIndex
}
