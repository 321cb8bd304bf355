package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps each document in a hash (data + version) and fans out
// change-feed snapshots over pub/sub. Conditional updates run inside a
// WATCH/MULTI transaction so the version check and the write commit
// atomically.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) docKey(collection, id string) string {
	return "doc:" + collection + ":" + id
}

func (s *RedisStore) feedChannel(collection, id string) string {
	return "docfeed:" + collection + ":" + id
}

type feedMessage struct {
	ID        string `json:"id"`
	Data      []byte `json:"data"`
	Version   int64  `json:"version"`
	UpdatedAt int64  `json:"updated_at"` // unix millis
}

// createScript writes the whole document in one step, so a half-written
// hash can never exist: either the key holds a complete document or it does
// not exist at all.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "version", 1, "data", ARGV[1], "updated_at", ARGV[2])
return 1
`)

func (s *RedisStore) Create(ctx context.Context, collection, id string, data []byte) (Document, error) {
	k := s.docKey(collection, id)
	now := time.Now()

	created, err := createScript.Run(ctx, s.client, []string{k}, data, now.UnixMilli()).Int64()
	if err != nil {
		return Document{}, err
	}
	if created == 0 {
		return Document{}, ErrExists
	}

	doc := Document{ID: id, Data: append([]byte(nil), data...), Version: 1, UpdatedAt: now}
	s.publish(ctx, collection, id, doc)
	return doc, nil
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) (Document, error) {
	vals, err := s.client.HGetAll(ctx, s.docKey(collection, id)).Result()
	if err != nil {
		return Document{}, err
	}
	if len(vals) == 0 {
		return Document{}, ErrNotFound
	}
	return docFromHash(id, vals)
}

func (s *RedisStore) Update(ctx context.Context, collection, id string, expectedVersion int64, data []byte) (Document, error) {
	k := s.docKey(collection, id)
	now := time.Now()
	var out Document

	txn := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, k, "version").Int64()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if cur != expectedVersion {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, "data", data, "version", cur+1, "updated_at", now.UnixMilli())
			return nil
		})
		if err != nil {
			return err
		}

		out = Document{ID: id, Data: append([]byte(nil), data...), Version: cur + 1, UpdatedAt: now}
		return nil
	}

	// redis.TxFailedErr means another writer touched the key between WATCH
	// and EXEC; the document changed under us either way.
	err := s.client.Watch(ctx, txn, k)
	if errors.Is(err, redis.TxFailedErr) {
		return Document{}, ErrVersionConflict
	}
	if err != nil {
		return Document{}, err
	}

	s.publish(ctx, collection, id, out)
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	return s.client.Del(ctx, s.docKey(collection, id)).Err()
}

func (s *RedisStore) List(ctx context.Context, collection string) ([]string, error) {
	prefix := "doc:" + collection + ":"
	var ids []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), prefix))
	}
	return ids, iter.Err()
}

func (s *RedisStore) Watch(ctx context.Context, collection, id string) (<-chan Document, func(), error) {
	if _, err := s.Get(ctx, collection, id); err != nil {
		return nil, nil, err
	}

	sub := s.client.Subscribe(ctx, s.feedChannel(collection, id))
	out := make(chan Document, 8)

	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = sub.Close()
			close(done)
		})
	}

	go func() {
		defer close(out)
		in := sub.Channel()
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				var fm feedMessage
				if err := json.Unmarshal([]byte(msg.Payload), &fm); err != nil {
					logger.Warn("docstore: bad feed payload", "error", err)
					continue
				}
				d := Document{
					ID:        fm.ID,
					Data:      fm.Data,
					Version:   fm.Version,
					UpdatedAt: time.UnixMilli(fm.UpdatedAt),
				}
				deliver(out, d)
			case <-done:
				return
			case <-ctx.Done():
				release()
				return
			}
		}
	}()

	return out, release, nil
}

func (s *RedisStore) publish(ctx context.Context, collection, id string, d Document) {
	payload, err := json.Marshal(feedMessage{
		ID:        d.ID,
		Data:      d.Data,
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.feedChannel(collection, id), payload).Err(); err != nil {
		logger.Warn("docstore: feed publish failed", "collection", collection, "id", id, "error", err)
	}
}

func docFromHash(id string, vals map[string]string) (Document, error) {
	version, err := strconv.ParseInt(vals["version"], 10, 64)
	if err != nil {
		return Document{}, err
	}
	var updatedAt time.Time
	if ms, err := strconv.ParseInt(vals["updated_at"], 10, 64); err == nil {
		updatedAt = time.UnixMilli(ms)
	}
	return Document{
		ID:        id,
		Data:      []byte(vals["data"]),
		Version:   version,
		UpdatedAt: updatedAt,
	}, nil
}
