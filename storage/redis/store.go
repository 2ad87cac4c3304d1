package redisstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/query"
)

const (
	fieldFailures    = "failures"
	fieldLastFailure = "last_failure"
	scanCount        = 100
)

// Store keeps query failure entries in redis hashes so that every API replica shares them.
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ query.Store = (*Store)(nil) // interface compliance check

// Open connects to the redis server in conf.
func Open(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	if conf.Password != "" {
		opts.Password = conf.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return rdb, nil
}

func NewStore(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix + "query:failures:"}
}

func (s *Store) key(hash string) string {
	return s.prefix + hash
}

func parseEntry(vals map[string]string) (query.Entry, error) {
	var entry query.Entry
	if v, ok := vals[fieldFailures]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return entry, errors.Wrap(err, "parsing failures")
		}
		entry.Failures = n
	}
	if v, ok := vals[fieldLastFailure]; ok && v != "" {
		nanos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return entry, errors.Wrap(err, "parsing last failure")
		}
		entry.LastFailure = time.Unix(0, nanos).UTC()
	}
	return entry, nil
}

func (s *Store) Get(ctx context.Context, hash string) (query.Entry, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(hash)).Result()
	if err != nil {
		return query.Entry{}, errors.Wrap(err, "reading failure entry")
	}
	return parseEntry(vals)
}

func (s *Store) Incr(ctx context.Context, hash string, at time.Time) (query.Entry, error) {
	var failures *redis.IntCmd
	key := s.key(hash)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		failures = pipe.HIncrBy(ctx, key, fieldFailures, 1)
		pipe.HSet(ctx, key, fieldLastFailure, strconv.FormatInt(at.UnixNano(), 10))
		return nil
	})
	if err != nil {
		return query.Entry{}, errors.Wrap(err, "incrementing failures")
	}
	return query.Entry{Failures: int(failures.Val()), LastFailure: at.UTC()}, nil
}

func (s *Store) Reset(ctx context.Context, hash string) error {
	if err := s.rdb.Del(ctx, s.key(hash)).Err(); err != nil {
		return errors.Wrap(err, "resetting failures")
	}
	return nil
}

func (s *Store) Snapshot(ctx context.Context) (map[string]query.Entry, error) {
	snap := make(map[string]query.Entry)
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		vals, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, errors.Wrap(err, "reading failure entry")
		}
		entry, err := parseEntry(vals)
		if err != nil {
			return nil, err
		}
		if entry.Failures > 0 {
			snap[strings.TrimPrefix(key, s.prefix)] = entry
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning failure entries")
	}
	return snap, nil
}
