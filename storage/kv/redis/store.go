package rediskv

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/storage/kv"
)

const scanBatch = 100

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// Store keeps values as plain Redis strings under a namespace prefix.
type Store struct {
	client *redis.Client
	ns     string
}

var _ kv.Store = (*Store)(nil)

type Options struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return New(client, opts.Namespace), nil
}

func New(client *redis.Client, namespace string) *Store {
	return &Store{client: client, ns: namespace}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.ns+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, wrap(err, "getting "+key)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.ns+key, value, 0).Err(); err != nil {
		// maxmemory reached with a noeviction policy
		if strings.HasPrefix(err.Error(), "OOM") {
			return errors.Wrap(kv.ErrQuotaExceeded, err.Error())
		}
		return wrap(err, "setting "+key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.ns+key).Err(); err != nil {
		return wrap(err, "deleting "+key)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	seen := make(map[string]bool) // SCAN may return a key more than once
	iter := s.client.Scan(ctx, 0, globEscaper.Replace(s.ns+prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), s.ns)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, wrap(err, "scanning keys")
	}
	return keys, nil
}

// wrap reports a closed client as a shutdown error: nothing can be stored anymore.
func wrap(err error, msg string) error {
	if errors.Is(err, redis.ErrClosed) {
		return errors.Wrap(core.NewShutdownError(err.Error()), msg)
	}
	return errors.Wrap(err, msg)
}

func (s *Store) Close() error {
	return s.client.Close()
}
