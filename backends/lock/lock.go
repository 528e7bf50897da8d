// Package lock guards the catalog against concurrent writers. The catalog
// files assume exactly one writing process; every run takes a lock first.
//
// Two backends exist: a file lock next to the data (single host) and a Redis
// lock for runners spread over several hosts.
package lock

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dselans/music-catalog/clog"
)

const (
	DefaultFileName = ".catalog.lock"
	DefaultRedisKey = "music-catalog:writer"
	DefaultTTL      = 10 * time.Minute
)

// ErrLocked is returned when another writer holds the lock.
var ErrLocked = errors.New("catalog is locked by another writer")

type ILock interface {
	// Acquire takes the lock without waiting; ErrLocked when it is held.
	Acquire(ctx context.Context) error

	// Release frees the lock. Releasing a lock that is not held is a no-op.
	Release(ctx context.Context) error

	// Name describes the lock for logs.
	Name() string
}

type FileLock struct {
	path string
	fl   *flock.Flock
	log  clog.ICustomLog
}

func NewFile(path string, log clog.ICustomLog) (*FileLock, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}

	if log == nil {
		return nil, errors.New("log cannot be nil")
	}

	return &FileLock{
		path: path,
		fl:   flock.New(path),
		log:  log.With(zap.String("pkg", "lock"), zap.String("lock", path)),
	}, nil
}

func (f *FileLock) Acquire(_ context.Context) error {
	ok, err := f.fl.TryLock()
	if err != nil {
		return errors.Wrapf(err, "unable to lock '%s'", f.path)
	}

	if !ok {
		return ErrLocked
	}

	f.log.Debug("Acquired file lock")

	return nil
}

func (f *FileLock) Release(_ context.Context) error {
	if !f.fl.Locked() {
		return nil
	}

	if err := f.fl.Unlock(); err != nil {
		return errors.Wrapf(err, "unable to unlock '%s'", f.path)
	}

	f.log.Debug("Released file lock")

	return nil
}

func (f *FileLock) Name() string {
	return "file:" + f.path
}

type RedisOptions struct {
	Addr     string
	Password string
	Database int
	Key      string
	TTL      time.Duration
	Log      clog.ICustomLog
}

type RedisLock struct {
	opts   *RedisOptions
	client *redis.Client
	locker *redislock.Client
	held   *redislock.Lock
	log    clog.ICustomLog
}

func NewRedis(opts *RedisOptions) (*RedisLock, error) {
	if err := validateRedisOptions(opts); err != nil {
		return nil, errors.Wrap(err, "failed to validate options")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.Database,
	})

	return &RedisLock{
		opts:   opts,
		client: client,
		locker: redislock.New(client),
		log:    opts.Log.With(zap.String("pkg", "lock"), zap.String("lock", opts.Key)),
	}, nil
}

func validateRedisOptions(opts *RedisOptions) error {
	if opts == nil {
		return errors.New("options cannot be nil")
	}

	if opts.Addr == "" {
		return errors.New("addr cannot be empty")
	}

	if opts.Log == nil {
		return errors.New("log cannot be nil")
	}

	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}

	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	return nil
}

func (r *RedisLock) Acquire(ctx context.Context) error {
	l, err := r.locker.Obtain(ctx, r.opts.Key, r.opts.TTL, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return ErrLocked
		}

		return errors.Wrap(err, "unable to obtain redis lock")
	}

	r.held = l
	r.log.Debug("Acquired redis lock", zap.Duration("ttl", r.opts.TTL))

	return nil
}

func (r *RedisLock) Release(ctx context.Context) error {
	defer r.client.Close()

	if r.held == nil {
		return nil
	}

	err := r.held.Release(ctx)
	r.held = nil

	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return errors.Wrap(err, "unable to release redis lock")
	}

	r.log.Debug("Released redis lock")

	return nil
}

func (r *RedisLock) Name() string {
	return "redis:" + r.opts.Key
}
