package findings

import (
	"context"

	"github.com/Laisky/errors/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nocturnelabs/researchbot/internal/config"
	"github.com/nocturnelabs/researchbot/library/db/mongo"
	rdb "github.com/nocturnelabs/researchbot/library/db/redis"
	"github.com/nocturnelabs/researchbot/library/log"
)

// NewStore selects the findings store from configuration: MongoDB when an
// address is configured, otherwise process memory.
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	if cfg.MongoAddr == "" {
		log.Logger.Info("no mongodb configured, keeping findings in memory")
		return NewMemoryStore(), nil
	}

	store, err := NewMongoStore(ctx, mongo.DialInfo{
		Addr:   cfg.MongoAddr,
		DBName: cfg.MongoDB,
		User:   cfg.MongoUser,
		Pwd:    cfg.MongoPwd,
	}, cfg.MongoCol)
	if err != nil {
		return nil, errors.Wrap(err, "create mongo store")
	}

	return store, nil
}

// NewSeen selects the seen-URL cache from configuration: redis when an
// address is configured, otherwise process memory.
func NewSeen(ctx context.Context, cfg config.StorageConfig) (Seen, error) {
	if cfg.RedisAddr == "" {
		return NewMemorySeen(), nil
	}

	db, err := rdb.NewDB(ctx, &goredis.Options{Addr: cfg.RedisAddr})
	if err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}

	return NewRedisSeen(db), nil
}
