package findings

import (
	"context"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	rdb "github.com/nocturnelabs/researchbot/library/db/redis"
	"github.com/nocturnelabs/researchbot/library/log"
)

// RedisSeen remembers summarized URLs in redis so the memory survives
// process restarts.
type RedisSeen struct {
	db     *rdb.DB
	logger logSDK.Logger
}

// NewRedisSeen wraps an established redis connection.
func NewRedisSeen(db *rdb.DB) *RedisSeen {
	return &RedisSeen{
		db:     db,
		logger: log.Logger.Named("seen"),
	}
}

func (s *RedisSeen) IsSeen(ctx context.Context, url string) bool {
	n, err := s.db.Client().Exists(ctx, rdb.KeyPrefixSeenURL+url).Result()
	if err != nil {
		s.logger.Warn("seen lookup failed, treating as unseen",
			zap.String("url", url), zap.Error(err))
		return false
	}
	return n > 0
}

func (s *RedisSeen) MarkSeen(ctx context.Context, url string) {
	if err := s.db.Client().Set(ctx, rdb.KeyPrefixSeenURL+url, 1, 0).Err(); err != nil {
		s.logger.Warn("mark seen failed",
			zap.String("url", url), zap.Error(err))
	}
}
