package findings

import (
	"context"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nocturnelabs/researchbot/library/db/mongo"
	"github.com/nocturnelabs/researchbot/library/log"
	"github.com/nocturnelabs/researchbot/library/search"
)

const defaultCollection = "findings"

// MongoStore persists cycle outcomes as one document per summarized result.
type MongoStore struct {
	db     mongo.DB
	col    string
	logger logSDK.Logger
}

// NewMongoStore connects to MongoDB and returns the store.
func NewMongoStore(ctx context.Context, dialInfo mongo.DialInfo, collection string) (*MongoStore, error) {
	db, err := mongo.NewDB(ctx, dialInfo)
	if err != nil {
		return nil, errors.Wrap(err, "dial mongodb")
	}

	if collection == "" {
		collection = defaultCollection
	}

	return &MongoStore{
		db:     db,
		col:    collection,
		logger: log.Logger.Named("findings"),
	}, nil
}

// Store inserts one document per summary; results that yielded no summary
// are not persisted.
func (s *MongoStore) Store(ctx context.Context, prompt string, results []search.Result, summaries []Summary) error {
	if len(summaries) == 0 {
		s.logger.Debug("nothing to persist", zap.String("prompt", prompt))
		return nil
	}

	now := gutils.Clock.GetUTCNow()
	docs := make([]any, 0, len(summaries))
	for _, summary := range summaries {
		doc := bson.M{}
		for key, value := range summary.Result.ToMap() {
			doc[key] = value
		}
		doc["prompt"] = prompt
		doc["summary"] = summary.Text
		doc["created_at"] = now
		docs = append(docs, doc)
	}

	if _, err := s.db.GetCol(s.col).InsertMany(ctx, docs); err != nil {
		return errors.Wrap(err, "insert findings")
	}

	s.logger.Info("persisted findings",
		zap.String("prompt", prompt),
		zap.Int("results", len(results)),
		zap.Int("summaries", len(summaries)))
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}
