// Package mongo provides a wrapper for the MongoDB client.
package mongo

import (
	"context"
	"net/url"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nocturnelabs/researchbot/library/log"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultHeartbeat = 10 * time.Second
)

// DB exposes the narrow surface the application needs from the driver.
type DB interface {
	Close(ctx context.Context) error
	GetCol(colName string) *mongo.Collection
	CurrentDB() *mongo.Database
}

// DialInfo defines the MongoDB connection information.
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
	AuthDB string
}

type db struct {
	cli      *mongo.Client
	dialInfo DialInfo
}

// buildMongoURI builds a MongoDB connection URI from the given dial info.
func buildMongoURI(dialInfo DialInfo) string {
	uri := &url.URL{
		Scheme: "mongodb",
		Host:   dialInfo.Addr,
		Path:   "/" + dialInfo.DBName,
	}
	if dialInfo.User != "" || dialInfo.Pwd != "" {
		uri.User = url.UserPassword(dialInfo.User, dialInfo.Pwd)
	}
	if dialInfo.AuthDB != "" {
		query := url.Values{}
		query.Set("authSource", dialInfo.AuthDB)
		uri.RawQuery = query.Encode()
	}
	return uri.String()
}

// NewDB creates one long-lived mongo.Client and relies on the driver for
// pooling and reconnects. The initial connect and ping are bounded so
// failures surface at startup rather than on first use.
func NewDB(ctx context.Context, dialInfo DialInfo) (DB, error) {
	log.Logger.Info("try to connect to mongodb",
		zap.String("addr", dialInfo.Addr),
		zap.String("db", dialInfo.DBName),
	)

	dialCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(buildMongoURI(dialInfo)).
		SetConnectTimeout(defaultTimeout).
		SetServerSelectionTimeout(defaultTimeout).
		SetHeartbeatInterval(defaultHeartbeat).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetMaxConnIdleTime(300 * time.Second)

	cli, err := mongo.Connect(dialCtx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "connect db")
	}

	if err := cli.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping db")
	}

	return &db{cli: cli, dialInfo: dialInfo}, nil
}

// CurrentDB returns the database named in the dial info.
func (d *db) CurrentDB() *mongo.Database {
	return d.cli.Database(d.dialInfo.DBName)
}

// GetCol returns a collection handle by name.
func (d *db) GetCol(colName string) *mongo.Collection {
	return d.CurrentDB().Collection(colName)
}

// Close disconnects the client; shutdown time is bounded to avoid hanging on exit.
func (d *db) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	closeCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.cli.Disconnect(closeCtx)
}
