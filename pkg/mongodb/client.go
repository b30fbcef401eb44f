package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const pingTimeout = 5 * time.Second

// Config describes the booking store connection. Credentials travel in the URI.
type Config struct {
	URI            string
	Database       string
	AppName        string
	ReplicaSet     string
	ConnectTimeout time.Duration
	PoolMin        uint64
	PoolMax        uint64
}

// DefaultConfig targets a local single node replica set
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017/?replicaSet=rs0",
		Database:       "palletspace_bookings",
		AppName:        "booking-service",
		ConnectTimeout: 10 * time.Second,
		PoolMin:        5,
		PoolMax:        50,
	}
}

func (c *Config) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.URI).
		SetAppName(c.AppName).
		SetConnectTimeout(c.ConnectTimeout).
		SetMinPoolSize(c.PoolMin).
		SetMaxPoolSize(c.PoolMax).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())
	if c.ReplicaSet != "" {
		opts.SetReplicaSet(c.ReplicaSet)
	}
	return opts
}

// Client owns the driver connection and the booking database handle
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	config   *Config
}

// NewClient connects and refuses to return until the primary answers a ping
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb: database name is empty")
	}

	conn, err := mongo.Connect(ctx, cfg.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	c := &Client{client: conn, database: conn.Database(cfg.Database), config: cfg}
	if err := c.HealthCheck(ctx); err != nil {
		_ = conn.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping %s: %w", cfg.Database, err)
	}
	return c, nil
}

func (c *Client) Database() *mongo.Database {
	return c.database
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// HealthCheck pings the primary, bounded by its own timeout
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.client.Ping(ctx, readpref.Primary())
}
