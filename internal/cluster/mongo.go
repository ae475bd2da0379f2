package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kalambet/reportlocator/internal/report"
)

// ReservedDatabases are the system databases that never hold case data.
var ReservedDatabases = []string{"admin", "local", "config"}

// Config describes how to reach the document-store cluster.
type Config struct {
	URI            string
	Collection     string
	ConnectTimeout time.Duration
}

// Cluster is the MongoDB collaborator: it lists databases and opens
// connections scoped to a single database.
type Cluster struct {
	cfg Config
}

// New returns a Cluster for cfg. No connection is made until a method is called.
func New(cfg Config) *Cluster {
	if cfg.Collection == "" {
		cfg.Collection = "reports"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Cluster{cfg: cfg}
}

func (c *Cluster) clientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(c.cfg.URI).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetServerSelectionTimeout(c.cfg.ConnectTimeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
}

func (c *Cluster) connect(ctx context.Context) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, c.clientOptions())
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// ListDatabases connects to the administrative interface, lists every
// database and returns the names that are not reserved, in the order the
// server reported them.
func (c *Cluster) ListDatabases(ctx context.Context) ([]string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to cluster: %w", err)
	}
	defer client.Disconnect(context.Background())

	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	return FilterReserved(names), nil
}

// Open returns a Session bound to the named database over its own client.
// The caller must Close it.
func (c *Cluster) Open(ctx context.Context, database string) (*Session, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to database %s: %w", database, err)
	}
	return &Session{
		client:     client,
		database:   database,
		collection: client.Database(database).Collection(c.cfg.Collection),
	}, nil
}

// Session is a connection scoped to a single database.
type Session struct {
	client     *mongo.Client
	database   string
	collection *mongo.Collection
}

// FindCase looks up the record with an exact caseNumber match.
// ok is false when no document matches.
func (s *Session) FindCase(ctx context.Context, caseNumber string) (rec *report.CaseRecord, ok bool, err error) {
	var out report.CaseRecord
	err = s.collection.FindOne(ctx, bson.D{{Key: "caseNumber", Value: caseNumber}}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying %s: %w", s.database, err)
	}
	return &out, true, nil
}

// Close disconnects the session's client.
func (s *Session) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FilterReserved removes reserved system databases, preserving order.
func FilterReserved(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if isReserved(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func isReserved(name string) bool {
	for _, r := range ReservedDatabases {
		if name == r {
			return true
		}
	}
	return false
}
