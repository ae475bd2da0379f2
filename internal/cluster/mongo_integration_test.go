//go:build integration

package cluster

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupIntegrationCluster seeds a throwaway database on the cluster named by
// RLOC_TEST_MONGO_URI. It skips the test when the variable is unset.
func setupIntegrationCluster(t *testing.T) (*Cluster, string) {
	t.Helper()

	uri := os.Getenv("RLOC_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("RLOC_TEST_MONGO_URI not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	dbName := "rloc_test_" + uuid.New().String()[:8]
	_, err = client.Database(dbName).Collection("reports").InsertOne(ctx, bson.M{
		"caseNumber": "IT-1",
		"deviceName": "test-device",
		"sms":        bson.M{"thread": bson.A{bson.M{"body": "hello"}}},
		"createdAt":  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
	_, err = client.Database(dbName).Collection("reports").InsertOne(ctx, bson.M{
		"caseNumber": "IT-2",
		"remark":     int32(7),
		"deviceName": bson.M{"model": "P7"},
		"createdAt":  "yesterday",
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
	t.Cleanup(func() { client.Database(dbName).Drop(context.Background()) })

	return New(Config{URI: uri}), dbName
}

func TestIntegration_ListAndFind(t *testing.T) {
	c, dbName := setupIntegrationCluster(t)
	ctx := context.Background()

	names, err := c.ListDatabases(ctx)
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	found := false
	for _, n := range names {
		if isReserved(n) {
			t.Errorf("reserved database %q returned", n)
		}
		if n == dbName {
			found = true
		}
	}
	if !found {
		t.Fatalf("seeded database %q missing from %v", dbName, names)
	}

	sess, err := c.Open(ctx, dbName)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close(ctx)

	rec, ok, err := sess.FindCase(ctx, "IT-1")
	if err != nil || !ok {
		t.Fatalf("FindCase(IT-1) = %v, %v", ok, err)
	}
	if rec.DeviceName != "test-device" {
		t.Errorf("DeviceName = %q", rec.DeviceName)
	}
	if _, isMap := rec.SMS.(bson.M); !isMap {
		t.Errorf("sms decoded as %T, want bson.M", rec.SMS)
	}

	rec, ok, err = sess.FindCase(ctx, "IT-2")
	if err != nil || !ok {
		t.Fatalf("FindCase(IT-2) = %v, %v; a loosely typed record must still be found", ok, err)
	}
	if rec.Extra["remark"] != int32(7) {
		t.Errorf("Extra[remark] = %#v", rec.Extra["remark"])
	}

	_, ok, err = sess.FindCase(ctx, "missing")
	if err != nil || ok {
		t.Errorf("FindCase(missing) = %v, %v; want false, nil", ok, err)
	}
}
