package mongotestutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/fastprodman/topup/internal/infra/mongoutils"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultURI = "mongodb://localhost:27017"

func uri() string {
	u, ok := os.LookupEnv("TEST_MONGO_URI")
	if ok && u != "" {
		return u
	}

	return DefaultURI
}

// NewTestDB returns a uniquely named database that is dropped when the test ends.
// The test is skipped when no server answers a ping.
func NewTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri()).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongo unavailable: %v", err)
	}

	var rnd [6]byte
	_, _ = rand.Read(rnd[:])

	db := client.Database("testdb_" + hex.EncodeToString(rnd[:]))

	t.Cleanup(func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()

		_ = db.Drop(dctx)
		_ = client.Disconnect(dctx)
	})

	err = mongoutils.EnsureIndexes(ctx, db)
	if err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	return db
}
