package mongodb_test

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adanyl0v/taskboard/internal/storage"
	"github.com/adanyl0v/taskboard/internal/storage/mongodb"
	"github.com/adanyl0v/taskboard/internal/storage/storagetest"
)

// TestStore runs against a live server, e.g.
// TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI is not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	transactions := os.Getenv("TEST_MONGO_TRANSACTIONS") != "false"
	s := mongodb.New(zerolog.Nop(), client, "taskboard_test", transactions)
	require.NoError(t, s.EnsureIndexes(ctx))

	storagetest.Run(t, func(*testing.T) storage.Store { return s })
}
