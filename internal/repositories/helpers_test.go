package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"hospitaldesk/internal/database"
)

var (
	mongoOnce sync.Once
	mongoURI  string
	mongoErr  error
)

// newTestDB returns a service bound to a fresh database on a shared mongo
// container. The container lives for the whole test binary.
func newTestDB(t *testing.T) database.Service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}

	mongoOnce.Do(func() {
		container, err := mongodb.Run(context.Background(), "mongo:latest")
		if err != nil {
			mongoErr = err
			return
		}
		mongoURI, mongoErr = container.ConnectionString(context.Background())
	})
	require.NoError(t, mongoErr, "could not start mongodb container")

	db, err := database.New(context.Background(), mongoURI, "test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Database().Drop(context.Background())
		_ = db.Close(context.Background())
	})
	return db
}
