package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"giftboard/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestDatabase is a migrated PostgreSQL container owned by one test
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *database.DB
	URL       string
}

// errNoContainerProvider marks a container start that panicked because no
// Docker-compatible provider is reachable.
var errNoContainerProvider = errors.New("container provider unavailable")

// SetupTestDatabase starts a PostgreSQL container, migrates it and connects to it.
// The container is terminated when the test finishes. The test is skipped in
// short mode or when no container provider is available.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()

	container, err := startContainer(func() (*postgres.PostgresContainer, error) {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		return postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("giftboard_test"),
			postgres.WithUsername("test_user"),
			postgres.WithPassword("test_password"),
			postgres.BasicWaitStrategies(),
			testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
				ContainerRequest: testcontainers.ContainerRequest{
					Labels: map[string]string{
						"test":      "giftboard",
						"test-name": t.Name(),
						"cleanup":   "auto",
					},
				},
			}),
		)
	})
	if errors.Is(err, errNoContainerProvider) {
		t.Skipf("skipping database test: %v", err)
	}
	require.NoError(t, err)

	testDB := &TestDatabase{Container: container}
	t.Cleanup(func() {
		testDB.cleanup(t)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.RunMigrationsWithURL(connStr))

	db, err := database.NewConnection(ctx, connStr, database.Options{MaxConns: 20})
	require.NoError(t, err)

	testDB.DB = db
	testDB.URL = connStr
	return testDB
}

func (td *TestDatabase) cleanup(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Logf("Panic during container cleanup (recovered): %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if td.DB != nil {
		td.DB.Close()
	}

	if td.Container != nil {
		if err := td.Container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate test container: %v", err)
		}
	}
}

// startContainer runs start and turns a panic from the container provider into
// errNoContainerProvider so one missing daemon does not abort the whole package.
func startContainer(start func() (*postgres.PostgresContainer, error)) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			container = nil
			err = fmt.Errorf("%w: %v", errNoContainerProvider, r)
		}
	}()
	return start()
}
