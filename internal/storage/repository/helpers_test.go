package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/finportal/internal/migrations"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// testDataFactory создаёт тестовые данные напрямую через SQL.
type testDataFactory struct {
	storage *Storage
}

func newTestDataFactory(storage *Storage) *testDataFactory {
	return &testDataFactory{storage: storage}
}

func (f *testDataFactory) createUser(t *testing.T, username string, role models.Role) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)`,
		id, username, username+"@example.com", "hashedpassword", role)
	require.NoError(t, err)
	return id
}

func (f *testDataFactory) createSubscription(t *testing.T, userID, plan string, active bool) string {
	t.Helper()
	id := uuid.NewString()
	var endDate *time.Time
	if !active {
		end := time.Now().UTC()
		endDate = &end
	}
	_, err := f.storage.DB.Exec(`INSERT INTO subscriptions (id, user_id, plan, active, end_date)
		VALUES ($1, $2, $3, $4, $5)`,
		id, userID, plan, active, endDate)
	require.NoError(t, err)
	return id
}

func (f *testDataFactory) countActive(t *testing.T, userID string) int {
	t.Helper()
	var n int
	err := f.storage.DB.QueryRow(`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1 AND active`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")

	port, err := postgresContainer.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err, "failed to get port")
	host, err := postgresContainer.Host(ctx)
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	var storage *Storage
	for n := 0; n < 10; n++ {
		storage, err = New(ctx, connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")
	require.NoError(t, migrations.Run(storage.DB))

	t.Cleanup(func() {
		_ = storage.Close()
		_ = postgresContainer.Terminate(ctx)
	})
	return storage
}
