package helper

import (
	"context"
	"io"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabaseImage = "pgvector/pgvector:pg16"
	testDatabaseName  = "database"
	testDatabaseUser  = "user"
	testDatabasePwd   = "password"
)

// MustStartPostgresContainer starts a pgvector enabled postgres container and
// returns its terminate function and the mapped host port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(
		ctx,
		testDatabaseImage,
		postgres.WithDatabase(testDatabaseName),
		postgres.WithUsername(testDatabaseUser),
		postgres.WithPassword(testDatabasePwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	dbPort, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return pgContainer.Terminate, "", err
	}

	return pgContainer.Terminate, dbPort.Port(), nil
}

// SetTestDatabaseConfigEnvs points the database configuration env at the test container.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", dbPort)
	t.Setenv("DB_DATABASE", testDatabaseName)
	t.Setenv("DB_USERNAME", testDatabaseUser)
	t.Setenv("DB_PASSWORD", testDatabasePwd)
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSLMODE", "disable")
}

// NewTestDatabaseConfiguration returns a configuration for the test container without touching the env.
func NewTestDatabaseConfiguration(dbPort string) *DatabaseConfiguration {
	return &DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: testDatabaseName,
		Username: testDatabaseUser,
		Password: testDatabasePwd,
		Schema:   "public",
		SSLMode:  "disable",
	}
}

// NewTestDatabase connects to the test container with a silent logger.
func NewTestDatabase(config *DatabaseConfiguration) (*Database, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDatabase("test", config, logger)
}

// RunWithPostgres runs the package tests against a fresh container and
// returns the exit code for os.Exit. port is set before any test starts.
func RunWithPostgres(m *testing.M, port *string) int {
	teardown, mapped, err := MustStartPostgresContainer()
	if err != nil {
		log.Printf("error starting postgres container: %v", err)
		if teardown != nil {
			_ = teardown(context.Background())
		}
		return 1
	}
	*port = mapped

	code := m.Run()

	if err := teardown(context.Background()); err != nil {
		log.Printf("error tearing down postgres container: %v", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// OpenTestDatabase connects to the container on port through the env
// configuration and closes the connection when t ends.
func OpenTestDatabase(t *testing.T, port string) *Database {
	t.Helper()
	SetTestDatabaseConfigEnvs(t, port)

	config, err := NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	db, err := NewTestDatabase(config)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	return db
}
