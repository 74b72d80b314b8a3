package testutil

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nkiryanov/linesync/internal/db"
	"github.com/nkiryanov/linesync/internal/models"
)

// Return random free port on 127.0.0.1 address
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

type PostgresContainer struct {
	DSN       string
	Pool      *pgxpool.Pool
	Terminate func()
}

// Start container with postgres
// Stop if error happened, so you may be sure container started ok
// Should be stopped when tests stopped
func StartPostgresContainer(t *testing.T) PostgresContainer {
	t.Helper()

	// Fail if docker rootless not found
	cmd := exec.Command("docker", "info", "--format", "{{.ServerVersion}}")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("test failed: docker rootless not available or not running. Err:%s", out)
	}

	// Run postgres in docker on random port
	port, err := RandomPort()
	require.NoError(t, err, "Error happened when acquiring random port to start postgres")

	container, err := postgres.Run(t.Context(),
		"postgres:17-alpine",
		postgres.WithDatabase("linesync-test"),
		postgres.WithUsername("linesync"),
		postgres.WithPassword("pwd"),
		postgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequestOption(func(req *testcontainers.GenericContainerRequest) error {
			req.ExposedPorts = []string{fmt.Sprintf("%d:5432", port)}
			return nil
		}),
	)
	require.NoError(t, err, "Error happened when starting container with postgres, deal with it please")

	dsn, err := container.ConnectionString(t.Context())
	require.NoError(t, err, "Error happened when getting connection string from container with postgres")
	t.Logf("Container with pg started, DSN=%v", dsn)

	// Migrate and request connection pool
	dbpool, err := db.ConnectAndMigrate(t.Context(), dsn)
	require.NoError(t, err, "Error happened when connecting to postgres and migrating schema")

	return PostgresContainer{
		DSN:  dsn,
		Pool: dbpool,
		Terminate: func() {
			dbpool.Close()
			testcontainers.CleanupContainer(t, container)
		},
	}
}

type dbtx interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Create db transaction and rollback at test end
// So you may be sure db remains unchanged when test stops
func WithTx(dbtx dbtx, t *testing.T, testFunc func(tx pgx.Tx)) {
	tx, err := dbtx.Begin(t.Context())
	require.NoError(t, err)

	defer func() {
		err := tx.Rollback(t.Context())
		require.NoError(t, err)
	}()

	testFunc(tx)
}

// Vehicle with series taken from the order number
func TestVehicle(orderNumber string, runningNumber string) models.Vehicle {
	return models.Vehicle{
		OrderNumber:   orderNumber,
		Series:        models.SeriesPrefix(orderNumber),
		RunningNumber: runningNumber,
		IsVehicle:     true,
	}
}

// Production plan of the series on the band with one block per running number.
// Every block has a planned row with decor and one more option row.
func TestPlan(series string, band int, runningNumbers ...string) models.ProductionPlan {
	plan := models.ProductionPlan{
		Series:  series,
		Band:    band,
		Product: &models.Reference{Code: "P-" + series, ShortName: "Model " + series},
	}

	for i, running := range runningNumbers {
		plan.Rows = append(plan.Rows,
			models.PlanRow{
				Position:      2*i + 1,
				RunningNumber: running,
				PlannedAt:     "20240301143000",
				Decor:         &models.Reference{Code: "D-" + running, ShortName: "Decor"},
				Option:        &models.Reference{Code: "O-" + running + "-1", ShortName: "Option"},
			},
			models.PlanRow{
				Position: 2*i + 2,
				Option:   &models.Reference{Code: "O-" + running + "-2", ShortName: "Option"},
			},
		)
	}

	return plan
}
