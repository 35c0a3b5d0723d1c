//go:build integration

// Package integration exercises the board against real Redis and MinIO
// containers. Run with: go test -tags integration ./test/integration/...
package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/database/redis"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/storage/minio"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

const (
	// EnvRedisAddr points the tests at an existing Redis instead of a container.
	EnvRedisAddr = "DTI_TEST_REDIS_ADDR"
	// EnvMinIOEndpoint points the tests at an existing MinIO.
	EnvMinIOEndpoint = "DTI_TEST_MINIO_ENDPOINT"

	minioUser     = "dtiadmin"
	minioPassword = "dtiadmin-secret"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// newRedisClient connects to EnvRedisAddr or a fresh redis:7 container.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv(EnvRedisAddr)
	if addr == "" {
		addr = startContainer(t, testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		}, "6379/tcp")
	}

	c, err := redis.NewClient(&redis.Config{Addr: addr}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newMinIOClient connects to EnvMinIOEndpoint or a fresh MinIO container.
func newMinIOClient(t *testing.T) *minio.Client {
	t.Helper()
	endpoint := os.Getenv(EnvMinIOEndpoint)
	if endpoint == "" {
		endpoint = startContainer(t, testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(90 * time.Second),
		}, "9000/tcp")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c, err := minio.NewClient(ctx, minio.Config{
		Endpoint:        endpoint,
		AccessKey:       minioUser,
		SecretKey:       minioPassword,
		StructureBucket: "it-structures",
		ExportBucket:    "it-exports",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func samplePrediction() types.PredictionResponse {
	return types.PredictionResponse{DrugCandidates: []types.Candidate{
		{
			Name: "Erlotinib", SMILES: "COCCOc1cc2ncnc(Nc3cccc(C#C)c3)c2cc1OCCOC",
			BindingAffinity: 8.7, Confidence: 0.92, Mechanism: "EGFR tyrosine kinase inhibitor",
			Properties: types.Properties{MolecularWeight: 393.4, LogP: 3.3, HBD: 1, HBA: 7},
		},
		{
			Name: "Aspirin", SMILES: "CC(=O)Oc1ccccc1C(=O)O",
			BindingAffinity: 4.2, Confidence: 0.35, Mechanism: "COX inhibitor",
			Properties: types.Properties{MolecularWeight: 180.2, LogP: 1.2, HBD: 1, HBA: 4},
		},
	}}
}
