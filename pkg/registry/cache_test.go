package registry_test

import (
	"context"
	"fmt"
	"testing"

	"domainwatch/pkg/registry"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379"},
			WaitingFor:   wait.ForListeningPort("6379"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%d/0", host, port.Int())
}

func testRouteCache(t *testing.T, cache registry.RouteCache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "com")
	require.NoError(t, err)
	require.False(t, ok)

	route := registry.Route{TLD: "com", Protocol: registry.ProtocolRDAP, Server: "https://rdap.verisign.com/com/v1/"}
	require.NoError(t, cache.Set(ctx, route))

	got, ok, err := cache.Get(ctx, "com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, route, got)

	require.NoError(t, cache.Clear(ctx))
	_, ok, err = cache.Get(ctx, "com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	testRouteCache(t, registry.NewMemoryCache())
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}

	client, err := registry.NewRedisClient(context.Background(), startRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	testRouteCache(t, registry.NewRedisCache(client, "domainwatch:routes:test"))
}
