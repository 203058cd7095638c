package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/storage"
)

func TestPostgresStoreIntegration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pgC, dsn := startPostgres(ctx, t)
	defer terminateContainer(t, pgC)

	logger := log.New(io.Discard, "", log.LstdFlags)
	require.NoError(t, db.RunMigrations(dsn, logger))

	database, err := db.Open(dsn)
	require.NoError(t, err)
	defer database.Close()

	store := storage.NewPostgresStore(database)

	t.Run("kv roundtrip", func(t *testing.T) {
		_, ok, err := store.Get("cart:session:s1")
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, store.Set("cart:session:s1", "v1"))
		require.NoError(t, store.Set("cart:session:s1", "v2"))

		v, ok, err := store.Get("cart:session:s1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v2", v)

		require.NoError(t, store.Remove("cart:session:s1"))
		_, ok, err = store.Get("cart:session:s1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cart survives engine restart", func(t *testing.T) {
		keys := cart.KeyConfig{Session: "cart:session:s2", IdentityPrefix: "cart:"}

		eng := cart.New(store, logger, keys)
		require.True(t, eng.AddLine(cart.LineInput{ProductID: "P1", Title: "Hat", Price: 999}, 2).Success)
		eng.SetIdentity(&identity.Identity{ID: "U1"})

		reloaded := cart.New(store, logger, keys)
		st := reloaded.State()
		require.Len(t, st.Lines, 1)
		assert.Equal(t, "P1", st.Lines[0].LineID)
		assert.Equal(t, int64(1998), st.Subtotal)

		// the identity slot was adopted and hydrates a fresh session too
		fresh := cart.New(store, logger, cart.KeyConfig{Session: "cart:session:s3", IdentityPrefix: "cart:"})
		require.Empty(t, fresh.State().Lines)
		fresh.SetIdentity(&identity.Identity{ID: "U1"})
		assert.Len(t, fresh.State().Lines, 1)
	})
}

func startPostgres(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "storefront"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/storefront?sslmode=disable", host, mappedPort.Port())
	return container, dsn
}

func terminateContainer(t *testing.T, c testcontainers.Container) {
	t.Helper()
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Terminate(terminateCtx))
}
