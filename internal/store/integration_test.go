package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/store"
)

func roundTrip(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	name := "t_" + uuid.NewString()[:8]

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Upsert(ctx, store.Record{Name: name, Kind: store.KindFunction, Description: "one", Parameters: []string{"input"}, LLMProxy: true}))
	require.NoError(t, s.Upsert(ctx, store.Record{Name: name, Kind: store.KindFunction, Description: "two", Parameters: []string{"input"}, LLMProxy: true}))

	recs, err := s.Load(ctx)
	require.NoError(t, err)

	var found []store.Record
	for _, r := range recs {
		if r.Name == name {
			found = append(found, r)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, "two", found[0].Description)
	assert.Equal(t, []string{"input"}, found[0].Parameters)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("AGENTFORGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AGENTFORGE_TEST_POSTGRES_DSN not set")
	}
	s, err := store.NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	roundTrip(t, s)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("AGENTFORGE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("AGENTFORGE_TEST_REDIS_URL not set")
	}
	s, err := store.NewRedisStore(context.Background(), url, "agentforge:test:"+uuid.NewString())
	require.NoError(t, err)
	defer s.Close()
	roundTrip(t, s)
}
