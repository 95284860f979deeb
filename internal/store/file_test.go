package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/store"
)

func TestFileStoreMissingFile(t *testing.T) {
	s := store.NewFileStore(filepath.Join(t.TempDir(), "tools.json"))
	recs, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFileStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := store.NewFileStore(filepath.Join(t.TempDir(), "nested", "tools.json"))

	require.NoError(t, s.Upsert(ctx, store.Record{Name: "echo", Kind: store.KindFunction, Description: "first", Parameters: []string{"input"}, LLMProxy: true}))
	require.NoError(t, s.Upsert(ctx, store.Record{Name: "rot13", Kind: store.KindFunction, Description: "rotates", Code: "package x", LLMCode: true}))
	require.NoError(t, s.Upsert(ctx, store.Record{Name: "echo", Kind: store.KindFunction, Description: "second", Parameters: []string{"input"}, LLMProxy: true}))

	recs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "echo", recs[0].Name)
	assert.Equal(t, "second", recs[0].Description)
	assert.True(t, recs[1].LLMCode)
	assert.Equal(t, "package x", recs[1].Code)
}

func TestFileStoreWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	s := store.NewFileStore(path)
	require.NoError(t, s.Upsert(context.Background(), store.Record{
		Name: "echo", Kind: store.KindFunction, Description: "echoes", Parameters: []string{"input"}, LLMProxy: true,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"echo","kind":"function","description":"echoes","parameters":["input"],"llm_proxy":true}]`, string(data))
}

func TestFileStoreMalformed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tools.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := store.NewFileStore(path)
	_, err := s.Load(ctx)
	assert.Error(t, err)

	require.NoError(t, s.Upsert(ctx, store.Record{Name: "echo", Kind: store.KindFunction}))
	recs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestFileStoreConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := store.NewFileStore(filepath.Join(t.TempDir(), "tools.json"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Upsert(ctx, store.Record{Name: fmt.Sprintf("tool_%02d", i), Kind: store.KindFunction}))
		}(i)
	}
	wg.Wait()

	recs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}

func TestFileStorePing(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, store.NewFileStore(filepath.Join(dir, "tools.json")).Ping(context.Background()))
	assert.Error(t, store.NewFileStore(filepath.Join(dir, "missing", "tools.json")).Ping(context.Background()))
}
