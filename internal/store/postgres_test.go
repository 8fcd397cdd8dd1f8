//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bizzlechizzle/datemine/internal/model"
)

func startPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("datemine"),
		postgres.WithUsername("datemine"),
		postgres.WithPassword("datemine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(ctx, model.DatabaseConfig{Driver: "postgres", DSN: dsn, Migrate: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgres_Repository(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()

	e := newExtraction("aaaa000000000001", "loc-1", "1920-01-01", model.CategoryBuildDate, 0.8)
	require.NoError(t, s.InsertExtraction(ctx, e))

	rows, err := s.ListGroup(ctx, e.GroupKey())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.StringList{"built"}, rows[0].CategoryKeywords)
	assert.True(t, rows[0].IsPrimary)

	pending, err := s.ListExtractions(ctx, ExtractionFilter{Statuses: []model.Status{model.StatusPending, model.StatusRejected}})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	ratio := func(a, r int) float64 { return float64(a+1) / float64(r+1) }
	entry, err := s.RecordFeedback(ctx, model.CategoryBuildDate, "built", true, ratio, t0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, entry.WeightModifier, 1e-9)
}

func TestPostgres_GroupLockSerialises(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()
	key := model.GroupKey{LocID: "loc-1", DateStart: "1920-01-01", Category: model.CategoryBuildDate}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i)) + "000000000000000"
			err := s.WithGroupLock(ctx, key, func(tx *Tx) error {
				members, err := tx.ListGroup(ctx, key)
				if err != nil {
					return err
				}
				e := newExtraction(id, key.LocID, key.DateStart, key.Category, 0.5)
				e.IsPrimary = len(members) == 0
				return tx.InsertExtraction(ctx, e)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rows, err := s.ListGroup(ctx, key)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	primaries := 0
	for _, r := range rows {
		if r.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
}
