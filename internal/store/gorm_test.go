package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"orderexec/internal/model"
	"orderexec/pkg/conn"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ORDEREXEC_TEST_PG_DSN points at a disposable PostgreSQL database.
func newPostgresStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := os.Getenv("ORDEREXEC_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ORDEREXEC_TEST_PG_DSN is not set")
	}
	client, err := conn.New(conn.Option{ConnString: dsn, MaxOpenConns: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(t.Context()))
	require.NoError(t, Migrate(t.Context(), client.DB()))
	return NewGormStore(client.DB())
}

func TestGormStore(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return newPostgresStore(t) })
}

func TestGormStoreConcurrentInsertIfAbsent(t *testing.T) {
	s := newPostgresStore(t)
	key := "race-" + uuid.NewString()

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
				ok, err := tx.InsertIdempotencyRecordIfAbsent(ctx, model.IdempotencyRecord{
					Key:         key,
					Fingerprint: "fp",
					OrderID:     uuid.NewString(),
					CreatedAt:   _t0,
				})
				if ok {
					mu.Lock()
					inserted++
					mu.Unlock()
				}
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
}
