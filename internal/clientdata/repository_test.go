package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.InitSchema())
	return repo
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := newTestRepo(t)

	payload := map[string]interface{}{"price": 178.25}
	require.NoError(t, repo.Store("fmp_quote", "AAPL", payload, time.Hour))

	data, err := repo.GetIfFresh("fmp_quote", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, data)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 178.25, decoded["price"])
}

func TestGetIfFreshMissingKey(t *testing.T) {
	repo := newTestRepo(t)

	data, err := repo.GetIfFresh("fmp_quote", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestGetIfFreshExpired(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("fmp_quote", "AAPL", map[string]interface{}{"price": 1.0}, -time.Hour))

	data, err := repo.GetIfFresh("fmp_quote", "AAPL")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStoreUpserts(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("fmp_quote", "AAPL", map[string]interface{}{"price": 1.0}, time.Hour))
	require.NoError(t, repo.Store("fmp_quote", "AAPL", map[string]interface{}{"price": 2.0}, time.Hour))

	data, err := repo.GetIfFresh("fmp_quote", "AAPL")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2.0, decoded["price"])
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("stockdata_quote", "AAPL", map[string]interface{}{"price": 1.0}, time.Hour))
	require.NoError(t, repo.Delete("stockdata_quote", "AAPL"))

	data, err := repo.GetIfFresh("stockdata_quote", "AAPL")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestInvalidTableRejected(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Store("users; DROP TABLE fmp_quote", "AAPL", nil, time.Hour)
	assert.Error(t, err)

	_, err = repo.GetIfFresh("bogus", "AAPL")
	assert.Error(t, err)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("fmp_quote", "OLD", map[string]interface{}{}, -time.Hour))
	require.NoError(t, repo.Store("fmp_quote", "FRESH", map[string]interface{}{}, time.Hour))
	require.NoError(t, repo.Store("fmp_fundamentals", "OLD", map[string]interface{}{}, -time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["fmp_quote"])
	assert.Equal(t, int64(1), results["fmp_fundamentals"])
	assert.Equal(t, int64(0), results["stockdata_quote"])

	data, err := repo.GetIfFresh("fmp_quote", "FRESH")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestCleanupJob(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("research_ratings", "OLD", map[string]interface{}{}, -time.Hour))

	job := NewCleanupJob(repo, nil, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
	require.NoError(t, job.Run())

	var count int
	// Expired row must be physically gone, not just filtered on read.
	db := repo.db
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM research_ratings").Scan(&count))
	assert.Equal(t, 0, count)
}

type stubCheckpointer struct {
	modes []string
}

func (s *stubCheckpointer) WALCheckpoint(mode string) error {
	s.modes = append(s.modes, mode)
	return nil
}

func TestCleanupJobCheckpointsWAL(t *testing.T) {
	repo := newTestRepo(t)
	cp := &stubCheckpointer{}

	job := NewCleanupJob(repo, cp, zerolog.Nop())
	require.NoError(t, job.Run())

	assert.Equal(t, []string{"TRUNCATE"}, cp.modes)
}
