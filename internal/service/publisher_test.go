package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/models"
	"ngx_scraper/internal/service"
	"ngx_scraper/internal/testutil"
)

type fakeSnapshotRepo struct {
	stored []*models.Snapshot
	err    error
}

func (f *fakeSnapshotRepo) Init(ctx context.Context) error { return nil }

func (f *fakeSnapshotRepo) ReplaceSnapshot(ctx context.Context, s *models.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, s)
	return nil
}

func (f *fakeSnapshotRepo) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	if len(f.stored) == 0 {
		return nil, nil
	}
	return f.stored[len(f.stored)-1], nil
}

func TestScrapeAndPublishTwoPageSite(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "equities_data.csv")
	store := dataset.NewStore()
	repo := &fakeSnapshotRepo{}
	pub := service.NewPublisher(store, csvPath, repo, nil)

	fb := twoPageSite()
	result := newService(fb.Launcher(), 2).ScrapeAll(context.Background())
	published, err := pub.Publish(context.Background(), result)
	require.NoError(t, err)
	require.True(t, published)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Symbol,Price\nDANGOTE,300\nGTCO,45\nZENITH,30\n", string(data))

	current := store.Current()
	require.NotNil(t, current)
	assert.Equal(t, result.RunID, current.RunID)
	assert.Len(t, current.Records, 3)
	require.Len(t, repo.stored, 1)
	assert.Same(t, current, repo.stored[0])
}

func TestPublishEmptyRunLeavesPreviousDataset(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "equities_data.csv")
	store := dataset.NewStore()
	repo := &fakeSnapshotRepo{}
	pub := service.NewPublisher(store, csvPath, repo, nil)

	good := &models.RunResult{
		RunID:      "good",
		State:      models.RunDone,
		Records:    []models.Record{models.RecordOf("Symbol", "GTCO", "Price", "45")},
		FinishedAt: time.Now(),
	}
	_, err := pub.Publish(context.Background(), good)
	require.NoError(t, err)
	before, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	previous := store.Current()

	fb := &testutil.FakeBrowser{Pages: []string{`<html><body></body></html>`}}
	empty := newService(fb.Launcher(), 6).ScrapeAll(context.Background())
	require.Empty(t, empty.Records)

	published, err := pub.Publish(context.Background(), empty)
	require.NoError(t, err)
	assert.False(t, published)

	after, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Same(t, previous, store.Current())
	assert.Len(t, repo.stored, 1)
}

func TestPublishReportsStorageErrorsButKeepsDataset(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "missing-dir", "equities_data.csv")
	store := dataset.NewStore()
	repo := &fakeSnapshotRepo{err: errors.New("connection refused")}
	pub := service.NewPublisher(store, csvPath, repo, nil)

	result := &models.RunResult{RunID: "r", Records: []models.Record{models.RecordOf("Symbol", "UBA")}}
	published, err := pub.Publish(context.Background(), result)

	assert.True(t, published)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
	assert.Contains(t, err.Error(), "connection refused")
	require.NotNil(t, store.Current())
	assert.Equal(t, "r", store.Current().RunID)
}
