package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/any-repo/internal/storage"
)

func TestStorageOperationsAreCounted(t *testing.T) {
	m := New(prometheus.NewRegistry())
	s, err := storage.NewLocalStorage(t.TempDir(), storage.Options{Metrics: m.ForRepository("releases")})
	require.NoError(t, err)

	body := []byte("payload")
	require.NoError(t, s.StoreItem(context.Background(), &storage.FileItem{
		Path: "/a", Content: storage.BytesLocator(body), Length: int64(len(body)),
	}))
	assert.ErrorIs(t, s.ShredItem(context.Background(), "/missing"), storage.ErrItemNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("releases", "store", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("releases", "shred", "not_found")))
	assert.Equal(t, float64(len(body)), testutil.ToFloat64(m.StoredBytes.WithLabelValues("releases")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StoreDuration))
}

func TestObserveRebuild(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRebuild("snapshots", 3, 2*time.Second, nil)
	m.ObserveRebuild("snapshots", 0, time.Second, errors.New("walk failed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rebuilds.WithLabelValues("snapshots", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rebuilds.WithLabelValues("snapshots", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RebuildWritten.WithLabelValues("snapshots")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RebuildLast.WithLabelValues("snapshots")))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "rejected", Status(&storage.StorageError{Op: "resolve", Err: storage.ErrPathEscape}))
	assert.Equal(t, "error", Status(errors.New("x")))
}
