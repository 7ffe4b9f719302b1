package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-repo/internal/attributes"
	"github.com/any-hub/any-repo/internal/checksum"
	"github.com/any-hub/any-repo/internal/layout"
	"github.com/any-hub/any-repo/internal/metadata"
	"github.com/any-hub/any-repo/internal/metrics"
	"github.com/any-hub/any-repo/internal/storage"
)

// ErrRebuildInProgress 表示同一仓库已有重建在运行。
var ErrRebuildInProgress = errors.New("metadata rebuild already in progress")

// Repository 聚合单个仓库运行所需的全部组件。
type Repository struct {
	Name       string
	Root       string
	Layout     layout.Metadata
	Storage    *storage.LocalStorage
	Attributes attributes.Store
	Checksums  *checksum.Checksummer

	logger     logrus.FieldLogger
	metrics    *metrics.Metrics
	clock      func() time.Time
	rebuilding atomic.Bool

	mu   sync.Mutex
	last *metadata.RebuildStats
}

// Rebuild 重建 path 子树的校验和与元数据；已有重建在运行时立即返回 ErrRebuildInProgress。
func (r *Repository) Rebuild(ctx context.Context, path string) (metadata.RebuildStats, error) {
	if !r.rebuilding.CompareAndSwap(false, true) {
		return metadata.RebuildStats{}, ErrRebuildInProgress
	}
	defer r.rebuilding.Store(false)

	crawl := metadata.Crawl{
		Repository: r.Name,
		Storage:    r.Storage,
		Checksums:  r.Checksums,
		Resolver:   r.Layout.Resolver,
		Logger:     r.logger,
		Clock:      r.clock,
	}
	stats, err := crawl.Rebuild(ctx, path)
	if r.metrics != nil {
		r.metrics.ObserveRebuild(r.Name, stats.MetadataWritten, stats.Duration, err)
	}

	r.mu.Lock()
	r.last = &stats
	r.mu.Unlock()
	return stats, err
}

// Rebuilding 报告当前是否有重建在运行。
func (r *Repository) Rebuilding() bool {
	return r.rebuilding.Load()
}

// LastRebuild 返回最近一次重建的统计。
func (r *Repository) LastRebuild() (metadata.RebuildStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return metadata.RebuildStats{}, false
	}
	return *r.last, true
}

// Close 释放属性库。
func (r *Repository) Close() error {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes.Close()
}
