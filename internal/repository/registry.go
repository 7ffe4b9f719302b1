package repository

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/any-hub/any-repo/internal/attributes"
	"github.com/any-hub/any-repo/internal/checksum"
	"github.com/any-hub/any-repo/internal/config"
	"github.com/any-hub/any-repo/internal/logging"
	"github.com/any-hub/any-repo/internal/metrics"
	"github.com/any-hub/any-repo/internal/storage"
)

// Options 注入日志与指标，均可为空。
type Options struct {
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// Registry 提供仓库名到 Repository 的查询能力，按配置顺序保存。
type Registry struct {
	byName  map[string]*Repository
	ordered []*Repository
}

// NewRegistry 根据配置打开全部仓库。任一仓库失败时关闭已打开的仓库并返回错误。
func NewRegistry(cfg *config.Config, opts Options) (reg *Registry, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	reg = &Registry{byName: make(map[string]*Repository, len(cfg.Repositories))}
	defer func() {
		if err != nil {
			err = multierr.Append(err, reg.Close())
			reg = nil
		}
	}()

	for _, repoCfg := range cfg.Repositories {
		key := normalizeName(repoCfg.Name)
		if key == "" {
			return reg, fmt.Errorf("repository name is required")
		}
		if _, exists := reg.byName[key]; exists {
			return reg, fmt.Errorf("duplicate repository %s", repoCfg.Name)
		}

		repo, err := open(cfg.Global, repoCfg, logger, opts)
		if err != nil {
			return reg, fmt.Errorf("repository %s: %w", repoCfg.Name, err)
		}
		reg.byName[key] = repo
		reg.ordered = append(reg.ordered, repo)
	}
	return reg, nil
}

func open(global config.GlobalConfig, repoCfg config.RepositoryConfig, logger logrus.FieldLogger, opts Options) (*Repository, error) {
	runtime, err := config.BuildRepositoryRuntime(global, repoCfg)
	if err != nil {
		return nil, err
	}
	repoLogger := logging.ForRepository(logger, runtime)

	storageOpts := runtime.Storage
	storageOpts.Logger = repoLogger
	if opts.Metrics != nil {
		storageOpts.Metrics = opts.Metrics.ForRepository(repoCfg.Name)
	}
	s, err := storage.NewLocalStorage(repoCfg.Root, storageOpts)
	if err != nil {
		return nil, err
	}

	var attrs attributes.Store
	switch global.AttributeBackend {
	case config.AttributeBackendFile:
		attrs = attributes.NewFileStore(s)
	default:
		badgerStore, err := attributes.OpenBadger(runtime.AttributeDir)
		if err != nil {
			return nil, err
		}
		attrs = badgerStore
	}

	return &Repository{
		Name:       repoCfg.Name,
		Root:       s.Root(),
		Layout:     runtime.Layout,
		Storage:    s,
		Attributes: attrs,
		Checksums:  checksum.NewChecksummer(s, attrs, repoLogger),
		logger:     repoLogger,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
	}, nil
}

// Lookup 按名称查找仓库，不区分大小写。
func (r *Registry) Lookup(name string) (*Repository, bool) {
	if r == nil {
		return nil, false
	}
	repo, ok := r.byName[normalizeName(name)]
	return repo, ok
}

// List 返回按配置顺序排列的仓库。
func (r *Registry) List() []*Repository {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	return append([]*Repository(nil), r.ordered...)
}

// Close 关闭全部仓库，汇总所有错误。
func (r *Registry) Close() error {
	if r == nil {
		return nil
	}
	var err error
	for _, repo := range r.ordered {
		err = multierr.Append(err, repo.Close())
	}
	return err
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
