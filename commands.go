package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/any-hub/any-repo/internal/config"
	"github.com/any-hub/any-repo/internal/logging"
	"github.com/any-hub/any-repo/internal/metadata"
	"github.com/any-hub/any-repo/internal/metrics"
	"github.com/any-hub/any-repo/internal/repository"
	"github.com/any-hub/any-repo/internal/server"
	"github.com/any-hub/any-repo/internal/server/routes"
	"github.com/any-hub/any-repo/internal/storage"
	"github.com/any-hub/any-repo/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newCheckConfigCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "仅校验配置后退出",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			sess, err := loadConfig(opts)
			if err != nil {
				return err
			}
			fields := logging.BaseFields("check_config", sess.configPath)
			fields["repositories"] = config.RepositoryNames(sess.cfg.Repositories)
			fields["attribute_backend"] = sess.cfg.Global.AttributeBackend
			fields["result"] = "ok"
			sess.logger.WithFields(fields).Info("配置校验通过")
			return nil
		},
	}
}

func newServeCommand(opts *cliOptions) *cobra.Command {
	var rebuildOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动运维 HTTP 接口（健康检查、仓库诊断、手动重建、指标）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := loadConfig(opts)
			if err != nil {
				return err
			}

			var (
				m        *metrics.Metrics
				gatherer prometheus.Gatherer
			)
			if sess.cfg.Global.MetricsEnabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				m = metrics.New(reg)
				gatherer = reg
			}
			if err := sess.openRegistry(m); err != nil {
				return err
			}
			defer sess.Close()

			app, err := server.NewApp(server.AppOptions{
				Logger:   sess.logger,
				Registry: sess.registry,
				Gatherer: gatherer,
			})
			if err != nil {
				return err
			}
			routes.RegisterRepositoryRoutes(app, sess.registry, sess.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fields := logging.BaseFields("startup", sess.configPath)
			fields["repositories"] = config.RepositoryNames(sess.cfg.Repositories)
			fields["listen_port"] = sess.cfg.Global.ListenPort
			fields["metrics"] = sess.cfg.Global.MetricsEnabled
			fields["version"] = version.Full()
			sess.logger.WithFields(fields).Info("配置加载完成")

			if rebuildOnStart {
				go func() {
					if err := rebuildRepositories(ctx, sess.registry.List(), "/", nil); err != nil {
						sess.logger.WithError(err).Warn("startup_rebuild_failed")
					}
				}()
			}

			return listen(ctx, app, sess.cfg.Global.ListenPort, sess.logger)
		},
	}
	cmd.Flags().BoolVar(&rebuildOnStart, "rebuild-on-start", false, "启动后在后台重建全部仓库的元数据")
	return cmd
}

// listen 启动 Fiber 服务，ctx 结束时优雅关闭。
func listen(ctx context.Context, app *fiber.App, port int, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.WithField("action", "shutdown").Info("Fiber 服务关闭")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}

func newRebuildCommand(opts *cliOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "rebuild [repository...]",
		Short: "重建校验和与 maven-metadata.xml，未指定仓库时处理全部仓库",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			targets := sess.registry.List()
			if len(args) > 0 {
				targets = targets[:0]
				for _, name := range args {
					repo, err := sess.repository(name)
					if err != nil {
						return err
					}
					targets = append(targets, repo)
				}
			}
			return rebuildRepositories(cmd.Context(), targets, path, json.NewEncoder(stdOut))
		},
	}
	cmd.Flags().StringVar(&path, "path", "/", "仓库内的起始逻辑路径")
	return cmd
}

type rebuildReport struct {
	Repository string `json:"repository"`
	metadata.RebuildStats
}

// rebuildRepositories 依次重建各仓库，单个仓库失败不影响其余仓库，错误汇总返回。
func rebuildRepositories(ctx context.Context, repos []*repository.Repository, path string, out *json.Encoder) error {
	var errs error
	for _, repo := range repos {
		stats, err := repo.Rebuild(ctx, path)
		if out != nil {
			if encErr := out.Encode(rebuildReport{Repository: repo.Name, RebuildStats: stats}); encErr != nil {
				errs = multierr.Append(errs, encErr)
			}
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", repo.Name, err))
		}
		if ctx.Err() != nil {
			break
		}
	}
	return errs
}

func newStoreCommand(opts *cliOptions) *cobra.Command {
	var (
		file        string
		link        string
		collection  bool
		metacontent bool
	)
	cmd := &cobra.Command{
		Use:   "store <repository> <path>",
		Short: "写入条目；默认从标准输入读取正文",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			repo, err := sess.repository(args[0])
			if err != nil {
				return err
			}

			item, err := buildStoreItem(args[1], file, link, collection, metacontent)
			if err != nil {
				return err
			}
			if err := repo.Storage.StoreItem(cmd.Context(), item); err != nil {
				return err
			}
			sess.logger.WithFields(logging.StorageFields(repo.Name, "store", args[1])).
				WithField("kind", item.Kind().String()).Info("条目已写入")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "正文来源文件，缺省时读取标准输入")
	cmd.Flags().StringVar(&link, "link", "", "写入指向该逻辑路径的链接")
	cmd.Flags().BoolVar(&collection, "dir", false, "创建目录")
	cmd.Flags().BoolVar(&metacontent, "metacontent", false, "按属性类文件写入（跳过链接探测）")
	cmd.MarkFlagsMutuallyExclusive("file", "link", "dir")
	return cmd
}

func buildStoreItem(path, file, link string, collection, metacontent bool) (storage.Item, error) {
	now := time.Now()
	switch {
	case collection:
		return &storage.CollectionItem{Path: path, Modified: now}, nil
	case link != "":
		return &storage.LinkItem{Path: path, Target: link, Created: now, Modified: now}, nil
	case file != "":
		info, err := os.Stat(file)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s 是目录", file)
		}
		return &storage.FileItem{
			Path:        path,
			Content:     storage.FileLocator{Path: file},
			Length:      info.Size(),
			Modified:    info.ModTime(),
			Metacontent: metacontent,
		}, nil
	default:
		return &storage.FileItem{
			Path:        path,
			Content:     storage.NewReaderLocator(stdIn),
			Length:      -1,
			Modified:    now,
			Metacontent: metacontent,
		}, nil
	}
}

func newListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <repository> [path]",
		Short: "列出目录下的条目（不递归）",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			repo, err := sess.repository(args[0])
			if err != nil {
				return err
			}
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}

			items, err := repo.Storage.ListItems(cmd.Context(), path)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(stdOut, 0, 4, 2, ' ', 0)
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					item.Kind(), describeSize(item), item.ModTime().UTC().Format(time.RFC3339), describePath(item))
			}
			return w.Flush()
		},
	}
}

func describeSize(item storage.Item) string {
	if file, ok := item.(*storage.FileItem); ok {
		return fmt.Sprintf("%d", file.Length)
	}
	return "-"
}

func describePath(item storage.Item) string {
	if link, ok := item.(*storage.LinkItem); ok {
		return fmt.Sprintf("%s -> %s", link.Path, link.Target)
	}
	return item.ItemPath()
}

func newShredCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shred <repository> <path>",
		Short: "删除条目；目录会被递归删除（以 . 开头的条目保留）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			repo, err := sess.repository(args[0])
			if err != nil {
				return err
			}
			if err := repo.Storage.ShredItem(cmd.Context(), args[1]); err != nil {
				return err
			}
			sess.logger.WithFields(logging.StorageFields(repo.Name, "shred", args[1])).Info("条目已删除")
			return nil
		},
	}
}

func newMoveCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <repository> <from> <to>",
		Short: "移动条目；目标位于源目录内部时拒绝执行",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			repo, err := sess.repository(args[0])
			if err != nil {
				return err
			}
			if err := repo.Storage.MoveItem(cmd.Context(), args[1], args[2], nil); err != nil {
				return err
			}
			sess.logger.WithFields(logging.StorageFields(repo.Name, "move", args[1])).
				WithField("destination", args[2]).Info("条目已移动")
			return nil
		},
	}
}

func newVerifyCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <repository> <path>",
		Short: "比对文件正文与各校验和旁路文件",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			repo, err := sess.repository(args[0])
			if err != nil {
				return err
			}

			result, err := repo.Checksums.Verify(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if err := json.NewEncoder(stdOut).Encode(result); err != nil {
				return err
			}
			for _, ok := range result {
				if !ok {
					return errChecksumMismatch
				}
			}
			return nil
		},
	}
}

var errChecksumMismatch = errors.New("校验和与正文不一致")
