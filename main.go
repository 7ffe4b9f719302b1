package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/any-hub/any-repo/internal/config"
	"github.com/any-hub/any-repo/internal/logging"
	"github.com/any-hub/any-repo/internal/metrics"
	"github.com/any-hub/any-repo/internal/repository"
)

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
	stdIn  io.Reader = os.Stdin
)

// cliOptions 汇总全局标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configFlag string
}

// configPath 计算最终配置路径：--config 优先，其次 ANY_REPO_CONFIG，最后默认路径。
func (o *cliOptions) configPath() string {
	if flag := strings.TrimSpace(o.configFlag); flag != "" {
		return flag
	}
	return config.DefaultPath()
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute 构建命令树并执行，返回退出码，方便测试。
func execute(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)
	root.SetIn(stdIn)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stdErr, err.Error())
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "any-repo",
		Short:         "Local artifact repository storage and Maven metadata maintenance",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configFlag, "config", "",
		"配置文件路径（默认 ./config.toml，可被 "+config.EnvConfigPath+" 覆盖）")

	root.AddCommand(
		newVersionCommand(),
		newCheckConfigCommand(opts),
		newServeCommand(opts),
		newRebuildCommand(opts),
		newStoreCommand(opts),
		newListCommand(opts),
		newShredCommand(opts),
		newMoveCommand(opts),
		newVerifyCommand(opts),
	)
	return root
}

// session 持有一次命令执行所需的配置、日志与仓库注册表。
type session struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
	registry   *repository.Registry
}

// loadConfig 读取配置并初始化日志，不触碰仓库目录。
func loadConfig(opts *cliOptions) (*session, error) {
	path := opts.configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &session{configPath: path, cfg: cfg, logger: logger}, nil
}

// openRegistry 打开全部仓库，m 为空时不记录指标。调用方负责 Close。
func (s *session) openRegistry(m *metrics.Metrics) error {
	registry, err := repository.NewRegistry(s.cfg, repository.Options{
		Logger:  s.logger,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("打开仓库失败: %w", err)
	}
	s.registry = registry
	return nil
}

// openSession 读取配置并打开全部仓库。
func openSession(opts *cliOptions) (*session, error) {
	sess, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := sess.openRegistry(nil); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *session) repository(name string) (*repository.Repository, error) {
	repo, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("未知仓库: %s", name)
	}
	return repo, nil
}

func (s *session) Close() {
	if s.registry == nil {
		return
	}
	if err := s.registry.Close(); err != nil {
		s.logger.WithError(err).Warn("repository_close_failed")
	}
}
