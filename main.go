package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pickles-http/pickles/internal/config"
	"github.com/pickles-http/pickles/internal/logging"
	"github.com/pickles-http/pickles/internal/middleware"
	"github.com/pickles-http/pickles/internal/server"
	"github.com/pickles-http/pickles/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.NewWithWriter(cfg.Log, stdOut)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["addr"] = cfg.Server.Addr()
		fields["queue_capacity"] = cfg.Server.QueueCapacity
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		_ = logger.Close()
		return 0
	}

	srv, err := buildServer(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "构建服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["version"] = version.Full()
	fields["cors"] = cfg.CORS.Enabled
	logger.WithFields(fields).Info("配置加载完成")

	if err := srv.Start(); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildServer 按“中间件 → 示例路由”顺序装配服务，启动前完成全部注册。
func buildServer(cfg *config.Config, logger *logging.Logger) (*server.Server, error) {
	srv, err := server.New(cfg.Server, logger)
	if err != nil {
		return nil, err
	}
	srv.Use(middleware.RequestID(), nil)
	if cfg.CORS.Enabled {
		srv.Use(middleware.CORS(), cfg.CORS.Overrides())
	}
	registerExampleRoutes(srv)
	return srv, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("pickles", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可被 PICKLES_CONFIG 覆盖，留空则只使用默认值）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("PICKLES_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}
