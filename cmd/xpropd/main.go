// xpropd 请求上下文传播参考服务。
//
// 用法:
//
//	xpropd [-c config.yaml]
//
// 未指定配置文件时使用内置默认值（监听 :8080）。指定文件时监视其变更，
// log.level 热更新，其余配置需要重启生效。
//
// 路由:
//
//	POST /trigger      穿越全部并发边界后返回请求的跟踪标识
//	GET  /data         返回环境通道的跟踪标识
//	GET  /healthz      健康检查
//	GET  /debug/stats  进程内传播指标（按 status 分组）
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xprop/pkg/config/xconf"
	"github.com/omeyang/xprop/pkg/observability/xlog"
)

// Version 可通过 -ldflags "-X main.Version=..." 注入。
var Version = "0.1.0-dev"

func main() {
	if err := createApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "xpropd: %v\n", err)
		os.Exit(1)
	}
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xpropd",
		Usage:   "请求上下文传播参考服务",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
				Sources: cli.EnvVars("XPROP_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "覆盖 server.addr",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			if addr := cmd.String("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(ctx, cfg, conf)
		},
	}
}

func serve(ctx context.Context, cfg ServiceConfig, conf xconf.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	xlog.SetDefault(a.logger)
	defer func() {
		xlog.ResetDefault()
		_ = a.closeLogger()
	}()
	return a.run(ctx, conf)
}
