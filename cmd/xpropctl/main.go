// xpropctl 是 xpropd 的命令行客户端，用于验证请求上下文传播。
//
// 用法:
//
//	xpropctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-u, --url      服务地址 (默认: http://127.0.0.1:8080)
//	-t, --timeout  单次请求超时 (默认: 10s)
//
// 命令:
//
//	verify         并发发送请求并校验每个响应返回自己的跟踪标识
//	trigger        发送一次 POST /trigger
//	data           发送一次 GET /data
//	status         检查服务健康状态
//
// 退出码:
//
//	0: 成功（verify: 全部匹配）
//	1: 执行失败、校验不通过或服务离线
//	2: 参数错误
//
// 示例:
//
//	xpropctl verify -n 100
//	xpropctl verify -n 1000 -c 50 --attempts 5
//	xpropctl trigger --id my-id
//	xpropctl -u http://10.0.0.2:8080 status
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
)

const (
	defaultURL     = "http://127.0.0.1:8080"
	defaultTimeout = 10 * time.Second
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xpropctl",
		Usage:   "xpropd 上下文传播验证客户端",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "服务地址",
				Value:   defaultURL,
				Sources: cli.EnvVars("XPROP_URL"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "单次请求超时",
				Value:   defaultTimeout,
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 退出码由 run 统一映射
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run(args []string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	return exitCode(createApp().Run(ctx, args))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		return 2
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	return 1
}

// isCLIUsageError 识别 urfave/cli 的 flag 解析错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "flag provided but not defined") ||
		strings.HasPrefix(msg, "invalid value") ||
		strings.Contains(msg, "No help topic for")
}
