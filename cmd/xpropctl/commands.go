package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xprop/pkg/verify/xharness"
)

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func createCommands() []*cli.Command {
	return []*cli.Command{
		createVerifyCommand(),
		createRequestCommand("trigger", http.MethodPost, "/trigger", "发送一次 POST /trigger"),
		createRequestCommand("data", http.MethodGet, "/data", "发送一次 GET /data"),
		createStatusCommand(),
	}
}

func createVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:    "verify",
		Aliases: []string{"v"},
		Usage:   "并发发送请求并校验每个响应返回自己的跟踪标识",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "请求数", Value: xharness.DefaultCount},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"c"}, Usage: "并发上限，0 表示全部同时发出"},
			&cli.IntFlag{Name: "attempts", Usage: "传输错误的最大尝试次数", Value: xharness.DefaultAttempts},
			&cli.StringFlag{Name: "path", Usage: "请求路径", Value: xharness.DefaultPath},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := xharness.Config{
				BaseURL:     cmd.String("url"),
				Path:        cmd.String("path"),
				Count:       cmd.Int("count"),
				Concurrency: cmd.Int("concurrency"),
				Timeout:     cmd.Duration("timeout"),
			}
			attempts := cmd.Int("attempts")
			if attempts < 1 {
				return &usageError{msg: "--attempts 至少为 1"}
			}
			cfg.Attempts = uint(attempts)
			return cmdVerify(ctx, cmd.Root().Writer, cfg)
		},
	}
}

func createRequestCommand(name, method, path, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "跟踪标识，默认随机生成；传空字符串表示不携带"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := uuid.NewString()
			if cmd.IsSet("id") {
				id = cmd.String("id")
			}
			c := NewClient(cmd.String("url"), cmd.Duration("timeout"))
			return cmdRequest(ctx, cmd.Root().Writer, c, method, path, id)
		},
	}
}

func createStatusCommand() *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"s"},
		Usage:   "检查服务健康状态",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := NewClient(cmd.String("url"), cmd.Duration("timeout"))
			return cmdStatus(ctx, cmd.Root().Writer, c)
		},
	}
}

func cmdVerify(ctx context.Context, w io.Writer, cfg xharness.Config) error {
	if cfg.Count < 0 {
		return &usageError{msg: "--count 不能为负数"}
	}
	report, err := xharness.Run(ctx, cfg)
	if err != nil {
		if errors.Is(err, xharness.ErrInvalidConfig) {
			return &usageError{msg: err.Error()}
		}
		return err
	}

	fmt.Fprintf(w, "sent=%d matched=%d mismatched=%d leaked=%d failed=%d elapsed=%s\n",
		report.Sent, report.Matched, len(report.Mismatches), report.Leaked(), len(report.Failures),
		report.Elapsed.Round(time.Millisecond))
	for _, m := range report.Mismatches {
		fmt.Fprintf(w, "  mismatch sent=%s got=%s leaked=%t\n", m.Sent, m.Got, m.Leaked)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  failure id=%s err=%v\n", f.ID, f.Err)
	}
	if !report.OK() {
		return &exitError{code: 1}
	}
	fmt.Fprintln(w, "OK")
	return nil
}

func cmdRequest(ctx context.Context, w io.Writer, c *Client, method, path, id string) error {
	res, err := c.Do(ctx, method, path, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "status=%d trace_id=%s\n", res.Status, res.TraceID)
	if res.Propagation != "" {
		fmt.Fprintf(w, "propagation_error=%s\n", res.Propagation)
	}
	fmt.Fprintln(w, res.Body)
	if res.Status < 200 || res.Status > 299 {
		return &exitError{code: 1}
	}
	if method == http.MethodPost && id != "" && res.Body != id {
		fmt.Fprintf(w, "mismatch: sent %s\n", id)
		return &exitError{code: 1}
	}
	return nil
}

func cmdStatus(ctx context.Context, w io.Writer, c *Client) error {
	res, err := c.Do(ctx, http.MethodGet, "/healthz", "")
	if err != nil || res.Status != http.StatusOK {
		fmt.Fprintln(w, "offline")
		return &exitError{code: 1}
	}
	fmt.Fprintln(w, "online")
	return nil
}

// setupSignalHandler 第一次信号取消 ctx，第二次信号强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
