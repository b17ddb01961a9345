package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/sofiworker/ngdump/glog"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Decode a capture again each time it is written",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// 配置文件的修改在下一次解码时生效
			var mu sync.Mutex
			s, err := loadSettings(cmd, opts.configFile, func(next *Settings) {
				if err := next.validate(); err != nil {
					glog.Warn("settings reload rejected", "error", err)
					return
				}
				mu.Lock()
				opts.settings = next
				mu.Unlock()
				glog.Info("settings reloaded")
			})
			if err != nil {
				return err
			}
			mu.Lock()
			opts.settings = s
			mu.Unlock()

			w := cmd.OutOrStdout()
			return watchFile(cmd.Context(), args[0], func(ctx context.Context) error {
				mu.Lock()
				current := *opts
				mu.Unlock()
				return runDump(ctx, w, args[0], &current)
			})
		},
	}
}

// watchFile 先调用一次 decode，之后每当 path 发生写入或创建事件时再调用，直到 ctx 结束。
// 解码失败只记录日志，不会中断监听。
func watchFile(ctx context.Context, path string, decode func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// 监听所在目录，以便感知编辑器替换文件
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	if err := decode(ctx); err != nil {
		glog.WarnContext(ctx, "decode failed", "file", path, "error", err)
	}
	glog.InfoContext(ctx, "watching capture", "file", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			glog.DebugContext(ctx, "capture changed", "file", ev.Name, "op", ev.Op.String())
			if err := decode(ctx); err != nil {
				glog.WarnContext(ctx, "decode failed", "file", path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			glog.ErrorContext(ctx, "watcher error", "error", err)
		}
	}
}
