package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sofiworker/ngdump/glog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		glog.Error("ngdump failed", "error", err)
		_ = glog.Sync()
		os.Exit(1)
	}
	_ = glog.Sync()
}
