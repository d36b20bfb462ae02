package main

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/qinglongcn/tapfreq"
	"github.com/sirupsen/logrus"
	"github.com/vrecan/death/v3"
)

func main() {
	ctx, stop := watchDeath(context.Background(), death.NewDeath(syscall.SIGINT, syscall.SIGTERM))
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.Error(err)
		os.Exit(exitCode(err))
	}
}

// watchDeath 返回一个在 d 收到信号时被取消的上下文。
// 返回的 stop 让 d 退出等待并阻塞到监视协程结束，之后上下文也被取消。
func watchDeath(parent context.Context, d *death.Death) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	var stopped int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.WaitForDeathWithFunc(func() {
			if atomic.LoadInt32(&stopped) == 0 {
				logrus.Warn("Interrupted, stopping scan")
			}
			cancel()
		})
	}()

	return ctx, func() {
		atomic.StoreInt32(&stopped, 1)
		d.FallOnSword()
		<-done
	}
}

// exitCode 将错误映射为进程退出状态。命令行参数错误视为配置错误。
func exitCode(err error) int {
	if _, ok := err.(usageError); ok {
		return tapfreq.CategoryConfiguration.ExitCode()
	}
	return tapfreq.Category(err).ExitCode()
}
