package txscript

import (
	"github.com/btcsuite/btclog"
)

// log 是本包使用的日志记录器，默认禁用，直到调用方调用 UseLogger。
var log btclog.Logger

func init() {
	DisableLog()
}

// DisableLog 禁用本包的全部日志输出。
func DisableLog() {
	log = btclog.Disabled
}

// UseLogger 使用指定的日志记录器输出本包的日志。
func UseLogger(logger btclog.Logger) {
	log = logger
}
