package tapfreq

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/mattn/go-colorable"
	"github.com/qinglongcn/tapfreq/txscript"
	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
)

const (
	logName = "console"
)

// SetLog 配置全局日志：彩色终端输出，LogDir 非空时另外按 JSON 格式写入可轮转的日志文件。
// txscript 包的日志也会转到 logrus。
func SetLog(opt *Options) error {
	logLevel, err := logrus.ParseLevel(opt.LogLevel)
	if err != nil {
		return configError(err.Error())
	}

	logrus.SetLevel(logLevel)
	logrus.SetOutput(colorable.NewColorableStdout())
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC822,
	})

	if opt.LogDir != "" {
		filename := filepath.Join(opt.LogDir, fmt.Sprintf("%s.log", logName))
		if opt.InstanceId != "" {
			filename = filepath.Join(opt.LogDir, fmt.Sprintf("%s_%s.log", logName, opt.InstanceId))
		}
		// logrus 的回调钩子
		rotateFileHook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
			Filename:   filename,
			MaxSize:    50, // 文件最大50M
			MaxBackups: 3,
			MaxAge:     28, // 存储28天
			Level:      logLevel,
			Formatter: &logrus.JSONFormatter{
				TimestampFormat: "2006-01-02 15:04:05",
			},
		})
		if err != nil {
			return configError(fmt.Sprintf("init log file hook: %v", err))
		}
		logrus.AddHook(rotateFileHook)
	}

	txscript.UseLogger(NewSubsystemLogger("TXSC"))
	return nil
}

// subsystemLogger 实现 btclog.Logger，将日志转到 logrus 并带上子系统字段。
type subsystemLogger struct {
	entry *logrus.Entry
}

// NewSubsystemLogger 返回一个输出到 logrus 全局日志的 btclog.Logger。
func NewSubsystemLogger(subsystem string) btclog.Logger {
	return &subsystemLogger{entry: logrus.WithField("subsystem", subsystem)}
}

func (l *subsystemLogger) Tracef(format string, params ...interface{}) {
	l.entry.Tracef(format, params...)
}

func (l *subsystemLogger) Debugf(format string, params ...interface{}) {
	l.entry.Debugf(format, params...)
}

func (l *subsystemLogger) Infof(format string, params ...interface{}) {
	l.entry.Infof(format, params...)
}

func (l *subsystemLogger) Warnf(format string, params ...interface{}) {
	l.entry.Warnf(format, params...)
}

func (l *subsystemLogger) Errorf(format string, params ...interface{}) {
	l.entry.Errorf(format, params...)
}

func (l *subsystemLogger) Criticalf(format string, params ...interface{}) {
	l.entry.Errorf(format, params...)
}

func (l *subsystemLogger) Trace(v ...interface{})    { l.entry.Trace(v...) }
func (l *subsystemLogger) Debug(v ...interface{})    { l.entry.Debug(v...) }
func (l *subsystemLogger) Info(v ...interface{})     { l.entry.Info(v...) }
func (l *subsystemLogger) Warn(v ...interface{})     { l.entry.Warn(v...) }
func (l *subsystemLogger) Error(v ...interface{})    { l.entry.Error(v...) }
func (l *subsystemLogger) Critical(v ...interface{}) { l.entry.Error(v...) }

// Level 返回与 logrus 当前级别对应的 btclog 级别。
func (l *subsystemLogger) Level() btclog.Level {
	switch l.entry.Logger.GetLevel() {
	case logrus.TraceLevel:
		return btclog.LevelTrace
	case logrus.DebugLevel:
		return btclog.LevelDebug
	case logrus.InfoLevel:
		return btclog.LevelInfo
	case logrus.WarnLevel:
		return btclog.LevelWarn
	case logrus.ErrorLevel:
		return btclog.LevelError
	default:
		return btclog.LevelCritical
	}
}

// SetLevel 设置 logrus 全局级别。
func (l *subsystemLogger) SetLevel(level btclog.Level) {
	switch level {
	case btclog.LevelTrace:
		l.entry.Logger.SetLevel(logrus.TraceLevel)
	case btclog.LevelDebug:
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	case btclog.LevelInfo:
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	case btclog.LevelWarn:
		l.entry.Logger.SetLevel(logrus.WarnLevel)
	case btclog.LevelError:
		l.entry.Logger.SetLevel(logrus.ErrorLevel)
	default:
		l.entry.Logger.SetLevel(logrus.FatalLevel)
	}
}
