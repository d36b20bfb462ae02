package tapfreq

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSubsystemLogger(t *testing.T) {
	level := logrus.GetLevel()
	out := logrus.StandardLogger().Out
	formatter := logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetOutput(out)
		logrus.SetFormatter(formatter)
	})

	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})

	log := NewSubsystemLogger("TXSC")
	for _, l := range []btclog.Level{
		btclog.LevelTrace, btclog.LevelDebug, btclog.LevelInfo,
		btclog.LevelWarn, btclog.LevelError,
	} {
		log.SetLevel(l)
		require.Equal(t, l, log.Level())
	}

	log.SetLevel(btclog.LevelWarn)
	log.Infof("dropped %d", 1)
	require.Empty(t, buf.String())

	log.Warnf("truncated script at %d", 3)
	require.Contains(t, buf.String(), "truncated script at 3")
	require.Contains(t, buf.String(), "subsystem=TXSC")
}

func TestSetLogRejectsLevel(t *testing.T) {
	opt := DefaultOptions()
	opt.LogLevel = "chatty"
	require.True(t, IsErrorKind(SetLog(opt), ErrConfiguration))
}
