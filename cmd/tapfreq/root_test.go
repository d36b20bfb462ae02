package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/qinglongcn/tapfreq"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/vrecan/death/v3"
)

func TestLoadOptions(t *testing.T) {
	t.Cleanup(func() { configFile = "" })

	path := filepath.Join(t.TempDir(), "tapfreq.yaml")
	config := "chain-type: regtest\nstart-height: 5\noutput: from-config.json\nverify-merkle: false\n"
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))
	t.Setenv("TAPFREQ_FORMAT", "sqlite")

	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--end-height", "9", "--datadir", "/btc"}))

	v := viper.New()
	require.NoError(t, initConfig(v, cmd))
	opt, err := loadOptions(v)
	require.NoError(t, err)

	// 标志优先于环境变量，环境变量优先于配置文件
	require.Equal(t, "regtest", opt.ChainType)
	require.Equal(t, int64(5), opt.StartHeight)
	require.Equal(t, int64(9), opt.EndHeight)
	require.Equal(t, "from-config.json", opt.Output)
	require.Equal(t, tapfreq.FormatSqlite, opt.Format)
	require.False(t, opt.VerifyMerkle)
	require.Equal(t, "/btc", opt.DataDir)
	require.Equal(t, tapfreq.BackendCore, opt.Backend)
}

func TestExecuteExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "unknown flag", args: []string{"--no-such-flag"}, code: 2},
		{name: "bad height", args: []string{"--start-height", "tip"}, code: 2},
		{name: "missing datadir", args: []string{"--datadir", filepath.Join(t.TempDir(), "missing")}, code: 2},
		{name: "unknown chain", args: []string{"--datadir", t.TempDir(), "--chain-type", "litecoin"}, code: 2},
		{name: "missing config file", args: []string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, code: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { configFile = "" })

			cmd := NewRootCmd()
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			require.Equal(t, tt.code, exitCode(err), "%v", err)
		})
	}
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 2, exitCode(usageError{errors.New("bad flag")}))
	require.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestWatchDeath(t *testing.T) {
	t.Run("stop", func(t *testing.T) {
		ctx, stop := watchDeath(context.Background(), death.NewDeath(syscall.SIGUSR1))
		require.NoError(t, ctx.Err())

		stop()
		require.ErrorIs(t, ctx.Err(), context.Canceled)
		// 重复调用不会阻塞
		stop()
	})

	t.Run("signal", func(t *testing.T) {
		ctx, stop := watchDeath(context.Background(), death.NewDeath(syscall.SIGUSR2))
		defer stop()

		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR2))
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("context not cancelled after signal")
		}
	})

	t.Run("parent cancelled", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		ctx, stop := watchDeath(parent, death.NewDeath(syscall.SIGUSR1))
		defer stop()

		cancel()
		<-ctx.Done()
	})
}
