package tapfreq

import (
	"path/filepath"
	"testing"

	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opt := DefaultOptions()
	require.Equal(t, "signet", opt.ChainType)
	require.Equal(t, kernel.ChainTypeSignet, opt.Chain())
	require.Equal(t, BackendCore, opt.Backend)
	require.Equal(t, int64(1), opt.StartHeight)
	require.Equal(t, int64(-1), opt.EndHeight)
	require.Equal(t, DefaultOutput, opt.Output)
	require.Equal(t, FormatJSON, opt.Format)
	require.True(t, opt.VerifyMerkle)
}

func TestOptionBuilders(t *testing.T) {
	opt := DefaultOptions()

	opt.BuildDataDir("relative/signet")
	require.True(t, filepath.IsAbs(opt.DataDir), opt.DataDir)

	opt.BuildDataDir("")
	require.True(t, filepath.IsAbs(opt.DataDir))

	opt.BuildChainType("  MainNet ")
	require.Equal(t, "mainnet", opt.ChainType)

	opt.BuildOutput("", "SQLITE")
	require.Equal(t, DefaultOutput, opt.Output)
	require.Equal(t, FormatSqlite, opt.Format)

	opt.BuildOutput("out.json", "")
	require.Equal(t, "out.json", opt.Output)
	require.Equal(t, FormatSqlite, opt.Format)

	opt.BuildBadgerStore("/store")
	require.Equal(t, BackendBadger, opt.Backend)
	require.Equal(t, "/store", opt.StorePath)
}

func TestCheckAndSetOptions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/btc/signet/blocks", 0o755))
	require.NoError(t, fs.MkdirAll("/btc/signet/chainstate", 0o755))
	require.NoError(t, fs.MkdirAll("/btc/noblocks/chainstate", 0o755))
	require.NoError(t, fs.MkdirAll("/store", 0o755))

	valid := func() *Options {
		opt := DefaultOptions()
		opt.DataDir = "/btc/signet"
		return opt
	}

	opt := valid()
	opt.BuildChainType("testnet4")
	require.NoError(t, opt.CheckAndSetOptions(fs))
	require.Equal(t, kernel.ChainTypeTestnet4, opt.Chain())

	opt = valid()
	opt.BuildBadgerStore("/store")
	opt.DataDir = ""
	require.NoError(t, opt.CheckAndSetOptions(fs))

	tests := []struct {
		name   string
		modify func(opt *Options)
	}{
		{name: "unknown chain", modify: func(opt *Options) { opt.ChainType = "litecoin" }},
		{name: "no datadir", modify: func(opt *Options) { opt.DataDir = "" }},
		{name: "missing datadir", modify: func(opt *Options) { opt.DataDir = "/btc/mainnet" }},
		{name: "missing blocks", modify: func(opt *Options) { opt.DataDir = "/btc/noblocks" }},
		{name: "no store", modify: func(opt *Options) { opt.Backend = BackendBadger }},
		{name: "missing store", modify: func(opt *Options) { opt.BuildBadgerStore("/nostore") }},
		{name: "unknown backend", modify: func(opt *Options) { opt.Backend = "rpc" }},
		{name: "unknown format", modify: func(opt *Options) { opt.Format = "csv" }},
		{name: "empty output", modify: func(opt *Options) { opt.Output = "" }},
		{name: "bad log level", modify: func(opt *Options) { opt.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := valid()
			tt.modify(opt)
			err := opt.CheckAndSetOptions(fs)
			require.True(t, IsErrorKind(err, ErrConfiguration), "%v", err)
			require.Equal(t, 2, Category(err).ExitCode())
		})
	}
}
