package tapfreq

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/qinglongcn/tapfreq/kernel/kerneltest"
	"github.com/qinglongcn/tapfreq/txscript"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

var (
	// <32 字节公钥> OP_CHECKSIG
	checksigScript = append(append([]byte{txscript.OP_DATA_32}, bytes.Repeat([]byte{0x02}, 32)...),
		txscript.OP_CHECKSIG)

	// 2 3 OP_ADD 5 OP_EQUAL
	arithScript = []byte{0x52, 0x53, txscript.OP_ADD, 0x55, txscript.OP_EQUAL}

	// 未登记的 0xbb 与 OP_CHECKSIGADD
	unknownScript = []byte{0xbb, txscript.OP_CHECKSIGADD}

	// OP_CHECKSIG 后的 OP_PUSHDATA1 声明 5 字节但只有 1 字节
	truncatedScript = []byte{txscript.OP_CHECKSIG, txscript.OP_PUSHDATA1, 0x05, 0x01}

	testAnnex = []byte{txscript.TaprootAnnexTag, 0x01, 0x02}
)

// tapChain 生成一条 6 个区块的 regtest 链，返回链与预期的扫描结果（高度 0 到 5）。
func tapChain(t *testing.T) (*kerneltest.ChainBuilder, ResultSet) {
	t.Helper()

	b := kerneltest.NewChainBuilder(&chaincfg.RegressionNetParams)

	tapSpend := func(inputs ...kerneltest.TapscriptInput) kerneltest.Spend {
		s, err := kerneltest.NewTapscriptSpend(inputs...)
		require.NoError(t, err)
		return s
	}
	legacySpend := func() kerneltest.Spend {
		s, err := kerneltest.NewLegacySpend()
		require.NoError(t, err)
		return s
	}

	// 1: 两笔脚本路径支出，其中一笔带附件
	b.AddBlock(
		tapSpend(kerneltest.TapscriptInput{Script: checksigScript}),
		tapSpend(kerneltest.TapscriptInput{Script: arithScript, Annex: testAnnex}),
	)
	// 2: 只有传统支出
	b.AddBlock(legacySpend())
	// 3: 一笔交易两个输入，外加一笔传统支出
	b.AddBlock(
		tapSpend(
			kerneltest.TapscriptInput{Script: checksigScript},
			kerneltest.TapscriptInput{Script: unknownScript},
		),
		legacySpend(),
	)
	// 4: 截断的脚本
	b.AddBlock(tapSpend(kerneltest.TapscriptInput{Script: truncatedScript}))
	// 5: 带附件
	b.AddBlock(tapSpend(kerneltest.TapscriptInput{Script: checksigScript, Annex: testAnnex}))

	want := ResultSet{
		1: {"OP_CHECKSIG": 1, "OP_ADD": 1, "OP_EQUAL": 1},
		3: {"OP_CHECKSIG": 1, "OP_UNKNOWN(187)": 1, "OP_CHECKSIGADD": 1},
		4: {"OP_CHECKSIG": 1},
		5: {"OP_CHECKSIG": 1},
	}
	return b, want
}

// writeDataDir 将链写成内存中的数据目录。
func writeDataDir(t *testing.T, b *kerneltest.ChainBuilder, cfg kerneltest.DataDirConfig) *kerneltest.DataDir {
	t.Helper()

	d, err := b.WriteDataDir(cfg)
	require.NoError(t, err)
	return d
}

// chainstateOptions 返回指向合成数据目录的链状态管理器选项。
func chainstateOptions(d *kerneltest.DataDir) *kernel.ChainstateManagerOptions {
	return &kernel.ChainstateManagerOptions{
		DataDir:           d.Dir,
		Fs:                d.Fs,
		IndexStorage:      d.IndexStorage,
		ChainstateStorage: d.ChainstateStorage,
	}
}

// openEngine 打开并加载合成数据目录，测试结束时释放。
func openEngine(t *testing.T, d *kerneltest.DataDir) *kernel.ChainstateManager {
	t.Helper()

	ctx, err := kernel.NewContext(kernel.ChainTypeRegtest)
	require.NoError(t, err)
	t.Cleanup(ctx.Destroy)

	chainman, err := kernel.NewChainstateManager(ctx, chainstateOptions(d))
	require.NoError(t, err)
	t.Cleanup(chainman.Destroy)

	require.NoError(t, chainman.LoadChainstate())
	return chainman
}

// testEngine 返回由 fx 管理生命周期的合成数据目录引擎。
func testEngine(d *kerneltest.DataDir) fx.Option {
	return fx.Provide(func(lc fx.Lifecycle, opt *Options, fs afero.Fs) (kernel.Engine, error) {
		chainman, err := OpenChainstate(lc, opt, fs, chainstateOptions(d))
		if err != nil {
			return nil, err
		}
		return chainman, nil
	})
}

// testOptions 返回扫描整条合成链的选项。
func testOptions(d *kerneltest.DataDir) *Options {
	opt := DefaultOptions()
	opt.BuildDataDir(d.Dir)
	opt.BuildChainType("regtest")
	opt.BuildRange(0, -1)
	return opt
}
