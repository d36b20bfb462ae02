package tapfreq

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/fx"
)

// Run 按选项扫描区块范围并写出结果。扫描失败时不写出任何内容。
func Run(ctx context.Context, opt *Options) (ResultSet, error) {
	return run(ctx, opt, afero.NewOsFs(), fx.Provide(NewEngine))
}

// RunSnapshot 将数据目录中的区块范围复制到 opt.StorePath 处的 badger 存储，返回复制的区块数量。
func RunSnapshot(ctx context.Context, opt *Options) (int, error) {
	return runSnapshot(ctx, opt, afero.NewOsFs(), fx.Provide(NewEngine), fx.Provide(NewSnapshotStore))
}

// RunPrint 打印 height 处的区块及其中的 tapscript。
func RunPrint(ctx context.Context, opt *Options, height int64, w io.Writer) error {
	return runPrint(ctx, opt, afero.NewOsFs(), fx.Provide(NewEngine), height, w)
}

func run(ctx context.Context, opt *Options, fs afero.Fs, engine fx.Option) (ResultSet, error) {
	if err := opt.CheckAndSetOptions(fs); err != nil {
		return nil, err
	}

	var (
		scanner *Scanner
		writers []ResultWriter
		metrics *Metrics
	)
	app := fx.New(
		globalInit(ctx, opt, fs),
		engine,
		fx.Provide(
			NewMetrics,
			NewScanner,
			NewResultWriters,
		),
		fx.Populate(&scanner, &writers, &metrics),
	)
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	defer stopApp(app)

	results, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, w := range writers {
		if err := w.Write(results); err != nil {
			return nil, errors.Wrap(err, "write results")
		}
	}
	if opt.MetricsFile != "" {
		if err := metrics.WriteTextfile(opt.MetricsFile); err != nil {
			logrus.Errorf("Write metrics file %s: %v", opt.MetricsFile, err)
		}
	}
	return results, nil
}

func runSnapshot(ctx context.Context, opt *Options, fs afero.Fs, engine, store fx.Option) (int, error) {
	if err := opt.CheckAndSetOptions(fs); err != nil {
		return 0, err
	}

	var (
		src kernel.Engine
		dst *Blockchain
	)
	app := fx.New(
		globalInit(ctx, opt, fs),
		engine,
		store,
		fx.Populate(&src, &dst),
	)
	if err := app.Start(ctx); err != nil {
		return 0, err
	}
	defer stopApp(app)

	return Snapshot(ctx, src, dst, opt.StartHeight, opt.EndHeight)
}

func runPrint(ctx context.Context, opt *Options, fs afero.Fs, engine fx.Option, height int64, w io.Writer) error {
	if err := opt.CheckAndSetOptions(fs); err != nil {
		return err
	}

	var src kernel.Engine
	app := fx.New(
		globalInit(ctx, opt, fs),
		engine,
		fx.Populate(&src),
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer stopApp(app)

	return PrintBlock(w, src, height, opt.VerifyMerkle)
}

func stopApp(app *fx.App) {
	if err := app.Stop(context.Background()); err != nil {
		logrus.Errorf("Stop app: %v", err)
	}
}

// 全局初始化
func globalInit(ctx context.Context, opt *Options, fs afero.Fs) fx.Option {
	return fx.Options(
		fx.NopLogger,
		fx.Provide(
			func() context.Context { return ctx },
			func() *Options { return opt },
			func() afero.Fs { return fs },
		),
	)
}

type NewEngineInput struct {
	fx.In

	Opt *Options
	Fs  afero.Fs
}

type NewEngineOutput struct {
	fx.Out

	Engine kernel.Engine
}

// NewEngine 按 opt.Backend 打开链数据引擎，并在应用停止时释放。
func NewEngine(lc fx.Lifecycle, input NewEngineInput) (out NewEngineOutput, err error) {
	switch input.Opt.Backend {
	case BackendBadger:
		chain, err := OpenBlockchain(input.Opt.StorePath)
		if err != nil {
			return out, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return chain.Close()
			},
		})
		out.Engine = chain
		return out, nil

	default:
		chainman, err := OpenChainstate(lc, input.Opt, input.Fs, nil)
		if err != nil {
			return out, err
		}
		out.Engine = chainman
		return out, nil
	}
}

// OpenChainstate 打开并加载 Bitcoin Core 数据目录，应用停止时释放。
// chainOpts 非空时覆盖由选项推导的数据目录设置。
func OpenChainstate(lc fx.Lifecycle, opt *Options, fs afero.Fs, chainOpts *kernel.ChainstateManagerOptions) (*kernel.ChainstateManager, error) {
	kctx, err := kernel.NewContext(opt.Chain())
	if err != nil {
		return nil, err
	}

	if chainOpts == nil {
		chainOpts = &kernel.ChainstateManagerOptions{DataDir: opt.DataDir}
	}
	if chainOpts.Fs == nil {
		chainOpts.Fs = fs
	}

	chainman, err := kernel.NewChainstateManager(kctx, chainOpts)
	if err != nil {
		kctx.Destroy()
		return nil, err
	}
	if err := chainman.LoadChainstate(); err != nil {
		chainman.Destroy()
		kctx.Destroy()
		return nil, err
	}
	logrus.Infof("Loaded %s chainstate from %s", opt.Chain(), chainOpts.DataDir)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			chainman.Destroy()
			kctx.Destroy()
			return nil
		},
	})
	return chainman, nil
}

// NewSnapshotStore 打开或创建 opt.StorePath 处的 badger 存储，应用停止时关闭。
func NewSnapshotStore(lc fx.Lifecycle, opt *Options) (*Blockchain, error) {
	if opt.StorePath == "" {
		return nil, configError("store path is required for snapshot")
	}

	var (
		chain *Blockchain
		err   error
	)
	if dbExists(opt.StorePath) {
		chain, err = OpenBlockchain(opt.StorePath)
	} else {
		chain, err = CreateBlockchain(opt.StorePath)
	}
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return chain.Close()
		},
	})
	return chain, nil
}

// NewResultWriters 按选项创建结果写出器。
func NewResultWriters(opt *Options, fs afero.Fs) []ResultWriter {
	var writers []ResultWriter
	switch opt.Format {
	case FormatSqlite:
		// go-sqlite3 直接访问操作系统文件
		writers = append(writers, NewSqliteResultWriter(opt.Output))
	default:
		writers = append(writers, NewJSONResultWriter(NewFileStore(fs, ""), opt.Output))
	}
	if opt.BlockOutputDir != "" {
		writers = append(writers, NewBlockResultWriter(NewFileStore(fs, opt.BlockOutputDir)))
	}
	return writers
}
