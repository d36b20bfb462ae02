package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qinglongcn/tapfreq"
	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// usageError 标记命令行参数或配置文件错误。
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

var configFile string

// NewRootCmd 创建根命令：扫描区块范围并写出操作码频次。
func NewRootCmd() *cobra.Command {
	v := viper.New()
	def := tapfreq.DefaultOptions()

	rootCmd := &cobra.Command{
		Use:           "tapfreq",
		Short:         "Count tapscript opcodes per block",
		Long:          `Scan a block range of a Bitcoin Core data directory and count the non-push opcodes of every tapscript revealed by a Taproot script path spend.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	flags.String("datadir", "", "network data directory containing blocks/ and chainstate/")
	flags.String("chain-type", def.ChainType, fmt.Sprintf("chain type (%s)", strings.Join(kernel.ChainTypeNames(), ", ")))
	flags.String("backend", def.Backend, "chain data backend (core, badger)")
	flags.String("store", "", "badger store directory (badger backend, snapshot destination)")
	flags.Int64("start-height", def.StartHeight, "first block height, negative counts back from the tip")
	flags.Int64("end-height", def.EndHeight, "last block height (inclusive), negative counts back from the tip")
	flags.String("output", def.Output, "result file")
	flags.String("format", def.Format, "result format (json, sqlite)")
	flags.String("block-output-dir", "", "also write one <height>.json file per block into this directory")
	flags.Bool("verify-merkle", def.VerifyMerkle, "check the merkle root of every block")
	flags.String("instance-id", "", "instance id used in the log file name")
	flags.String("log-dir", "", "directory for rotated JSON log files")
	flags.String("log-level", def.LogLevel, "log level (trace, debug, info, warn, error)")
	flags.String("metrics-file", "", "write prometheus metrics to this textfile")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.AddCommand(newSnapshotCmd(v), newShowCmd(v))
	return rootCmd
}

func newSnapshotCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Copy a block range with its undo data into a badger store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := loadOptions(v)
			if err != nil {
				return err
			}
			opt.Backend = tapfreq.BackendCore

			n, err := tapfreq.RunSnapshot(cmd.Context(), opt)
			if err != nil {
				return err
			}
			fmt.Printf("Copied %d blocks to %s\n", n, opt.StorePath)
			return nil
		},
	}
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	var height int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a block header and disassemble its tapscripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := loadOptions(v)
			if err != nil {
				return err
			}
			return tapfreq.RunPrint(cmd.Context(), opt, height, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&height, "height", -1, "block height, negative counts back from the tip")
	return cmd
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return usageError{err}
		}
	}

	v.SetEnvPrefix("TAPFREQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return usageError{err}
	}
	return nil
}

// loadOptions 由标志、环境变量与配置文件组装选项并初始化日志。
func loadOptions(v *viper.Viper) (*tapfreq.Options, error) {
	opt := tapfreq.DefaultOptions()
	opt.BuildDataDir(v.GetString("datadir"))
	opt.BuildChainType(v.GetString("chain-type"))
	opt.Backend = v.GetString("backend")
	opt.StorePath = v.GetString("store")
	opt.BuildRange(v.GetInt64("start-height"), v.GetInt64("end-height"))
	opt.BuildOutput(v.GetString("output"), v.GetString("format"))
	opt.BlockOutputDir = v.GetString("block-output-dir")
	opt.VerifyMerkle = v.GetBool("verify-merkle")
	opt.InstanceId = v.GetString("instance-id")
	opt.LogDir = v.GetString("log-dir")
	opt.LogLevel = v.GetString("log-level")
	opt.MetricsFile = v.GetString("metrics-file")

	if err := tapfreq.SetLog(opt); err != nil {
		return nil, err
	}
	return opt, nil
}

func runScan(ctx context.Context, v *viper.Viper) error {
	opt, err := loadOptions(v)
	if err != nil {
		return err
	}

	results, err := tapfreq.Run(ctx, opt)
	if err != nil {
		return err
	}

	output := opt.Output
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	heights := results.Heights()
	if len(heights) > 0 {
		fmt.Printf("Last block with tapscripts at height %d, output written to %s\n", heights[len(heights)-1], output)
	} else {
		fmt.Printf("No tapscripts found, output written to %s\n", output)
	}
	return nil
}
