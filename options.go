package tapfreq

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	BackendCore   = "core"   // Bitcoin Core 数据目录
	BackendBadger = "badger" // 由 snapshot 生成的 badger 存储

	FormatJSON   = "json"
	FormatSqlite = "sqlite"

	// DefaultOutput 是默认的结果文件路径
	DefaultOutput = "data/op_code/block_frequencies.json"
)

// Options 是一次扫描的参数
type Options struct {
	DataDir   string `optional:"false" default:""`       // 网络数据目录，包含 blocks/ 与 chainstate/
	ChainType string `optional:"true"  default:"signet"` // 网络名称
	Backend   string `optional:"true"  default:"core"`   // 链数据来源
	StorePath string `optional:"true"  default:""`       // badger 存储目录，badger 后端与 snapshot 使用

	StartHeight int64 `optional:"true" default:"1"`  // 起始高度，负数表示距链末端的偏移
	EndHeight   int64 `optional:"true" default:"-1"` // 结束高度（包含），-1 表示链末端

	Output         string `optional:"true" default:"data/op_code/block_frequencies.json"` // 结果文件
	Format         string `optional:"true" default:"json"`                                // 结果格式
	BlockOutputDir string `optional:"true" default:""`                                    // 非空时为每个区块单独写一个 JSON 文件
	VerifyMerkle   bool   `optional:"true" default:"true"`                                // 是否校验区块的 Merkle 根

	InstanceId  string `optional:"true" default:""`     // 实例标识，用于区分日志文件
	LogDir      string `optional:"true" default:""`     // 日志目录，为空时只输出到终端
	LogLevel    string `optional:"true" default:"info"` // 日志级别
	MetricsFile string `optional:"true" default:""`     // 指标文本文件

	chainType kernel.ChainType // CheckAndSetOptions 解析后的网络
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		ChainType:    kernel.ChainTypeSignet.String(),
		Backend:      BackendCore,
		StartHeight:  1,
		EndHeight:    -1,
		Output:       DefaultOutput,
		Format:       FormatJSON,
		VerifyMerkle: true,
		LogLevel:     logrus.InfoLevel.String(),
		chainType:    kernel.ChainTypeSignet,
	}
}

// BuildDataDir 设置数据目录
func (opt *Options) BuildDataDir(path string) {
	if path == "" {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	opt.DataDir = path
}

// BuildChainType 设置网络名称
func (opt *Options) BuildChainType(name string) {
	opt.ChainType = strings.ToLower(strings.TrimSpace(name))
}

// BuildRange 设置扫描的高度范围
func (opt *Options) BuildRange(start, end int64) {
	opt.StartHeight = start
	opt.EndHeight = end
}

// BuildOutput 设置结果文件与格式，format 为空时保持原格式
func (opt *Options) BuildOutput(path, format string) {
	if path != "" {
		opt.Output = path
	}
	if format != "" {
		opt.Format = strings.ToLower(format)
	}
}

// BuildBadgerStore 使用 badger 存储作为链数据来源
func (opt *Options) BuildBadgerStore(path string) {
	opt.Backend = BackendBadger
	opt.StorePath = path
}

// Chain 返回解析后的网络
func (opt *Options) Chain() kernel.ChainType {
	return opt.chainType
}

// CheckAndSetOptions 检查并设置选项，fs 用于检查目录是否存在
func (opt *Options) CheckAndSetOptions(fs afero.Fs) error {
	chainType, err := kernel.ParseChainType(opt.ChainType)
	if err != nil {
		return configError(err.Error())
	}
	opt.chainType = chainType

	switch opt.Backend {
	case BackendCore:
		if opt.DataDir == "" {
			return configError("datadir is required")
		}
		for _, dir := range []string{opt.DataDir, filepath.Join(opt.DataDir, "blocks"), filepath.Join(opt.DataDir, "chainstate")} {
			if ok, _ := afero.DirExists(fs, dir); !ok {
				return configError(fmt.Sprintf("directory %s does not exist", dir))
			}
		}
	case BackendBadger:
		if opt.StorePath == "" {
			return configError("store path is required for the badger backend")
		}
		if ok, _ := afero.DirExists(fs, opt.StorePath); !ok {
			return configError(fmt.Sprintf("store %s does not exist", opt.StorePath))
		}
	default:
		return configError(fmt.Sprintf("unknown backend %q", opt.Backend))
	}

	switch opt.Format {
	case FormatJSON, FormatSqlite:
	default:
		return configError(fmt.Sprintf("unknown output format %q", opt.Format))
	}
	if opt.Output == "" {
		return configError("output path is required")
	}

	if _, err := logrus.ParseLevel(opt.LogLevel); err != nil {
		return configError(err.Error())
	}
	return nil
}

func configError(desc string) Error {
	return scanError(ErrConfiguration, desc)
}
