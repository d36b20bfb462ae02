package tapfreq

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/sirupsen/logrus"
)

// Scanner 在一个链数据引擎上扫描区块范围并统计 tapscript 操作码。
type Scanner struct {
	engine  kernel.Engine
	opt     *Options
	metrics *Metrics
}

// NewScanner 创建扫描器。metrics 可以为 nil。
func NewScanner(engine kernel.Engine, opt *Options, metrics *Metrics) *Scanner {
	return &Scanner{engine: engine, opt: opt, metrics: metrics}
}

// Scan 依次处理范围内的每个区块。出现错误或 ctx 被取消时丢弃已有的部分结果。
func (s *Scanner) Scan(ctx context.Context) (ResultSet, error) {
	results := make(ResultSet)
	var total ScriptStats
	blocks := 0

	it := NewBlockIndexIterator(s.engine, s.opt.StartHeight, s.opt.EndHeight)
	defer it.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !it.Next() {
			break
		}

		idx := it.BlockIndex()
		start := time.Now()
		counts, stats, err := s.scanBlock(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "block %s at height %d", idx.Hash(), idx.Height())
		}
		s.metrics.ObserveBlock(counts, stats, time.Since(start))
		results.Add(idx.Height(), counts)

		total.Add(stats)
		blocks++
		logrus.WithFields(logrus.Fields{
			"height":     idx.Height(),
			"tapscripts": stats.Tapscripts,
			"opcodes":    len(counts),
		}).Debug("Scanned block")
	}
	if err := it.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate blocks")
	}

	opcodes := 0
	sum := results.Total()
	for _, n := range sum {
		opcodes += n
	}
	logrus.WithFields(logrus.Fields{
		"blocks":     blocks,
		"tapscripts": total.Tapscripts,
		"truncated":  total.Truncated,
		"opcodes":    opcodes,
		"labels":     len(sum),
	}).Infof("Scanned %d blocks, %d blocks with opcodes", blocks, len(results))
	return results, nil
}

// scanBlock 读取并分析一个区块。区块句柄在解码之前释放，撤销数据句柄由 ReconstructPrevouts 释放。
func (s *Scanner) scanBlock(idx *kernel.BlockIndex) (OpcodeFrequencies, ScriptStats, error) {
	raw, err := readBlockBytes(s.engine, idx)
	if err != nil {
		return nil, ScriptStats{}, err
	}

	block, err := DeserializeBlock(raw, s.opt.VerifyMerkle)
	if err != nil {
		return nil, ScriptStats{}, err
	}

	undo, err := s.engine.ReadBlockUndo(idx)
	if err != nil {
		return nil, ScriptStats{}, err
	}
	prevouts, err := ReconstructPrevouts(undo, len(block.Transactions()))
	if err != nil {
		return nil, ScriptStats{}, err
	}

	return AnalyzeBlock(block, prevouts)
}

// readBlockBytes 复制区块数据后立即释放区块句柄。
func readBlockBytes(engine kernel.Engine, idx *kernel.BlockIndex) ([]byte, error) {
	block, err := engine.ReadBlock(idx)
	if err != nil {
		return nil, err
	}
	defer block.Destroy()

	return block.Data()
}
