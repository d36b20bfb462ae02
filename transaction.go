package tapfreq

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/qinglongcn/tapfreq/txscript"
	"github.com/sirupsen/logrus"
)

// OpcodeFrequencies 记录每个操作码标签出现的次数
type OpcodeFrequencies map[string]int

// ScriptStats 统计处理过的 tapscript
type ScriptStats struct {
	Tapscripts int // 揭示的 tapscript 数量
	Truncated  int // 因数据推送越界而提前结束解析的 tapscript 数量
}

// Add 累加另一组统计
func (s *ScriptStats) Add(o ScriptStats) {
	s.Tapscripts += o.Tapscripts
	s.Truncated += o.Truncated
}

// ProcessTransaction 将交易中每个脚本路径支出揭示的 tapscript 的操作码计入 counts。
// prevouts[i] 是第 i 个输入所花费输出的脚本。
func ProcessTransaction(tx *btcutil.Tx, prevouts [][]byte, counts OpcodeFrequencies) (ScriptStats, error) {
	var stats ScriptStats

	inputs := tx.MsgTx().TxIn
	if len(inputs) != len(prevouts) {
		return stats, scanError(ErrPrevoutCountMismatch, fmt.Sprintf(
			"transaction %s has %d inputs but %d spent outputs",
			tx.Hash(), len(inputs), len(prevouts)))
	}

	for i, in := range inputs {
		script, ok := txscript.ExtractTapscript(in.Witness, prevouts[i])
		if !ok {
			continue
		}
		stats.Tapscripts++

		labels, err := txscript.ParseOpcodes(script)
		if err != nil {
			stats.Truncated++
			logrus.Warnf("Tapscript of input %d in transaction %s is truncated: %v", i, tx.Hash(), err)
		}
		for _, label := range labels {
			counts[label]++
		}
	}

	return stats, nil
}
