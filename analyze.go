package tapfreq

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// AnalyzeBlock 统计区块中全部非 coinbase 交易揭示的 tapscript 操作码。
func AnalyzeBlock(block *btcutil.Block, prevouts PrevoutSet) (OpcodeFrequencies, ScriptStats, error) {
	var stats ScriptStats

	txs := block.Transactions()
	if len(prevouts) != len(txs) {
		return nil, stats, scanError(ErrUndoMismatch, fmt.Sprintf(
			"block %s has %d transactions but %d spent output sets",
			block.Hash(), len(txs), len(prevouts)))
	}

	counts := make(OpcodeFrequencies)
	for i, tx := range txs {
		if i == 0 {
			continue
		}
		txStats, err := ProcessTransaction(tx, prevouts[i], counts)
		if err != nil {
			return nil, stats, err
		}
		stats.Add(txStats)
	}

	return counts, stats, nil
}
