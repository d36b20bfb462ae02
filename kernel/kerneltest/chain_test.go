package kerneltest

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

func TestNewTapscriptSpendCommitsToScript(t *testing.T) {
	script := []byte{txscript.OP_2, txscript.OP_3, txscript.OP_ADD}
	spend, err := NewTapscriptSpend(TapscriptInput{Script: script})
	require.NoError(t, err)
	require.Len(t, spend.Prevouts, 1)

	pkScript := spend.Prevouts[0].PkScript
	require.Len(t, pkScript, 34)
	require.Equal(t, []byte{txscript.OP_1, txscript.OP_DATA_32}, pkScript[:2])

	witness := spend.Tx.TxIn[0].Witness
	require.Len(t, witness, 3)
	require.Equal(t, script, witness[1])

	ctrlBlock, err := txscript.ParseControlBlock(witness[2])
	require.NoError(t, err)
	require.NoError(t, txscript.VerifyTaprootLeafCommitment(ctrlBlock, pkScript[2:], script))
}
