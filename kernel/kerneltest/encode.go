package kerneltest

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"
)

// AppendVarInt 以 Bitcoin Core 的 VARINT 编码追加 n。
func AppendVarInt(b []byte, n uint64) []byte {
	var tmp [10]byte
	l := 0
	for {
		tmp[l] = byte(n & 0x7f)
		if l > 0 {
			tmp[l] |= 0x80
		}
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
		l++
	}
	for ; l >= 0; l-- {
		b = append(b, tmp[l])
	}
	return b
}

// CompressAmount 按 Bitcoin Core 的规则压缩金额。
func CompressAmount(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	e := uint64(0)
	for n%10 == 0 && e < 9 {
		n /= 10
		e++
	}
	if e < 9 {
		d := n % 10
		n /= 10
		return 1 + (n*9+d-1)*10 + e
	}
	return 1 + (n-1)*10 + 9
}

// AppendCompressedScript 按 Bitcoin Core 的规则压缩脚本并追加。
func AppendCompressedScript(b []byte, script []byte) []byte {
	switch {
	case len(script) == 25 && script[0] == 0x76 && script[1] == 0xa9 &&
		script[2] == 0x14 && script[23] == 0x88 && script[24] == 0xac:
		b = append(b, 0x00)
		return append(b, script[3:23]...)

	case len(script) == 23 && script[0] == 0xa9 && script[1] == 0x14 &&
		script[22] == 0x87:
		b = append(b, 0x01)
		return append(b, script[2:22]...)

	case len(script) == 35 && script[0] == 0x21 && script[34] == 0xac &&
		(script[1] == 0x02 || script[1] == 0x03):
		b = append(b, script[1])
		return append(b, script[2:34]...)

	case len(script) == 67 && script[0] == 0x41 && script[66] == 0xac &&
		script[1] == 0x04:
		b = append(b, 0x04|(script[65]&0x01))
		return append(b, script[2:34]...)
	}

	b = AppendVarInt(b, uint64(len(script))+6)
	return append(b, script...)
}

// AppendUndoCoin 追加一个被花费输出的撤销记录。
func AppendUndoCoin(b []byte, out *wire.TxOut, height uint32, coinbase bool) []byte {
	code := uint64(height) * 2
	if coinbase {
		code++
	}
	b = AppendVarInt(b, code)
	if height > 0 {
		b = AppendVarInt(b, 0)
	}
	b = AppendVarInt(b, CompressAmount(uint64(out.Value)))
	return AppendCompressedScript(b, out.PkScript)
}

// SerializeBlockUndo 按 CBlockUndo 格式序列化每笔交易花费的输出。
func SerializeBlockUndo(txs [][]*wire.TxOut, coinHeight uint32) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarInt(&buf, 0, uint64(len(txs)))
	for _, outs := range txs {
		_ = wire.WriteVarInt(&buf, 0, uint64(len(outs)))
		for _, out := range outs {
			buf.Write(AppendUndoCoin(nil, out, coinHeight, false))
		}
	}
	return buf.Bytes()
}
