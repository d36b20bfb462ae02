package kernel

import (
	"errors"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/qinglongcn/tapfreq/txscript"
)

// Bitcoin Core 在撤销数据中使用的特殊压缩脚本数量。
const numSpecialScripts = 6

// maxScriptSize 是 Bitcoin Core 接受的最大脚本长度，超出的脚本解压为 OP_RETURN。
const maxScriptSize = 10000

var errVarIntOverflow = errors.New("varint overflows uint64")

// readVarInt 读取 Bitcoin Core 的 VARINT 编码（与 CompactSize 不同）：
// 每字节 7 位，大端序，除最后一个字节外的每个字节都隐含加一。
func readVarInt(r io.ByteReader) (uint64, error) {
	var n uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if n > (^uint64(0))>>7 {
			return 0, errVarIntOverflow
		}
		n = (n << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return n, nil
		}
		if n == ^uint64(0) {
			return 0, errVarIntOverflow
		}
		n++
	}
}

// decompressAmount 还原 Bitcoin Core 压缩后的金额。
func decompressAmount(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10

	var n uint64
	if e < 9 {
		d := (x % 9) + 1
		x /= 9
		n = x*10 + d
	} else {
		n = x + 1
	}
	for ; e > 0; e-- {
		n *= 10
	}
	return n
}

// specialScriptSize 返回特殊压缩脚本所携带的数据长度。
func specialScriptSize(nSize uint64) int {
	if nSize == 0 || nSize == 1 {
		return 20
	}
	return 32
}

// readCompressedScript 读取并还原一个压缩脚本。
func readCompressedScript(r interface {
	io.Reader
	io.ByteReader
}) ([]byte, error) {
	nSize, err := readVarInt(r)
	if err != nil {
		return nil, err
	}

	if nSize < numSpecialScripts {
		data := make([]byte, specialScriptSize(nSize))
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		return decompressScript(nSize, data), nil
	}

	nSize -= numSpecialScripts
	if nSize > maxScriptSize {
		if _, err := io.CopyN(io.Discard, r, int64(nSize)); err != nil {
			return nil, err
		}
		return []byte{txscript.OP_RETURN}, nil
	}

	script := make([]byte, nSize)
	if _, err := io.ReadFull(r, script); err != nil {
		return nil, err
	}
	return script, nil
}

// decompressScript 将特殊压缩脚本还原为完整脚本。无法解压的公钥返回空脚本。
func decompressScript(nSize uint64, data []byte) []byte {
	switch nSize {
	case 0x00:
		script := make([]byte, 0, 25)
		script = append(script, txscript.OP_DUP, txscript.OP_HASH160, txscript.OP_DATA_20)
		script = append(script, data...)
		return append(script, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG)

	case 0x01:
		script := make([]byte, 0, 23)
		script = append(script, txscript.OP_HASH160, txscript.OP_DATA_20)
		script = append(script, data...)
		return append(script, txscript.OP_EQUAL)

	case 0x02, 0x03:
		script := make([]byte, 0, 35)
		script = append(script, txscript.OP_DATA_33, byte(nSize))
		script = append(script, data...)
		return append(script, txscript.OP_CHECKSIG)

	case 0x04, 0x05:
		compressed := make([]byte, 0, 33)
		compressed = append(compressed, byte(nSize-2))
		compressed = append(compressed, data...)
		pubKey, err := btcec.ParsePubKey(compressed)
		if err != nil {
			return nil
		}
		script := make([]byte, 0, 67)
		script = append(script, txscript.OP_DATA_65)
		script = append(script, pubKey.SerializeUncompressed()...)
		return append(script, txscript.OP_CHECKSIG)
	}
	return nil
}
