// 包含解析 Taproot 脚本路径支出所需的控制块与脚本叶子逻辑。

package txscript

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TapscriptLeafVersion 表示 tapscript 叶子的版本。叶子版本用于在 Taproot 执行模型下引入新的脚本语义。
type TapscriptLeafVersion uint8

const (
	// BaseLeafVersion 是基本的 tapscript 叶子版本，其语义由 BIP 342 定义。
	BaseLeafVersion TapscriptLeafVersion = 0xc0
)

const (
	// ControlBlockBaseSize 是控制块的基本尺寸，包括叶子版本字节和序列化的 schnorr 内部公钥。
	ControlBlockBaseSize = 33

	// ControlBlockNodeSize 是控制块中单个 Merkle 分支哈希的大小。
	ControlBlockNodeSize = 32

	// ControlBlockMaxNodeCount 是控制块中可包含的最大节点数。
	ControlBlockMaxNodeCount = 128

	// ControlBlockMaxSize 是控制块的最大可能大小。
	ControlBlockMaxSize = ControlBlockBaseSize + (ControlBlockNodeSize *
		ControlBlockMaxNodeCount)
)

// ControlBlock 是脚本路径支出中位于 tapscript 之后的见证元素，包含内部密钥、叶子版本以及 Merkle 包含证明。
type ControlBlock struct {
	// InternalKey is the internal public key in the taproot commitment.
	InternalKey *btcec.PublicKey

	// OutputKeyYIsOdd denotes if the y coordinate of the output key is odd.
	OutputKeyYIsOdd bool

	// LeafVersion is the leaf version of the revealed tapscript.
	LeafVersion TapscriptLeafVersion

	// InclusionProof is the series of sibling hashes up to the root.
	InclusionProof []byte
}

// RootHash 根据揭示的脚本计算 tapscript 树的根哈希。
func (c *ControlBlock) RootHash(revealedScript []byte) []byte {
	merkleAccumulator := NewTapLeaf(c.LeafVersion, revealedScript).TapHash()

	numNodes := len(c.InclusionProof) / ControlBlockNodeSize
	for nodeOffset := 0; nodeOffset < numNodes; nodeOffset++ {
		leafOffset := ControlBlockNodeSize * nodeOffset
		nextNode := c.InclusionProof[leafOffset : leafOffset+ControlBlockNodeSize]

		merkleAccumulator = tapBranchHash(merkleAccumulator[:], nextNode)
	}

	return merkleAccumulator[:]
}

// ParseControlBlock 解析控制块的原始字节。控制块长度不合法或内部密钥无法解析时返回错误。
func ParseControlBlock(ctrlBlock []byte) (*ControlBlock, error) {
	switch {
	case len(ctrlBlock) < ControlBlockBaseSize:
		str := fmt.Sprintf("min size is %v bytes, control block "+
			"is %v bytes", ControlBlockBaseSize, len(ctrlBlock))
		return nil, scriptError(ErrControlBlockTooSmall, str)

	case len(ctrlBlock) > ControlBlockMaxSize:
		str := fmt.Sprintf("max size is %v, control block is %v bytes",
			ControlBlockMaxSize, len(ctrlBlock))
		return nil, scriptError(ErrControlBlockTooLarge, str)

	case (len(ctrlBlock)-ControlBlockBaseSize)%ControlBlockNodeSize != 0:
		str := fmt.Sprintf("control block proof is not a multiple "+
			"of 32: %v", len(ctrlBlock)-ControlBlockBaseSize)
		return nil, scriptError(ErrControlBlockInvalidLength, str)
	}

	pubKey, err := schnorr.ParsePubKey(ctrlBlock[1:ControlBlockBaseSize])
	if err != nil {
		return nil, err
	}

	return &ControlBlock{
		InternalKey:     pubKey,
		OutputKeyYIsOdd: ctrlBlock[0]&0x01 == 0x01,
		LeafVersion:     TapscriptLeafVersion(ctrlBlock[0] & TaprootLeafMask),
		InclusionProof:  ctrlBlock[ControlBlockBaseSize:],
	}, nil
}

// TapLeaf 表示 tapscript 树中的一片叶子，由叶子版本和脚本组成。
type TapLeaf struct {
	LeafVersion TapscriptLeafVersion
	Script      []byte
}

// NewTapLeaf 使用给定的叶子版本和脚本创建 TapLeaf。
func NewTapLeaf(leafVersion TapscriptLeafVersion, script []byte) TapLeaf {
	return TapLeaf{
		LeafVersion: leafVersion,
		Script:      script,
	}
}

// TapHash 返回叶子的标记哈希：h_tapleaf(leafVersion || compactSize(script) || script)。
func (t TapLeaf) TapHash() chainhash.Hash {
	var leafEncoding bytes.Buffer

	_ = leafEncoding.WriteByte(byte(t.LeafVersion))
	_ = wire.WriteVarBytes(&leafEncoding, 0, t.Script)

	return *chainhash.TaggedHash(chainhash.TagTapLeaf, leafEncoding.Bytes())
}

// tapBranchHash 将左右两个节点的哈希按字典序排序后计算分支哈希。
func tapBranchHash(l, r []byte) chainhash.Hash {
	if bytes.Compare(l, r) > 0 {
		l, r = r, l
	}

	return *chainhash.TaggedHash(chainhash.TagTapBranch, l, r)
}
