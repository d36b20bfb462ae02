package tapfreq

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MerkleTree 代表一个比特币交易 Merkle 树
type MerkleTree struct {
	RootNode *MerkleNode
}

// MerkleNode 代表一个 Merkle 树节点
type MerkleNode struct {
	Left  *MerkleNode
	Right *MerkleNode
	Hash  chainhash.Hash
}

// NewMerkleNode 创建一个新的 Merkle 树节点。叶子节点直接使用交易哈希，内部节点为两个子节点哈希拼接后的双重 SHA256。
func NewMerkleNode(left, right *MerkleNode, leaf chainhash.Hash) *MerkleNode {
	node := &MerkleNode{
		Left:  left,
		Right: right,
	}

	if left == nil && right == nil {
		node.Hash = leaf
		return node
	}

	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left.Hash[:])
	copy(buf[chainhash.HashSize:], right.Hash[:])
	node.Hash = chainhash.DoubleHashH(buf[:])

	return node
}

// NewMerkleTree 从交易哈希序列创建 Merkle 树
func NewMerkleTree(leaves []chainhash.Hash) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("no merkle tree leaves")
	}

	nodes := make([]*MerkleNode, 0, len(leaves))
	for _, h := range leaves {
		nodes = append(nodes, NewMerkleNode(nil, nil, h))
	}

	for len(nodes) > 1 {
		// 奇数个节点时复制最后一个
		if len(nodes)%2 != 0 {
			nodes = append(nodes, nodes[len(nodes)-1])
		}

		level := make([]*MerkleNode, 0, len(nodes)/2)
		for i := 0; i < len(nodes); i += 2 {
			level = append(level, NewMerkleNode(nodes[i], nodes[i+1], chainhash.Hash{}))
		}
		nodes = level
	}

	return &MerkleTree{RootNode: nodes[0]}, nil
}

// Root 返回根哈希
func (t *MerkleTree) Root() chainhash.Hash {
	return t.RootNode.Hash
}
