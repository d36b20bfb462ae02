package tapfreq

import (
	"sort"
)

// ResultSet 以区块高度为键保存每个区块的操作码频次。没有任何操作码的区块不会出现。
type ResultSet map[int32]OpcodeFrequencies

// Add 记录一个区块的结果，空结果被忽略。
func (r ResultSet) Add(height int32, counts OpcodeFrequencies) {
	if len(counts) == 0 {
		return
	}
	r[height] = counts
}

// Heights 按升序返回全部高度。
func (r ResultSet) Heights() []int32 {
	heights := make([]int32, 0, len(r))
	for h := range r {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}

// Total 返回所有区块合计的频次。
func (r ResultSet) Total() OpcodeFrequencies {
	total := make(OpcodeFrequencies)
	for _, counts := range r {
		for label, n := range counts {
			total[label] += n
		}
	}
	return total
}

// sortedLabels 按字典序返回频次表中的标签。
func sortedLabels(counts OpcodeFrequencies) []string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
