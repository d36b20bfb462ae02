package tapfreq

import (
	"fmt"
	"math"

	"github.com/qinglongcn/tapfreq/kernel"
)

// NormalizeBlockHeight 将高度规范化为绝对高度：非负数保持不变，负数表示距链末端的偏移，-1 即末端。
func NormalizeBlockHeight(height int64, tipHeight int32) int32 {
	if height >= 0 {
		return int32(height)
	}
	return int32(int64(tipHeight) + height + 1)
}

// resolveHeight 与 NormalizeBlockHeight 相同，但规范化后的高度超出 int32 范围时返回 ErrInvalidRange。
func resolveHeight(height int64, tipHeight int32) (int32, error) {
	abs := height
	if height < 0 {
		abs = int64(tipHeight) + height + 1
	}
	if abs > math.MaxInt32 || abs < math.MinInt32 {
		return 0, scanError(ErrInvalidRange, fmt.Sprintf("height %d is outside the block height range", height))
	}
	return int32(abs), nil
}

// tipHeight 获取当前链末端的高度，句柄在返回前释放。
func tipHeight(engine kernel.Engine) (int32, error) {
	tip, err := engine.BlockIndexFromTip()
	if err != nil {
		return 0, err
	}
	defer tip.Destroy()

	return tip.Height(), nil
}

// normalizeRange 规范化 [start, end]。每个端点各自重新获取一次链末端。
func normalizeRange(engine kernel.Engine, start, end int64) (int32, int32, error) {
	startTip, err := tipHeight(engine)
	if err != nil {
		return 0, 0, err
	}
	from, err := resolveHeight(start, startTip)
	if err != nil {
		return 0, 0, err
	}

	endTip, err := tipHeight(engine)
	if err != nil {
		return 0, 0, err
	}
	to, err := resolveHeight(end, endTip)
	if err != nil {
		return 0, 0, err
	}

	if from < 0 {
		return 0, 0, scanError(ErrInvalidRange, fmt.Sprintf(
			"start height %d resolves to %d, below genesis", start, from))
	}
	if from > to {
		return 0, 0, scanError(ErrInvalidRange, fmt.Sprintf(
			"start height %d (%d) is after end height %d (%d)", start, from, end, to))
	}
	return from, to, nil
}
