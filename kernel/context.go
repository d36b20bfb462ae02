package kernel

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// ChainType 标识一个比特币网络。
type ChainType int

const (
	ChainTypeMainnet ChainType = iota
	ChainTypeTestnet
	ChainTypeTestnet4
	ChainTypeSignet
	ChainTypeRegtest
)

var chainTypeNames = map[ChainType]string{
	ChainTypeMainnet:  "mainnet",
	ChainTypeTestnet:  "testnet",
	ChainTypeTestnet4: "testnet4",
	ChainTypeSignet:   "signet",
	ChainTypeRegtest:  "regtest",
}

// String 返回网络的小写名称。
func (c ChainType) String() string {
	if s, ok := chainTypeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ChainType(%d)", int(c))
}

// ChainTypeNames 按顺序返回全部支持的网络名称。
func ChainTypeNames() []string {
	names := make([]string, 0, len(chainTypeNames))
	for c := ChainTypeMainnet; c <= ChainTypeRegtest; c++ {
		names = append(names, c.String())
	}
	return names
}

// ParseChainType 将网络名称（不区分大小写）解析为 ChainType。
func ParseChainType(name string) (ChainType, error) {
	for c, s := range chainTypeNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid chain type %q, valid options are: %s",
		name, strings.Join(ChainTypeNames(), ", "))
}

// testNet4Params 是 testnet4 网络的参数。btcd 尚未收录 testnet4，这里只需要网络魔数。
var testNet4Params = func() chaincfg.Params {
	params := chaincfg.TestNet3Params
	params.Name = "testnet4"
	params.Net = wire.BitcoinNet(0x283f161c)
	params.DefaultPort = "48333"
	return params
}()

// Params 返回网络对应的链参数。
func (c ChainType) Params() (*chaincfg.Params, error) {
	switch c {
	case ChainTypeMainnet:
		return &chaincfg.MainNetParams, nil
	case ChainTypeTestnet:
		return &chaincfg.TestNet3Params, nil
	case ChainTypeTestnet4:
		return &testNet4Params, nil
	case ChainTypeSignet:
		return &chaincfg.SigNetParams, nil
	case ChainTypeRegtest:
		return &chaincfg.RegressionNetParams, nil
	}
	return nil, fmt.Errorf("unknown chain type %d", int(c))
}

// Context 保存一次运行所使用的链参数。
type Context struct {
	chainType ChainType
	params    *chaincfg.Params
}

// NewContext 为指定网络创建上下文。
func NewContext(chainType ChainType) (*Context, error) {
	params, err := chainType.Params()
	if err != nil {
		return nil, err
	}
	return &Context{chainType: chainType, params: params}, nil
}

// ChainType 返回上下文的网络。
func (c *Context) ChainType() ChainType {
	return c.chainType
}

// Params 返回上下文的链参数。
func (c *Context) Params() *chaincfg.Params {
	return c.params
}

// Destroy 释放上下文。
func (c *Context) Destroy() {
	c.params = nil
}
