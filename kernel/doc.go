/*
Package kernel 以只读方式访问 Bitcoin Core 的数据目录，并以句柄的形式提供活动链上的区块位置、区块数据与撤销数据。

区块索引（blocks/index）与链状态（chainstate）是 LevelDB 数据库，区块与撤销数据保存在 blocks/blk?????.dat
与 blocks/rev?????.dat 文件中。每个句柄都由引擎的 Tracker 计数，必须且只能释放一次。
*/
package kernel
