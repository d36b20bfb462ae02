// 包含包的文档说明，描述 txscript 包的目的和总体用途

/*
txscript 包实现了分析 Taproot 脚本路径支出所需的比特币脚本工具。

比特币使用的脚本语言的完整描述可以在 https://en.bitcoin.it/wiki/Script 找到。
本包不执行脚本，只对脚本进行令牌化：将脚本从左到右分解为操作码及其推送的数据。

# Tapscript

Taproot 输出（见证版本 1）可以通过脚本路径支出。此时见证堆栈的布局为
[..., script, controlBlock, (annex)]，其中 annex 是以 0x50 开头的可选元素，不参与脚本执行。
ExtractTapscript 根据前序输出脚本与见证堆栈取出揭示的 tapscript，
ParseOpcodes 则返回其中每个非数据推送操作码的助记符。

# 错误

该包返回的错误类型为 txscript.Error。
这允许调用者通过检查断言的 txscript.Error 类型的 ErrorCode 字段以编程方式确定特定错误，同时仍然提供带有上下文信息的丰富错误消息。
还提供了一个名为 IsErrorCode 的便捷函数，允许调用者轻松检查特定的错误代码。
*/
package txscript

/**

doc.go					包的文档说明。
error.go				定义了脚本处理过程中可能遇到的错误类型。
log.go					本包使用的 btclog 日志记录器。
opcode.go				操作码常量、助记符表以及数据推送分类。
script.go				见证程序的识别与版本提取。
taproot.go				控制块与 tapscript 叶子。
tapscript.go			从见证堆栈中提取 tapscript 并分解操作码。
tokenizer.go			脚本令牌化逻辑，将脚本分解为操作码和数据。

*/
