// 包含测试脚本令牌化功能的代码。

package txscript

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScriptTokenizer 确保脚本标记生成器提供的各种行为按预期执行。
func TestScriptTokenizer(t *testing.T) {
	t.Parallel()

	type expectedResult struct {
		op    byte   // 预期解析的操作码
		data  []byte // 预期解析数据
		index int32  // 解析令牌后原始脚本的预期索引
	}

	type tokenizerTest struct {
		name     string           // 测试说明
		script   []byte           // 要标记化的脚本
		expected []expectedResult // 解析每个标记后的预期信息
		finalIdx int32            // 预期的最终字节索引
		err      error            // 预期错误
	}

	// 添加 OP_DATA_1 到 OP_DATA_75 的正面和负面测试。
	const numTestsHint = 100 // 让预分配 linter 满意。
	tests := make([]tokenizerTest, 0, numTestsHint)
	for op := byte(OP_DATA_1); op < OP_DATA_75; op++ {
		data := bytes.Repeat([]byte{0x01}, int(op))
		tests = append(tests, tokenizerTest{
			name:     fmt.Sprintf("OP_DATA_%d", op),
			script:   append([]byte{op}, data...),
			expected: []expectedResult{{op, data, 1 + int32(op)}},
			finalIdx: 1 + int32(op),
			err:      nil,
		})

		// 创建比数据推送所需少 1 个字节的测试。
		tests = append(tests, tokenizerTest{
			name:     fmt.Sprintf("short OP_DATA_%d", op),
			script:   append([]byte{op}, data[1:]...),
			expected: nil,
			finalIdx: 0,
			err:      scriptError(ErrMalformedPush, ""),
		})
	}

	// 为 OP_PUSHDATA{1,2,4} 添加正面和负面测试。
	data := mustParseShortForm("0x01{76}")
	tests = append(tests, []tokenizerTest{{
		name:     "OP_PUSHDATA1",
		script:   mustParseShortForm("OP_PUSHDATA1 0x4c 0x01{76}"),
		expected: []expectedResult{{OP_PUSHDATA1, data, 2 + int32(len(data))}},
		finalIdx: 2 + int32(len(data)),
		err:      nil,
	}, {
		name:     "OP_PUSHDATA1 no data length",
		script:   mustParseShortForm("OP_PUSHDATA1"),
		expected: nil,
		finalIdx: 0,
		err:      scriptError(ErrMalformedPush, ""),
	}, {
		name:     "OP_PUSHDATA1 short data by 1 byte",
		script:   mustParseShortForm("OP_PUSHDATA1 0x4c 0x01{75}"),
		expected: nil,
		finalIdx: 0,
		err:      scriptError(ErrMalformedPush, ""),
	}, {
		name:     "OP_PUSHDATA2",
		script:   mustParseShortForm("OP_PUSHDATA2 0x4c00 0x01{76}"),
		expected: []expectedResult{{OP_PUSHDATA2, data, 3 + int32(len(data))}},
		finalIdx: 3 + int32(len(data)),
		err:      nil,
	}, {
		name:     "OP_PUSHDATA2 no data length",
		script:   mustParseShortForm("OP_PUSHDATA2"),
		expected: nil,
		finalIdx: 0,
		err:      scriptError(ErrMalformedPush, ""),
	}, {
		name:     "OP_PUSHDATA2 short data by 1 byte",
		script:   mustParseShortForm("OP_PUSHDATA2 0x4c00 0x01{75}"),
		expected: nil,
		finalIdx: 0,
		err:      scriptError(ErrMalformedPush, ""),
	}, {
		name:     "OP_PUSHDATA4",
		script:   mustParseShortForm("OP_PUSHDATA4 0x4c000000 0x01{76}"),
		expected: []expectedResult{{OP_PUSHDATA4, data, 5 + int32(len(data))}},
		finalIdx: 5 + int32(len(data)),
		err:      nil,
	}, {
		name:     "OP_PUSHDATA4 no data length",
		script:   mustParseShortForm("OP_PUSHDATA4"),
		expected: nil,
		finalIdx: 0,
		err:      scriptError(ErrMalformedPush, ""),
	}, {
		name:     "OP_PUSHDATA4 short data by 1 byte",
		script:   mustParseShortForm("OP_PUSHDATA4 0x4c000000 0x01{75}"),
		expected: nil,
		finalIdx: 0,
		err:      scriptError(ErrMalformedPush, ""),
	}}...)

	// 添加 OP_0 和 OP_1 到 OP_16 的测试（小整数/真/假）。
	opcodes := []byte{OP_0}
	for op := byte(OP_1); op < OP_16; op++ {
		opcodes = append(opcodes, op)
	}
	for _, op := range opcodes {
		tests = append(tests, tokenizerTest{
			name:     fmt.Sprintf("OP_%d", op),
			script:   []byte{op},
			expected: []expectedResult{{op, nil, 1}},
			finalIdx: 1,
			err:      nil,
		})
	}

	// 为多操作码脚本添加各种正面和负面测试。
	tests = append(tests, []tokenizerTest{{
		name:   "pay-to-pubkey-hash",
		script: mustParseShortForm("DUP HASH160 DATA_20 0x01{20} EQUAL CHECKSIG"),
		expected: []expectedResult{
			{OP_DUP, nil, 1}, {OP_HASH160, nil, 2},
			{OP_DATA_20, mustParseShortForm("0x01{20}"), 23},
			{OP_EQUAL, nil, 24}, {OP_CHECKSIG, nil, 25},
		},
		finalIdx: 25,
		err:      nil,
	}, {
		name:   "almost pay-to-pubkey-hash (short data)",
		script: mustParseShortForm("DUP HASH160 DATA_20 0x01{17} EQUAL CHECKSIG"),
		expected: []expectedResult{
			{OP_DUP, nil, 1}, {OP_HASH160, nil, 2},
		},
		finalIdx: 2,
		err:      scriptError(ErrMalformedPush, ""),
	}, {
		name:   "almost pay-to-pubkey-hash (overlapped data)",
		script: mustParseShortForm("DUP HASH160 DATA_20 0x01{19} EQUAL CHECKSIG"),
		expected: []expectedResult{
			{OP_DUP, nil, 1}, {OP_HASH160, nil, 2},
			{OP_DATA_20, mustParseShortForm("0x01{19} EQUAL"), 23},
			{OP_CHECKSIG, nil, 24},
		},
		finalIdx: 24,
		err:      nil,
	}, {
		name:   "pay-to-script-hash",
		script: mustParseShortForm("HASH160 DATA_20 0x01{20} EQUAL"),
		expected: []expectedResult{
			{OP_HASH160, nil, 1},
			{OP_DATA_20, mustParseShortForm("0x01{20}"), 22},
			{OP_EQUAL, nil, 23},
		},
		finalIdx: 23,
		err:      nil,
	}, {
		name:   "almost pay-to-script-hash (short data)",
		script: mustParseShortForm("HASH160 DATA_20 0x01{18} EQUAL"),
		expected: []expectedResult{
			{OP_HASH160, nil, 1},
		},
		finalIdx: 1,
		err:      scriptError(ErrMalformedPush, ""),
	}, {
		name:   "almost pay-to-script-hash (overlapped data)",
		script: mustParseShortForm("HASH160 DATA_20 0x01{19} EQUAL"),
		expected: []expectedResult{
			{OP_HASH160, nil, 1},
			{OP_DATA_20, mustParseShortForm("0x01{19} EQUAL"), 22},
		},
		finalIdx: 22,
		err:      nil,
	}}...)

	for _, test := range tests {
		tokenizer := MakeScriptTokenizer(test.script)
		var opcodeNum int
		for tokenizer.Next() {
			// 确保当存在错误集时 Next 永远不会返回 true。
			if err := tokenizer.Err(); err != nil {
				t.Fatalf("%q: Next returned true when tokenizer has err: %v",
					test.name, err)
			}

			// 确保测试数据需要解析令牌。
			op := tokenizer.Opcode()
			data := tokenizer.Data()
			if opcodeNum >= len(test.expected) {
				t.Fatalf("%q: unexpected token '%d' (data: '%x')", test.name,
					op, data)
			}
			expected := &test.expected[opcodeNum]

			// 确保操作码和数据是预期值。
			if op != expected.op {
				t.Fatalf("%q: unexpected opcode -- got %v, want %v", test.name,
					op, expected.op)
			}
			if !bytes.Equal(data, expected.data) {
				t.Fatalf("%q: unexpected data -- got %x, want %x", test.name,
					data, expected.data)
			}

			tokenizerIdx := tokenizer.ByteIndex()
			if tokenizerIdx != expected.index {
				t.Fatalf("%q: unexpected byte index -- got %d, want %d",
					test.name, tokenizerIdx, expected.index)
			}

			opcodeNum++
		}

		// 确保标记生成器声称已完成。 无论是否存在解析错误，情况都应该如此。
		if !tokenizer.Done() {
			t.Fatalf("%q: tokenizer claims it is not done", test.name)
		}

		// 确保错误符合预期。
		if test.err == nil && tokenizer.Err() != nil {
			t.Fatalf("%q: unexpected tokenizer err -- got %v, want nil",
				test.name, tokenizer.Err())
		} else if test.err != nil {
			if !IsErrorCode(tokenizer.Err(), test.err.(Error).ErrorCode) {
				t.Fatalf("%q: unexpected tokenizer err -- got %v, want %v",
					test.name, tokenizer.Err(), test.err.(Error).ErrorCode)
			}
		}

		// 确保最终的指标是期望值。
		tokenizerIdx := tokenizer.ByteIndex()
		if tokenizerIdx != test.finalIdx {
			t.Fatalf("%q: unexpected final byte index -- got %d, want %d",
				test.name, tokenizerIdx, test.finalIdx)
		}
	}
}

// TestScriptTokenizerTapscript 确保 tapscript 中常见的操作码序列被正确分解。
func TestScriptTokenizerTapscript(t *testing.T) {
	t.Parallel()

	script := mustParseShortForm("DATA_32 0x02{32} CHECKSIG 0 IF " +
		"DATA_3 0x6f7264 1 DATA_1 0x18 0 DATA_4 0x01{4} ENDIF")
	wantOps := []byte{OP_DATA_32, OP_CHECKSIG, OP_0, OP_IF, OP_DATA_1 + 2,
		OP_1, OP_DATA_1, OP_0, OP_DATA_1 + 3, OP_ENDIF}

	var gotOps []byte
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		gotOps = append(gotOps, tokenizer.Opcode())
	}
	if err := tokenizer.Err(); err != nil {
		t.Fatalf("unexpected tokenizer err: %v", err)
	}
	if !bytes.Equal(gotOps, wantOps) {
		t.Fatalf("unexpected opcodes -- got %x, want %x", gotOps, wantOps)
	}
	if !bytes.Equal(tokenizer.Script(), script) {
		t.Fatalf("tokenizer script does not match input")
	}
}

// TestScriptTokenizerPushOverflow 确保声明长度远超脚本的推送在原位置停止，之前的操作码照常返回。
func TestScriptTokenizerPushOverflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		script  []byte
		wantOps []byte
		stopAt  int32
	}{
		{
			name:    "PUSHDATA4 max length",
			script:  []byte{OP_CHECKSIG, OP_PUSHDATA4, 0xff, 0xff, 0xff, 0xff, 0x01, 0x02},
			wantOps: []byte{OP_CHECKSIG},
			stopAt:  1,
		},
		{
			name:    "PUSHDATA4 length past int32",
			script:  []byte{OP_CHECKSIGADD, 0x52, OP_PUSHDATA4, 0x00, 0x00, 0x00, 0x80},
			wantOps: []byte{OP_CHECKSIGADD, 0x52},
			stopAt:  2,
		},
		{
			name:    "PUSHDATA4 short length prefix",
			script:  []byte{OP_DROP, OP_PUSHDATA4, 0x01, 0x00, 0x00},
			wantOps: []byte{OP_DROP},
			stopAt:  1,
		},
		{
			name:    "PUSHDATA2 one byte prefix",
			script:  []byte{OP_PUSHDATA2, 0x01},
			wantOps: nil,
			stopAt:  0,
		},
		{
			name:    "PUSHDATA1 after key push",
			script:  append(append([]byte{OP_DATA_32}, bytes.Repeat([]byte{0x02}, 32)...), OP_CHECKSIG, OP_PUSHDATA1, 0x05, 0x01),
			wantOps: []byte{OP_DATA_32, OP_CHECKSIG},
			stopAt:  34,
		},
	}

	for _, test := range tests {
		var gotOps []byte
		tokenizer := MakeScriptTokenizer(test.script)
		for tokenizer.Next() {
			gotOps = append(gotOps, tokenizer.Opcode())
		}

		require.Equal(t, test.wantOps, gotOps, test.name)
		require.True(t, IsErrorCode(tokenizer.Err(), ErrMalformedPush), "%s: %v", test.name, tokenizer.Err())
		require.Equal(t, test.stopAt, tokenizer.ByteIndex(), test.name)
		require.True(t, tokenizer.Done(), test.name)
		require.False(t, tokenizer.Next(), test.name)
	}
}

// TestScriptTokenizerSuccessOpcodes 确保 tapscript 中重新定义为 OP_SUCCESS 的字节按单字节操作码分解。
func TestScriptTokenizerSuccessOpcodes(t *testing.T) {
	t.Parallel()

	script := []byte{0x50, 0x62, 0x7e, 0x89, 0xbb, 0xfe, OP_CHECKSIGADD, OP_PUSHDATA1, 0x00}
	tokenizer := MakeScriptTokenizer(script)

	var gotOps []byte
	for tokenizer.Next() {
		if tokenizer.Opcode() == OP_PUSHDATA1 {
			require.Empty(t, tokenizer.Data())
		} else {
			require.Nil(t, tokenizer.Data())
		}
		gotOps = append(gotOps, tokenizer.Opcode())
	}
	require.NoError(t, tokenizer.Err())
	require.Equal(t, []byte{0x50, 0x62, 0x7e, 0x89, 0xbb, 0xfe, OP_CHECKSIGADD, OP_PUSHDATA1}, gotOps)
	require.Equal(t, int32(len(script)), tokenizer.ByteIndex())

	empty := MakeScriptTokenizer(nil)
	require.True(t, empty.Done())
	require.False(t, empty.Next())
	require.NoError(t, empty.Err())
}
