package tapfreq

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultWriter 写出一次扫描的结果。
type ResultWriter interface {
	Write(results ResultSet) error
}

// JSONResultWriter 将结果写成 {"<高度>": {"<标签>": 次数}}，高度按数值升序，标签按字典序。
type JSONResultWriter struct {
	store *FileStore
	name  string
}

// NewJSONResultWriter 创建写入 name 的 JSON 写出器。
func NewJSONResultWriter(store *FileStore, name string) *JSONResultWriter {
	return &JSONResultWriter{store: store, name: name}
}

// Write 满足 ResultWriter 接口。
func (w *JSONResultWriter) Write(results ResultSet) error {
	data, err := EncodeResults(results)
	if err != nil {
		return err
	}
	return w.store.WriteFile(w.name, data)
}

// EncodeResults 将结果集编码为 JSON。相同的结果集总是得到相同的字节。
func EncodeResults(results ResultSet) ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, h := range results.Heights() {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(strconv.FormatInt(int64(h), 10))
		writeFrequencies(stream, results[h])
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func writeFrequencies(stream *jsoniter.Stream, counts OpcodeFrequencies) {
	stream.WriteObjectStart()
	for i, label := range sortedLabels(counts) {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(label)
		stream.WriteInt(counts[label])
	}
	stream.WriteObjectEnd()
}

// DecodeResults 解析 EncodeResults 写出的 JSON。
func DecodeResults(data []byte) (ResultSet, error) {
	var raw map[string]OpcodeFrequencies
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	results := make(ResultSet, len(raw))
	for key, counts := range raw {
		h, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid height key %q", key)
		}
		results.Add(int32(h), counts)
	}
	return results, nil
}

// blockFrequencies 是单个区块结果文件的内容。
type blockFrequencies struct {
	OpcodeFrequencies OpcodeFrequencies `json:"op_code_frequencies"`
}

// BlockResultWriter 为每个有结果的区块写出一个 <高度>.json 文件。
type BlockResultWriter struct {
	store *FileStore
}

// NewBlockResultWriter 创建按区块写出的写出器，文件位于 store 的根目录下。
func NewBlockResultWriter(store *FileStore) *BlockResultWriter {
	return &BlockResultWriter{store: store}
}

// Write 满足 ResultWriter 接口。
func (w *BlockResultWriter) Write(results ResultSet) error {
	for _, h := range results.Heights() {
		data, err := json.Marshal(blockFrequencies{OpcodeFrequencies: results[h]})
		if err != nil {
			return err
		}
		if err := w.store.WriteFile(fmt.Sprintf("%d.json", h), data); err != nil {
			return err
		}
	}
	return nil
}
