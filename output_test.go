package tapfreq

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() ResultSet {
	return ResultSet{
		10:  {"OP_CHECKSIG": 2, "OP_ADD": 1},
		9:   {"OP_UNKNOWN(187)": 1},
		100: {"OP_EQUAL": 3, "OP_CHECKSIGADD": 4, "OP_CHECKSIG": 1},
	}
}

func TestEncodeResults(t *testing.T) {
	data, err := EncodeResults(sampleResults())
	require.NoError(t, err)

	// 高度按数值排序，标签按字典序
	want := `{"9":{"OP_UNKNOWN(187)":1},` +
		`"10":{"OP_ADD":1,"OP_CHECKSIG":2},` +
		`"100":{"OP_CHECKSIG":1,"OP_CHECKSIGADD":4,"OP_EQUAL":3}}`
	require.Equal(t, want, string(data))

	for i := 0; i < 5; i++ {
		again, err := EncodeResults(sampleResults())
		require.NoError(t, err)
		require.Equal(t, data, again)
	}

	decoded, err := DecodeResults(data)
	require.NoError(t, err)
	require.Equal(t, sampleResults(), decoded)

	empty, err := EncodeResults(ResultSet{})
	require.NoError(t, err)
	require.Equal(t, "{}", string(empty))

	_, err = DecodeResults([]byte(`{"tip":{"OP_ADD":1}}`))
	require.Error(t, err)
}

func TestJSONResultWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/work")

	w := NewJSONResultWriter(store, DefaultOutput)
	require.NoError(t, w.Write(sampleResults()))

	data, err := afero.ReadFile(fs, "/work/data/op_code/block_frequencies.json")
	require.NoError(t, err)
	decoded, err := DecodeResults(data)
	require.NoError(t, err)
	require.Equal(t, sampleResults(), decoded)

	// 覆盖已有文件，且不留下临时文件
	require.NoError(t, w.Write(ResultSet{1: {"OP_ADD": 1}}))
	data, err = store.ReadFile(DefaultOutput)
	require.NoError(t, err)
	require.Equal(t, `{"1":{"OP_ADD":1}}`, string(data))

	entries, err := afero.ReadDir(fs, "/work/data/op_code")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestBlockResultWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewBlockResultWriter(NewFileStore(fs, "/blocks"))
	require.NoError(t, w.Write(sampleResults()))

	entries, err := afero.ReadDir(fs, "/blocks")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	data, err := afero.ReadFile(fs, "/blocks/10.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"op_code_frequencies":{"OP_CHECKSIG":2,"OP_ADD":1}}`, string(data))
}

func TestSqliteResultWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "frequencies.db")

	w := NewSqliteResultWriter(path)
	require.NoError(t, w.Write(sampleResults()))

	got, err := ReadSqliteResults(path)
	require.NoError(t, err)
	require.Equal(t, sampleResults(), got)

	// 再次写入会替换原有的行
	require.NoError(t, w.Write(ResultSet{7: {"OP_SHA256": 5}}))
	got, err = ReadSqliteResults(path)
	require.NoError(t, err)
	require.Equal(t, ResultSet{7: {"OP_SHA256": 5}}, got)
}
