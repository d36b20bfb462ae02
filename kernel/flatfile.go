package kernel

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// recordHeaderSize 是 blk/rev 文件中每条记录前的网络魔数与长度。
	recordHeaderSize = 8

	// xorKeySize 是 blocks/xor.dat 中混淆密钥的长度。
	xorKeySize = 8

	// maxRecordSize 限制单条记录的长度，防止损坏的长度字段导致超大分配。
	maxRecordSize = wire.MaxBlockPayload * 2
)

// flatFileStore 读取 Bitcoin Core 的 blk%05d.dat 与 rev%05d.dat 文件。
type flatFileStore struct {
	fs     afero.Fs
	dir    string
	magic  wire.BitcoinNet
	xorKey [xorKeySize]byte
}

// newFlatFileStore 打开区块目录并加载可选的 xor.dat 混淆密钥。
func newFlatFileStore(fs afero.Fs, dir string, magic wire.BitcoinNet) (*flatFileStore, error) {
	s := &flatFileStore{fs: fs, dir: dir, magic: magic}

	key, err := afero.ReadFile(fs, filepath.Join(dir, "xor.dat"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, errors.Wrap(err, "read xor.dat")
	case len(key) != xorKeySize:
		return nil, errors.Errorf("xor.dat has %d bytes, want %d", len(key), xorKeySize)
	default:
		copy(s.xorKey[:], key)
	}
	return s, nil
}

func (s *flatFileStore) path(prefix string, file uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%05d.dat", prefix, file))
}

// xor 对从文件偏移 offset 处读取的数据去混淆。
func (s *flatFileStore) xor(data []byte, offset int64) {
	if s.xorKey == [xorKeySize]byte{} {
		return
	}
	for i := range data {
		data[i] ^= s.xorKey[(offset+int64(i))%xorKeySize]
	}
}

// readRecord 读取位于 pos 的记录。pos 指向记录头之后的数据，trailer 是数据之后需要一并读取的字节数。
func (s *flatFileStore) readRecord(prefix string, file, pos uint64, trailer int) ([]byte, error) {
	if pos < recordHeaderSize {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"%s%05d position %d precedes record header", prefix, file, pos), nil)
	}

	f, err := s.fs.Open(s.path(prefix, file))
	if err != nil {
		return nil, kernelError(ErrDiskRead, fmt.Sprintf("open %s%05d", prefix, file), err)
	}
	defer f.Close()

	offset := int64(pos - recordHeaderSize)
	var header [recordHeaderSize]byte
	if _, err := f.ReadAt(header[:], offset); err != nil {
		return nil, kernelError(ErrDiskRead, fmt.Sprintf(
			"read %s%05d record header at %d", prefix, file, offset), err)
	}
	s.xor(header[:], offset)

	magic := wire.BitcoinNet(binary.LittleEndian.Uint32(header[:4]))
	if magic != s.magic {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"%s%05d record at %d has magic %v, want %v", prefix, file, offset, magic, s.magic), nil)
	}
	size := binary.LittleEndian.Uint32(header[4:])
	if size > maxRecordSize {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"%s%05d record at %d has size %d", prefix, file, offset, size), nil)
	}

	data := make([]byte, int(size)+trailer)
	if _, err := f.ReadAt(data, int64(pos)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, kernelError(ErrDiskRead, fmt.Sprintf(
			"read %s%05d record at %d", prefix, file, offset), err)
	}
	s.xor(data, int64(pos))
	return data, nil
}
