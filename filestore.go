package tapfreq

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileStore 封装了文件存储的操作
type FileStore struct {
	Fs       afero.Fs
	BasePath string
}

// NewFileStore 创建一个新的 FileStore 实例，fs 为 nil 时使用操作系统文件系统
func NewFileStore(fs afero.Fs, basePath string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{Fs: fs, BasePath: basePath}
}

// Path 返回文件的完整路径
func (fs *FileStore) Path(name string) string {
	if filepath.IsAbs(name) || fs.BasePath == "" {
		return name
	}
	return filepath.Join(fs.BasePath, name)
}

// WriteFile 先写入同目录下的临时文件再重命名，必要时创建父目录
func (fs *FileStore) WriteFile(name string, data []byte) error {
	path := fs.Path(name)
	dir := filepath.Dir(path)
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create directory")
	}

	tmp, err := afero.TempFile(fs.Fs, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Fs.Remove(tmp.Name())
		return errors.Wrap(err, "write temporary file")
	}
	if err := tmp.Close(); err != nil {
		fs.Fs.Remove(tmp.Name())
		return errors.Wrap(err, "close temporary file")
	}
	if err := fs.Fs.Rename(tmp.Name(), path); err != nil {
		fs.Fs.Remove(tmp.Name())
		return errors.Wrap(err, "rename temporary file")
	}
	return nil
}

// ReadFile 读取文件内容
func (fs *FileStore) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(fs.Fs, fs.Path(name))
}
