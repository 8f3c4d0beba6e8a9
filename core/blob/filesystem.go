package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/relabs-tech/campdir/core/logger"
)

// LocalFilesystem is the entity which provides local filesystem storage
type LocalFilesystem struct {
	baseFolder string
}

// NewLocalFilesystem returns a new LocalFilesystem rooted at baseFolder.
// The folder gets created if it does not exist yet.
func NewLocalFilesystem(baseFolder string) (*LocalFilesystem, error) {
	if err := os.MkdirAll(baseFolder, 0o755); err != nil {
		return nil, err
	}
	return &LocalFilesystem{baseFolder: baseFolder}, nil
}

// Put stores data under key. The content type is not needed by the
// filesystem, the extension of the key carries it.
func (f *LocalFilesystem) Put(ctx context.Context, key string, contentType string, data []byte) error {
	if strings.Contains(key, "..") {
		return os.ErrPermission
	}
	filePath := filepath.Join(f.baseFolder, key)
	logger.FromContext(ctx).Infof("filesystem: store '%s'", filePath)
	return os.WriteFile(filePath, data, 0o644)
}

// Delete deletes the key file. Deleting a key which does not exist is not
// an error.
func (f *LocalFilesystem) Delete(ctx context.Context, key string) error {
	if strings.Contains(key, "..") {
		return os.ErrPermission
	}
	err := os.Remove(filepath.Join(f.baseFolder, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
