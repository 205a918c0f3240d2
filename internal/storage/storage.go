package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrArtifactMissing 可下载文件不存在
var ErrArtifactMissing = errors.New("artifact not found")

// LocalStorage 本地磁盘存储
// 收据文件名为 <毫秒时间戳>-<随机数>-<原文件名>,仅用于避免冲突
type LocalStorage struct {
	uploadDir    string
	artifactPath string
	now          func() time.Time
}

// NewLocalStorage 创建本地存储,上传目录不存在时自动创建
func NewLocalStorage(uploadDir, artifactPath string) (*LocalStorage, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{
		uploadDir:    uploadDir,
		artifactPath: artifactPath,
		now:          time.Now,
	}, nil
}

// SaveReceipt 保存上传的收据,返回存储路径
func (s *LocalStorage) SaveReceipt(originalName string, r io.Reader) (string, error) {
	path := filepath.Join(s.uploadDir, s.storedName(originalName))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write receipt file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close receipt file: %w", err)
	}
	return path, nil
}

func (s *LocalStorage) storedName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "receipt"
	}
	return fmt.Sprintf("%d-%d-%s", s.now().UnixMilli(), rand.Intn(1e9), base)
}

// Artifact 返回可下载文件的路径,文件不存在时返回 ErrArtifactMissing
func (s *LocalStorage) Artifact() (string, error) {
	info, err := os.Stat(s.artifactPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrArtifactMissing
		}
		return "", fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.IsDir() {
		return "", ErrArtifactMissing
	}
	return s.artifactPath, nil
}

// ArtifactName 下载时使用的文件名
func (s *LocalStorage) ArtifactName() string {
	return filepath.Base(s.artifactPath)
}
