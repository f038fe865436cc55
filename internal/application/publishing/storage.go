package publishing

import (
	"context"

	"ebook-studio-api/internal/application/ebook"
	"ebook-studio-api/internal/application/export"
	"ebook-studio-api/internal/infrastructure/storage"
)

// ObjectStore 对象存储，Put 返回可下载的地址
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// CoverUploader 将 data URI 封面上传到对象存储
type CoverUploader struct {
	store ObjectStore
}

var _ ebook.CoverStore = (*CoverUploader)(nil)

// NewCoverUploader 创建封面上传器
func NewCoverUploader(store ObjectStore) *CoverUploader {
	return &CoverUploader{store: store}
}

// StoreCover 实现 ebook.CoverStore
func (u *CoverUploader) StoreCover(ctx context.Context, runID, dataURI string) (string, error) {
	img, err := export.DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}
	return u.store.Put(ctx, storage.CoverKey(runID, img.Extension()), img.MIMEType, img.Data)
}
