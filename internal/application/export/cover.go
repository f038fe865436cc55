package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const maxCoverBytes = 10 << 20

// CoverImage 解析后的封面图片
type CoverImage struct {
	Data     []byte
	MIMEType string
}

// Extension 根据 MIME 类型返回文件扩展名
func (c *CoverImage) Extension() string {
	switch c.MIMEType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

// CoverResolver 将封面地址解析为图片数据
type CoverResolver interface {
	Resolve(ctx context.Context, src string) (*CoverImage, error)
}

// HTTPCoverResolver 解码 data URI，或以有限超时下载 http(s) 图片
type HTTPCoverResolver struct {
	client *http.Client
}

// NewHTTPCoverResolver 创建封面解析器
func NewHTTPCoverResolver(timeout time.Duration) *HTTPCoverResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCoverResolver{client: &http.Client{Timeout: timeout}}
}

// Resolve 实现 CoverResolver
func (r *HTTPCoverResolver) Resolve(ctx context.Context, src string) (*CoverImage, error) {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "data:"):
		return DecodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return r.fetch(ctx, src)
	default:
		return nil, fmt.Errorf("unsupported cover source")
	}
}

func (r *HTTPCoverResolver) fetch(ctx context.Context, url string) (*CoverImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch cover: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, err
	}
	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return &CoverImage{Data: data, MIMEType: mimeType}, nil
}

// DecodeDataURI 解码 base64 形式的 data URI
func DecodeDataURI(uri string) (*CoverImage, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, fmt.Errorf("data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &CoverImage{Data: data, MIMEType: mimeType}, nil
}
