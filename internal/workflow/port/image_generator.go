package port

import "context"

// ImageRequest 图片生成请求
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	ImageSize   string
}

// Image 生成的图片
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator 图片模型端口
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
}
