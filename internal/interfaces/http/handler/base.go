// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/interfaces/http/middleware"
	apperrors "ebook-studio-api/pkg/errors"
)

// DefaultCredential 返回默认提供商配置的 API Key，未配置时为空
func DefaultCredential(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	p := strings.TrimSpace(cfg.LLM.DefaultProvider)
	if p == "" {
		return ""
	}
	providerCfg, ok := cfg.LLM.Providers[p]
	if !ok {
		return ""
	}
	return strings.TrimSpace(providerCfg.APIKey)
}

// requestCredential 优先使用请求头中的密钥，其次使用服务端默认密钥
func requestCredential(c *gin.Context, fallback string) string {
	if key := strings.TrimSpace(c.GetHeader(middleware.ProviderKeyHeader)); key != "" {
		return key
	}
	return fallback
}

// chapterIndex 解析路径中的章节下标
func chapterIndex(c *gin.Context) (int, error) {
	raw := c.Param("index")
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, apperrors.ErrInvalidParam.WithDetail("invalid chapter index: " + raw)
	}
	return idx, nil
}

func bindError(err error) error {
	return apperrors.ErrInvalidParam.WithDetail(err.Error())
}
