package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/interfaces/http/dto"
)

// CatalogHandler 语气与封面风格目录
type CatalogHandler struct{}

// NewCatalogHandler 创建目录处理器
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// GetCatalog 可选语气与封面风格
// @Summary 获取语气与封面风格列表
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.Response[dto.CatalogResponse]
// @Router /v1/catalog [get]
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	dto.Success(c, &dto.CatalogResponse{
		Tones:       entity.Tones,
		CoverStyles: entity.CoverStyles,
		Defaults: map[string]string{
			"tone":        entity.DefaultTone,
			"cover_style": entity.DefaultCoverStyle,
		},
	})
}
