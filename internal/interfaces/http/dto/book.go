package dto

import (
	"time"

	"ebook-studio-api/internal/domain/entity"
)

// BookSummary 归档列表项
type BookSummary struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Topic        string    `json:"topic"`
	ChapterCount int       `json:"chapter_count"`
	CoverImage   string    `json:"cover_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BookResponse 归档详情
type BookResponse struct {
	BookSummary
	Book *entity.Book      `json:"book"`
	Log  []entity.LogEntry `json:"log"`
}

// BookListResponse 归档列表
type BookListResponse struct {
	Books []*BookSummary `json:"books"`
}

// ExportLinkResponse 导出文件已上传到对象存储时返回的下载地址
type ExportLinkResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ToBookSummary 转换归档摘要
func ToBookSummary(r *entity.BookRecord) *BookSummary {
	cover := r.CoverImage
	// data URI 体积过大，列表中不返回
	if len(cover) > 5 && cover[:5] == "data:" {
		cover = ""
	}
	return &BookSummary{
		ID:           r.ID,
		RunID:        r.RunID,
		OwnerID:      r.OwnerID,
		Title:        r.Title,
		Topic:        r.Topic,
		ChapterCount: len(r.Chapters),
		CoverImage:   cover,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ToBookResponse 转换归档详情
func ToBookResponse(r *entity.BookRecord) *BookResponse {
	summary := ToBookSummary(r)
	summary.CoverImage = r.CoverImage
	return &BookResponse{BookSummary: *summary, Book: r.Book(), Log: r.Log}
}

// ToBookListResponse 转换归档列表
func ToBookListResponse(records []*entity.BookRecord) *BookListResponse {
	resp := &BookListResponse{Books: make([]*BookSummary, 0, len(records))}
	for _, r := range records {
		resp.Books = append(resp.Books, ToBookSummary(r))
	}
	return resp
}
