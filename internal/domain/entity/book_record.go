package entity

import "time"

// BookRecord 已完成电子书的归档记录
type BookRecord struct {
	ID             string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RunID          string     `json:"run_id" gorm:"type:varchar(64);uniqueIndex"`
	OwnerID        string     `json:"owner_id" gorm:"type:varchar(255);index"`
	Topic          string     `json:"topic" gorm:"type:text"`
	Title          string     `json:"title" gorm:"type:varchar(512);not null"`
	TargetAudience string     `json:"target_audience" gorm:"type:text"`
	Description    string     `json:"description" gorm:"type:text"`
	Tone           string     `json:"tone" gorm:"type:varchar(64)"`
	CoverStyle     string     `json:"cover_style" gorm:"type:varchar(64)"`
	AuthorBio      string     `json:"author_bio,omitempty" gorm:"type:text"`
	CoverImage     string     `json:"cover_image,omitempty" gorm:"type:text"`
	Chapters       []Chapter  `json:"chapters" gorm:"type:jsonb;serializer:json"`
	Log            []LogEntry `json:"log" gorm:"type:jsonb;serializer:json"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (BookRecord) TableName() string {
	return "books"
}

// NewBookRecord 由完成的草稿构建归档记录
func NewBookRecord(runID, ownerID string, book *Book, log []LogEntry) *BookRecord {
	return &BookRecord{
		RunID:          runID,
		OwnerID:        ownerID,
		Topic:          book.Topic,
		Title:          book.Title,
		TargetAudience: book.TargetAudience,
		Description:    book.Description,
		Tone:           book.Tone,
		CoverStyle:     book.CoverStyle,
		AuthorBio:      book.AuthorBio,
		CoverImage:     book.CoverImage,
		Chapters:       append([]Chapter(nil), book.Chapters...),
		Log:            append([]LogEntry(nil), log...),
	}
}

// Book 还原为草稿结构（供导出器使用）
func (r *BookRecord) Book() *Book {
	return &Book{
		Topic:          r.Topic,
		Title:          r.Title,
		TargetAudience: r.TargetAudience,
		Description:    r.Description,
		Tone:           r.Tone,
		CoverStyle:     r.CoverStyle,
		AuthorBio:      r.AuthorBio,
		CoverImage:     r.CoverImage,
		Chapters:       append([]Chapter(nil), r.Chapters...),
	}
}
