package entity

// Book 电子书草稿
type Book struct {
	Topic          string    `json:"topic"`
	Title          string    `json:"title"`
	TargetAudience string    `json:"target_audience"`
	Description    string    `json:"description"`
	Tone           string    `json:"tone"`
	CoverStyle     string    `json:"cover_style"`
	AuthorBio      string    `json:"author_bio,omitempty"`
	CoverImage     string    `json:"cover_image,omitempty"`
	Chapters       []Chapter `json:"chapters"`
}

// Clone 深拷贝
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Chapters = append([]Chapter(nil), b.Chapters...)
	return &cp
}

// ConclusionIndex 返回结语章节下标，不存在时返回 -1
func (b *Book) ConclusionIndex() int {
	for i, ch := range b.Chapters {
		if ch.IsConclusion() {
			return i
		}
	}
	return -1
}

// CountByStatus 统计指定状态的章节数
func (b *Book) CountByStatus(status ChapterStatus) int {
	n := 0
	for _, ch := range b.Chapters {
		if ch.Status == status {
			n++
		}
	}
	return n
}

// ChapterNumber 返回章节在阅读顺序中的编号（从 1 开始），结语返回 0
func (b *Book) ChapterNumber(index int) int {
	if index < 0 || index >= len(b.Chapters) || b.Chapters[index].IsConclusion() {
		return 0
	}
	n := 0
	for i := 0; i <= index; i++ {
		if !b.Chapters[i].IsConclusion() {
			n++
		}
	}
	return n
}

// InsertChapter 在结语之前插入章节，无结语时追加到末尾
func (b *Book) InsertChapter(ch Chapter) {
	idx := b.ConclusionIndex()
	if idx < 0 {
		b.Chapters = append(b.Chapters, ch)
		return
	}
	b.Chapters = append(b.Chapters, Chapter{})
	copy(b.Chapters[idx+1:], b.Chapters[idx:])
	b.Chapters[idx] = ch
}

// RemoveChapter 删除指定下标的章节
func (b *Book) RemoveChapter(index int) {
	b.Chapters = append(b.Chapters[:index], b.Chapters[index+1:]...)
}

// MoveChapter 将章节从 from 移动到 to
func (b *Book) MoveChapter(from, to int) {
	ch := b.Chapters[from]
	b.RemoveChapter(from)
	b.Chapters = append(b.Chapters, Chapter{})
	copy(b.Chapters[to+1:], b.Chapters[to:])
	b.Chapters[to] = ch
}
