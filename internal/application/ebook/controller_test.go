package ebook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-studio-api/internal/domain/entity"
	llmctx "ebook-studio-api/internal/domain/service"
	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
)

type fakeGateway struct {
	mu           sync.Mutex
	outlineCalls int
	outline      func(ctx context.Context, call int) (*workflowport.Outline, error)
	chapterErr   map[string]error
	coverImage   string
	coverErr     error
	editOut      string
	onChapter    func()

	chapterReqs []workflowport.ChapterRequest
	coverReqs   []workflowport.CoverRequest
	editReqs    []workflowport.EditRequest
	credentials []string
}

func sampleOutline(n int) *workflowport.Outline {
	o := &workflowport.Outline{Title: "Better Sleep", TargetAudience: "Night owls", Description: "A guide to rest"}
	for i := 0; i < n; i++ {
		o.Chapters = append(o.Chapters, workflowport.OutlineChapter{Title: fmt.Sprintf("Part %d", i+1), Summary: "s"})
	}
	return o
}

func (g *fakeGateway) record(ctx context.Context) {
	cred, _ := llmctx.CredentialFromContext(ctx)
	g.credentials = append(g.credentials, cred)
}

func (g *fakeGateway) GenerateOutline(ctx context.Context, _ string) (*workflowport.Outline, error) {
	g.mu.Lock()
	g.outlineCalls++
	call := g.outlineCalls
	g.record(ctx)
	fn := g.outline
	g.mu.Unlock()
	if fn == nil {
		return sampleOutline(5), nil
	}
	return fn(ctx, call)
}

func (g *fakeGateway) GenerateChapter(ctx context.Context, req workflowport.ChapterRequest) (string, error) {
	g.mu.Lock()
	g.chapterReqs = append(g.chapterReqs, req)
	g.record(ctx)
	hook := g.onChapter
	err := g.chapterErr[req.ChapterTitle]
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return "## " + req.ChapterTitle + "\n\nbody", nil
}

func (g *fakeGateway) GenerateCoverImage(ctx context.Context, req workflowport.CoverRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.coverReqs = append(g.coverReqs, req)
	g.record(ctx)
	if g.coverErr != nil {
		return "", g.coverErr
	}
	if g.coverImage == "" {
		return "data:image/png;base64,AAAA", nil
	}
	return g.coverImage, nil
}

func (g *fakeGateway) EditText(ctx context.Context, req workflowport.EditRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.editReqs = append(g.editReqs, req)
	g.record(ctx)
	if g.editOut == "" {
		return req.Original, nil
	}
	return g.editOut, nil
}

type fakeArchiver struct {
	mu    sync.Mutex
	calls int
	book  *entity.Book
	err   error
}

func (a *fakeArchiver) Archive(_ context.Context, _, _ string, book *entity.Book, _ []entity.LogEntry) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.book = book
	if a.err != nil {
		return "", a.err
	}
	return "book-1", nil
}

type fakeCoverStore struct {
	err error
}

func (s fakeCoverStore) StoreCover(_ context.Context, runID, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.example.com/covers/" + runID + ".png", nil
}

func newTestController(gw *fakeGateway, opts ...Option) *Controller {
	base := []Option{WithCredential("test-key"), WithDelays(Delays{}), WithOwner("user@ebook.com")}
	return NewController("run-1", gw, append(base, opts...)...)
}

func messages(entries []entity.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

func TestHappyPath(t *testing.T) {
	gw := &fakeGateway{outline: func(context.Context, int) (*workflowport.Outline, error) { return sampleOutline(1), nil }}
	archiver := &fakeArchiver{}
	c := newTestController(gw, WithArchiver(archiver))
	ctx := context.Background()

	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "  Sleep science "}))
	snap := c.Snapshot()
	assert.Equal(t, entity.StageAwaitingApproval, snap.Stage)
	assert.Equal(t, 2, snap.Step)
	require.Len(t, snap.Book.Chapters, 2)
	assert.Equal(t, "ch-0", snap.Book.Chapters[0].ID)
	assert.Equal(t, entity.ConclusionChapterID, snap.Book.Chapters[1].ID)
	assert.Equal(t, entity.DefaultTone, snap.Book.Tone)
	assert.Equal(t, entity.DefaultCoverStyle, snap.Book.CoverStyle)

	require.NoError(t, c.Approve(ctx))
	snap = c.Snapshot()
	assert.Equal(t, entity.StageCompleted, snap.Stage)
	for _, ch := range snap.Book.Chapters {
		assert.Equal(t, entity.ChapterStatusCompleted, ch.Status)
		assert.True(t, ch.HasContent())
	}
	assert.Equal(t, "data:image/png;base64,AAAA", snap.Book.CoverImage)
	assert.Equal(t, "book-1", snap.BookID)
	assert.Equal(t, 1, archiver.calls)

	assert.Equal(t, []string{
		`Starting project: "Sleep science"`,
		"Analyzing the market and planning the outline...",
		"Outline ready: Better Sleep",
		"Waiting for outline approval...",
		"Chapter 1: writing...",
		"Chapter 1 finished",
		"Conclusion: writing...",
		"Conclusion finished",
		"Designing the cover in Minimalist style...",
		"Cover design completed",
		"QC: checking the quality of all content...",
		"QC: content is complete",
		"QC: formatting is ready",
		"All steps finished, ready for delivery",
	}, messages(c.Log()))

	require.Len(t, gw.chapterReqs, 2)
	assert.True(t, gw.chapterReqs[1].IsConclusion)
	assert.Equal(t, "Night owls", gw.chapterReqs[0].Audience)
	for _, cred := range gw.credentials {
		assert.Equal(t, "test-key", cred)
	}
}

func TestOutlineFailureReturnsToInput(t *testing.T) {
	gw := &fakeGateway{outline: func(context.Context, int) (*workflowport.Outline, error) {
		return nil, apperrors.ErrGenerationFailed.WithDetail("quota exceeded")
	}}
	c := newTestController(gw)

	err := c.SubmitTopic(context.Background(), TopicInput{Topic: "Sleep"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))

	snap := c.Snapshot()
	assert.Equal(t, entity.StageInput, snap.Stage)
	assert.Empty(t, snap.Book.Chapters)
	assert.Equal(t, "generation failed: quota exceeded", snap.LastError)
	log := messages(c.Log())
	assert.Equal(t, "Error: generation failed: quota exceeded", log[len(log)-1])
}

func TestChapterFailureDoesNotStopWriting(t *testing.T) {
	gw := &fakeGateway{chapterErr: map[string]error{"Part 2": errors.New("boom")}}
	c := newTestController(gw)
	ctx := context.Background()

	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	require.NoError(t, c.Approve(ctx))

	snap := c.Snapshot()
	assert.Equal(t, entity.StageCompleted, snap.Stage)
	require.Len(t, snap.Book.Chapters, 6)
	assert.Equal(t, 1, snap.Book.CountByStatus(entity.ChapterStatusError))
	assert.Equal(t, 5, snap.Book.CountByStatus(entity.ChapterStatusCompleted))
	assert.Equal(t, entity.ChapterStatusError, snap.Book.Chapters[1].Status)
	assert.Empty(t, snap.Book.Chapters[1].Content)
	assert.Contains(t, messages(c.Log()), "Error writing Chapter 2")
}

func TestCoverFailureUsesFallback(t *testing.T) {
	gw := &fakeGateway{coverErr: errors.New("image model offline")}
	c := newTestController(gw)
	ctx := context.Background()

	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep", CoverStyle: "Cyberpunk"}))
	require.NoError(t, c.Approve(ctx))

	snap := c.Snapshot()
	assert.Equal(t, entity.StageCompleted, snap.Stage)
	assert.Equal(t, DefaultSettings().FallbackCoverURL, snap.Book.CoverImage)
	log := messages(c.Log())
	assert.Contains(t, log, "Designing the cover in Cyberpunk style...")
	assert.Contains(t, log, "Could not generate the cover image, using a fallback image")
	assert.NotContains(t, log, "Cover design completed")
}

func TestCoverStoreReplacesDataURI(t *testing.T) {
	c := newTestController(&fakeGateway{}, WithCoverStore(fakeCoverStore{}))
	ctx := context.Background()
	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	require.NoError(t, c.Approve(ctx))
	assert.Equal(t, "https://cdn.example.com/covers/run-1.png", c.Snapshot().Book.CoverImage)

	c = newTestController(&fakeGateway{}, WithCoverStore(fakeCoverStore{err: errors.New("s3 down")}))
	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	require.NoError(t, c.Approve(ctx))
	assert.Equal(t, "data:image/png;base64,AAAA", c.Snapshot().Book.CoverImage)
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	c := newTestController(&fakeGateway{}, WithArchiver(&fakeArchiver{err: errors.New("db down")}))
	ctx := context.Background()
	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	require.NoError(t, c.Approve(ctx))

	snap := c.Snapshot()
	assert.Equal(t, entity.StageCompleted, snap.Stage)
	assert.Empty(t, snap.BookID)
}

func TestRestartFromCompleted(t *testing.T) {
	c := newTestController(&fakeGateway{})
	ctx := context.Background()
	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	require.NoError(t, c.Approve(ctx))

	require.NoError(t, c.Restart())
	snap := c.Snapshot()
	assert.Equal(t, entity.StageInput, snap.Stage)
	assert.Empty(t, snap.Book.Chapters)
	assert.Empty(t, snap.Book.Title)
	assert.Empty(t, c.Log())

	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Focus"}))
	assert.Equal(t, entity.StageAwaitingApproval, c.Stage())
}

func TestAtMostOneChapterGenerating(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw)
	var violations, checks atomic.Int32
	gw.onChapter = func() {
		checks.Add(1)
		if c.Snapshot().Book.CountByStatus(entity.ChapterStatusGenerating) != 1 {
			violations.Add(1)
		}
	}
	ctx := context.Background()
	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	require.NoError(t, c.Approve(ctx))

	assert.Equal(t, int32(6), checks.Load())
	assert.Zero(t, violations.Load())
}

func TestMissingCredential(t *testing.T) {
	gw := &fakeGateway{}
	c := NewController("run-1", gw, WithDelays(Delays{}))

	err := c.SubmitTopic(context.Background(), TopicInput{Topic: "Sleep"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMissingCredential, apperrors.CodeOf(err))
	assert.Equal(t, entity.StageInput, c.Stage())
	assert.Zero(t, gw.outlineCalls)
	assert.Empty(t, c.Log())
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name string
		in   TopicInput
	}{
		{"empty topic", TopicInput{Topic: "   "}},
		{"unknown tone", TopicInput{Topic: "Sleep", Tone: "Sarcastic"}},
		{"unknown style", TopicInput{Topic: "Sleep", CoverStyle: "Baroque"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(&fakeGateway{})
			err := c.SubmitTopic(context.Background(), tc.in)
			assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
			assert.Equal(t, entity.StageInput, c.Stage())
		})
	}
}

func TestStageConflicts(t *testing.T) {
	c := newTestController(&fakeGateway{})
	ctx := context.Background()

	assert.Equal(t, apperrors.CodeStageConflict, apperrors.CodeOf(c.Approve(ctx)))
	assert.Equal(t, apperrors.CodeStageConflict, apperrors.CodeOf(c.Regenerate(ctx)))
	_, err := c.AddChapter()
	assert.Equal(t, apperrors.CodeStageConflict, apperrors.CodeOf(err))

	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	assert.Equal(t, apperrors.CodeStageConflict, apperrors.CodeOf(c.SubmitTopic(ctx, TopicInput{Topic: "Again"})))
	assert.Equal(t, apperrors.CodeStageConflict, apperrors.CodeOf(c.UpdateChapterContent(0, "x")))
	_, err = c.EditText(ctx, EditInput{Text: "x", Mode: EditModeGrammar})
	assert.Equal(t, apperrors.CodeStageConflict, apperrors.CodeOf(err))
}

func TestRestartRejectedWhileBusy(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{outline: func(context.Context, int) (*workflowport.Outline, error) {
		<-release
		return sampleOutline(2), nil
	}}
	c := newTestController(gw)
	ctx := context.Background()

	require.NoError(t, c.SubmitTopicAsync(ctx, TopicInput{Topic: "Sleep"}))
	assert.Equal(t, entity.StageOutlinePending, c.Stage())
	assert.Equal(t, apperrors.CodeStageConflict, apperrors.CodeOf(c.Restart()))

	close(release)
	require.NoError(t, c.Wait(ctx))
	assert.Equal(t, entity.StageAwaitingApproval, c.Stage())
}

func TestRegenerateSupersedesInFlightOutline(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{outline: func(_ context.Context, call int) (*workflowport.Outline, error) {
		o := sampleOutline(3)
		if call == 1 {
			close(started)
			<-release
			o.Title = "First"
			return o, nil
		}
		o.Title = "Second"
		return o, nil
	}}
	c := newTestController(gw)
	ctx := context.Background()

	require.NoError(t, c.SubmitTopicAsync(ctx, TopicInput{Topic: "Sleep"}))
	<-started
	require.NoError(t, c.RegenerateAsync(ctx))
	require.Eventually(t, func() bool { return c.Stage() == entity.StageAwaitingApproval }, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, c.Wait(ctx))

	snap := c.Snapshot()
	assert.Equal(t, entity.StageAwaitingApproval, snap.Stage)
	assert.Equal(t, "Second", snap.Book.Title)
	assert.Len(t, snap.Book.Chapters, 4)
}

func TestRegenerateReplacesChapters(t *testing.T) {
	gw := &fakeGateway{outline: func(_ context.Context, call int) (*workflowport.Outline, error) {
		return sampleOutline(call + 1), nil
	}}
	c := newTestController(gw)
	ctx := context.Background()

	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep", Tone: "Humorous"}))
	_, err := c.AddChapter()
	require.NoError(t, err)

	require.NoError(t, c.Regenerate(ctx))
	snap := c.Snapshot()
	assert.Len(t, snap.Book.Chapters, 4)
	assert.Equal(t, "Humorous", snap.Book.Tone)
	assert.Equal(t, `Starting project: "Sleep"`, c.Log()[0].Message)
}

func TestCallTimeout(t *testing.T) {
	gw := &fakeGateway{outline: func(ctx context.Context, _ int) (*workflowport.Outline, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := newTestController(gw, WithCallTimeout(20*time.Millisecond))

	err := c.SubmitTopic(context.Background(), TopicInput{Topic: "Sleep"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, entity.StageInput, c.Stage())
}

func TestOutlineTruncatedToChapterCap(t *testing.T) {
	gw := &fakeGateway{outline: func(context.Context, int) (*workflowport.Outline, error) { return sampleOutline(20), nil }}
	c := newTestController(gw)
	require.NoError(t, c.SubmitTopic(context.Background(), TopicInput{Topic: "Sleep"}))

	chapters := c.Snapshot().Book.Chapters
	require.Len(t, chapters, 12)
	assert.Equal(t, "ch-10", chapters[10].ID)
	assert.True(t, chapters[11].IsConclusion())
}

func TestApproveAsync(t *testing.T) {
	c := newTestController(&fakeGateway{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.SubmitTopic(ctx, TopicInput{Topic: "Sleep"}))
	require.NoError(t, c.ApproveAsync(ctx))
	cancel()

	waitCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, c.Wait(waitCtx))
	assert.Equal(t, entity.StageCompleted, c.Stage())
}
