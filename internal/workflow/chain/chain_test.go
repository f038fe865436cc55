package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "ebook-studio-api/internal/workflow/model"
)

type scriptedModel struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	calls    int
	lastMsgs []*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.lastMsgs = input
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.replies) {
		return schema.AssistantMessage(m.replies[i], nil), nil
	}
	return schema.AssistantMessage("", nil), nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type staticFactory struct {
	m   model.BaseChatModel
	err error
}

func (f staticFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.m, f.err
}

const outlineJSON = `{"title":"Remote Teams","targetAudience":"Managers","description":"How to lead","chapters":[
{"title":"Hiring","summary":"s1"},{"title":"  ","summary":"dropped"},{"title":"Rituals","summary":"s2"}]}`

func TestOutlineChainParsesResult(t *testing.T) {
	m := &scriptedModel{replies: []string{"```json\n" + outlineJSON + "\n```"}}
	out, err := NewOutlineChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.OutlineGenerateInput{Topic: "remote work"})
	require.NoError(t, err)

	assert.Equal(t, "Remote Teams", out.Title)
	assert.Equal(t, "Managers", out.TargetAudience)
	require.Len(t, out.Chapters, 2)
	assert.Equal(t, "Rituals", out.Chapters[1].Title)
	assert.Contains(t, m.lastMsgs[1].Content, `"remote work"`)
	assert.Contains(t, m.lastMsgs[1].Content, "exactly 5 distinct chapters")
}

func TestOutlineChainFallsBackWhenSchemaUnsupported(t *testing.T) {
	m := &scriptedModel{
		errs:    []error{errors.New("unknown parameter: response_format"), nil},
		replies: []string{"", outlineJSON},
	}
	out, err := NewOutlineChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.OutlineGenerateInput{Topic: "t"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, "Remote Teams", out.Title)
}

func TestOutlineChainRejectsEmptyChapters(t *testing.T) {
	m := &scriptedModel{replies: []string{`{"title":"X","targetAudience":"A","description":"D","chapters":[]}`}}
	_, err := NewOutlineChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.OutlineGenerateInput{Topic: "t"})
	assert.Error(t, err)
}

func TestParseOutlineInvalidJSON(t *testing.T) {
	_, err := ParseOutline("not json at all")
	assert.Error(t, err)
}

func TestChapterChainDefaultsAndPersona(t *testing.T) {
	m := &scriptedModel{replies: []string{"## Heading\n\nBody"}}
	out, err := NewChapterChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.ChapterGenerateInput{
		ChapterTitle: "Getting Started",
		AuthorBio:    "A former SRE",
		IsConclusion: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "## Heading\n\nBody", out.Content)

	prompt := m.lastMsgs[1].Content
	assert.Contains(t, prompt, "Book title: Untitled")
	assert.Contains(t, prompt, "Target audience: General readers")
	assert.Contains(t, prompt, "Tone of voice: Professional & Authoritative.")
	assert.Contains(t, prompt, `"A former SRE"`)
	assert.Contains(t, prompt, "conclusion chapter")
}

func TestChapterChainEmptyOutputFails(t *testing.T) {
	m := &scriptedModel{replies: []string{"   "}}
	_, err := NewChapterChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.ChapterGenerateInput{ChapterTitle: "x"})
	assert.Error(t, err)
}

func TestEditChainTrimsAndFallsBack(t *testing.T) {
	m := &scriptedModel{replies: []string{"  Fixed text.  \n", ""}}
	c := NewEditChain(staticFactory{m: m})

	out, err := c.Invoke(context.Background(), &wfmodel.EditTextInput{Original: "fixd text", Instruction: "fix", Tone: "Casual"})
	require.NoError(t, err)
	assert.Equal(t, "Fixed text.", out)
	assert.Contains(t, m.lastMsgs[1].Content, "- Tone of voice: Casual")

	out, err = c.Invoke(context.Background(), &wfmodel.EditTextInput{Original: "keep me", Instruction: "fix"})
	require.NoError(t, err)
	assert.Equal(t, "keep me", out)
}

func TestCoverPromptChain(t *testing.T) {
	m := &scriptedModel{replies: []string{"A minimalist cover with a single lighthouse"}}
	out, err := NewCoverPromptChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.CoverPromptInput{Title: "T", Style: "Minimalist"})
	require.NoError(t, err)
	assert.Equal(t, "A minimalist cover with a single lighthouse", out)
	assert.Equal(t, "A professional book cover for T in Vintage style", FallbackCoverPrompt("T", "Vintage"))
}

func TestFactoryErrorPropagates(t *testing.T) {
	_, err := NewEditChain(staticFactory{err: errors.New("no key")}).Invoke(context.Background(), &wfmodel.EditTextInput{Original: "x"})
	assert.EqualError(t, err, "no key")
}
