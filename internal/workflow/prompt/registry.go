// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// PromptID 模板标识，对应 templates/{id}.system.txt 与 templates/{id}.user.txt
type PromptID string

const (
	PromptOutlineV1  PromptID = "outline_v1"
	PromptChapterV1  PromptID = "chapter_v1"
	PromptCoverArtV1 PromptID = "cover_art_v1"
	PromptEditV1     PromptID = "edit_v1"
)

var knownPrompts = []PromptID{PromptOutlineV1, PromptChapterV1, PromptCoverArtV1, PromptEditV1}

// Registry 首次使用时一次性加载全部模板，之后只读
type Registry struct {
	load func() (map[PromptID]einoprompt.ChatTemplate, error)
}

func NewRegistry() *Registry {
	return &Registry{load: sync.OnceValues(loadTemplates)}
}

// ChatTemplate 返回 system + user 两条消息组成的 FString 模板
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil || r.load == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}
	templates, err := r.load()
	if err != nil {
		return nil, err
	}
	tpl, ok := templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return tpl, nil
}

func loadTemplates() (map[PromptID]einoprompt.ChatTemplate, error) {
	out := make(map[PromptID]einoprompt.ChatTemplate, len(knownPrompts))
	for _, id := range knownPrompts {
		system, err := readTemplate(id, "system")
		if err != nil {
			return nil, err
		}
		user, err := readTemplate(id, "user")
		if err != nil {
			return nil, err
		}
		out[id] = einoprompt.FromMessages(schema.FString,
			schema.SystemMessage(system),
			schema.UserMessage(user),
		)
	}
	return out, nil
}

func readTemplate(id PromptID, role string) (string, error) {
	b, err := templatesFS.ReadFile(fmt.Sprintf("templates/%s.%s.txt", id, role))
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %s/%s: %w", id, role, err)
	}
	return strings.TrimSpace(string(b)), nil
}
