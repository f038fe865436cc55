package chain

import (
	"strings"

	"github.com/cloudwego/eino/components/model"

	wfmodel "ebook-studio-api/internal/workflow/model"
	workflowprompt "ebook-studio-api/internal/workflow/prompt"
)

var defaultPromptRegistry = workflowprompt.NewRegistry()

func buildModelOptions(p wfmodel.ModelParams) []model.Option {
	opts := make([]model.Option, 0, 3)
	if p.Temperature != nil {
		opts = append(opts, model.WithTemperature(*p.Temperature))
	}
	if p.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*p.MaxTokens))
	}
	if m := strings.TrimSpace(p.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	return opts
}

func pickModel(p wfmodel.ModelParams) string {
	return strings.TrimSpace(p.Model)
}
