package model

type CoverPromptInput struct {
	Title       string
	Description string
	Style       string

	ModelParams
}
