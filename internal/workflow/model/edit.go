package model

type EditTextInput struct {
	Original    string
	Instruction string
	Tone        string
	Audience    string

	ModelParams
}
