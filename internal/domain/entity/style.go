package entity

// Tone 写作语气
type Tone struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CoverStyle 封面风格
type CoverStyle struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

const (
	DefaultTone       = "Professional"
	DefaultCoverStyle = "Minimalist"
)

// Tones 可选语气
var Tones = []Tone{
	{Name: "Professional", Description: "Authoritative, clear and business-like"},
	{Name: "Friendly", Description: "Warm, approachable and conversational"},
	{Name: "Storytelling", Description: "Narrative driven with anecdotes"},
	{Name: "Persuasive", Description: "Convincing and action oriented"},
	{Name: "Humorous", Description: "Light-hearted with a sense of fun"},
	{Name: "Academic", Description: "Rigorous, cited and formal"},
	{Name: "Inspirational", Description: "Uplifting and motivating"},
	{Name: "Direct", Description: "Concise and to the point"},
	{Name: "Empathetic", Description: "Understanding and supportive"},
	{Name: "Witty", Description: "Clever with sharp wordplay"},
	{Name: "Casual", Description: "Relaxed, everyday language"},
	{Name: "GenZ", Description: "Trendy, internet-native slang"},
}

// CoverStyles 可选封面风格
var CoverStyles = []CoverStyle{
	{Name: "Minimalist", Description: "Clean lines and plenty of whitespace"},
	{Name: "Vibrant", Description: "Bold colors and high energy"},
	{Name: "Vintage", Description: "Retro textures and muted palettes"},
	{Name: "Modern", Description: "Contemporary typography and geometry"},
	{Name: "Abstract", Description: "Shapes and forms over literal imagery"},
	{Name: "Futuristic", Description: "Sci-fi inspired, sleek and glowing"},
	{Name: "Corporate", Description: "Polished and trustworthy"},
	{Name: "Luxury", Description: "Elegant with gold and deep tones"},
	{Name: "Hand-drawn", Description: "Illustrated, sketchy and personal"},
	{Name: "Watercolor", Description: "Soft washes and organic edges"},
	{Name: "Cyberpunk", Description: "Neon, dark and high-tech"},
}

// IsKnownTone 语气是否在目录中
func IsKnownTone(name string) bool {
	for _, t := range Tones {
		if t.Name == name {
			return true
		}
	}
	return false
}

// IsKnownCoverStyle 封面风格是否在目录中
func IsKnownCoverStyle(name string) bool {
	for _, s := range CoverStyles {
		if s.Name == name {
			return true
		}
	}
	return false
}
