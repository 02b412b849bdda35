package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/greeting_new.txt
	greetingNewRaw string

	//go:embed template/upload_system.txt
	uploadSystemRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	GreetingNew  string
	UploadSystem string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		GreetingNew:  strings.TrimSpace(greetingNewRaw),
		UploadSystem: strings.TrimSpace(uploadSystemRaw),
	}
}
