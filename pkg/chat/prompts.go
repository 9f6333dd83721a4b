package chat

import (
	"fmt"
	"strings"

	"github.com/malbeclabs/finagent/pkg/chat/prompts"
)

type Prompts struct {
	Classify       string // {{SCHEMA}} is filled per message
	Decline        string
	GeneralFinance string
}

func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Classify, err = loadPrompt("CLASSIFY.md"); err != nil {
		return nil, fmt.Errorf("failed to load CLASSIFY: %w", err)
	}
	if p.Decline, err = loadPrompt("DECLINE.md"); err != nil {
		return nil, fmt.Errorf("failed to load DECLINE: %w", err)
	}
	if p.GeneralFinance, err = loadPrompt("GENERAL_FINANCE.md"); err != nil {
		return nil, fmt.Errorf("failed to load GENERAL_FINANCE: %w", err)
	}
	return p, nil
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
