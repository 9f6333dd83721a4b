package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/malbeclabs/finagent/pkg/pipeline/prompts"
)

type Prompts struct {
	Synthesize string
	Verify     string
}

func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Synthesize, err = loadPrompt("SYNTHESIZE.md"); err != nil {
		return nil, fmt.Errorf("failed to load SYNTHESIZE: %w", err)
	}
	if p.Verify, err = loadPrompt("VERIFY.md"); err != nil {
		return nil, fmt.Errorf("failed to load VERIFY: %w", err)
	}

	p.Synthesize = strings.ReplaceAll(p.Synthesize, "{{PLACEHOLDER}}", TenantPlaceholder)
	p.Verify = strings.ReplaceAll(p.Verify, "{{PLACEHOLDER}}", TenantPlaceholder)
	return p, nil
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func renderSynthesisPrompt(tmpl string, in SynthesisInput) string {
	return strings.NewReplacer(
		"{{SCHEMA}}", in.Schema,
		"{{FIELD_CATALOG}}", in.FieldCatalog,
		"{{CURRENT_TIME_MS}}", strconv.FormatInt(in.CurrentTimeMs, 10),
		"{{PREVIOUS_QUERY}}", in.PreviousCandidate,
		"{{FEEDBACK}}", in.PreviousFeedback,
	).Replace(tmpl)
}

func renderVerifyPrompt(tmpl string, in VerifyInput) string {
	return strings.NewReplacer(
		"{{SCHEMA}}", in.Schema,
		"{{CURRENT_TIME_MS}}", strconv.FormatInt(in.CurrentTimeMs, 10),
	).Replace(tmpl)
}
