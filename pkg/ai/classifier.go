package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const classifyPrompt = `You label emails received during a job search.

Return ONLY a JSON object with these fields:
- "category": one of "application", "interview", "offer", "rejection", "other"
- "company": the hiring company's name, or "" if unknown
- "position": the role title, or "" if unknown
- "confidence": a number between 0 and 1

"application" means an application was received or acknowledged.
Newsletters, job alerts and anything unrelated to a specific application are "other".

EMAIL:
%s

JSON:`

// PromptClassifier classifies by prompting a text generator.
type PromptClassifier struct {
	gen Generator
}

func NewPromptClassifier(gen Generator) *PromptClassifier {
	return &PromptClassifier{gen: gen}
}

func (c *PromptClassifier) Classify(ctx context.Context, emailText string) (*Classification, error) {
	raw, err := c.gen.Generate(ctx, fmt.Sprintf(classifyPrompt, emailText))
	if err != nil {
		return nil, err
	}
	return parseClassification(raw)
}

func parseClassification(raw string) (*Classification, error) {
	// Models like to wrap JSON in prose or code fences.
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var cls Classification
	if err := json.Unmarshal([]byte(text[start:end+1]), &cls); err != nil {
		return nil, fmt.Errorf("failed to parse classification JSON: %w", err)
	}

	cls.Category = strings.ToLower(strings.TrimSpace(cls.Category))
	switch cls.Category {
	case CategoryApplication, CategoryInterview, CategoryOffer, CategoryRejection, CategoryOther:
	default:
		cls.Category = CategoryOther
	}
	cls.Company = strings.TrimSpace(cls.Company)
	cls.Position = strings.TrimSpace(cls.Position)
	if cls.Confidence < 0 {
		cls.Confidence = 0
	}
	if cls.Confidence > 1 {
		cls.Confidence = 1
	}
	return &cls, nil
}
