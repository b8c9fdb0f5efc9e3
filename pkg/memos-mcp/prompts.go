package memos_mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
)

// PromptTemplate is one named workflow template. Templates are static text
// and never touch the note service.
type PromptTemplate struct {
	Name        string
	Description string
	Text        string
}

// PromptRegistry is the fixed prompt table. It is populated once at
// construction and read-only afterwards.
type PromptRegistry struct {
	templates map[string]PromptTemplate
	order     []PromptTemplate
}

func NewPromptRegistry() *PromptRegistry {
	r := &PromptRegistry{templates: make(map[string]PromptTemplate)}

	r.register(PromptTemplate{
		Name:        "daily-review",
		Description: "Review today's memos and plan follow-ups",
		Text:        dailyReviewPromptText,
	})
	r.register(PromptTemplate{
		Name:        "weekly-summary",
		Description: "Summarize the past week's memos",
		Text:        weeklySummaryPromptText,
	})
	r.register(PromptTemplate{
		Name:        "knowledge-extraction",
		Description: "Extract reusable knowledge from memos",
		Text:        knowledgeExtractionPromptText,
	})
	r.register(PromptTemplate{
		Name:        "content-improvement",
		Description: "Improve the quality of a memo's content",
		Text:        contentImprovementPromptText,
	})

	return r
}

func (r *PromptRegistry) register(tmpl PromptTemplate) {
	r.templates[tmpl.Name] = tmpl
	r.order = append(r.order, tmpl)
}

// Get looks up a template by name. An unknown name is not found, never a
// fallback.
func (r *PromptRegistry) Get(name string) (PromptTemplate, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return PromptTemplate{}, &memos.NotFoundError{Message: fmt.Sprintf("unknown prompt %q", name)}
	}
	return tmpl, nil
}

// Templates returns the registered templates in registration order.
func (r *PromptRegistry) Templates() []PromptTemplate {
	return r.order
}

// GetPrompt resolves a prompt request through the registry table.
func (ms *MemosServer) GetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	tmpl, err := ms.prompts.Get(request.Params.Name)
	if err != nil {
		return nil, err
	}

	return mcp.NewGetPromptResult(
		tmpl.Description,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(tmpl.Text)),
		},
	), nil
}

const dailyReviewPromptText = `# Daily Memo Review

Please review my memos from today and help me reflect:

1. Summarize what was captured today
2. Highlight open tasks and follow-ups
3. Note recurring themes worth turning into dedicated notes
4. Suggest what to prioritize tomorrow

Use the search and listing tools to find today's memos before writing the review.`

const weeklySummaryPromptText = `# Weekly Memo Summary

Please summarize my memos from the past week, organized as follows:

1. Main items completed this week
2. Unfinished tasks and what needs attention next week
3. Major themes or patterns that emerged
4. Suggestions and improvements for next week

Use the search tools to find the past week's memos and provide a thorough summary with insights.`

const knowledgeExtractionPromptText = `# Knowledge Extraction Assistant

Please help me extract valuable knowledge and insights from my memos:

1. Identify key concepts and definitions
2. Extract actionable steps and methods
3. Consolidate related facts and data
4. Organize everything into a format that is easy to understand and reference

Use the search tools to find the relevant memos and help me build a knowledge base.`

const contentImprovementPromptText = `# Memo Content Improvement Assistant

Please help me improve the quality of a memo's content:

1. Improve clarity and concision
2. Improve structure and organization
3. Add missing context and detail
4. Ensure consistent formatting and style

Analyze the memo content and provide concrete suggestions for improvement.`
