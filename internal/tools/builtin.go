package tools

import (
	"github.com/agentforge/agentforge/internal/llm"
)

// Built-in tool names.
const (
	WebSearchName  = "web_search"
	CalculatorName = "calculator"
	SummarizerName = "summarizer"
	ChatbotName    = "chatbot"
)

// Builtins returns the native tools registered at boot. Each spec hands out a
// shared instance so per-tool state such as search deduplication spans calls.
func Builtins(completer llm.Completer, searcher Searcher) []Spec {
	search := NewWebSearch(searcher)
	calc := NewCalculator(completer)
	sum := NewSummarizer(completer)
	chat := NewChatbot(completer)

	return []Spec{
		{
			Name:        WebSearchName,
			TypeName:    "WebSearchTool",
			Description: "Searches the web for up-to-date information.",
			Params: []Param{
				{Name: "query", Type: "string", Description: "The search query to execute.", Required: true},
			},
			New: func(Args) (Tool, error) { return search, nil },
		},
		{
			Name:        CalculatorName,
			TypeName:    "CalculatorTool",
			Description: "Performs mathematical calculations.",
			Params: []Param{
				{Name: "expression", Type: "string", Description: "The mathematical expression to evaluate.", Required: true},
			},
			New: func(Args) (Tool, error) { return calc, nil },
		},
		{
			Name:        SummarizerName,
			TypeName:    "SummarizerTool",
			Description: "Summarizes text content.",
			Params: []Param{
				{Name: "text", Type: "string", Description: "The text to summarize.", Required: true},
				{Name: "max_length", Type: "integer", Description: "Maximum length of the summary in words."},
				{Name: "query", Type: "string", Description: "User query to tailor the summary."},
			},
			New: func(Args) (Tool, error) { return sum, nil },
		},
		{
			Name:        ChatbotName,
			TypeName:    "ChatbotTool",
			Description: "A simple chatbot that answers user queries.",
			Params: []Param{
				{Name: "query", Type: "string", Description: "The user's message to the chatbot.", Required: true},
				{Name: "system", Type: "string", Description: "Optional system prompt to steer behavior."},
				{Name: "model", Type: "string", Description: "Optional model override."},
			},
			New: func(Args) (Tool, error) { return chat, nil },
		},
	}
}
