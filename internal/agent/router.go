package agent

import (
	"regexp"
	"strings"

	"github.com/agentforge/agentforge/internal/tools"
)

var calculatorKeywords = []string{
	"calculate", "compute", "evaluate", "solve",
	"sqrt", "square root", "percent", "percentage",
	"plus", "minus", "times", "multiplied", "divided", "sum of", "product of",
	"how much is", "log(", "sin(", "cos(", "tan(",
}

var searchKeywords = []string{
	"who", "what is", "what are", "when", "where", "why", "how does",
	"latest", "news", "today", "current", "recent",
	"search", "find", "look up", "lookup",
	"capital", "population", "price of", "weather", "history of",
}

var arithmetic = regexp.MustCompile(`\d\s*(\*\*|[-+*/^×÷%])\s*[\d(]`)

// RoutingResult names the tools chosen for a query.
type RoutingResult struct {
	Tools       []string
	Confidence  float64
	CalcScore   int
	SearchScore int
	Reasoning   string
}

// ToolRouter picks a default tool chain for queries that name none.
type ToolRouter struct{}

func NewToolRouter() *ToolRouter {
	return &ToolRouter{}
}

// Route scores the query against calculator and search vocabularies.
// Without any signal it falls back to the chatbot.
func (r *ToolRouter) Route(query string) RoutingResult {
	lower := strings.ToLower(query)

	calcScore := 0
	searchScore := 0

	if arithmetic.MatchString(lower) {
		calcScore += 2
	}
	for _, kw := range calculatorKeywords {
		if strings.Contains(lower, kw) {
			calcScore++
		}
	}
	for _, kw := range searchKeywords {
		if strings.Contains(lower, kw) {
			searchScore++
		}
	}

	total := calcScore + searchScore
	if total == 0 {
		return RoutingResult{
			Tools:      []string{tools.ChatbotName},
			Confidence: 0.5,
			Reasoning:  "no strong keywords, defaulting to chatbot",
		}
	}

	if calcScore > searchScore {
		return RoutingResult{
			Tools:       []string{tools.CalculatorName},
			Confidence:  float64(calcScore) / float64(total),
			CalcScore:   calcScore,
			SearchScore: searchScore,
			Reasoning:   "query looks like arithmetic",
		}
	}

	return RoutingResult{
		Tools:       []string{tools.WebSearchName},
		Confidence:  float64(searchScore) / float64(total),
		CalcScore:   calcScore,
		SearchScore: searchScore,
		Reasoning:   "query asks for outside information",
	}
}
