package registry

import (
	"fmt"
	"strings"
	"text/template"
)

const inputParam = "input"

func proxySystemPrompt(name, description string) string {
	return fmt.Sprintf("You are a specialized tool named '%s'. %s. Respond with the final result only, no preamble.",
		name, strings.TrimSuffix(strings.TrimSpace(description), "."))
}

const codeRunnerSystemPrompt = `You are "ToolRunner", a deterministic Go interpreter that executes one function in your reasoning space.

RULES
1. Read TOOL NAME, TOOL DESCRIPTION, TOOL SOURCE CODE and INPUT TO THE FUNCTION exactly as provided; do not modify them.
2. Mentally evaluate the source on the input under Go 1.24 semantics.
3. Treat context.Context arguments as live and never cancelled.
4. Return ONLY the function's return value as plain text, with no commentary or formatting.
5. If execution would return an error or panic, return the error text only.`

var codeRunnerPrompt = template.Must(template.New("code_runner").Parse(`TOOL NAME
{{.Name}}

TOOL DESCRIPTION
{{.Description}}

TOOL SOURCE CODE
` + "```go" + `
{{.Code}}
` + "```" + `

INPUT TO THE FUNCTION
{{.Input}}

BEGIN EXECUTION NOW. RETURN SINGLE RESULT STRING ONLY`))

func renderCodeRunnerPrompt(name, description, code, input string) (string, error) {
	var b strings.Builder
	err := codeRunnerPrompt.Execute(&b, struct {
		Name, Description, Code, Input string
	}{name, description, code, input})
	return b.String(), err
}
