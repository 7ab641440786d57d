package agent

import (
	"encoding/json"
	"fmt"
)

// The user prompt carries the configured instructions, the previous chunk's
// accepted response, and the total input size; the current fragment is
// appended by the gateway.
var userPromptTemplate = `%s

# Previous Context
` + "```json\n%s\n```" + `

# Document Size
The full document is %d characters; the current fragment follows.`

func buildUserPrompt(userPrompt string, runContext any, totalSize int) string {
	contextJSON := "null"
	if runContext != nil {
		if b, err := json.Marshal(runContext); err == nil {
			contextJSON = string(b)
		}
	}
	return fmt.Sprintf(userPromptTemplate, userPrompt, contextJSON, totalSize)
}
