package recommend

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

var promptTemplate = template.Must(template.New("prompt").Parse(`You are an AI assistant designed to optimize sales pipelines by suggesting automation rules.

Analyze the provided lead attributes, historical data, and current pipeline stages to recommend automation rules that will improve pipeline efficiency.

Consider factors such as lead conversion rates, average time spent in each stage, and lead attributes that correlate with successful conversions.

Historical Data:
{{range .History}}- {{.}}
{{end}}
Lead Attributes:
{{.Lead}}

Current Pipeline Stages:
{{.Stages}}

Provide recommendations for each stage, including the trigger (number of days a lead has been in the stage), the action to take ("Move to Next Stage" or "Move to Global Stage") when the trigger is met, a confidence score between 0 and 1, and a brief rationale.

Respond with JSON only, shaped as:
{"recommendations":[{"stage":"<stage name>","triggerDays":<int>,"action":"Move to Next Stage","confidence":<0..1>,"rationale":"<text>"}]}
`))

type promptData struct {
	Lead    string
	History []string
	Stages  string
}

// BuildPrompt renders the instruction text sent to the model
func BuildPrompt(in Input) (string, error) {
	lead, err := json.Marshal(in.Lead)
	if err != nil {
		return "", fmt.Errorf("failed to encode lead: %w", err)
	}

	history := make([]string, 0, len(in.History))
	for _, l := range in.History {
		encoded, err := json.Marshal(l)
		if err != nil {
			return "", fmt.Errorf("failed to encode historical lead %s: %w", l.ID, err)
		}
		history = append(history, string(encoded))
	}

	var b strings.Builder
	err = promptTemplate.Execute(&b, promptData{
		Lead:    string(lead),
		History: history,
		Stages:  strings.Join(in.StageNames, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}
