package submission

import "strings"

// urgentKeywords are matched case-insensitively against the concern
// description. Any hit forces human review before delivery.
var urgentKeywords = []string{
	"suicide",
	"suicidal",
	"self-harm",
	"self harm",
	"kill himself",
	"kill herself",
	"kill themselves",
	"hurt himself",
	"hurt herself",
	"hurt themselves",
	"weapon",
	"gun",
	"knife",
	"abuse",
	"abused",
	"neglect",
	"violence",
	"threatened",
	"threatening",
}

// IsUrgent applies the urgency heuristic: an explicit urgent severity level,
// or a keyword match in the concern description.
func IsUrgent(severity Severity, description string) bool {
	if severity == SeverityUrgent {
		return true
	}
	lowered := strings.ToLower(description)
	for _, kw := range urgentKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
