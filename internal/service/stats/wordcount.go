package stats

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// recognizedTextFields are the keys that carry user-written text inside a
// journal entry's structured content.
var recognizedTextFields = []string{"answer", "text", "content", "response"}

// CountContentWords counts the words across all recognized text fields in a
// journal entry's content payload. Content is either a single object or a
// list of objects; anything else counts as zero.
func CountContentWords(content datatypes.JSON) int {
	if len(content) == 0 {
		return 0
	}

	var obj map[string]any
	if err := json.Unmarshal(content, &obj); err == nil {
		return countObjectWords(obj)
	}

	var list []map[string]any
	if err := json.Unmarshal(content, &list); err == nil {
		total := 0
		for _, item := range list {
			total += countObjectWords(item)
		}
		return total
	}

	return 0
}

func countObjectWords(obj map[string]any) int {
	total := 0
	for _, field := range recognizedTextFields {
		if v, ok := obj[field]; ok {
			if s, ok := v.(string); ok {
				total += len(strings.Fields(s))
			}
		}
	}
	return total
}
