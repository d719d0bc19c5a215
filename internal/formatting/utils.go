package formatting

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"sigs.k8s.io/yaml"

	"testrig/internal/reporter"
)

// PrettyJSON formats any value as indented JSON for human-readable display.
// It handles marshaling errors gracefully by falling back to fmt.Sprintf.
//
// Example:
//
//	data := map[string]interface{}{"name": "test", "value": 42}
//	fmt.Println(formatting.PrettyJSON(data))
//	// Output:
//	// {
//	//   "name": "test",
//	//   "value": 42
//	// }
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// PrettyYAML is PrettyJSON for YAML output. Field names follow the json tags.
func PrettyYAML(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// StatusColors maps result statuses to terminal colours.
func StatusColors(s reporter.Status) text.Colors {
	switch s {
	case reporter.StatusPass:
		return text.Colors{text.FgGreen}
	case reporter.StatusFail, reporter.StatusError:
		return text.Colors{text.FgRed, text.Bold}
	case reporter.StatusException:
		return text.Colors{text.FgMagenta, text.Bold}
	case reporter.StatusWarning, reporter.StatusStop:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
