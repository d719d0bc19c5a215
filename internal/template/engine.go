package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Calls maps names usable as <func:name> to functions provided by a case.
type Calls map[string]func() (any, error)

// Engine substitutes test data values. Three forms are recognised inside
// strings:
//
//	{{ name }} or {{ .name }}   replaced by the variable's value
//	{{ upper .name }}           any other action, rendered with sprig functions
//	<func:name>                 replaced by the result of a registered call
//
// A string that consists of a single <func:name> is replaced by the call's
// result as is, so calls may return non-string values.
type Engine struct {
	// Pattern to match template variables like {{ variableName }}
	templatePattern *regexp.Regexp
	callPattern     *regexp.Regexp
	funcs           template.FuncMap
	calls           Calls
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		templatePattern: regexp.MustCompile(`\{\{\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`),
		callPattern:     regexp.MustCompile(`<func:\s*(.+?)\s*>`),
		funcs:           sprig.TxtFuncMap(),
	}
}

// WithCalls returns a copy of the engine that resolves <func:name> through
// calls.
func (e *Engine) WithCalls(calls Calls) *Engine {
	c := *e
	c.calls = calls
	return &c
}

// Replace replaces all template variables in a value with actual values from the context
func (e *Engine) Replace(value interface{}, context map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.replaceString(v, context)
	case map[string]interface{}:
		return e.replaceMapTemplates(v, context)
	case []interface{}:
		return e.replaceSliceTemplates(v, context)
	default:
		// Non-templatable types are returned as-is
		return value, nil
	}
}

func (e *Engine) replaceString(s string, context map[string]interface{}) (interface{}, error) {
	out, err := e.replaceStringTemplates(s, context)
	if err != nil {
		return nil, err
	}
	if strings.Contains(out, "{{") {
		if out, err = e.render(out, context); err != nil {
			return nil, err
		}
	}
	return e.replaceCalls(out)
}

// replaceStringTemplates replaces simple template variables in a string
func (e *Engine) replaceStringTemplates(tmpl string, context map[string]interface{}) (string, error) {
	var missingVars []string

	result := e.templatePattern.ReplaceAllStringFunc(tmpl, func(placeholder string) string {
		varName := e.templatePattern.FindStringSubmatch(placeholder)[1]
		replacement, exists := context[varName]
		if !exists {
			if _, isFunc := e.funcs[varName]; !isFunc {
				missingVars = append(missingVars, varName)
			}
			return placeholder
		}
		return toString(replacement)
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missingVars, ", "))
	}

	return result, nil
}

// render executes the remaining actions with text/template and sprig.
func (e *Engine) render(s string, context map[string]interface{}) (string, error) {
	t, err := template.New("value").Funcs(e.funcs).Option("missingkey=error").Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid template %q: %w", s, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, context); err != nil {
		return "", fmt.Errorf("failed to render %q: %w", s, err)
	}
	return b.String(), nil
}

func (e *Engine) replaceCalls(s string) (interface{}, error) {
	matches := e.callPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	// whole-string call keeps the returned type
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		return e.call(s[matches[0][2]:matches[0][3]])
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		v, err := e.call(s[m[2]:m[3]])
		if err != nil {
			return nil, err
		}
		b.WriteString(toString(v))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

func (e *Engine) call(name string) (interface{}, error) {
	fn, ok := e.calls[name]
	if !ok {
		return nil, fmt.Errorf("method %s not found", name)
	}
	v, err := fn()
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return v, nil
}

func toString(v interface{}) string {
	switch r := v.(type) {
	case string:
		return r
	case int, int32, int64:
		return fmt.Sprintf("%d", r)
	case float32, float64:
		return fmt.Sprintf("%v", r)
	case bool:
		return fmt.Sprintf("%t", r)
	default:
		return fmt.Sprintf("%v", r)
	}
}

// replaceMapTemplates recursively replaces templates in a map
func (e *Engine) replaceMapTemplates(m map[string]interface{}, context map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	for key, value := range m {
		replacedValue, err := e.Replace(value, context)
		if err != nil {
			return nil, fmt.Errorf("error in key '%s': %w", key, err)
		}
		result[key] = replacedValue
	}

	return result, nil
}

// replaceSliceTemplates recursively replaces templates in a slice
func (e *Engine) replaceSliceTemplates(s []interface{}, context map[string]interface{}) ([]interface{}, error) {
	result := make([]interface{}, len(s))

	for i, value := range s {
		replacedValue, err := e.Replace(value, context)
		if err != nil {
			return nil, fmt.Errorf("error at index %d: %w", i, err)
		}
		result[i] = replacedValue
	}

	return result, nil
}

// ExtractVariables returns the sorted names of all simple variables
// referenced in a value.
func (e *Engine) ExtractVariables(value interface{}) []string {
	variables := make(map[string]bool)
	e.extractVariablesRecursive(value, variables)

	result := make([]string, 0, len(variables))
	for varName := range variables {
		result = append(result, varName)
	}
	sort.Strings(result)
	return result
}

// MissingVariables returns the sorted names of simple variables referenced
// in value that are neither in context nor template functions.
func (e *Engine) MissingVariables(value interface{}, context map[string]interface{}) []string {
	var missing []string
	for _, name := range e.ExtractVariables(value) {
		if _, ok := context[name]; ok {
			continue
		}
		if _, isFunc := e.funcs[name]; isFunc {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// extractVariablesRecursive recursively extracts variables from any value type
func (e *Engine) extractVariablesRecursive(value interface{}, variables map[string]bool) {
	switch v := value.(type) {
	case string:
		matches := e.templatePattern.FindAllStringSubmatch(v, -1)
		for _, match := range matches {
			if len(match) >= 2 {
				variables[match[1]] = true
			}
		}
	case map[string]interface{}:
		for _, val := range v {
			e.extractVariablesRecursive(val, variables)
		}
	case []interface{}:
		for _, val := range v {
			e.extractVariablesRecursive(val, variables)
		}
	}
}
