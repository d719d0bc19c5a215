package template

import "maps"

// MergeContexts merges variable maps; later maps win.
func MergeContexts(contexts ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, ctx := range contexts {
		maps.Copy(result, ctx)
	}
	return result
}

// IterationContext is the variable map of one data-provider iteration: the
// case's variables plus "iteration" (1-based) and "header". Case variables
// of the same name take precedence.
func IterationContext(vars map[string]any, iteration int, header string) map[string]any {
	return MergeContexts(map[string]any{"iteration": iteration, "header": header}, vars)
}
