// Package template substitutes variables and case-provided calls in test
// data before each data-driven iteration.
//
// Values are walked recursively through maps and slices; only strings are
// changed. Simple {{ name }} placeholders are replaced from the variable
// map, richer actions are rendered by text/template with the sprig function
// library, and <func:name> markers call functions registered by the case.
package template
