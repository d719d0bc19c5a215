// Package testlist reads and writes test list files.
//
// A list names the cases to run, optional nested lists and the settings
// that apply to its cases. Files are YAML or JSON:
//
//	name: smoke
//	cases:
//	  - hello_world
//	  - login,login-lab2
//	sublists:
//	  - network/links.yaml
//	settings:
//	  run_type: sanity|regression
//	  follow_priority: true
package testlist
