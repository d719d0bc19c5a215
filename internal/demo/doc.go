// Package demo holds sample cases, modules and comm handles. They are wired
// into the CLI by Register and double as executable documentation of the
// case and module interfaces; the files under samples/ drive them.
package demo
