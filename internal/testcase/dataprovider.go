package testcase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"testrig/internal/reporter"
	"testrig/internal/template"
	"testrig/pkg/logging"
)

// IterationFunc runs one data-driven iteration with its substituted entry.
type IterationFunc func(ctx context.Context, data map[string]any) error

// DataProvider drives a test body once per entry of a data file. The file is
// YAML or JSON with a top-level "data" list:
//
//	data:
//	  - header: login as admin
//	    user: "{{ user }}"
//	    token: <func:token>
//
// Each entry runs in its own step group, named by its "header" field or
// "Iteration N" when the field is absent.
type DataProvider struct {
	File string

	// Vars are substituted into {{ name }} placeholders.
	Vars map[string]any

	// Calls resolve <func:name> markers.
	Calls template.Calls

	// StopOnError aborts on the first failing iteration. Otherwise the
	// failure is recorded as an exception step and the next entry runs.
	StopOnError bool
}

type dataFile struct {
	Data []map[string]any `json:"data"`
}

// ErrDataFileNotFound is returned when a data provider's file is missing.
var ErrDataFileNotFound = errors.New("test data file not found")

// LoadData reads the entries of a data file.
func LoadData(path string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrDataFileNotFound)
		}
		return nil, fmt.Errorf("failed to read data file %s: %w", path, err)
	}
	var df dataFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return df.Data, nil
}

// Run loads the data file and calls fn for every entry. With StopOnError
// the first iteration error is returned; otherwise Run returns nil once all
// entries have been tried.
func (dp DataProvider) Run(ctx context.Context, rep *reporter.Reporter, fn IterationFunc) error {
	entries, err := LoadData(dp.File)
	if err != nil {
		return err
	}

	engine := template.New().WithCalls(dp.Calls)
	if err := dp.checkVariables(engine, entries); err != nil {
		return err
	}
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		header := fmt.Sprintf("Iteration %d", i+1)
		if h, ok := entry["header"].(string); ok && h != "" {
			header = h
		}
		vars := template.IterationContext(dp.Vars, i+1, header)
		if err := dp.iterate(ctx, rep, engine, header, entry, vars, fn); err != nil {
			return fmt.Errorf("%s: %w", header, err)
		}
	}
	return nil
}

// checkVariables looks for placeholders no iteration can resolve. With
// StopOnError they fail the run before the first entry; otherwise they are
// logged and the affected entries fail one by one.
func (dp DataProvider) checkVariables(engine *template.Engine, entries []map[string]any) error {
	values := make([]any, len(entries))
	for i, entry := range entries {
		values[i] = entry
	}
	missing := engine.MissingVariables(values, template.IterationContext(dp.Vars, 0, ""))
	if len(missing) == 0 {
		return nil
	}
	if dp.StopOnError {
		return fmt.Errorf("data file %s uses undefined variables: %s", dp.File, strings.Join(missing, ", "))
	}
	logging.Warn("DataProvider", "Data file %s uses undefined variables: %s", dp.File, strings.Join(missing, ", "))
	return nil
}

// iterate runs one entry inside its own step group. Failures are recorded
// in the group and swallowed unless StopOnError is set.
func (dp DataProvider) iterate(ctx context.Context, rep *reporter.Reporter, engine *template.Engine, header string, entry, vars map[string]any, fn IterationFunc) error {
	scope := rep.AddStepGroup(header)
	defer scope.End()

	err := Protect(func() error {
		replaced, err := engine.Replace(entry, vars)
		if err != nil {
			return err
		}
		return fn(ctx, replaced.(map[string]any))
	})
	if err == nil || dp.StopOnError {
		return err
	}
	logging.Warn("DataProvider", "Iteration %q failed: %v", header, err)
	rep.Add(reporter.StatusException, "Exception on "+header, err.Error())
	return nil
}

// PanicError carries a value recovered from a panicking case or module.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Protect calls fn and turns a panic into a *PanicError.
func Protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}

// IsPanic reports whether err came from a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
