package testlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"testrig/internal/testcase"
	"testrig/pkg/logging"
)

// ErrNotFound is wrapped by Error when the list file does not exist.
var ErrNotFound = errors.New("test list not found")

// Error reports a test list that could not be read or written.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("test list %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError reports whether err is a test list error.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Settings tune how the cases of a list run.
type Settings struct {
	// RunType is ANDed with each case's type; zero runs every type.
	RunType testcase.TestType `json:"run_type,omitempty"`

	// PriorityToRun restricts the run to these priorities when non-empty.
	PriorityToRun []int `json:"priority_to_run,omitempty"`

	// CaseSettingPath is where case settings files live. Relative paths
	// are taken from the list file's directory.
	CaseSettingPath string `json:"case_setting_path,omitempty"`

	// FollowPriority runs the list's cases by ascending priority number
	// instead of declared order.
	FollowPriority bool `json:"follow_priority,omitempty"`
}

// CaseEntry is one element of a list's cases, written "name[,setting file]".
type CaseEntry struct {
	Name        string
	SettingFile string
}

// ParseCaseEntry splits a cases element into the case name and its
// optional setting file.
func ParseCaseEntry(s string) CaseEntry {
	name, setting, _ := strings.Cut(s, ",")
	return CaseEntry{Name: strings.TrimSpace(name), SettingFile: strings.TrimSpace(setting)}
}

func (c CaseEntry) String() string {
	if c.SettingFile == "" {
		return c.Name
	}
	return c.Name + "," + c.SettingFile
}

// TestList is a named list of cases with optional nested lists.
type TestList struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Cases        []string `json:"cases,omitempty"`
	SubListPaths []string `json:"sublists,omitempty"`
	Settings     Settings `json:"settings"`

	// Path is the file the list was loaded from or is saved to.
	Path string `json:"-"`

	// SubLists holds the lists named in SubListPaths that loaded.
	SubLists []*TestList `json:"-"`
}

// Load reads a list file and its sub-lists. Sub-list paths are relative to
// the file's directory. A sub-list that fails to load, or that would nest a
// list inside itself, is logged and skipped.
func Load(path string) (*TestList, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return load(abs, map[string]bool{})
}

func load(path string, visiting map[string]bool) (*TestList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Path: path, Err: ErrNotFound}
		}
		return nil, &Error{Path: path, Err: err}
	}

	tl := &TestList{}
	if err := yaml.Unmarshal(data, tl); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	tl.Path = path
	if tl.Name == "" {
		tl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	visiting[path] = true
	defer delete(visiting, path)

	dir := filepath.Dir(path)
	for _, rel := range tl.SubListPaths {
		subPath := rel
		if !filepath.IsAbs(subPath) {
			subPath = filepath.Join(dir, rel)
		}
		if visiting[subPath] {
			logging.Warn("TestList", "Sub-list %s of %s nests a list inside itself, skipping", rel, path)
			continue
		}
		sub, err := load(subPath, visiting)
		if err != nil {
			logging.Warn("TestList", "Skipping sub-list %s of %s: %v", rel, path, err)
			continue
		}
		tl.SubLists = append(tl.SubLists, sub)
	}

	logging.Debug("TestList", "Loaded %s with %d cases and %d sub-lists", tl.Name, len(tl.Cases), len(tl.SubLists))
	return tl, nil
}

// Entries returns the parsed case entries, skipping blank elements.
func (tl *TestList) Entries() []CaseEntry {
	out := make([]CaseEntry, 0, len(tl.Cases))
	for _, c := range tl.Cases {
		if strings.TrimSpace(c) == "" {
			continue
		}
		out = append(out, ParseCaseEntry(c))
	}
	return out
}

// CaseSettingDir returns the list's case settings directory, or fallback
// when none is set.
func (tl *TestList) CaseSettingDir(fallback string) string {
	p := tl.Settings.CaseSettingPath
	if p == "" {
		return fallback
	}
	if filepath.IsAbs(p) || tl.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(tl.Path), p)
}

// Save writes the list and its loaded sub-lists. Sub-lists are saved first
// and referenced by their path relative to this list. Files ending in .yaml
// or .yml are written as YAML, everything else as indented JSON.
func (tl *TestList) Save() error {
	if tl.Path == "" {
		return &Error{Path: tl.Name, Err: errors.New("no path to save to")}
	}

	if len(tl.SubLists) > 0 {
		dir := filepath.Dir(tl.Path)
		paths := make([]string, 0, len(tl.SubLists))
		for _, sub := range tl.SubLists {
			if err := sub.Save(); err != nil {
				logging.Warn("TestList", "Could not save sub-list %s: %v", sub.Name, err)
				continue
			}
			rel, err := filepath.Rel(dir, sub.Path)
			if err != nil {
				rel = sub.Path
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		tl.SubListPaths = paths
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(tl.Path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(tl)
	default:
		data, err = json.MarshalIndent(tl, "", "    ")
	}
	if err != nil {
		return &Error{Path: tl.Path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(tl.Path), 0755); err != nil {
		return &Error{Path: tl.Path, Err: err}
	}
	if err := os.WriteFile(tl.Path, data, 0644); err != nil {
		return &Error{Path: tl.Path, Err: err}
	}
	return nil
}

// Walk calls fn for the list and every sub-list, depth first, with the
// chain of list names leading to each.
func (tl *TestList) Walk(fn func(tl *TestList, path []string)) {
	tl.walk(nil, fn)
}

func (tl *TestList) walk(parents []string, fn func(*TestList, []string)) {
	path := append(append([]string(nil), parents...), tl.Name)
	fn(tl, path)
	for _, sub := range tl.SubLists {
		sub.walk(path, fn)
	}
}
