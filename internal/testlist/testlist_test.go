package testlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testrig/internal/testcase"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseCaseEntry(t *testing.T) {
	assert.Equal(t, CaseEntry{Name: "hello"}, ParseCaseEntry("hello"))
	e := ParseCaseEntry(" login , login-lab2 ")
	assert.Equal(t, CaseEntry{Name: "login", SettingFile: "login-lab2"}, e)
	assert.Equal(t, "login,login-lab2", e.String())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "smoke.yaml")
	write(t, root, `
name: smoke
description: quick checks
cases:
  - hello_world
  - ""
  - login,login-lab2
sublists:
  - network/links.json
  - missing.yaml
  - broken.yaml
settings:
  run_type: sanity|regression
  priority_to_run: [1, 2]
  case_setting_path: settings
  follow_priority: true
`)
	write(t, filepath.Join(dir, "network", "links.json"), `{"cases": ["link_up"], "sublists": ["../smoke.yaml"]}`)
	write(t, filepath.Join(dir, "broken.yaml"), "cases: [unterminated")

	tl, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "smoke", tl.Name)
	assert.Equal(t, "quick checks", tl.Description)
	assert.Equal(t, []CaseEntry{{Name: "hello_world"}, {Name: "login", SettingFile: "login-lab2"}}, tl.Entries())
	assert.Equal(t, testcase.TypeSanity|testcase.TypeRegression, tl.Settings.RunType)
	assert.Equal(t, []int{1, 2}, tl.Settings.PriorityToRun)
	assert.True(t, tl.Settings.FollowPriority)
	assert.Equal(t, filepath.Join(dir, "settings"), tl.CaseSettingDir("fallback"))

	require.Len(t, tl.SubLists, 1, "missing and broken sub-lists are skipped")
	sub := tl.SubLists[0]
	assert.Equal(t, "links", sub.Name, "name defaults to the file name")
	assert.Empty(t, sub.SubLists, "a list cannot nest itself")
	assert.Equal(t, "fallback", sub.CaseSettingDir("fallback"))

	var walked [][]string
	tl.Walk(func(_ *TestList, path []string) { walked = append(walked, path) })
	assert.Equal(t, [][]string{{"smoke"}, {"smoke", "links"}}, walked)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "none.yaml"))
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.ErrorIs(t, err, ErrNotFound)

	bad := filepath.Join(dir, "bad.yaml")
	write(t, bad, "settings:\n  run_type: nightly\n")
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.Contains(t, err.Error(), "nightly")
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	sub := &TestList{Name: "sub", Cases: []string{"b"}, Path: filepath.Join(dir, "lists", "sub.yaml")}
	tl := &TestList{
		Name:     "main",
		Cases:    []string{"a", "c,c-lab"},
		Settings: Settings{RunType: testcase.TypeSystem, FollowPriority: true},
		Path:     filepath.Join(dir, "main.json"),
		SubLists: []*TestList{sub},
	}
	require.NoError(t, tl.Save())
	assert.Equal(t, []string{"lists/sub.yaml"}, tl.SubListPaths)

	loaded, err := Load(tl.Path)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.Name)
	assert.Equal(t, tl.Cases, loaded.Cases)
	assert.Equal(t, testcase.TypeSystem, loaded.Settings.RunType)
	require.Len(t, loaded.SubLists, 1)
	assert.Equal(t, []string{"b"}, loaded.SubLists[0].Cases)

	assert.Error(t, (&TestList{Name: "nowhere"}).Save())
}
