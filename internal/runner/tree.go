package runner

import (
	"errors"
	"path/filepath"
	"sort"

	"testrig/internal/precondition"
	"testrig/internal/testcase"
	"testrig/internal/testlist"
	"testrig/pkg/logging"
)

// caseItem is a resolved entry of a test list.
type caseItem struct {
	meta       testcase.Meta
	factory    testcase.Factory
	entry      testlist.CaseEntry
	settingDir string
	logDir     string
}

// listItem mirrors a test list with its cases resolved against the registry.
type listItem struct {
	name     string
	settings precondition.Settings
	cases    []caseItem
	subs     []*listItem
}

// resolve builds the runtime tree for a list. Entries naming unregistered
// cases are left out; their errors are returned joined.
func (r *Runner) resolve(tl *testlist.TestList, parentLog string) (*listItem, error) {
	logDir := tl.Name
	if parentLog != "" {
		logDir = filepath.Join(parentLog, tl.Name)
	}

	li := &listItem{
		name: tl.Name,
		settings: precondition.Settings{
			RunType:       tl.Settings.RunType,
			PriorityToRun: tl.Settings.PriorityToRun,
		},
	}
	settingDir := tl.CaseSettingDir(r.cfg.Runner.DefaultCaseSettingPath)

	var errs []error
	for _, entry := range tl.Entries() {
		reg, ok := r.cases.Lookup(entry.Name)
		if !ok {
			err := &Error{Kind: KindCaseImport, Name: entry.Name, Err: errors.New("not registered")}
			logging.Error("CaseRunner", err, "Skipping case %s of list %s", entry.Name, tl.Name)
			errs = append(errs, err)
			continue
		}
		li.cases = append(li.cases, caseItem{
			meta:       reg.Meta,
			factory:    reg.Factory,
			entry:      entry,
			settingDir: settingDir,
			logDir:     logDir,
		})
	}

	if tl.Settings.FollowPriority {
		sort.SliceStable(li.cases, func(i, j int) bool {
			return li.cases[i].meta.Priority < li.cases[j].meta.Priority
		})
	}

	for _, sub := range tl.SubLists {
		subItem, err := r.resolve(sub, logDir)
		if err != nil {
			errs = append(errs, err)
		}
		li.subs = append(li.subs, subItem)
	}
	return li, errors.Join(errs...)
}

func (li *listItem) caseCount() int {
	n := len(li.cases)
	for _, sub := range li.subs {
		n += sub.caseCount()
	}
	return n
}
