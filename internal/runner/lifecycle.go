package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"testrig/internal/config"
	"testrig/internal/module"
	"testrig/internal/precondition"
	"testrig/internal/reporter"
	"testrig/internal/resource"
	"testrig/internal/testcase"
	"testrig/pkg/logging"
)

func (r *Runner) runList(ctx context.Context, li *listItem) {
	scope := r.reporter.AddList(li.name)
	defer scope.End()

	for _, ci := range li.cases {
		if ctx.Err() != nil {
			r.logger.Warn("Run cancelled, skipping remaining cases", "list", li.name)
			return
		}
		r.runItem(ctx, li, ci)
	}
	for _, sub := range li.subs {
		if ctx.Err() != nil {
			return
		}
		r.runList(ctx, sub)
	}
}

// runItem prepares one case, with its settings and log file, and runs its
// lifecycle. A case that cannot be built or configured is recorded as an
// exception and the list moves on.
func (r *Runner) runItem(ctx context.Context, li *listItem, ci caseItem) {
	name := ci.meta.Name

	if closer := r.attachCaseLogger(ci); closer != nil {
		defer func() {
			r.reporter.SetCaseLogger(nil)
			if err := closer.Close(); err != nil {
				logging.Warn("CaseRunner", "Closing log of %s: %v", name, err)
			}
		}()
	}

	r.ledger.Begin(name, ci.meta.Priority)

	var c testcase.Case
	err := testcase.Protect(func() error {
		if c = ci.factory(r.reporter); c == nil {
			return fmt.Errorf("factory returned no case")
		}
		return nil
	})
	if err != nil {
		r.caseFailed(ctx, ci.meta, "Cannot create "+name, &Error{Kind: KindCaseImport, Name: name, Err: err})
		return
	}

	if cfg, ok := c.(testcase.Configurable); ok {
		settingName := ci.entry.SettingFile
		if settingName == "" {
			settingName = name
		}
		err := testcase.Protect(func() error {
			return config.NewStorage(ci.settingDir).LoadOrInit("", settingName, cfg.Settings())
		})
		if err != nil {
			r.caseFailed(ctx, ci.meta, fmt.Sprintf("Settings of %s cannot be loaded", name), err)
			return
		}
	}

	r.runCaseLCM(ctx, li.settings, ci.meta, c)
}

// caseFailed records a case that never reached its lifecycle.
func (r *Runner) caseFailed(ctx context.Context, meta testcase.Meta, headline string, err error) {
	logging.Error("CaseRunner", err, "Case %s not run", meta.Name)
	scope := r.reporter.AddTest(meta.Name)
	defer scope.End()
	if werr := r.reporter.AddContext(ctx, reporter.StatusException, headline, err.Error()); werr != nil {
		r.logger.Warn("Halt wait aborted", "case", meta.Name, "error", werr)
	}
}

func (r *Runner) attachCaseLogger(ci caseItem) io.Closer {
	dir := r.CaseLogDir()
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, ci.logDir, ci.meta.Name+".log")
	l, closer, err := logging.NewFileLogger(path, r.logLevel)
	if err != nil {
		r.logger.Warn("Cannot open case log", "case", ci.meta.Name, "error", err)
		return nil
	}
	r.reporter.SetCaseLogger(l.With("case", ci.meta.Name))
	return closer
}

// runCaseLCM gates a case with its precondition chain and runs it between
// the module phases.
func (r *Runner) runCaseLCM(ctx context.Context, settings precondition.Settings, meta testcase.Meta, c testcase.Case) {
	chain := precondition.NewChain(settings, meta, r.ledger)
	if ok, failed := chain.IsMet(meta, r.reporter); !ok {
		r.reporter.Add(reporter.StatusInfo, meta.Name+" cannot run", "")
		r.logger.Info("Case skipped", "case", meta.Name, "precondition", failed.Description())
		return
	}

	if err := r.modules.RunModule(ctx, module.PhasePre); err != nil {
		r.logger.Warn("PRE modules failed", "case", meta.Name, "error", err)
	}
	if err := r.modules.RunModule(ctx, module.PhaseParallel); err != nil {
		r.logger.Warn("PARALLEL modules failed to start", "case", meta.Name, "error", err)
	}

	r.runCase(ctx, meta, c)

	if err := r.modules.StopModule(); err != nil {
		r.logger.Warn("PARALLEL modules failed", "case", meta.Name, "error", err)
	}
	if err := r.modules.RunModule(ctx, module.PhasePost); err != nil {
		r.logger.Warn("POST modules failed", "case", meta.Name, "error", err)
	}
}

// runCase runs the case body. A failing step skips the remaining body
// steps; cleanup always runs. The ledger result is whether the case node
// ended as PASS.
func (r *Runner) runCase(ctx context.Context, meta testcase.Meta, c testcase.Case) {
	scope := r.reporter.AddTest(meta.Name)
	defer scope.End()

	pool := r.Pool()
	ok := r.step(ctx, "Collect resources", func() error { return c.CollectResource(pool) })
	if ok {
		ok = r.step(ctx, "SETUP", func() error { return c.Setup(ctx) })
	}
	if ok {
		r.step(ctx, "TEST", func() error { return c.Test(ctx) })
	}
	r.step(ctx, "CLEANUP", func() error { return c.Cleanup(ctx) })

	status := scope.Status()
	r.ledger.Finish(meta.Name, status == reporter.StatusPass)
	r.logger.Info("Case finished", "case", meta.Name, "status", status.String())
}

// step runs fn inside a step group and records an error or panic as an
// EXCEPTION step. It reports whether fn succeeded.
func (r *Runner) step(ctx context.Context, name string, fn func() error) bool {
	group := r.reporter.AddStepGroup(name)
	defer group.End()

	err := testcase.Protect(fn)
	if err == nil {
		return true
	}

	headline := "Exception caught"
	switch {
	case resource.IsKind(err, resource.KindNotMeetConstraint):
		headline = "Resources do not meet constraints"
	case testcase.IsPanic(err):
		headline = "Panic caught"
	}
	if werr := r.reporter.AddContext(ctx, reporter.StatusException, headline, err.Error()); werr != nil {
		r.logger.Warn("Halt wait aborted", "step", name, "error", werr)
	}
	return false
}
