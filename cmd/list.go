package cmd

import (
	"testrig/internal/module"
	"testrig/internal/testlist"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Inspect test lists and module lists",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <test-list>",
			Short: "Show a test list and its sub-lists",
			Args:  cobra.ExactArgs(1),
			RunE:  runListShow,
		},
		&cobra.Command{
			Use:   "modules [module-list]",
			Short: "Show a module list (default from config)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runListModules,
		},
	)
	return cmd
}

func runListShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	tl, err := testlist.Load(args[0])
	if err != nil {
		return err
	}
	return env.out.TestList(tl)
}

func runListModules(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	path := env.cfg.Modules.ListFile
	if len(args) == 1 {
		path = args[0]
	}

	mgr := module.NewManager(env.modules)
	if path != "" {
		if err := mgr.Load(path); err != nil {
			return err
		}
	}

	phases := make(map[string]module.Phase)
	for _, name := range env.modules.Names() {
		if f, ok := env.modules.Lookup(name); ok {
			phases[name] = f().Phase()
		}
	}
	return env.out.Modules(mgr.Entries(), phases)
}
