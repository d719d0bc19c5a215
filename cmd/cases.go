package cmd

import (
	"fmt"

	"testrig/internal/config"
	"testrig/internal/testcase"

	"github.com/spf13/cobra"
)

var (
	casesType       string
	casesSettingDir string
)

func newCasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "List the registered test cases",
		Args:  cobra.NoArgs,
		RunE:  runCases,
	}
	cmd.Flags().StringVar(&casesType, "type", "", "Only show cases of these types, e.g. sanity|regression")

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "List the case settings files",
		Args:  cobra.NoArgs,
		RunE:  runCaseSettings,
	}
	resetCmd := &cobra.Command{
		Use:   "reset <setting>",
		Short: "Delete a case settings file so the next run writes the defaults again",
		Args:  cobra.ExactArgs(1),
		RunE:  runCaseReset,
	}
	for _, c := range []*cobra.Command{settingsCmd, resetCmd} {
		c.Flags().StringVar(&casesSettingDir, "setting-dir", "", "Case settings directory (default from config)")
	}
	cmd.AddCommand(settingsCmd, resetCmd)
	return cmd
}

func runCases(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	metas := env.cases.List()
	if casesType != "" {
		want, err := testcase.ParseTestType(casesType)
		if err != nil {
			return err
		}
		filtered := metas[:0]
		for _, m := range metas {
			if m.Type&want != 0 {
				filtered = append(filtered, m)
			}
		}
		metas = filtered
	}
	return env.out.Cases(metas)
}

// caseStorage opens the settings directory given by --setting-dir or the
// configured default.
func caseStorage(env *environment) *config.Storage {
	dir := casesSettingDir
	if dir == "" {
		dir = env.cfg.Runner.DefaultCaseSettingPath
	}
	return config.NewStorage(dir)
}

func runCaseSettings(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	storage := caseStorage(env)
	names, err := storage.List("")
	if err != nil {
		return err
	}
	return env.out.SettingFiles(storage.Root(), names)
}

func runCaseReset(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	storage := caseStorage(env)
	if err := storage.Delete("", args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed settings %s from %s\n", args[0], storage.Root())
	return nil
}
