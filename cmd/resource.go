package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testrig/internal/resource"

	"github.com/spf13/cobra"
)

var (
	resourceOwner    string
	resourceDebounce time.Duration
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Inspect and reserve resource files",
		Long: `Resource files describe the devices of a lab, their ports and how they
are cabled. A file can be reserved by one owner at a time; the reservation is
advisory and recorded in the file itself.`,
	}
	cmd.PersistentFlags().StringVar(&resourceOwner, "owner", "", "Reservation owner (default from config)")

	watch := &cobra.Command{
		Use:   "watch <file>",
		Short: "Print reservation changes of a resource file until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE:  runResourceWatch,
	}
	watch.Flags().DurationVar(&resourceDebounce, "debounce", 200*time.Millisecond, "Quiet period before a change is reported")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <file>",
			Short: "List the devices of a resource file",
			Args:  cobra.ExactArgs(1),
			RunE:  runResourceShow,
		},
		&cobra.Command{
			Use:   "reserve <file>",
			Short: "Reserve a resource file",
			Args:  cobra.ExactArgs(1),
			RunE:  runResourceReserve,
		},
		&cobra.Command{
			Use:   "release <file>",
			Short: "Release a resource file reserved by this owner",
			Args:  cobra.ExactArgs(1),
			RunE:  runResourceRelease,
		},
		watch,
	)
	return cmd
}

func (e *environment) owner() string {
	if resourceOwner != "" {
		return resourceOwner
	}
	return e.cfg.Resource.Owner
}

func runResourceShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	// showing is read-only, so load on behalf of whoever holds the file
	owner := env.owner()
	if res, err := resource.ReadReservation(args[0]); err != nil {
		return err
	} else if res != nil {
		owner = res.Owner
	}

	pool := resource.NewPool()
	if err := pool.Load(args[0], owner); err != nil {
		return err
	}
	return env.out.Devices(pool.Devices(), pool.Reservation())
}

func runResourceReserve(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	pool := resource.NewPool()
	if err := pool.Load(args[0], env.owner()); err != nil {
		return err
	}
	if err := pool.Reserve(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reserved %s for %s\n", args[0], env.owner())
	return nil
}

func runResourceRelease(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	pool := resource.NewPool()
	if err := pool.Load(args[0], env.owner()); err != nil {
		return err
	}
	if err := pool.Release(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Released %s\n", args[0])
	return nil
}

func runResourceWatch(cmd *cobra.Command, args []string) error {
	if _, err := loadEnvironment(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan resource.ReservationEvent, 8)
	w := resource.NewWatcher(args[0], resourceDebounce)
	if err := w.Start(ctx, events); err != nil {
		return err
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s\n", args[0])
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			stamp := ev.Timestamp.Format(time.TimeOnly)
			switch {
			case ev.Err != nil:
				fmt.Fprintf(out, "%s error: %v\n", stamp, ev.Err)
			case ev.Reserved == nil:
				fmt.Fprintf(out, "%s released\n", stamp)
			default:
				fmt.Fprintf(out, "%s reserved by %s at %s\n", stamp, ev.Reserved.Owner, ev.Reserved.Timestamp)
			}
		}
	}
}
