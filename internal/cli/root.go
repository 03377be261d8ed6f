package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd(open appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "donasi",
		Short: "Donasi - QRIS donation client",
		Long: `donasi creates QRIS donation codes through the donation backend and follows
them until they are paid or expire.

Sessions are cached locally and can be resumed by payment id or page URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newPresetsCmd(open))
	root.AddCommand(newCreateCmd(open))
	root.AddCommand(newResumeCmd(open))
	root.AddCommand(newResetCmd(open))
	root.AddCommand(newShowCmd(open))
	return root
}

// Execute runs the root command. Ctrl-C tears the active session down.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(openApp)
	root.Version = version
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// withApp opens the app for the duration of one command.
func withApp(open appFactory, run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}
