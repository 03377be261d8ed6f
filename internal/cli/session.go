package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"donation_backend/internal/amount"
	"donation_backend/internal/card"
	"donation_backend/internal/config"
	"donation_backend/internal/domain"
	"donation_backend/internal/location"
	"donation_backend/internal/session"
)

func newPresetsCmd(open appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the preset donation amounts",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(cmd *cobra.Command, args []string, a *app) error {
			sel := amount.NewSelector(a.cfg.Presets, config.DefaultPreset)
			out := cmd.OutOrStdout()
			for _, p := range sel.Presets() {
				mark := " "
				if sel.Selected(p) {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-12s (--preset %d)\n", mark, amount.FormatIDR(p), p)
			}
			return nil
		}),
	}
}

func newCreateCmd(open appFactory) *cobra.Command {
	var (
		preset int64
		custom string
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a donation QR and follow it",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(cmd *cobra.Command, args []string, a *app) error {
			sel := amount.NewSelector(a.cfg.Presets, config.DefaultPreset)
			if cmd.Flags().Changed("preset") {
				sel.SelectPreset(preset)
			}
			sel.SetCustom(custom)
			if !sel.CanCreate() {
				return fmt.Errorf("invalid amount %q: %w", sel.Custom(), domain.ErrInvalidAmount)
			}

			ctx := cmd.Context()
			ctrl, loc, err := a.controller(ctx, a.cfg.PageURL, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Create(ctx, sel.Effective()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Halaman donasi:", loc.String())
			return a.follow(ctx, ctrl, cmd.OutOrStdout(), follow)
		}),
	}

	cmd.Flags().Int64Var(&preset, "preset", config.DefaultPreset, "Preset amount in rupiah")
	cmd.Flags().StringVar(&custom, "amount", "", "Custom amount, overrides --preset")
	cmd.Flags().BoolVar(&follow, "follow", true, "Keep rendering until paid or expired")
	return cmd
}

func newResumeCmd(open appFactory) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "resume <paymentId|page-url>",
		Short: "Resume a donation from its payment id or page URL",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(open, func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			ctrl, done, err := a.mount(ctx, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer ctrl.Close()

			out := cmd.OutOrStdout()
			// a cached copy is followed right away; otherwise wait for the server
			if cached := !ctrl.Snapshot().Session.IsZero(); !cached || !follow {
				if !cached {
					fmt.Fprintln(out, "Memuat", location.PaymentIDFrom(args[0], config.PaymentIDParam), "...")
				}
				select {
				case <-done:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			if ctrl.Snapshot().Session.IsZero() {
				return fmt.Errorf("payment %s: %w", args[0], domain.ErrNotFound)
			}
			return a.follow(ctx, ctrl, out, follow)
		}),
	}

	cmd.Flags().BoolVar(&follow, "follow", true, "Keep rendering until paid or expired")
	return cmd
}

func newResetCmd(open appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <paymentId|page-url>",
		Short: "Forget a donation and print the clean page URL",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(open, func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			ctrl, _, err := a.mount(ctx, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer ctrl.Close()

			// the cached copy is enough to know what to drop
			ctrl.Reset(ctx)

			fmt.Fprintln(cmd.OutOrStdout(), "Halaman donasi:", a.pageFor(args[0]))
			return nil
		}),
	}
}

func newShowCmd(open appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "show <paymentId>",
		Short: "Show the locally cached copy of a donation",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(open, func(cmd *cobra.Command, args []string, a *app) error {
			id := location.PaymentIDFrom(args[0], config.PaymentIDParam)
			entry, ok := a.local.Read(cmd.Context(), id)
			if !ok {
				return fmt.Errorf("payment %s not cached: %w", id, domain.ErrNotFound)
			}
			out := cmd.OutOrStdout()
			printCard(out, a.renderer.Render(entry.Session, time.Now()))
			fmt.Fprintln(out, "Disimpan:", entry.SavedAt.Local().Format("02/01/06 15.04.05"))
			return nil
		}),
	}
}

// mount builds a controller on the page named by arg and restores the
// payment it carries. The cached copy is in place on return; done closes
// once the server has answered.
func (a *app) mount(ctx context.Context, arg string, errOut io.Writer) (*session.Controller, <-chan struct{}, error) {
	id := location.PaymentIDFrom(arg, config.PaymentIDParam)
	if id == "" {
		return nil, nil, errors.New("no payment id in " + arg)
	}

	ctrl, loc, err := a.controller(ctx, a.pageFor(arg), errOut)
	if err != nil {
		return nil, nil, err
	}
	loc.ReplacePaymentID(id)
	return ctrl, ctrl.Mount(ctx), nil
}

// pageFor returns arg when it is a page URL and the configured page
// otherwise, without a payment id.
func (a *app) pageFor(arg string) string {
	raw := a.cfg.PageURL
	if location.PaymentIDFrom(arg, config.PaymentIDParam) != arg {
		raw = arg
	}
	loc, err := location.Parse(raw, config.PaymentIDParam)
	if err != nil {
		return raw
	}
	loc.ReplacePaymentID("")
	return loc.String()
}

// follow renders the card every second until the donation is paid or
// expired, or ctx ends. With keep false it renders once.
func (a *app) follow(ctx context.Context, ctrl *session.Controller, out io.Writer, keep bool) error {
	if !keep {
		printCard(out, a.renderer.Render(ctrl.Snapshot().Session, time.Now()))
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var last card.Card
	first := true
	a.renderer.Countdown(ctx, config.CountdownInterval,
		func() domain.PaymentSession { return ctrl.Snapshot().Session },
		func(c card.Card) {
			if first || c.Label != last.Label {
				printCard(out, c)
				if first && ctrl.Snapshot().Loading {
					fmt.Fprintln(out, "  Status     : memuat status terbaru...")
				}
				first = false
			} else {
				printTick(out, c)
			}
			last = c
			if c.Label != card.LabelPending {
				cancel()
			}
		},
	)

	switch last.Label {
	case card.LabelPaid:
		fmt.Fprintln(out, "Terima kasih! Donasi", last.Amount, "sudah diterima.")
	case card.LabelExpired:
		fmt.Fprintln(out, "QR sudah kedaluwarsa. Buat QR baru dengan: donasi create")
	}
	return nil
}
