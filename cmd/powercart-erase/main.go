// Command powercart-erase erases save games on an insideGadgets multi-game
// power cart through a GBxCart RW.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	powercart "github.com/tocurd/go-powercart"
	"github.com/tocurd/go-powercart/internal/logger"
)

type options struct {
	cfg     powercart.Config
	slot    int
	all     bool
	yes     bool
	verbose bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := options{cfg: powercart.DefaultConfig()}

	cmd := &cobra.Command{
		Use:           "powercart-erase",
		Short:         "Erase multi-game cart save games",
		Long:          "GBxCart RW - insideGadgets Power Cart: erase multi-game save games.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd, opts)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.cfg.Port, "port", "p", "", "serial device (detected when empty)")
	f.IntVar(&opts.cfg.Baud, "baud", opts.cfg.Baud, "initial baud rate")
	f.IntVar(&opts.cfg.MaxRetries, "retries", opts.cfg.MaxRetries, "maximum partial read restarts per region, 0 for no limit")
	f.DurationVar(&opts.cfg.AckTimeout, "ack-timeout", opts.cfg.AckTimeout, "time to wait for a write acknowledgement")
	f.IntVarP(&opts.slot, "slot", "s", 0, "slot to erase (1-7)")
	f.BoolVarP(&opts.all, "all", "a", false, "erase every slot")
	f.BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "echo the log")
	cmd.MarkFlagsMutuallyExclusive("slot", "all")

	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	out := cmd.OutOrStdout()
	if opts.verbose {
		logger.SetEcho(cmd.ErrOrStderr())
	}
	if opts.slot != 0 && (opts.slot < 1 || opts.slot > powercart.MaxSlots) {
		return fmt.Errorf("%w: %d", powercart.ErrSlotRange, opts.slot)
	}

	session, err := powercart.Open(opts.cfg)
	if err != nil {
		return err
	}
	defer session.Close()
	fmt.Fprintf(out, "Connected at %d baud\n", session.Baud)
	fmt.Fprintf(out, "PCB version: %s, Firmware version: %d\n", session.PCB, session.Firmware)

	prompt := newPrompter(cmd.InOrStdin(), out)
	engine, err := powercart.NewEngine(session, powercart.Options{
		Confirm: func(req powercart.ConfirmRequest) bool {
			if opts.yes {
				return true
			}
			return prompt.confirm(req)
		},
	})
	if err != nil {
		return err
	}

	all, slot := opts.all, opts.slot
	if !all && slot == 0 {
		all, slot, err = chooseSlot(engine, prompt)
		if err != nil {
			return err
		}
	}

	bar := &progressBar{out: out}
	if all {
		results, err := engine.EraseAll(bar.update)
		bar.finish()
		for _, r := range results {
			fmt.Fprintf(out, "%d: %s\n", r.Slot.Index, describe(r))
		}
		return recoverOnError(engine, err)
	}

	r, err := engine.EraseSlot(slot, bar.update)
	bar.finish()
	if err != nil {
		return recoverOnError(engine, err)
	}
	fmt.Fprintf(out, "%s\n", describe(r))
	return nil
}

// chooseSlot lists the erasable slots and asks the operator for one.
func chooseSlot(engine *powercart.Engine, prompt *prompter) (all bool, slot int, err error) {
	list, err := engine.ListCandidates()
	if err != nil {
		return false, 0, err
	}
	if len(list) == 0 {
		return false, 0, errors.New("no game on this cart has save RAM")
	}

	fmt.Fprintln(prompt.out, "\nPlease select a game slot to erase or enter \"a\" for all slots:")
	for _, c := range list {
		fmt.Fprintf(prompt.out, "%d: %s\n", c.Slot.Index, c.Title)
	}
	return prompt.slot()
}

func describe(r powercart.Result) string {
	title := ""
	if r.Info != nil {
		title = r.Info.Title + ": "
	}
	if r.Outcome == powercart.OutcomeErased {
		return fmt.Sprintf("%sfinished, %d bytes erased", title, r.Erased)
	}
	return title + r.Outcome.String()
}

// recoverOnError tries to leave the cart in its menu state after a failed
// erase.
func recoverOnError(engine *powercart.Engine, err error) error {
	if err == nil {
		return nil
	}
	if rerr := engine.Recover(); rerr != nil {
		return errors.Join(err, fmt.Errorf("recovery failed: %w", rerr))
	}
	return err
}
