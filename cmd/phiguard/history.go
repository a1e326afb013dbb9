package main

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

func historyCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Scans.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			renderHistory(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of scans to show (0 = all)")
	return cmd
}

func showCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show one scan with all findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.Scans.Get(cmd.Context(), domain.ScanID(args[0]))
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no scan with id %s", args[0])
			}
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func clearCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole scan history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				prompt := promptui.Prompt{
					Label:     "Delete all stored scans",
					IsConfirm: true,
				}
				if _, err := prompt.Run(); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), styleDim.Render("Aborted."))
					return nil
				}
			}

			a, err := setup(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Scans.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render("Scan history cleared."))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
