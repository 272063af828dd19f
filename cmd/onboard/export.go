package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joelkehle/macro-onboarding/internal/onboarding"
	"github.com/joelkehle/macro-onboarding/internal/store"
)

var exportProfile bool

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Print the export of a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		backends, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer backends.Close()

		id := args[0]
		var export onboarding.Export
		if exportProfile {
			export, err = backends.Profiles.GetProfile(ctx, id)
		} else {
			var rec store.Record
			rec, err = backends.Sessions.Get(ctx, id)
			export = onboarding.FormatExport(rec.Session.Data)
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("session %s not found", id)
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(export)
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportProfile, "profile", false, "read the saved profile of a completed session instead of the live session")
	rootCmd.AddCommand(exportCmd)
}
