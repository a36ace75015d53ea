package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	natsclient "github.com/capitalize-ai/covid-dashboard/internal/nats"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print the audit events recorded for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return errors.New("NATS_URL is not set")
		}

		ctx := cmd.Context()
		client, err := natsclient.Connect(ctx, natsConfig(), log)
		if err != nil {
			return err
		}
		defer client.Close()

		events, err := natsclient.NewStreamManager(client).SessionEvents(ctx, args[0], eventsLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for i := range events {
			if err := enc.Encode(&events[i]); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 100, "maximum number of events to read")
}
