package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/concierge/internal/config"
	"github.com/felixgeelhaar/concierge/internal/events"
	"github.com/spf13/cobra"
)

func newEventsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect dispatch events published to the broker",
	}

	var asJSON bool
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Consume and print dispatch events until interrupted",
		Long: `Consume dispatch events from the configured AMQP queue and print them.
Consumed events are acknowledged and leave the queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadLocalConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Events.Enabled() {
				return fmt.Errorf("no broker configured: set events.amqp_url or CONCIERGE_EVENTS_BROKER_URL")
			}

			logger := cliLogger(cmd.ErrOrStderr(), flags)
			conn, err := events.NewConnection(cfg.Events.BrokerURL, cfg.Events.Queue, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			handler := func(ctx context.Context, ev events.DispatchEvent) error {
				if asJSON {
					return json.NewEncoder(out).Encode(ev)
				}
				mark := okMark
				if ev.Kind != "success" {
					mark = failMark
				}
				fmt.Fprintf(out, "%s %s %-12s %-10s %-20s %4dms %s\n",
					mark,
					dimText(ev.CreatedAt.Local().Format("15:04:05")),
					ev.AssistantID,
					orDash(ev.Provider),
					ev.Kind,
					ev.DurationMS,
					statusText(ev.Status),
				)
				return nil
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s (Ctrl+C to stop)\n", conn.Queue())
			err = events.NewSubscriber(conn, handler, 0, logger).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	tail.Flags().BoolVar(&asJSON, "json", false, "print raw JSON events")

	cmd.AddCommand(tail)
	return cmd
}

func statusText(status int) string {
	if status == 0 {
		return ""
	}
	return fmt.Sprintf("HTTP %d", status)
}
