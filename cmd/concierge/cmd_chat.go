package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/spf13/cobra"
)

func newProvidersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect the provider catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List known LLM providers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDEFAULT MODEL\tENDPOINT")
			for _, p := range a.Session.Providers() {
				endpoint := p.EndpointURL
				if p.IsCustom() {
					endpoint = dimText("(your --api-url)")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, orDash(p.DefaultModel), endpoint)
			}
			return w.Flush()
		},
	})
	return cmd
}

func newSendCmd(flags *globalFlags) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "send <message>...",
		Short: "Send a message to the current assistant (or --to)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			id := to
			if id == "" {
				id = a.Session.Current().ID
			}

			exchange, err := a.Session.Send(contextOf(cmd), id, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if exchange.Outcome.OK() {
				fmt.Fprintln(cmd.OutOrStdout(), exchange.Reply.Content)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), warnText(exchange.Reply.Content))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "assistant id (defaults to the current assistant)")
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit        int
		clearHistory bool
	)

	cmd := &cobra.Command{
		Use:   "history [assistant-id]",
		Short: "Show an assistant's conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			id := a.Session.Current().ID
			if len(args) == 1 {
				id = args[0]
			}

			if clearHistory {
				if err := a.Session.ClearMessages(contextOf(cmd), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared conversation with %s\n", okMark, id)
				return nil
			}

			messages, err := a.Session.Messages(contextOf(cmd), id)
			if err != nil {
				return err
			}
			if limit > 0 && len(messages) > limit {
				messages = messages[len(messages)-limit:]
			}
			if len(messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dimText("No messages yet."))
				return nil
			}

			out := cmd.OutOrStdout()
			for _, m := range messages {
				who := bold("you")
				if m.Sender == domain.SenderAssistant {
					who = bold(id)
				}
				fmt.Fprintf(out, "%s %s\n%s\n\n", who, dimText(m.Timestamp.Local().Format("2006-01-02 15:04")), m.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last N messages")
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "delete the conversation instead of showing it")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
