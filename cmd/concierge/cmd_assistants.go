package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/spf13/cobra"
)

func newAssistantsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assistants",
		Aliases: []string{"assistant", "a"},
		Short:   "Manage assistants",
	}

	cmd.AddCommand(
		newAssistantsListCmd(flags),
		newAssistantsAddCmd(flags),
		newAssistantsRenameCmd(flags),
		newAssistantsPinCmd(flags, true),
		newAssistantsPinCmd(flags, false),
		newAssistantsRemoveCmd(flags),
		newAssistantsSelectCmd(flags),
	)
	return cmd
}

func newAssistantsListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List assistants, pinned first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			current := a.Session.Current().ID
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, " \tID\tNAME\tPINNED\tOVERRIDE")
			for _, as := range a.Session.Assistants() {
				marker := " "
				if as.ID == current {
					marker = okMark
				}
				name := as.Name
				if as.IsProtected() {
					name += " " + dimText("(default)")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", marker, as.ID, name, yesNo(as.Pinned), yesNo(as.HasOverride()))
			}
			return w.Flush()
		},
	}
}

func newAssistantsAddCmd(flags *globalFlags) *cobra.Command {
	var (
		description string
		avatar      string
		pinned      bool
		llm         llmFlags
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an assistant",
		Long: `Add an assistant. LLM flags create an override; fields you leave out
inherit from the global configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			as := domain.Assistant{
				Name:        args[0],
				Description: description,
				Avatar:      avatar,
				Pinned:      pinned,
			}
			if llm.any(cmd) {
				var override domain.LLMConfig
				if err := llm.apply(cmd, &override); err != nil {
					return err
				}
				as.LLMConfig = &override
			}

			created, err := a.Session.AddAssistant(contextOf(cmd), as)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s (%s)\n", okMark, bold(created.Name), created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "short description")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar path or URL")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "pin the assistant to the top of the list")
	llm.register(cmd)
	return cmd
}

func newAssistantsRenameCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename an assistant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.RenameAssistant(contextOf(cmd), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Renamed %s to %s\n", okMark, args[0], bold(args[1]))
			return nil
		},
	}
}

func newAssistantsPinCmd(flags *globalFlags, pinned bool) *cobra.Command {
	use, short, verb := "pin <id>", "Pin an assistant", "Pinned"
	if !pinned {
		use, short, verb = "unpin <id>", "Unpin an assistant", "Unpinned"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.SetPinned(contextOf(cmd), args[0], pinned); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", okMark, verb, args[0])
			return nil
		},
	}
}

func newAssistantsRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an assistant and its conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.RemoveAssistant(contextOf(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %s\n", okMark, args[0])
			return nil
		},
	}
}

func newAssistantsSelectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "select <id>",
		Aliases: []string{"use"},
		Short:   "Make an assistant the current one",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.Select(contextOf(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Now talking to %s\n", okMark, bold(a.Session.Current().Name))
			return nil
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "-"
}
