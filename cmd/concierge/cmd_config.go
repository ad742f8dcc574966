package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/spf13/cobra"
)

// llmFlags maps command-line flags onto an LLMConfig. Only flags the user
// set are applied; an empty value removes the field.
type llmFlags struct {
	provider    string
	apiKey      string
	apiURL      string
	model       string
	temperature string
}

func (f *llmFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "provider id (see 'concierge providers list')")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&f.apiURL, "api-url", "", "endpoint URL (custom provider only)")
	cmd.Flags().StringVar(&f.model, "model", "", "model name")
	cmd.Flags().StringVar(&f.temperature, "temperature", "", "sampling temperature between 0 and 2")
}

func (f *llmFlags) any(cmd *cobra.Command) bool {
	for _, name := range []string{"provider", "api-key", "api-url", "model", "temperature"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (f *llmFlags) apply(cmd *cobra.Command, cfg *domain.LLMConfig) error {
	set := func(name string, dst **string, value string) {
		if !cmd.Flags().Changed(name) {
			return
		}
		if value == "" {
			*dst = nil
			return
		}
		*dst = domain.Ptr(value)
	}
	set("provider", &cfg.Provider, f.provider)
	set("api-key", &cfg.APIKey, f.apiKey)
	set("api-url", &cfg.APIURL, f.apiURL)
	set("model", &cfg.Model, f.model)

	if cmd.Flags().Changed("temperature") {
		if f.temperature == "" {
			cfg.Temperature = nil
			return nil
		}
		t, err := strconv.ParseFloat(f.temperature, 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q: %w", f.temperature, domain.ErrValidation)
		}
		cfg.Temperature = &t
	}
	return nil
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change LLM configuration",
	}

	cmd.AddCommand(
		newConfigShowCmd(flags),
		newConfigSetCmd(flags),
		newConfigSetAssistantCmd(flags),
		newConfigClearAssistantCmd(flags),
	)
	return cmd
}

func newConfigShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [assistant-id]",
		Short: "Show the global configuration, or an assistant's override and resolved configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, bold("Global"))
				printLLMConfig(out, a.Session.Global())
				return nil
			}

			as, err := a.Session.Assistant(args[0])
			if err != nil {
				return err
			}
			resolved, err := a.Session.Resolve(as.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s\n", bold(as.Name+" ("+as.ID+")"))
			fmt.Fprintln(out, "Override:")
			if as.LLMConfig == nil {
				fmt.Fprintln(out, dimText("  none, inherits global"))
			} else {
				printLLMConfig(out, *as.LLMConfig)
			}
			fmt.Fprintln(out, "Resolved:")
			printLLMConfig(out, resolved)
			return nil
		},
	}
}

func newConfigSetCmd(flags *globalFlags) *cobra.Command {
	var (
		llm   llmFlags
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the global LLM configuration",
		Long: `Set the global LLM configuration. The flags you pass are applied to the
current configuration and the result replaces it. Use --reset to start from
an empty configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !llm.any(cmd) && !reset {
				return fmt.Errorf("nothing to set: pass at least one of --provider, --api-key, --api-url, --model, --temperature")
			}

			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.Session.Global()
			if reset {
				cfg = domain.LLMConfig{}
			}
			if err := llm.apply(cmd, &cfg); err != nil {
				return err
			}
			if err := a.Session.UpdateGlobal(contextOf(cmd), cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Global configuration saved\n", okMark)
			printLLMConfig(cmd.OutOrStdout(), a.Session.Global())
			return nil
		},
	}

	llm.register(cmd)
	cmd.Flags().BoolVar(&reset, "reset", false, "start from an empty configuration")
	return cmd
}

func newConfigSetAssistantCmd(flags *globalFlags) *cobra.Command {
	var (
		llm   llmFlags
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "set-assistant <id>",
		Short: "Set an assistant's LLM override",
		Long: `Set an assistant's LLM override. The flags you pass are applied to the
existing override and the result replaces it; fields absent from the result
inherit from the global configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !llm.any(cmd) && !reset {
				return fmt.Errorf("nothing to set: pass at least one of --provider, --api-key, --api-url, --model, --temperature")
			}

			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			as, err := a.Session.Assistant(args[0])
			if err != nil {
				return err
			}

			var override domain.LLMConfig
			if as.LLMConfig != nil && !reset {
				override = as.LLMConfig.Clone()
			}
			if err := llm.apply(cmd, &override); err != nil {
				return err
			}
			if err := a.Session.UpdateAssistantOverride(contextOf(cmd), as.ID, override); err != nil {
				return err
			}

			resolved, err := a.Session.Resolve(as.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Override saved for %s, resolved:\n", okMark, bold(as.Name))
			printLLMConfig(cmd.OutOrStdout(), resolved)
			return nil
		},
	}

	llm.register(cmd)
	cmd.Flags().BoolVar(&reset, "reset", false, "start from an empty override")
	return cmd
}

func newConfigClearAssistantCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-assistant <id>",
		Short: "Remove an assistant's override so it inherits the global configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.ClearAssistantOverride(contextOf(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s now inherits the global configuration\n", okMark, args[0])
			return nil
		},
	}
}

func printLLMConfig(w io.Writer, cfg domain.LLMConfig) {
	if cfg.IsZero() {
		fmt.Fprintln(w, dimText("  nothing configured"))
		return
	}
	masked := cfg.Masked()
	row := func(label string, v *string) {
		value := dimText("(unset)")
		if v != nil {
			value = *v
		}
		fmt.Fprintf(w, "  %-12s %s\n", label, value)
	}
	row("provider", masked.Provider)
	row("model", masked.Model)
	row("api key", masked.APIKey)
	row("api url", masked.APIURL)

	temp := dimText("(unset)")
	if cfg.Temperature != nil {
		temp = strconv.FormatFloat(*cfg.Temperature, 'f', -1, 64)
	}
	fmt.Fprintf(w, "  %-12s %s\n", "temperature", temp)
}
