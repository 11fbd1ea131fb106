package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/me/lrnalaunch/internal/pipeline"
)

func newStagesCmd() *cobra.Command {
	var (
		paired bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Show the pipeline stages for a read layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			stages := pipeline.Stages(paired)

			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(stages); err != nil {
					return fmt.Errorf("encode stages: %w", err)
				}
				return enc.Close()
			case "text":
			default:
				return fmt.Errorf("unknown format %q (want text or yaml)", format)
			}

			fmt.Fprintf(out, "%-16s  %-26s  %-34s  %s\n", "STAGE", "APP", "INPUTS", "RESULTS")
			for _, s := range stages {
				var results []string
				for _, tok := range s.ResultTokens() {
					glob, _ := pipeline.ResultGlob(tok)
					results = append(results, tok+" ("+glob+")")
				}
				fmt.Fprintf(out, "%-16s  %-26s  %-34s  %s\n",
					s.Name, s.App, strings.Join(s.InputTokens(), ","), strings.Join(results, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&paired, "paired", false, "Show the paired-end stages")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, yaml)")
	return cmd
}
