package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/lrnalaunch/internal/config"
	"github.com/me/lrnalaunch/internal/encoded"
	"github.com/me/lrnalaunch/internal/launch"
	"github.com/me/lrnalaunch/internal/pipeline"
	"github.com/me/lrnalaunch/internal/store"
)

func newLaunchCmd(cfg config.LaunchConfig) *cobra.Command {
	opts := launch.Options{
		NThreads:   cfg.NThreads,
		RandomSeed: cfg.RandomSeed,
	}
	var (
		project  string
		metadata string
		portal   string
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Plan and launch the pipeline for one replicate",
		Long: "Retrieve the experiment, work out which stages still have to run, build the\n" +
			"workflow and report it. With --run the workflow is launched; with --test\n" +
			"nothing is launched or created.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if opts.Annotation != "" && !slices.Contains(pipeline.AllAnnotations(), opts.Annotation) {
				return &launch.ConfigError{Message: fmt.Sprintf("annotation %q is not one of %s",
					opts.Annotation, strings.Join(pipeline.AllAnnotations(), ", "))}
			}

			var source encoded.Source = encoded.NewPortalSource(portal, logger)
			if metadata != "" {
				source = encoded.FileSource{Path: metadata}
			}

			client, err := newPlatformClient()
			if err != nil {
				return err
			}
			opts.Project = projectPath(client.Username(), project)

			var st store.Store
			if opts.Run && !opts.Test {
				sqlite, err := openStore(ctx, dbPath)
				if err != nil {
					return err
				}
				defer sqlite.Close()
				st = sqlite
			}

			fmt.Fprintln(out, "Retrieving pipeline specifics...")
			driver := &launch.Driver{
				Source:   source,
				Platform: client,
				Launcher: launch.NewLauncher(client, st, logger),
				Out:      out,
				Logger:   logger,
			}
			if _, err := driver.Execute(ctx, opts); err != nil {
				return err
			}
			fmt.Fprintln(out, "(success)")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Experiment, "experiment", "e", "", "ENCODE experiment accession")
	f.IntVar(&opts.BioRep, "br", 1, "Biological replicate number")
	f.IntVar(&opts.TechRep, "tr", 1, "Technical replicate number")
	f.StringVarP(&opts.Annotation, "annotation", "a", pipeline.DefaultAnnotation,
		"Annotation label ("+strings.Join(pipeline.AllAnnotations(), ", ")+")")
	f.StringVar(&project, "project", cfg.Project, "Workspace to run the analysis in, or an absolute workspace path")
	f.StringVar(&opts.RefLoc, "ref-loc", cfg.RefLoc, "Folder holding reference files")
	f.StringVar(&opts.ResultsLoc, "results-loc", cfg.ResultsLoc, "Folder inside the project to place results folders under")
	f.BoolVar(&opts.Run, "run", false, "Run the workflow after assembling it")
	f.BoolVar(&opts.Test, "test", false, "Test run only, do not launch anything")
	f.BoolVar(&opts.Force, "force", false, "Force rerunning all steps")
	f.StringVar(&metadata, "metadata", "", "Read experiment metadata from a YAML or JSON file instead of the portal")
	f.StringVar(&portal, "portal", cfg.PortalURL, "ENCODE portal URL")
	f.StringVar(&dbPath, "db", cfg.DBPath, "Launch history database")
	cmd.MarkFlagRequired("experiment")
	return cmd
}
