package cli

import (
	"fmt"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/lrnalaunch/internal/config"
	"github.com/me/lrnalaunch/internal/launch"
	"github.com/me/lrnalaunch/internal/pipeline"
)

func newRefsCmd(cfg config.LaunchConfig) *cobra.Command {
	var (
		genome  string
		sex     string
		anno    string
		project string
		refLoc  string
		check   bool
	)

	cmd := &cobra.Command{
		Use:   "refs",
		Short: "Show the reference files for a genome, sex and annotation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if anno == "" {
				anno, _ = pipeline.GenomeDefaultAnnotation(genome)
			}
			set, err := pipeline.References(genome, sex, anno)
			if err != nil {
				return &launch.ConfigError{Message: err.Error()}
			}

			if !check {
				for _, kind := range pipeline.ReferenceKinds() {
					fmt.Fprintf(out, "%-12s  %s\n", kind.Label(), set[kind])
				}
				return nil
			}

			client, err := newPlatformClient()
			if err != nil {
				return err
			}
			folder := launch.ProjectFolder(projectPath(client.Username(), project), refLoc)
			caches := launch.NewCaches()

			var missing []string
			for _, kind := range pipeline.ReferenceKinds() {
				p := path.Join(folder, set[kind])
				obj, err := caches.FindFile(cmd.Context(), client, p)
				if err != nil {
					return err
				}
				if obj == nil {
					fmt.Fprintf(out, "%-12s  %s  MISSING\n", kind.Label(), p)
					missing = append(missing, p)
					continue
				}
				fmt.Fprintf(out, "%-12s  %s  %s, %s\n", kind.Label(), p,
					humanize.Bytes(uint64(max(obj.Size, 0))), humanize.Time(obj.CreationTime))
			}
			if len(missing) > 0 {
				return &launch.MissingFileError{What: "reference file", Paths: missing}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&genome, "genome", pipeline.DefaultGenome, "Genome assembly (hg19, mm10)")
	f.StringVar(&sex, "sex", pipeline.SexMale, "Sex (female, male)")
	f.StringVarP(&anno, "annotation", "a", "", "Annotation label (default: the genome's default)")
	f.StringVar(&project, "project", cfg.Project, "Workspace the reference folder is resolved in")
	f.StringVar(&refLoc, "ref-loc", cfg.RefLoc, "Folder holding reference files")
	f.BoolVar(&check, "check", false, "Check that the files exist in the workspace")
	return cmd
}
