package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"veritas-hq/sentinel/pkg/policy/source"
)

var validateFlags struct {
	dir  string
	file string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate policy files",
	Long: `Parse and validate policy files without starting the service.

Examples:
  sentinel validate --dir ./policies
  sentinel validate --file policies/default.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.dir, "dir", "d", "", "policy directory to validate")
	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "single policy file to validate")
}

func runValidate(cmd *cobra.Command, args []string) error {
	switch {
	case validateFlags.file != "":
		data, err := os.ReadFile(validateFlags.file)
		if err != nil {
			return err
		}
		policies, err := source.ParseYAML(data)
		if err != nil {
			return fmt.Errorf("%s: %w", validateFlags.file, err)
		}
		for _, p := range policies {
			if err := p.Validate(); err != nil {
				return fmt.Errorf("%s: %w", validateFlags.file, err)
			}
			fmt.Printf("ok: %s (%d rules)\n", p.ID, len(p.Rules))
		}
	case validateFlags.dir != "":
		src := &source.FileSource{Dir: validateFlags.dir}
		policies, err := src.Load(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range policies {
			fmt.Printf("ok: %s (%d rules)\n", p.ID, len(p.Rules))
		}
		fmt.Printf("%d policies valid\n", len(policies))
	default:
		return fmt.Errorf("either --dir or --file is required")
	}
	return nil
}
