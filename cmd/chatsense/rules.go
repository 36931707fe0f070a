package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/chatsense/pkg/chatsense/rules"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
}

// rulesCmd prints the effective normalization rules
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective normalization rules as YAML",
	Long: `Print the rules the normalizer applies, in order, in the YAML format
accepted by the data.rules setting. Use it to start a custom rule file:

  chatsense rules > rules.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		comp, err := s.Loader().Load()
		if err != nil {
			return err
		}
		return rules.WriteYAML(cmd.OutOrStdout(), comp.Registry.Specs())
	},
}
