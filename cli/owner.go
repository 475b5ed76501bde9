package cli

import (
	"github.com/Scalingo/sclng-repo-search/service"
	"github.com/spf13/cobra"
)

func newOwnerCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "owner <login>",
		Short: "List the repositories of a user or organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			githubClient, err := service.NewGithubClient(*cfg)
			if err != nil {
				return err
			}

			printer := NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), useColors())
			state := service.NewSearchClient(githubClient).SearchByOwner(cmd.Context(), args[0])

			if outputJSON {
				return printer.PrintJSON(state)
			}

			return printer.PrintState(state)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "print the result as JSON")

	return cmd
}
