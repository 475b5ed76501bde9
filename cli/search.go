package cli

import (
	"context"
	"strings"

	"github.com/Scalingo/sclng-repo-search/metrics"
	"github.com/Scalingo/sclng-repo-search/model"
	"github.com/Scalingo/sclng-repo-search/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var retries int
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search repositories matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if err := model.ValidateQuery(query); err != nil {
				return err
			}

			githubClient, err := service.NewGithubClient(*cfg)
			if err != nil {
				return err
			}

			searchController := service.NewSearchController(
				*cfg,
				service.NewSearchClient(githubClient),
				metrics.NewRecorder(prometheus.NewRegistry()),
			)
			defer searchController.Close()

			printer := NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), useColors())
			state := runSearch(cmd.Context(), searchController, query, retries, printer)

			if outputJSON {
				return printer.PrintJSON(state)
			}

			return printer.PrintState(state)
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 0, "number of retries on network or data errors")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print the result as JSON")

	return cmd
}

// runSearch submits query and waits for its terminal state, retrying the failed searches up to retries times
func runSearch(ctx context.Context, searchController service.SearchController, query string, retries int, printer *Printer) model.State {
	subscription := searchController.Subscribe()
	defer subscription.Unsubscribe()

	searchController.Submit(query)
	attempts := 0

	for {
		select {
		case state, ok := <-subscription.C():
			if !ok {
				if state := searchController.State(); model.IsTerminal(state) {
					return state
				}

				return model.Error{Err: service.ErrControllerClosed}
			}

			if !model.IsTerminal(state) {
				printer.Loading(query)
				continue
			}

			if isRetryable(state) && attempts < retries {
				attempts += 1
				printer.Retrying(attempts, retries)
				searchController.RetryLast()
				continue
			}

			return state

		case <-ctx.Done():
			return model.Error{Err: ctx.Err()}
		}
	}
}
