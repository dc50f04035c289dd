package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
)

type counter interface {
	Count(ctx context.Context) (int, error)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of rows per catalog entity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, closeDB, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		entities := []struct {
			name string
			repo counter
		}{
			{"languages", postgresengine.NewLanguageRepository(engine)},
			{"countries", postgresengine.NewCountryRepository(engine)},
			{"genres", postgresengine.NewGenreRepository(engine)},
			{"publishers", postgresengine.NewPublisherRepository(engine)},
			{"authors", postgresengine.NewAuthorRepository(engine)},
			{"translators", postgresengine.NewTranslatorRepository(engine)},
			{"books", postgresengine.NewBookRepository(engine)},
			{"editions", postgresengine.NewBookEditionRepository(engine)},
			{"readers", postgresengine.NewReaderRepository(engine)},
			{"loans", postgresengine.NewLoanRepository(engine)},
		}

		for _, entity := range entities {
			n, err := entity.repo.Count(ctx)
			if err != nil {
				return fmt.Errorf("count %s: %w", entity.name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", entity.name, n)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
