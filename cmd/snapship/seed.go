package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/snapship/internal/adapters/fs"
	"github.com/bft-labs/snapship/internal/adapters/sqlite"
	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

func newSeedCmd(c *cli) *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the students table and insert sample rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			if c.cfg.Database == "" {
				return fmt.Errorf("%w: --db is required", domain.ErrConfig)
			}
			ctx := cmd.Context()

			entities := sqlite.SampleEntities
			if fromFile != "" {
				var err error
				entities, err = fs.NewFileSupplier(fromFile).Entities(ctx)
				if err != nil {
					return err
				}
			}

			db, err := sqlite.Open(ctx, c.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Seed(ctx, entities)
			if err != nil {
				return err
			}
			c.logger().Info("seeded students", ports.String("db", db.Path()), ports.Int("rows", n))
			return nil
		},
	}

	cmd.Flags().StringVar(&c.cfg.Database, "db", c.cfg.Database, "SQLite database to create or update")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "insert the entities of this JSON file instead of the sample rows")
	return cmd
}
