package migrations

import (
	"context"

	"github.com/uptrace/bun"

	auth "github.com/salesreport/go-auth"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().
			Model((*auth.Principal)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}

		_, err := db.NewCreateIndex().
			Model((*auth.Principal)(nil)).
			Index("salespersons_manager_id_idx").
			Column("manager_id").
			IfNotExists().
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDropTable().
			Model((*auth.Principal)(nil)).
			IfExists().
			Exec(ctx)
		return err
	})
}
