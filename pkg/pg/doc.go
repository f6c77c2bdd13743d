// Package pg connects to PostgreSQL through a pgx pool and applies embedded
// goose migrations.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, log, pgstore.Migrations); err != nil {
//	    return err
//	}
package pg
