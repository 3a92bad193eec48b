package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

const columnsQuery = `
SELECT column_name
FROM information_schema.columns
WHERE table_name = $1
  AND table_schema = COALESCE(NULLIF($2, ''), current_schema())
`

// RowQuerier is the subset of pgxpool.Pool used by Verify.
type RowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Verify checks that every table and column referenced by the catalog exists
// in the connected database. Data sources are checked concurrently.
func (c *Catalog) Verify(ctx context.Context, pool RowQuerier) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range c.IDs() {
		ds := c.sources[id]
		g.Go(func() error {
			return verifySource(gctx, pool, ds)
		})
	}
	return g.Wait()
}

func verifySource(ctx context.Context, pool RowQuerier, ds *DataSource) error {
	rows, err := pool.Query(ctx, columnsQuery, ds.BaseTable, ds.Schema)
	if err != nil {
		return fmt.Errorf("catalog verify %q: %w", ds.ID, err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("catalog verify %q: %w", ds.ID, err)
	}
	if len(existing) == 0 {
		return fmt.Errorf("catalog verify %q: table %q not found", ds.ID, ds.BaseTable)
	}

	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	var missing []string
	for _, f := range ds.Fields {
		if !have[f.Column] {
			missing = append(missing, f.Column)
		}
	}
	if ds.TenantColumn != "" && !have[ds.TenantColumn] {
		missing = append(missing, ds.TenantColumn)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("catalog verify %q: table %q is missing columns %v", ds.ID, ds.BaseTable, missing)
	}
	return nil
}
