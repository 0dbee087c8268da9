package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// selectQuery accumulates WHERE clauses with positional pgx arguments.
type selectQuery struct {
	sb   strings.Builder
	args []any
}

func newSelect(base string) *selectQuery {
	q := &selectQuery{}
	q.sb.WriteString(base)
	q.sb.WriteString(" WHERE 1=1")
	return q
}

func (q *selectQuery) next(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *selectQuery) where(cond string, v any) *selectQuery {
	fmt.Fprintf(&q.sb, " AND %s %s", cond, q.next(v))
	return q
}

// page applies the time window, ordering and pagination of opts against col.
func (q *selectQuery) page(col string, opts domain.ListOpts) *selectQuery {
	if opts.Since != nil {
		q.where(col+" >=", *opts.Since)
	}
	if opts.Until != nil {
		q.where(col+" <=", *opts.Until)
	}
	q.sb.WriteString(" ORDER BY " + col + " DESC")
	q.limit(opts.Limit)
	if opts.Offset > 0 {
		q.sb.WriteString(" OFFSET " + q.next(opts.Offset))
	}
	return q
}

func (q *selectQuery) limit(n int) *selectQuery {
	if n > 0 {
		q.sb.WriteString(" LIMIT " + q.next(n))
	}
	return q
}

func (q *selectQuery) String() string { return q.sb.String() }
