package middleware

import (
	"fmt"

	"github.com/shrek82/sqlchain/dialect"
	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
)

// Additional parameters set on paged statements.
const (
	PageOffsetParam = "_page.offset"
	PageLimitParam  = "_page.limit"
)

// Pagination moves RowBounds into the SQL: a bounded query is rewritten with
// the dialect's paging clause, the offset and limit are bound from
// additional parameters and the executor receives unbounded RowBounds, so
// the database skips the rows instead of the result-set handler.
//
// Properties: dialect (registered dialect name).
type Pagination struct {
	Dialect dialect.Dialect
}

func NewPagination(d dialect.Dialect) *Pagination {
	return &Pagination{Dialect: d}
}

func (m *Pagination) Name() string { return "Pagination" }

func (m *Pagination) Signatures() []plugin.Signature {
	return []plugin.Signature{executor.ExecutorQuery.Signature()}
}

func (m *Pagination) SetProperties(props plugin.Properties) error {
	name := props.Get("dialect", "")
	if name == "" {
		if m.Dialect == nil {
			return fmt.Errorf("pagination: dialect property is required")
		}
		return nil
	}
	d, ok := dialect.Get(name)
	if !ok {
		return fmt.Errorf("pagination: unknown dialect %q", name)
	}
	m.Dialect = d
	return nil
}

func (m *Pagination) Intercept(inv *plugin.Invocation) (any, error) {
	_, ms, _ := executorCall(inv)
	bounds := plugin.Arg[executor.RowBounds](inv.Args(), 3)
	if ms == nil || bounds.IsDefault() || m.Dialect == nil {
		return inv.Proceed()
	}

	limit := bounds.Limit
	if limit <= 0 {
		limit = executor.NoRowLimit
	}
	paged := *ms
	paged.Source = &pagedSource{
		source:  ms.Source,
		dialect: m.Dialect,
		offset:  max(bounds.Offset, 0),
		limit:   limit,
	}
	if err := inv.SetArg(1, &paged); err != nil {
		return nil, err
	}
	if err := inv.SetArg(3, executor.DefaultRowBounds); err != nil {
		return nil, err
	}
	return inv.Proceed()
}

type pagedSource struct {
	source  mapping.SQLSource
	dialect dialect.Dialect
	offset  int
	limit   int
}

func (s *pagedSource) BoundSQL(param any) (*mapping.BoundSQL, error) {
	b, err := s.source.BoundSQL(param)
	if err != nil {
		return nil, err
	}
	paged := b.Derive(s.dialect.LimitSQL(b.SQL()), mapping.In(PageOffsetParam), mapping.In(PageLimitParam))
	if err := paged.SetAdditionalParameter(PageOffsetParam, s.offset); err != nil {
		return nil, err
	}
	if err := paged.SetAdditionalParameter(PageLimitParam, s.limit); err != nil {
		return nil, err
	}
	return paged, nil
}
