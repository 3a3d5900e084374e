package pgsource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamanager/spa-manager/internal/dashboard"
	"github.com/spamanager/spa-manager/internal/reporting"
)

func TestSalesQueryActiveBranch(t *testing.T) {
	sql, args := salesQuery(dashboard.SalesQuery{BranchID: "3"})
	assert.Equal(t, []any{"3"}, args)
	assert.Contains(t, sql, "d.branch_id::text = $1")
	assert.Contains(t, sql, "NOT "+cancelledPredicate)
	assert.True(t, strings.HasSuffix(sql, "ORDER BY d.date DESC NULLS LAST, d.id DESC"))
}

func TestSalesQueryAllBranchesAllRecords(t *testing.T) {
	sql, args := salesQuery(dashboard.SalesQuery{BranchID: reporting.AllBranches, Visibility: reporting.AllRecords})
	assert.Empty(t, args)
	assert.NotContains(t, sql, "WHERE")
}

func TestSalesQueryCancelledOnly(t *testing.T) {
	sql, _ := salesQuery(dashboard.SalesQuery{Visibility: reporting.CancelledOnly})
	assert.Contains(t, sql, "WHERE "+cancelledPredicate)
	assert.NotContains(t, sql, "WHERE NOT")
}

func TestParseDecimal(t *testing.T) {
	assert.False(t, parseDecimal(nil).Valid)

	bad := "abc"
	assert.False(t, parseDecimal(&bad).Valid)

	v := " 12.50 "
	got := parseDecimal(&v)
	require.True(t, got.Valid)
	assert.Equal(t, "12.5", got.Decimal.String())
}

type failingQuerier struct{ err error }

func (f failingQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, f.err
}

func TestSourceWrapsQueryErrors(t *testing.T) {
	cause := errors.New("connection reset")
	src := New(failingQuerier{err: cause})
	ctx := context.Background()

	_, err := src.ListSales(ctx, dashboard.SalesQuery{})
	assert.ErrorIs(t, err, cause)
	_, err = src.ListAppointments(ctx)
	assert.ErrorIs(t, err, cause)
	_, err = src.ListBranches(ctx)
	assert.ErrorIs(t, err, cause)
	_, err = src.ListProducts(ctx)
	assert.ErrorIs(t, err, cause)
	_, err = src.ListLeads(ctx)
	assert.ErrorIs(t, err, cause)
}
