// Package dashboard loads records from the system of record and assembles the
// reporting views on demand.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// ErrUpstream marks a failure to load records from the backend.
var ErrUpstream = errors.New("dashboard: upstream unavailable")

// Resource names used in errors and metrics.
const (
	ResourceSales        = "sales"
	ResourceAppointments = "appointments"
	ResourceBranches     = "branches"
	ResourceProducts     = "products"
	ResourceLeads        = "leads"
)

// SalesQuery narrows the sales listing at the source. Implementations may ignore
// it; every view filters again.
type SalesQuery struct {
	BranchID   string
	Visibility reporting.Visibility
}

// Source exposes the read operations of the backend.
type Source interface {
	ListSales(ctx context.Context, q SalesQuery) ([]reporting.SaleRecord, error)
	ListAppointments(ctx context.Context) ([]reporting.AppointmentRecord, error)
	ListBranches(ctx context.Context) ([]reporting.BranchRef, error)
	ListProducts(ctx context.Context) ([]reporting.ProductRef, error)
	ListLeads(ctx context.Context) ([]reporting.LeadRef, error)
}

// UpstreamError records which resource failed to load. It matches ErrUpstream.
type UpstreamError struct {
	Resource string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("dashboard: load %s: %v", e.Resource, e.Err)
}

// Unwrap exposes both ErrUpstream and the cause.
func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// Recorder receives reporting metrics. A nil Recorder is allowed.
type Recorder interface {
	ReportBuilt(view string)
	UpstreamFailed(resource string)
	StaleDiscarded()
}

type nopRecorder struct{}

func (nopRecorder) ReportBuilt(string)    {}
func (nopRecorder) UpstreamFailed(string) {}
func (nopRecorder) StaleDiscarded()       {}
