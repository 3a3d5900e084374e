package dashboard

import (
	"context"
	"sync"

	"github.com/spamanager/spa-manager/internal/reporting"
)

type fakeSource struct {
	mu           sync.Mutex
	sales        []reporting.SaleRecord
	appointments []reporting.AppointmentRecord
	branches     []reporting.BranchRef
	products     []reporting.ProductRef
	leads        []reporting.LeadRef
	errs         map[string]error
	calls        map[string]int
	salesQuery   SalesQuery

	// branchGate, when set, holds ListBranches until closed and reports each
	// entry on branchStarted.
	branchGate    chan struct{}
	branchStarted chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeSource) hit(resource string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[resource]++
	return f.errs[resource]
}

func (f *fakeSource) count(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resource]
}

func (f *fakeSource) ListSales(ctx context.Context, q SalesQuery) ([]reporting.SaleRecord, error) {
	f.mu.Lock()
	f.salesQuery = q
	f.mu.Unlock()
	if err := f.hit(ResourceSales); err != nil {
		return nil, err
	}
	return f.sales, nil
}

func (f *fakeSource) ListAppointments(ctx context.Context) ([]reporting.AppointmentRecord, error) {
	if err := f.hit(ResourceAppointments); err != nil {
		return nil, err
	}
	return f.appointments, nil
}

func (f *fakeSource) ListBranches(ctx context.Context) ([]reporting.BranchRef, error) {
	if err := f.hit(ResourceBranches); err != nil {
		return nil, err
	}
	if f.branchGate != nil {
		f.branchStarted <- struct{}{}
		select {
		case <-f.branchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.branches, nil
}

func (f *fakeSource) ListProducts(ctx context.Context) ([]reporting.ProductRef, error) {
	if err := f.hit(ResourceProducts); err != nil {
		return nil, err
	}
	return f.products, nil
}

func (f *fakeSource) ListLeads(ctx context.Context) ([]reporting.LeadRef, error) {
	if err := f.hit(ResourceLeads); err != nil {
		return nil, err
	}
	return f.leads, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	builds   map[string]int
	failures map[string]int
	stale    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{builds: map[string]int{}, failures: map[string]int{}}
}

func (r *countingRecorder) ReportBuilt(view string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds[view]++
}

func (r *countingRecorder) UpstreamFailed(resource string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[resource]++
}

func (r *countingRecorder) StaleDiscarded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale++
}

func (r *countingRecorder) staleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}
