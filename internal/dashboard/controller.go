package dashboard

import (
	"context"
	"sync"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// DashboardLoader builds a dashboard for a filter. *Service implements it.
type DashboardLoader interface {
	Dashboard(ctx context.Context, filter reporting.PeriodFilter) (reporting.DashboardView, error)
}

// State is what a presentation layer renders. On failure View is empty and Err
// is set; a view is never half built.
type State struct {
	Filter  reporting.PeriodFilter
	Loading bool
	View    reporting.DashboardView
	Err     error
}

// Controller holds the dashboard state across filter changes. Only the most
// recent request may update it: starting a load cancels the one in flight and
// any older completion is discarded.
type Controller struct {
	loader  DashboardLoader
	metrics Recorder
	seq     reporting.Sequencer

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	onChange func(State)

	// notifyMu serialises onChange; notified is the newest token delivered.
	notifyMu sync.Mutex
	notified reporting.Token
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// OnChange registers fn to receive state transitions in request order. A
// transition belonging to a superseded request is never delivered after a
// newer one. fn may read State but must not start a load.
func OnChange(fn func(State)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

// ControllerRecorder reports discarded loads to r.
func ControllerRecorder(r Recorder) ControllerOption {
	return func(c *Controller) {
		if r != nil {
			c.metrics = r
		}
	}
}

// NewController creates a controller showing filter. Nothing is loaded until
// SetFilter or Refresh is called.
func NewController(loader DashboardLoader, filter reporting.PeriodFilter, opts ...ControllerOption) *Controller {
	c := &Controller{loader: loader, metrics: nopRecorder{}, state: State{Filter: filter}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetFilter switches to filter and starts loading it. The returned channel is
// closed once this load settles, whether it was applied or discarded.
func (c *Controller) SetFilter(ctx context.Context, filter reporting.PeriodFilter) <-chan struct{} {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	token := c.seq.Next()
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Filter = filter
	c.state.Loading = true
	snapshot := c.state
	c.mu.Unlock()
	c.notify(token, snapshot)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		view, err := c.loader.Dashboard(loadCtx, filter)
		c.finish(token, view, err)
	}()
	return done
}

// Refresh reloads the current filter, typically after a mutation elsewhere.
func (c *Controller) Refresh(ctx context.Context) <-chan struct{} {
	return c.SetFilter(ctx, c.State().Filter)
}

// Close cancels any load in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq.Next()
}

func (c *Controller) finish(token reporting.Token, view reporting.DashboardView, err error) {
	c.mu.Lock()
	if !c.seq.Current(token) {
		c.mu.Unlock()
		c.metrics.StaleDiscarded()
		return
	}
	c.cancel = nil
	c.state.Loading = false
	if err != nil {
		c.state.View = reporting.DashboardView{}
		c.state.Err = err
	} else {
		c.state.View = view
		c.state.Err = nil
	}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(token, snapshot)
}

func (c *Controller) notify(token reporting.Token, s State) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if token < c.notified || !c.seq.Current(token) {
		return
	}
	c.notified = token
	c.onChange(s)
}
