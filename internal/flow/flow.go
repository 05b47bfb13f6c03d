// Package flow orchestrates the duplicate-customer resolution workflow:
// check the entered identity against existing customers, let the operator
// reuse a match or insist on a new record, then perform exactly one create
// call. One Controller instance owns one creation attempt's draft.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"motobms/internal/client"
)

// State is the controller's single tagged state value. Illegal combinations
// (a choice pending with no candidates, a second in-flight submit) are
// unrepresentable because every transition goes through this one value.
type State int

const (
	StateEditing State = iota
	StateCheckingSimilarity
	StateAwaitingChoice
	StateSubmitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateCheckingSimilarity:
		return "checking_similarity"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrBusy means a submit attempt is already in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrCancelled means the operator backed out; the draft is preserved.
	ErrCancelled = errors.New("cancelled by operator")
	// ErrDone means this controller already completed its one creation.
	ErrDone = errors.New("already completed")
)

// API is the backend surface the controller needs: the similarity search
// and the candidate detail fetch. *client.Client satisfies it.
type API interface {
	FindSimilar(ctx context.Context, q client.Query) (client.SimilarResult, error)
	GetCustomer(ctx context.Context, id uint) (client.CustomerDetail, error)
}

// DecisionKind is the operator's terminal action on a candidate list.
type DecisionKind int

const (
	// DecisionCancel aborts the submission and returns to editing.
	DecisionCancel DecisionKind = iota
	// DecisionCreateNew proceeds with the draft despite the matches.
	DecisionCreateNew
	// DecisionUseExisting reuses the chosen customer's identity.
	DecisionUseExisting
)

type Decision struct {
	Kind       DecisionKind
	CustomerID uint // set only for DecisionUseExisting
}

// Resolver is asked to choose when the similarity check finds candidates.
// Exactly one decision terminates each ask.
type Resolver interface {
	Resolve(ctx context.Context, candidates []client.Candidate) (Decision, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, candidates []client.Candidate) (Decision, error)

func (f ResolverFunc) Resolve(ctx context.Context, candidates []client.Candidate) (Decision, error) {
	return f(ctx, candidates)
}

// SubmitFunc performs the final create call for whichever entity this flow
// serves (customer, estimate or order) and returns the created id.
type SubmitFunc func(ctx context.Context, snap client.Snapshot) (uint, error)

// Controller drives one creation attempt. Methods are safe for concurrent
// use; a second Submit while one is in flight fails with ErrBusy rather
// than issuing a second create call.
type Controller struct {
	mu         sync.Mutex
	state      State
	draft      client.Draft
	generation uint64
	lastErr    error
	createdID  uint

	api      API
	resolver Resolver
	submit   SubmitFunc

	// reuseExisting makes a confirmed candidate the flow's result: the
	// controller completes with that customer's id and never calls submit.
	// The customer page sets this; estimate and order pages instead carry
	// the confirmed identity into their create call as a snapshot.
	reuseExisting bool
}

// New builds a controller in the editing state. The session prefills the
// draft's shop and staff references the way the entry forms do.
func New(api API, resolver Resolver, submit SubmitFunc, session client.Session) *Controller {
	c := &Controller{
		state:    StateEditing,
		api:      api,
		resolver: resolver,
		submit:   submit,
	}
	staffID := session.ID
	if staffID != 0 {
		c.draft.StaffID = &staffID
	}
	if session.ShopID != nil {
		c.draft.FirstShopID = session.ShopID
		c.draft.LastShopID = session.ShopID
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() client.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Edit mutates the draft. Allowed only while no submit attempt is in
// flight; edits during editing or after a failure keep the entered data.
func (c *Controller) Edit(fn func(d *client.Draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateEditing, StateFailed:
		fn(&c.draft)
		c.state = StateEditing
		return nil
	case StateDone:
		return ErrDone
	default:
		return ErrBusy
	}
}

// CreatedID returns the id the flow completed with: the created entity,
// or the confirmed existing customer when the flow reuses matches.
func (c *Controller) CreatedID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createdID
}

// LastErr returns the error that put the controller into the failed state.
func (c *Controller) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Cancel aborts a pending similarity check or candidate choice and returns
// to editing. A search result that arrives after cancellation is discarded;
// it never reopens the choice or triggers a stale transition.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateCheckingSimilarity, StateAwaitingChoice:
		c.generation++
		c.state = StateEditing
	}
}

// Submit runs the whole workflow once: similarity check (skipped entirely
// when every identity field is blank), candidate resolution when matches
// exist, then exactly one create call. On any failure the draft survives
// and the controller can retry. A failed similarity check aborts; it is
// never treated as "no candidates".
func (c *Controller) Submit(ctx context.Context) (uint, error) {
	c.mu.Lock()
	switch c.state {
	case StateEditing, StateFailed:
	case StateDone:
		c.mu.Unlock()
		return 0, ErrDone
	default:
		c.mu.Unlock()
		return 0, ErrBusy
	}
	c.state = StateCheckingSimilarity
	c.lastErr = nil
	c.generation++
	gen := c.generation
	draft := c.draft
	c.mu.Unlock()

	var confirmed *client.CustomerDetail

	query := draft.IdentityQuery()
	if !query.Empty() {
		result, err := c.api.FindSimilar(ctx, query)
		if stale := c.ensure(gen, StateCheckingSimilarity); stale != nil {
			return 0, stale
		}
		if err != nil {
			return 0, c.fail(fmt.Errorf("similarity check failed: %w", err))
		}
		if result.HasSimilar {
			c.setState(StateAwaitingChoice)
			decision, err := c.resolver.Resolve(ctx, result.Candidates)
			if stale := c.ensure(gen, StateAwaitingChoice); stale != nil {
				return 0, stale
			}
			if err != nil {
				return 0, c.fail(fmt.Errorf("candidate resolution failed: %w", err))
			}
			switch decision.Kind {
			case DecisionCancel:
				c.setState(StateEditing)
				return 0, ErrCancelled
			case DecisionUseExisting:
				if c.reuseExisting {
					// the confirmed record is the customer to use; the
					// draft is discarded without a create call
					c.mu.Lock()
					c.state = StateDone
					c.createdID = decision.CustomerID
					c.mu.Unlock()
					return decision.CustomerID, nil
				}
				detail, err := c.api.GetCustomer(ctx, decision.CustomerID)
				if stale := c.ensure(gen, StateAwaitingChoice); stale != nil {
					return 0, stale
				}
				if err != nil {
					return 0, c.fail(fmt.Errorf("candidate detail fetch failed: %w", err))
				}
				confirmed = &detail
			case DecisionCreateNew:
				// proceed with the draft
			}
		}
	}

	c.setState(StateSubmitting)
	snap := client.BuildSnapshot(draft, confirmed)
	id, err := c.submit(ctx, snap)
	if stale := c.ensure(gen, StateSubmitting); stale != nil {
		return 0, stale
	}
	if err != nil {
		return 0, c.fail(fmt.Errorf("create failed: %w", err))
	}

	c.mu.Lock()
	c.state = StateDone
	c.createdID = id
	c.mu.Unlock()
	return id, nil
}

// ensure discards stale continuations: if Cancel bumped the generation
// while a call was in flight, the result must not advance the machine.
func (c *Controller) ensure(gen uint64, expect State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.state != expect {
		return ErrCancelled
	}
	return nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// fail records the error, surfaces it, and leaves the draft untouched so
// the operator can fix and retry.
func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.state = StateFailed
	c.lastErr = err
	c.mu.Unlock()
	return err
}
