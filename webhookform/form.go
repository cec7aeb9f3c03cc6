// Package webhookform holds the form controller used to create and edit
// incoming webhooks. The controller owns the draft and the saving flag; the
// actual save is delegated to an Action supplied by the concrete form.
package webhookform

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoAction        = errors.New("webhookform: action is required")
	ErrChannelRequired = errors.New("webhookform: a valid channel is required")
	ErrSaveInProgress  = errors.New("webhookform: save already in progress")
)

// closed is shared by submissions that finish without a delegated save.
var closed = make(chan struct{})

func init() {
	close(closed)
}

// Action is implemented by every concrete form. PerformAction runs the save
// for a validated payload; Header and Footer label the page heading and the
// submit button.
type Action interface {
	PerformAction(ctx context.Context, hook Payload) (Result, error)
	Header() Label
	Footer() Label
}

// Result is reported by an Action on success. Redirect is where the owning
// page should navigate once the hook is saved.
type Result struct {
	HookID   string `json:"hook_id,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type SubmitStatus int

const (
	SubmitStarted SubmitStatus = iota
	SubmitIgnored
	SubmitInvalid
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitStarted:
		return "started"
	case SubmitIgnored:
		return "ignored"
	case SubmitInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Submission tracks one call to Submit.
type Submission struct {
	Status SubmitStatus

	done   chan struct{}
	result Result
	err    error
}

// Done is closed once the submission has a final outcome. Ignored and
// invalid submissions are done immediately.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the delegated save finishes or ctx is done.
func (s *Submission) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type Option func(*Controller)

// WithSaveTimeout bounds how long a delegated save may stay outstanding.
// Zero means no bound: a save that never returns keeps the form saving.
// When the bound is hit the action's context is cancelled; actions must
// roll back any write that lands after that, or a resubmit may duplicate it.
func WithSaveTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithDraft seeds the form, e.g. with an existing hook being edited.
func WithDraft(d Draft) Option {
	return func(c *Controller) {
		c.draft = d
	}
}

// Controller is safe for concurrent use.
type Controller struct {
	action  Action
	timeout time.Duration

	mu          sync.Mutex
	draft       Draft
	saving      bool
	serverError string
	clientError *Label
	result      *Result
	listeners   []func(State)
}

func New(action Action, opts ...Option) (*Controller, error) {
	if action == nil {
		return nil, ErrNoAction
	}

	c := &Controller{action: action}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) Header() Label { return c.action.Header() }
func (c *Controller) Footer() Label { return c.action.Footer() }

func (c *Controller) UpdateDisplayName(value string) {
	c.Dispatch(FieldChanged{Field: FieldDisplayName, Value: value})
}

func (c *Controller) UpdateDescription(value string) {
	c.Dispatch(FieldChanged{Field: FieldDescription, Value: value})
}

func (c *Controller) UpdateChannelID(value string) {
	c.Dispatch(FieldChanged{Field: FieldChannelID, Value: value})
}

// Dispatch reduces a field change into the draft. Unknown fields leave the
// draft untouched.
func (c *Controller) Dispatch(ev FieldChanged) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := Reduce(c.draft, ev)
	if err != nil {
		return err
	}
	c.draft = d
	return nil
}

// OnComplete registers fn to be called with the resulting state every time
// a delegated save finishes.
func (c *Controller) OnComplete(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Result returns the outcome of the last submit, if it saved successfully.
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

func (c *Controller) stateLocked() State {
	s := State{
		Draft:       c.draft,
		Saving:      c.saving,
		ServerError: c.serverError,
	}
	if c.clientError != nil {
		l := *c.clientError
		s.ClientError = &l
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	return s
}

// Submit validates the draft and hands it to the action. A submit while a
// save is outstanding is ignored.
func (c *Controller) Submit(ctx context.Context) *Submission {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return &Submission{Status: SubmitIgnored, done: closed, err: ErrSaveInProgress}
	}

	c.saving = true
	c.serverError = ""
	c.clientError = nil
	c.result = nil

	if c.draft.ChannelID == "" {
		l := ChannelRequiredLabel
		c.clientError = &l
		c.saving = false
		c.mu.Unlock()
		return &Submission{Status: SubmitInvalid, done: closed, err: ErrChannelRequired}
	}

	hook := c.draft.payload()
	c.mu.Unlock()

	sub := &Submission{Status: SubmitStarted, done: make(chan struct{})}
	go c.perform(ctx, hook, sub)
	return sub
}

type outcome struct {
	result Result
	err    error
}

func (c *Controller) perform(ctx context.Context, hook Payload, sub *Submission) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := make(chan outcome, 1)
	go func() {
		res, err := c.action.PerformAction(ctx, hook)
		out <- outcome{result: res, err: err}
	}()

	var o outcome
	select {
	case o = <-out:
	case <-ctx.Done():
		o = outcome{err: ctx.Err()}
		log.WithFields(log.Fields{
			"channel_id": hook.ChannelID,
		}).Warn("webhook save abandoned: ", ctx.Err())
	}

	c.finish(o, sub)
}

func (c *Controller) finish(o outcome, sub *Submission) {
	c.mu.Lock()
	c.saving = false
	if o.err != nil {
		c.serverError = o.err.Error()
	} else {
		r := o.result
		c.result = &r
	}
	state := c.stateLocked()
	listeners := make([]func(State), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	sub.result, sub.err = o.result, o.err
	close(sub.done)

	for _, fn := range listeners {
		fn(state)
	}
}
