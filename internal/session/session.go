// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session tracks the lifecycle of search and filter requests for one
// results view: Idle until the first submission, Loading while a request is
// in flight, then Success or Error. Neither outcome is terminal; a new
// submission or a retry moves the session back to Loading.
//
// A new operation cancels the one in flight. Every operation carries a
// generation number and only the newest generation may change state, so the
// latest submission wins no matter which response arrives first.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/pdiddy/litreview/pkg/types"
)

// GenericErrorMessage is the only failure text users see. Network errors,
// timeouts and error statuses all collapse to it; the cause is logged.
const GenericErrorMessage = "Something went wrong while generating your review. Please try again."

// Errors returned by Session operations.
var (
	// ErrEmptyQuery means the submitted text was empty after trimming. The
	// session state is unchanged.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmptyFilter means the filter request carried no fields.
	ErrEmptyFilter = errors.New("filter request is empty")

	// ErrNothingToRetry means Retry was called before any submission.
	ErrNothingToRetry = errors.New("nothing to retry")

	// ErrSuperseded means a newer operation started before this one
	// finished; its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Backend is the remote review service.
type Backend interface {
	Search(ctx context.Context, query string) (*types.SearchResponse, error)
	ApplyFilters(ctx context.Context, req types.FilterRequest) (*types.FilterResponse, error)
}

// opKind distinguishes the two request paths.
type opKind int

const (
	opSearch opKind = iota
	opFilter
)

func (k opKind) String() string {
	if k == opFilter {
		return "filter"
	}
	return "search"
}

// operation is one replayable request.
type operation struct {
	kind   opKind
	query  string
	filter types.FilterRequest
}

// Session holds the transient view state of one results page. It is safe for
// concurrent use.
type Session struct {
	backend  Backend
	logger   *slog.Logger
	onChange func(Snapshot)

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	last     *operation
	state    State
	query    string
	results  results
	meta     queryMeta
	expanded map[int]bool
	cause    error
}

// results are the display slots shared by search and filter responses.
type results struct {
	meta         queryMeta
	totalResults int
	report       string
	papers       []types.Paper
}

// queryMeta describes the last successful search. Filter results reuse it and
// an Error does not clear it; a new search does.
type queryMeta struct {
	formattedQuery string
	queryTime      float64
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for state transitions and failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithOnChange registers a callback that receives a snapshot after every
// state transition. It runs on the goroutine that caused the transition.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// New creates an Idle session backed by b.
func New(b Backend, opts ...Option) *Session {
	s := &Session{
		backend:  b,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		expanded: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends text as a search query. Empty or whitespace-only text returns
// ErrEmptyQuery without a request or any state change. Otherwise the session
// moves to Loading before the request is sent and to Success or Error once it
// completes. The returned error is the underlying cause on failure.
func (s *Session) Submit(ctx context.Context, text string) error {
	p, err := s.BeginSubmit(ctx, text)
	if err != nil {
		return err
	}
	return p.Run()
}

// BeginSubmit validates text and moves the session to Loading without
// sending the request. The caller must call Run on the result, typically on
// another goroutine.
func (s *Session) BeginSubmit(ctx context.Context, text string) (*Pending, error) {
	q := strings.TrimSpace(text)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	return s.begin(ctx, operation{kind: opSearch, query: q}), nil
}

// ApplyFilters sends req to the filters endpoint. A successful response
// replaces the papers, report and total of whatever was shown before.
func (s *Session) ApplyFilters(ctx context.Context, req types.FilterRequest) error {
	p, err := s.BeginApplyFilters(ctx, req)
	if err != nil {
		return err
	}
	return p.Run()
}

// BeginApplyFilters is the two-step form of ApplyFilters; see BeginSubmit.
func (s *Session) BeginApplyFilters(ctx context.Context, req types.FilterRequest) (*Pending, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyFilter
	}
	return s.begin(ctx, operation{kind: opFilter, filter: req}), nil
}

// Retry re-issues the last operation with the same query text or filter
// payload.
func (s *Session) Retry(ctx context.Context) error {
	p, err := s.BeginRetry(ctx)
	if err != nil {
		return err
	}
	return p.Run()
}

// BeginRetry is the two-step form of Retry; see BeginSubmit.
func (s *Session) BeginRetry(ctx context.Context) (*Pending, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return nil, ErrNothingToRetry
	}
	return s.begin(ctx, *last), nil
}

// Cancel aborts the operation in flight, if any. The aborted request fails
// with a cancellation error and the session moves to Error.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Pending is an operation that has put the session in Loading and is waiting
// for Run to send its request.
type Pending struct {
	s      *Session
	op     operation
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	meta   queryMeta
}

// begin cancels any operation in flight and moves the session to Loading.
func (s *Session) begin(ctx context.Context, op operation) *Pending {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	opCtx, cancel := context.WithCancel(ctx)
	p := &Pending{s: s, op: op, gen: s.gen, ctx: opCtx, cancel: cancel}
	s.cancel = cancel
	s.last = &op
	s.state = Loading
	s.cause = nil
	if op.kind == opSearch {
		s.query = op.query
		s.meta = queryMeta{}
	}
	p.meta = s.meta
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("request started", slog.String("op", op.kind.String()), slog.Uint64("generation", p.gen))
	s.notify(snap)
	return p
}

// Run sends the request and moves the session to Success or Error, unless a
// newer operation has started in the meantime, in which case it returns
// ErrSuperseded and leaves the state alone.
func (p *Pending) Run() error {
	defer p.cancel()
	s, op := p.s, p.op

	var next results
	var err error
	switch op.kind {
	case opSearch:
		var resp *types.SearchResponse
		resp, err = s.backend.Search(p.ctx, op.query)
		if err == nil {
			next = results{
				meta:         queryMeta{formattedQuery: resp.FormattedQuery, queryTime: resp.QueryTime},
				totalResults: resp.TotalResults,
				report:       resp.FinalReport,
				papers:       resp.Papers,
			}
		}
	case opFilter:
		var resp *types.FilterResponse
		resp, err = s.backend.ApplyFilters(p.ctx, op.filter)
		if err == nil {
			// The filter reply has no query metadata; keep the search's.
			next = results{
				meta:         p.meta,
				totalResults: resp.TotalResults,
				report:       resp.FinalReport,
				papers:       resp.Papers,
			}
		}
	}

	s.mu.Lock()
	if p.gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded response", slog.String("op", op.kind.String()), slog.Uint64("generation", p.gen))
		return ErrSuperseded
	}
	s.cancel = nil
	s.expanded = make(map[int]bool)
	if err != nil {
		s.state = Error
		s.results = results{}
		s.cause = err
	} else {
		s.state = Success
		s.results = next
		if op.kind == opSearch {
			s.meta = next.meta
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("request failed", slog.String("op", op.kind.String()), slog.Any("error", err))
		s.notify(snap)
		return fmt.Errorf("%s: %w", op.kind, err)
	}
	s.logger.Info("request succeeded",
		slog.String("op", op.kind.String()),
		slog.Int("papers", len(snap.Papers)),
		slog.Int("total_results", snap.TotalResults))
	s.notify(snap)
	return nil
}

// ToggleExpand flips the detail visibility of one paper and returns its new
// state. Other papers are unaffected. Unknown IDs are ignored.
func (s *Session) ToggleExpand(id int) bool {
	s.mu.Lock()
	if _, ok := types.FindPaper(s.results.papers, id); !ok {
		s.mu.Unlock()
		return false
	}
	open := !s.expanded[id]
	if open {
		s.expanded[id] = true
	} else {
		delete(s.expanded, id)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return open
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:          s.state,
		Query:          s.query,
		FormattedQuery: s.results.meta.formattedQuery,
		QueryTime:      s.results.meta.queryTime,
		TotalResults:   s.results.totalResults,
		Report:         s.results.report,
		Papers:         append([]types.Paper(nil), s.results.papers...),
		Expanded:       make(map[int]bool, len(s.expanded)),
		Cause:          s.cause,
	}
	for id := range s.expanded {
		snap.Expanded[id] = true
	}
	if s.last != nil {
		snap.Operation = s.last.kind.String()
	}
	if s.state == Error {
		snap.Message = GenericErrorMessage
	}
	return snap
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
