// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/pkg/types"
)

// --- fake backend ---

type fakeBackend struct {
	mu       sync.Mutex
	queries  []string
	filters  []types.FilterRequest
	search   func(ctx context.Context, q string) (*types.SearchResponse, error)
	applyFil func(ctx context.Context, f types.FilterRequest) (*types.FilterResponse, error)
}

func (f *fakeBackend) Search(ctx context.Context, q string) (*types.SearchResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.search(ctx, q)
}

func (f *fakeBackend) ApplyFilters(ctx context.Context, req types.FilterRequest) (*types.FilterResponse, error) {
	f.mu.Lock()
	f.filters = append(f.filters, req)
	f.mu.Unlock()
	return f.applyFil(ctx, req)
}

func (f *fakeBackend) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func sampleResponse(q string) *types.SearchResponse {
	return &types.SearchResponse{
		Query:          q,
		FormattedQuery: `(("` + q + `"))`,
		QueryTime:      1.2,
		TotalResults:   2,
		FinalReport:    "# R",
		Papers: []types.Paper{
			{ID: 1, Title: "First", Authors: "A", Year: 2021, URL: "https://example.org/1"},
			{ID: 2, Title: "Second", Authors: "B", Year: 2022, URL: "https://example.org/2"},
		},
	}
}

func okBackend() *fakeBackend {
	return &fakeBackend{
		search: func(_ context.Context, q string) (*types.SearchResponse, error) {
			return sampleResponse(q), nil
		},
	}
}

// --- Submit ---

func TestSubmitEmptyQueryIsIgnored(t *testing.T) {
	b := okBackend()
	var changes int
	s := New(b, WithOnChange(func(Snapshot) { changes++ }))

	for _, text := range []string{"", "   ", "\t\n "} {
		err := s.Submit(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}

	assert.Empty(t, b.Queries(), "no request must be sent")
	assert.Equal(t, 0, changes, "no state change must be published")
	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestSubmitEmptyAfterSuccessKeepsState(t *testing.T) {
	s := New(okBackend())
	require.NoError(t, s.Submit(context.Background(), "x"))
	before := s.Snapshot()

	assert.ErrorIs(t, s.Submit(context.Background(), "  "), ErrEmptyQuery)
	assert.Equal(t, before, s.Snapshot())
}

func TestSubmitLoadingThenSuccess(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	b := &fakeBackend{
		search: func(_ context.Context, q string) (*types.SearchResponse, error) {
			close(started)
			<-release
			return sampleResponse(q), nil
		},
	}

	var states []State
	var mu sync.Mutex
	s := New(b, WithOnChange(func(snap Snapshot) {
		mu.Lock()
		states = append(states, snap.State)
		mu.Unlock()
	}))

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "  x  ") }()

	<-started
	assert.Equal(t, Loading, s.Snapshot().State)
	assert.Equal(t, "x", s.Snapshot().Query)
	close(release)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, `(("x"))`, snap.FormattedQuery)
	assert.Equal(t, 1.2, snap.QueryTime)
	assert.Equal(t, 2, snap.TotalResults)
	assert.Equal(t, "# R", snap.Report)
	require.Len(t, snap.Papers, 2)
	assert.Empty(t, snap.Message)
	assert.Equal(t, []string{"x"}, b.Queries(), "query must be sent trimmed")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Loading, Success}, states)
}

func TestSubmitPreservesServerOrder(t *testing.T) {
	b := &fakeBackend{
		search: func(_ context.Context, q string) (*types.SearchResponse, error) {
			return &types.SearchResponse{
				TotalResults: 3,
				Papers: []types.Paper{
					{ID: 9, Title: "Zeta", Year: 2001},
					{ID: 2, Title: "Alpha", Year: 2024},
					{ID: 5, Title: "Mu", Year: 2010},
				},
			}, nil
		},
	}
	s := New(b)
	require.NoError(t, s.Submit(context.Background(), "order"))

	var ids []int
	for _, p := range s.Snapshot().Papers {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{9, 2, 5}, ids)
}

func TestSubmitFailureClearsPriorResults(t *testing.T) {
	fail := errors.New("connection refused")
	var failing atomic.Bool
	b := &fakeBackend{
		search: func(_ context.Context, q string) (*types.SearchResponse, error) {
			if failing.Load() {
				return nil, fail
			}
			return sampleResponse(q), nil
		},
	}
	s := New(b)
	require.NoError(t, s.Submit(context.Background(), "first"))
	require.Len(t, s.Snapshot().Papers, 2)

	failing.Store(true)
	err := s.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, fail)

	snap := s.Snapshot()
	assert.Equal(t, Error, snap.State)
	assert.Equal(t, GenericErrorMessage, snap.Message)
	assert.Empty(t, snap.Papers)
	assert.Empty(t, snap.Report)
	assert.Zero(t, snap.TotalResults)
	assert.ErrorIs(t, snap.Cause, fail)
}

func TestSubmitAgainstHTTPService(t *testing.T) {
	const body = `{"query":"x","formattedQuery":"\"x\"","queryTime":1.2,"totalResults":2,
		"final_report":"# R","papers":[{"id":1,"title":"One"},{"id":2,"title":"Two"}]}`

	tests := []struct {
		name      string
		status    int
		body      string
		wantState State
		wantCards int
	}{
		{"200 ok", http.StatusOK, body, Success, 2},
		{"500 server error", http.StatusInternalServerError, `{"error":"Script execution failed"}`, Error, 0},
		{"400 bad request", http.StatusBadRequest, `{"error":"Please provide a search query"}`, Error, 0},
		{"200 malformed body", http.StatusOK, `<html>`, Error, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req types.SearchRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "x", req.Query)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client, err := search.NewClient(types.BackendConfig{BaseURL: ts.URL})
			require.NoError(t, err)

			s := New(client)
			_ = s.Submit(context.Background(), "x")

			snap := s.Snapshot()
			assert.Equal(t, tt.wantState, snap.State)
			assert.Len(t, snap.Papers, tt.wantCards)
			if tt.wantState == Error {
				assert.Equal(t, GenericErrorMessage, snap.Message)
			} else {
				assert.Equal(t, `"x"`, snap.FormattedQuery)
			}
		})
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := search.NewClient(types.BackendConfig{BaseURL: url})
	require.NoError(t, err)

	s := New(client)
	err = s.Submit(context.Background(), "x")
	assert.ErrorIs(t, err, search.ErrRequestFailed)
	assert.Equal(t, Error, s.Snapshot().State)
	assert.Equal(t, GenericErrorMessage, s.Snapshot().Message)
}

// --- Retry ---

func TestRetryReissuesLastQuery(t *testing.T) {
	var calls atomic.Int32
	b := &fakeBackend{
		search: func(_ context.Context, q string) (*types.SearchResponse, error) {
			if calls.Add(1) == 1 {
				return nil, &search.StatusError{StatusCode: http.StatusBadGateway}
			}
			return sampleResponse(q), nil
		},
	}
	s := New(b)

	require.Error(t, s.Submit(context.Background(), " systematic reviews "))
	require.Equal(t, Error, s.Snapshot().State)

	require.NoError(t, s.Retry(context.Background()))
	assert.Equal(t, []string{"systematic reviews", "systematic reviews"}, b.Queries())
	assert.Equal(t, Success, s.Snapshot().State)
}

func TestRetryBeforeSubmit(t *testing.T) {
	s := New(okBackend())
	assert.ErrorIs(t, s.Retry(context.Background()), ErrNothingToRetry)
	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestRetryRepeatsLastFilter(t *testing.T) {
	b := okBackend()
	var calls atomic.Int32
	b.applyFil = func(_ context.Context, f types.FilterRequest) (*types.FilterResponse, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("boom")
		}
		return &types.FilterResponse{TotalResults: 1, Papers: []types.Paper{{ID: 7}}}, nil
	}
	s := New(b)

	req := types.FilterRequest{Query: "x", YearFrom: 2020, YearTo: 2024}
	require.Error(t, s.ApplyFilters(context.Background(), req))
	require.NoError(t, s.Retry(context.Background()))

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []types.FilterRequest{req, req}, b.filters)
	assert.Empty(t, b.queries)
}

func TestRetriedFilterKeepsQueryMetadata(t *testing.T) {
	b := okBackend()
	var calls atomic.Int32
	b.applyFil = func(_ context.Context, _ types.FilterRequest) (*types.FilterResponse, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("boom")
		}
		return &types.FilterResponse{TotalResults: 1, Papers: []types.Paper{{ID: 7}}}, nil
	}
	s := New(b)

	require.NoError(t, s.Submit(context.Background(), "x"))
	require.Error(t, s.ApplyFilters(context.Background(), types.FilterRequest{YearFrom: 2020}))

	snap := s.Snapshot()
	assert.Equal(t, Error, snap.State)
	assert.Empty(t, snap.FormattedQuery, "error view shows no stale results")

	require.NoError(t, s.Retry(context.Background()))
	snap = s.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, `(("x"))`, snap.FormattedQuery)
	assert.Equal(t, 1.2, snap.QueryTime)
}

func TestFailedSearchDropsOldQueryMetadata(t *testing.T) {
	b := okBackend()
	b.applyFil = func(_ context.Context, _ types.FilterRequest) (*types.FilterResponse, error) {
		return &types.FilterResponse{TotalResults: 0}, nil
	}
	s := New(b)
	require.NoError(t, s.Submit(context.Background(), "x"))

	b.search = func(context.Context, string) (*types.SearchResponse, error) {
		return nil, errors.New("boom")
	}
	require.Error(t, s.Submit(context.Background(), "y"))
	require.NoError(t, s.ApplyFilters(context.Background(), types.FilterRequest{Query: "y", YearFrom: 2020}))

	assert.Empty(t, s.Snapshot().FormattedQuery)
}

// --- Begin / Run ---

func TestBeginSubmitIsLoadingBeforeRun(t *testing.T) {
	b := okBackend()
	s := New(b)

	p, err := s.BeginSubmit(context.Background(), "  x ")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, Loading, snap.State)
	assert.Equal(t, "x", snap.Query)
	assert.Empty(t, b.Queries(), "no request before Run")

	require.NoError(t, p.Run())
	assert.Equal(t, Success, s.Snapshot().State)
	assert.Equal(t, []string{"x"}, b.Queries())
}

func TestBeginValidatesBeforeStateChange(t *testing.T) {
	s := New(okBackend())

	_, err := s.BeginSubmit(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = s.BeginApplyFilters(context.Background(), types.FilterRequest{})
	assert.ErrorIs(t, err, ErrEmptyFilter)
	_, err = s.BeginRetry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)

	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestSecondBeginSupersedesFirst(t *testing.T) {
	s := New(okBackend())

	first, err := s.BeginSubmit(context.Background(), "old")
	require.NoError(t, err)
	second, err := s.BeginSubmit(context.Background(), "new")
	require.NoError(t, err)

	require.NoError(t, second.Run())
	assert.ErrorIs(t, first.Run(), ErrSuperseded)

	snap := s.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, "new", snap.Query)
}

// --- ApplyFilters ---

func TestApplyFiltersOverwritesSearchSlots(t *testing.T) {
	b := okBackend()
	b.applyFil = func(_ context.Context, f types.FilterRequest) (*types.FilterResponse, error) {
		return &types.FilterResponse{
			FinalReport:  "# Filtered",
			TotalResults: 1,
			Papers:       []types.Paper{{ID: 42, Title: "Only"}},
		}, nil
	}
	s := New(b)
	require.NoError(t, s.Submit(context.Background(), "x"))
	require.NoError(t, s.ApplyFilters(context.Background(), types.FilterRequest{YearFrom: 2020}))

	snap := s.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, "filter", snap.Operation)
	assert.Equal(t, "# Filtered", snap.Report)
	assert.Equal(t, 1, snap.TotalResults)
	require.Len(t, snap.Papers, 1)
	assert.Equal(t, 42, snap.Papers[0].ID)
	// Query metadata from the search survives.
	assert.Equal(t, "x", snap.Query)
	assert.Equal(t, `(("x"))`, snap.FormattedQuery)
}

func TestApplyFiltersEmptyRequest(t *testing.T) {
	s := New(okBackend())
	assert.ErrorIs(t, s.ApplyFilters(context.Background(), types.FilterRequest{}), ErrEmptyFilter)
	assert.Equal(t, Idle, s.Snapshot().State)
}

// --- ToggleExpand ---

func TestToggleExpandIsPerCard(t *testing.T) {
	s := New(okBackend())
	require.NoError(t, s.Submit(context.Background(), "x"))

	assert.True(t, s.ToggleExpand(1))
	snap := s.Snapshot()
	assert.True(t, snap.IsExpanded(1))
	assert.False(t, snap.IsExpanded(2))

	assert.True(t, s.ToggleExpand(2))
	snap = s.Snapshot()
	assert.True(t, snap.IsExpanded(1), "expanding card 2 must not collapse card 1")
	assert.True(t, snap.IsExpanded(2))

	assert.False(t, s.ToggleExpand(1))
	snap = s.Snapshot()
	assert.False(t, snap.IsExpanded(1))
	assert.True(t, snap.IsExpanded(2), "collapsing card 1 must not affect card 2")
}

func TestToggleExpandUnknownID(t *testing.T) {
	s := New(okBackend())
	require.NoError(t, s.Submit(context.Background(), "x"))
	assert.False(t, s.ToggleExpand(99))
	assert.Empty(t, s.Snapshot().Expanded)
}

func TestNewResultsResetExpanded(t *testing.T) {
	s := New(okBackend())
	require.NoError(t, s.Submit(context.Background(), "x"))
	s.ToggleExpand(1)
	require.NoError(t, s.Submit(context.Background(), "y"))
	assert.Empty(t, s.Snapshot().Expanded)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(okBackend())
	require.NoError(t, s.Submit(context.Background(), "x"))
	snap := s.Snapshot()
	snap.Papers[0].Title = "mutated"
	snap.Expanded[2] = true

	fresh := s.Snapshot()
	assert.Equal(t, "First", fresh.Papers[0].Title)
	assert.False(t, fresh.IsExpanded(2))
}

// --- Supersession ---

func TestNewSubmissionCancelsInFlight(t *testing.T) {
	firstStarted := make(chan struct{})
	b := &fakeBackend{
		search: func(ctx context.Context, q string) (*types.SearchResponse, error) {
			if q == "slow" {
				close(firstStarted)
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return sampleResponse(q), nil
		},
	}
	s := New(b)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "slow") }()
	<-firstStarted

	require.NoError(t, s.Submit(context.Background(), "fast"))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request was not cancelled")
	}

	snap := s.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, "fast", snap.Query)
}

func TestLateResponseFromOldRequestIsDropped(t *testing.T) {
	oldStarted := make(chan struct{})
	releaseOld := make(chan struct{})
	b := &fakeBackend{
		search: func(_ context.Context, q string) (*types.SearchResponse, error) {
			if q == "old" {
				close(oldStarted)
				// Ignore cancellation and answer late, like a slow server.
				<-releaseOld
				return sampleResponse("old"), nil
			}
			return &types.SearchResponse{Query: q, TotalResults: 0}, nil
		},
	}
	s := New(b)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "old") }()
	<-oldStarted

	require.NoError(t, s.Submit(context.Background(), "new"))
	close(releaseOld)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	snap := s.Snapshot()
	assert.Equal(t, "new", snap.Query)
	assert.Empty(t, snap.Papers, "stale response must not overwrite the newer one")
	assert.True(t, snap.NoResults())
}

func TestCancelMovesToError(t *testing.T) {
	started := make(chan struct{})
	b := &fakeBackend{
		search: func(ctx context.Context, q string) (*types.SearchResponse, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := New(b)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "x") }()
	<-started
	s.Cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, Error, s.Snapshot().State)
}

// --- State ---

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "state(9)", State(9).String())

	data, err := json.Marshal(Snapshot{State: Loading})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"loading"`)
}
