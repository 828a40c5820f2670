package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/webtools-portal/internal/client"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

type fetchCall struct {
	tag   string
	page  int
	limit int
}

type fetchResult struct {
	page *models.Page
	err  error
	gate chan struct{}
}

// fakeFetcher returns scripted results per (tag, page) and records calls.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string][]fetchResult
	calls   []fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{results: make(map[string][]fetchResult)}
}

func fkey(tag string, page int) string {
	return fmt.Sprintf("%s|%d", tag, page)
}

func (f *fakeFetcher) on(tag string, page int, r fetchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[fkey(tag, page)] = append(f.results[fkey(tag, page)], r)
}

func (f *fakeFetcher) FetchTools(ctx context.Context, tag string, page, limit int) (*models.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{tag: tag, page: page, limit: limit})
	queue := f.results[fkey(tag, page)]
	if len(queue) == 0 {
		f.mu.Unlock()
		return nil, fmt.Errorf("no scripted result for %s", fkey(tag, page))
	}
	r := queue[0]
	if len(queue) > 1 {
		f.results[fkey(tag, page)] = queue[1:]
	}
	f.mu.Unlock()

	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.page, r.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall() fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type countingObserver struct {
	mu          sync.Mutex
	transitions map[string]int
	stale       int
}

func (o *countingObserver) ObserveTransition(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.transitions == nil {
		o.transitions = make(map[string]int)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.transitions[op+":"+outcome]++
}

func (o *countingObserver) ObserveStale() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stale++
}

func toolsPage(next models.Token, slugs ...string) *models.Page {
	p := &models.Page{Info: models.PageInfo{Count: len(slugs), Next: next}}
	for _, s := range slugs {
		p.Tools = append(p.Tools, models.Tool{Slug: s, Name: s})
	}
	return p
}

func slugsOf(s Snapshot) [][]string {
	out := make([][]string, 0, len(s.Result.Pages))
	for _, p := range s.Result.Pages {
		out = append(out, p.Slugs())
	}
	return out
}

func TestNew_StartsIdleOnSeed(t *testing.T) {
	c := New(newFakeFetcher(), *toolsPage("2", "A", "B", "C"))

	snap := c.Snapshot()
	assert.Equal(t, models.AllTag, snap.Tag)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, [][]string{{"A", "B", "C"}}, slugsOf(snap))
	assert.Equal(t, []models.Token{"1"}, snap.Result.Tokens)
	assert.True(t, snap.HasMore)
	assert.True(t, c.HasMore())
	assert.Equal(t, 9, c.Limit())
}

func TestSelectTag_ResetsPages(t *testing.T) {
	f := newFakeFetcher()
	f.on("Video", 1, fetchResult{page: toolsPage("2", "D", "E")})
	c := New(f, *toolsPage("2", "A", "B", "C"))

	require.NoError(t, c.SelectTag(context.Background(), "Video"))

	snap := c.Snapshot()
	assert.Equal(t, "Video", snap.Tag)
	assert.Equal(t, [][]string{{"D", "E"}}, slugsOf(snap))
	for _, tool := range snap.Tools() {
		assert.NotContains(t, []string{"A", "B", "C"}, tool.Slug)
	}
	assert.Equal(t, fetchCall{tag: "Video", page: 1, limit: 9}, f.lastCall())
}

func TestSelectTag_AllIsSentAsEmptyFilter(t *testing.T) {
	f := newFakeFetcher()
	f.on("video", 1, fetchResult{page: toolsPage("", "D")})
	f.on("", 1, fetchResult{page: toolsPage("2", "A")})
	c := New(f, *toolsPage("2", "A"), WithLimit(4))

	require.NoError(t, c.SelectTag(context.Background(), "video"))
	require.NoError(t, c.SelectTag(context.Background(), models.AllTag))

	assert.Equal(t, fetchCall{tag: "", page: 1, limit: 4}, f.lastCall())
	assert.Equal(t, models.AllTag, c.Tag())
}

func TestSelectTag_SameTagIsNoop(t *testing.T) {
	f := newFakeFetcher()
	c := New(f, *toolsPage("2", "A", "B"))
	before := c.Snapshot()

	require.NoError(t, c.SelectTag(context.Background(), models.AllTag))
	require.NoError(t, c.SelectTag(context.Background(), ""))

	assert.Equal(t, 0, f.callCount())
	assert.Equal(t, slugsOf(before), slugsOf(c.Snapshot()))
	assert.Equal(t, before.Generation, c.Snapshot().Generation)
}

func TestLoadMore_AppendsInOrder(t *testing.T) {
	f := newFakeFetcher()
	f.on("", 2, fetchResult{page: toolsPage("3", "D", "E")})
	f.on("", 3, fetchResult{page: toolsPage("", "F")})
	c := New(f, *toolsPage("2", "A", "B", "C"))

	require.NoError(t, c.LoadMore(context.Background()))
	require.NoError(t, c.LoadMore(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, [][]string{{"A", "B", "C"}, {"D", "E"}, {"F"}}, slugsOf(snap))
	assert.Equal(t, []models.Token{"1", "2", "3"}, snap.Result.Tokens)
	assert.False(t, snap.HasMore)

	seen := map[string]bool{}
	for _, tool := range snap.Tools() {
		assert.False(t, seen[tool.Slug], "duplicate slug %s", tool.Slug)
		seen[tool.Slug] = true
	}
}

func TestLoadMore_WithoutTokenIsRejected(t *testing.T) {
	f := newFakeFetcher()
	c := New(f, *toolsPage("", "A"))

	assert.False(t, c.HasMore())
	assert.ErrorIs(t, c.LoadMore(context.Background()), ErrNoMorePages)
	assert.Equal(t, 0, f.callCount())
	assert.Equal(t, [][]string{{"A"}}, slugsOf(c.Snapshot()))
}

func TestLoadMore_InvalidToken(t *testing.T) {
	for _, token := range []models.Token{"not-a-page", "0x2", "0", "-3", "1e2", "2.5"} {
		t.Run(string(token), func(t *testing.T) {
			f := newFakeFetcher()
			c := New(f, *toolsPage(token, "A"))

			err := c.LoadMore(context.Background())
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, 0, f.callCount())
			assert.Equal(t, StateIdle, c.Snapshot().State)
			assert.NotEmpty(t, c.Snapshot().Error)
		})
	}
}

func TestLoadMore_TokenIsDecimal(t *testing.T) {
	cases := map[models.Token]int{"2": 2, "010": 10, "09": 9, " 3 ": 3}
	for token, want := range cases {
		t.Run(string(token), func(t *testing.T) {
			f := newFakeFetcher()
			f.on("", want, fetchResult{page: toolsPage("", "B")})
			c := New(f, *toolsPage(token, "A"))

			require.NoError(t, c.LoadMore(context.Background()))
			assert.Equal(t, want, f.lastCall().page)
			assert.Equal(t, [][]string{{"A"}, {"B"}}, slugsOf(c.Snapshot()))
		})
	}
}

func TestScenario_SeedSelectVideoThenLoadMore(t *testing.T) {
	f := newFakeFetcher()
	f.on("Video", 1, fetchResult{page: toolsPage("2", "D", "E")})
	f.on("Video", 2, fetchResult{page: toolsPage("", "F")})
	c := New(f, *toolsPage("2", "A", "B", "C"))

	require.NoError(t, c.SelectTag(context.Background(), "Video"))
	snap := c.Snapshot()
	assert.Equal(t, "Video", snap.Tag)
	assert.Equal(t, [][]string{{"D", "E"}}, slugsOf(snap))

	require.NoError(t, c.LoadMore(context.Background()))
	snap = c.Snapshot()
	assert.Equal(t, [][]string{{"D", "E"}, {"F"}}, slugsOf(snap))
	assert.False(t, c.HasMore())
}

func TestScenario_FailedTagFetchKeepsPreviousPages(t *testing.T) {
	f := newFakeFetcher()
	f.on("X", 1, fetchResult{err: &client.StatusError{URL: "/tools", StatusCode: 500}})
	obs := &countingObserver{}
	c := New(f, *toolsPage("2", "A", "B", "C"), WithObserver(obs))
	before := c.Snapshot()

	err := c.SelectTag(context.Background(), "X")

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)

	snap := c.Snapshot()
	assert.Equal(t, models.AllTag, snap.Tag)
	assert.Equal(t, slugsOf(before), slugsOf(snap))
	assert.Equal(t, StateIdle, snap.State)
	assert.True(t, snap.HasMore)
	assert.True(t, snap.CanRetry)
	assert.Contains(t, snap.Error, "500")
	assert.NotPanics(t, func() { c.HasMore() })
	assert.Equal(t, 1, obs.transitions[OpSelectTag+":error"])
}

func TestRetry_ReissuesFailedSelect(t *testing.T) {
	f := newFakeFetcher()
	f.on("X", 1, fetchResult{err: &client.NetworkError{URL: "/tools", Err: errors.New("refused")}})
	f.on("X", 1, fetchResult{page: toolsPage("", "X1")})
	c := New(f, *toolsPage("2", "A"))

	require.Error(t, c.SelectTag(context.Background(), "X"))
	require.NoError(t, c.Retry(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, "X", snap.Tag)
	assert.Equal(t, [][]string{{"X1"}}, slugsOf(snap))
	assert.Empty(t, snap.Error)
	assert.False(t, snap.CanRetry)
	assert.ErrorIs(t, c.Retry(context.Background()), ErrNothingToRetry)
}

func TestRetry_ReissuesFailedLoadMore(t *testing.T) {
	f := newFakeFetcher()
	f.on("", 2, fetchResult{err: &client.StatusError{URL: "/tools", StatusCode: 503}})
	f.on("", 2, fetchResult{page: toolsPage("", "B")})
	c := New(f, *toolsPage("2", "A"))

	require.Error(t, c.LoadMore(context.Background()))
	assert.Equal(t, [][]string{{"A"}}, slugsOf(c.Snapshot()))
	assert.True(t, c.Snapshot().CanRetry)

	require.NoError(t, c.Retry(context.Background()))
	assert.Equal(t, [][]string{{"A"}, {"B"}}, slugsOf(c.Snapshot()))
}

func TestLoadMore_BusyWhileLoading(t *testing.T) {
	f := newFakeFetcher()
	gate := make(chan struct{})
	f.on("", 2, fetchResult{page: toolsPage("", "B"), gate: gate})
	c := New(f, *toolsPage("2", "A"))

	done := make(chan error, 1)
	go func() { done <- c.LoadMore(context.Background()) }()

	require.Eventually(t, func() bool { return c.Snapshot().Loading() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.LoadMore(context.Background()), ErrBusy)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, [][]string{{"A"}, {"B"}}, slugsOf(c.Snapshot()))
}

func TestSelectTag_LoadingStateIsEmpty(t *testing.T) {
	f := newFakeFetcher()
	gate := make(chan struct{})
	f.on("Video", 1, fetchResult{page: toolsPage("", "D"), gate: gate})
	c := New(f, *toolsPage("2", "A"))

	done := make(chan error, 1)
	go func() { done <- c.SelectTag(context.Background(), "Video") }()

	require.Eventually(t, func() bool { return c.Snapshot().Loading() }, time.Second, time.Millisecond)
	snap := c.Snapshot()
	assert.Equal(t, "Video", snap.Tag)
	assert.Empty(t, snap.Result.Pages)
	assert.False(t, snap.HasMore)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, [][]string{{"D"}}, slugsOf(c.Snapshot()))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	f := newFakeFetcher()
	slow := make(chan struct{})
	f.on("Video", 1, fetchResult{page: toolsPage("2", "V1"), gate: slow})
	f.on("Audio", 1, fetchResult{page: toolsPage("", "AU1")})
	obs := &countingObserver{}
	c := New(f, *toolsPage("2", "A"), WithObserver(obs))

	videoDone := make(chan error, 1)
	go func() { videoDone <- c.SelectTag(context.Background(), "Video") }()
	require.Eventually(t, func() bool { return c.Snapshot().Loading() }, time.Second, time.Millisecond)

	require.NoError(t, c.SelectTag(context.Background(), "Audio"))
	close(slow)

	assert.ErrorIs(t, <-videoDone, ErrStale)
	snap := c.Snapshot()
	assert.Equal(t, "Audio", snap.Tag)
	assert.Equal(t, [][]string{{"AU1"}}, slugsOf(snap))
	assert.Equal(t, 1, obs.stale)
}

func TestStaleLoadMoreIsDiscardedAfterTagChange(t *testing.T) {
	f := newFakeFetcher()
	slow := make(chan struct{})
	f.on("", 2, fetchResult{page: toolsPage("", "B"), gate: slow})
	f.on("Video", 1, fetchResult{page: toolsPage("", "V1")})
	c := New(f, *toolsPage("2", "A"))

	moreDone := make(chan error, 1)
	go func() { moreDone <- c.LoadMore(context.Background()) }()
	require.Eventually(t, func() bool { return c.Snapshot().Loading() }, time.Second, time.Millisecond)

	require.NoError(t, c.SelectTag(context.Background(), "Video"))
	close(slow)

	assert.ErrorIs(t, <-moreDone, ErrStale)
	assert.Equal(t, [][]string{{"V1"}}, slugsOf(c.Snapshot()))
}

func TestReload_InvalidatesCachedTag(t *testing.T) {
	f := newFakeFetcher()
	f.on("", 1, fetchResult{page: toolsPage("", "A2")})
	inv := &invalidatingFetcher{Fetcher: f}
	c := New(inv, *toolsPage("", "A"))

	require.NoError(t, c.Reload(context.Background()))

	assert.Equal(t, []string{""}, inv.invalidated)
	assert.Equal(t, [][]string{{"A2"}}, slugsOf(c.Snapshot()))
}

type invalidatingFetcher struct {
	Fetcher
	invalidated []string
}

func (f *invalidatingFetcher) InvalidateTag(tag string) {
	f.invalidated = append(f.invalidated, tag)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	f := newFakeFetcher()
	f.on("Video", 1, fetchResult{page: toolsPage("", "D")})
	c := New(f, *toolsPage("2", "A"))

	ch, cancel := c.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, models.AllTag, first.Tag)

	require.NoError(t, c.SelectTag(context.Background(), "Video"))

	var last Snapshot
	require.Eventually(t, func() bool {
		select {
		case s := <-ch:
			last = s
		default:
		}
		return last.Tag == "Video" && !last.Loading()
	}, time.Second, time.Millisecond)
	assert.Equal(t, [][]string{{"D"}}, slugsOf(last))
}

func TestSubscribe_CancelAndClose(t *testing.T) {
	c := New(newFakeFetcher(), *toolsPage("", "A"))

	ch, cancel := c.Subscribe()
	<-ch
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	ch2, _ := c.Subscribe()
	<-ch2
	c.Close()
	_, open = <-ch2
	assert.False(t, open)

	ch3, _ := c.Subscribe()
	_, open = <-ch3
	assert.False(t, open)
}

func TestSnapshot_DoesNotAliasState(t *testing.T) {
	f := newFakeFetcher()
	f.on("", 2, fetchResult{page: toolsPage("", "B")})
	c := New(f, *toolsPage("2", "A"))

	before := c.Snapshot()
	require.NoError(t, c.LoadMore(context.Background()))

	assert.Len(t, before.Result.Pages, 1)
	assert.Len(t, c.Snapshot().Result.Pages, 2)
}
