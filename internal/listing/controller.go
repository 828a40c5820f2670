package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

// Operation names reported to the Observer.
const (
	OpSelectTag = "select_tag"
	OpLoadMore  = "load_more"
	OpReload    = "reload"
)

// firstPageToken is the token recorded for page 1 of every tag.
const firstPageToken models.Token = "1"

// Fetcher fetches one page of tools. tag is the filter value sent upstream.
type Fetcher interface {
	FetchTools(ctx context.Context, tag string, page, limit int) (*models.Page, error)
}

// tagInvalidator is implemented by fetchers that cache pages per tag.
type tagInvalidator interface {
	InvalidateTag(tag string)
}

// Observer receives transition outcomes. Implementations must be cheap.
type Observer interface {
	ObserveTransition(operation string, err error)
	ObserveStale()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLimit sets the page size. Non-positive values are ignored.
func WithLimit(limit int) Option {
	return func(c *Controller) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithAllLabel sets the label meaning "no filter".
func WithAllLabel(label string) Option {
	return func(c *Controller) {
		if label != "" {
			c.allLabel = label
		}
	}
}

// WithObserver reports transitions to o.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithLogger sets the controller's logger.
func WithLogger(l *common.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// view is a tag together with the pages fetched for it.
type view struct {
	tag    string
	result models.PaginatedResult
}

// pendingOp is the failed operation Retry re-issues.
type pendingOp struct {
	op  string
	tag string
}

// Controller is the pagination and tag filter state machine for one viewer.
// It is safe for concurrent use; fetches run without holding the lock.
type Controller struct {
	fetcher  Fetcher
	limit    int
	allLabel string
	observer Observer
	logger   *common.Logger

	mu         sync.Mutex
	current    view
	stable     view
	state      State
	err        error
	pending    *pendingOp
	generation uint64
	subs       map[int]chan Snapshot
	nextSubID  int
	closed     bool
}

// New creates a controller in Idle(all, [seed]).
func New(fetcher Fetcher, seed models.Page, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		limit:    9,
		allLabel: models.AllTag,
		logger:   common.NewSilentLogger(),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}

	var result models.PaginatedResult
	result.Append(firstPageToken, seed)
	c.current = view{tag: c.allLabel, result: result}
	c.stable = view{tag: c.allLabel, result: result.Clone()}
	return c
}

// Limit returns the page size.
func (c *Controller) Limit() int {
	return c.limit
}

// AllLabel returns the label meaning "no filter".
func (c *Controller) AllLabel() string {
	return c.allLabel
}

// Tag returns the selected tag.
func (c *Controller) Tag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.tag
}

// HasMore reports whether the last page carries a continuation token.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.result.NextToken().Present()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectTag switches the filter to tag and fetches its first page. Selecting
// the current tag does nothing. An empty tag selects the all label.
func (c *Controller) SelectTag(ctx context.Context, tag string) error {
	if tag == "" {
		tag = c.allLabel
	}

	c.mu.Lock()
	if tag == c.current.tag {
		c.mu.Unlock()
		return nil
	}
	gen := c.beginResetLocked(tag)
	c.mu.Unlock()

	err := c.finishReset(ctx, OpSelectTag, tag, gen)
	c.observe(OpSelectTag, err)
	return err
}

// Reload drops the cached pages of the current tag and fetches page 1 again.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	tag := c.stable.tag
	if c.state == StateLoading {
		tag = c.current.tag
	}
	gen := c.beginResetLocked(tag)
	c.mu.Unlock()

	if inv, ok := c.fetcher.(tagInvalidator); ok {
		inv.InvalidateTag(models.FilterValue(tag, c.allLabel))
	}

	err := c.finishReset(ctx, OpReload, tag, gen)
	c.observe(OpReload, err)
	return err
}

// LoadMore fetches the page named by the last page's continuation token and
// appends it. It returns ErrNoMorePages when there is no token and ErrBusy
// while another fetch is in flight.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	token := c.current.result.NextToken()
	if !token.Present() {
		c.mu.Unlock()
		return ErrNoMorePages
	}
	pageNum, err := pageNumber(token)
	if err != nil {
		c.err = err
		c.publishLocked()
		c.mu.Unlock()
		c.observe(OpLoadMore, err)
		return err
	}
	tag := c.current.tag
	gen := c.generation
	c.state = StateLoading
	c.err = nil
	c.publishLocked()
	c.mu.Unlock()

	page, fetchErr := c.fetcher.FetchTools(ctx, models.FilterValue(tag, c.allLabel), pageNum, c.limit)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.staleLocked(tag)
		return ErrStale
	}
	c.state = StateIdle
	if fetchErr != nil {
		c.err = fetchErr
		c.pending = &pendingOp{op: OpLoadMore, tag: tag}
		c.logger.Warn().Str("tag", tag).Str("token", string(token)).Str("error", fetchErr.Error()).Msg("load more failed")
		c.publishLocked()
		c.observe(OpLoadMore, fetchErr)
		return fetchErr
	}

	c.current.result.Append(token, *page)
	c.stable = view{tag: tag, result: c.current.result.Clone()}
	c.pending = nil
	c.logger.Debug().Str("tag", tag).Str("token", string(token)).Int("tools", len(page.Tools)).Msg("page appended")
	c.publishLocked()
	c.observe(OpLoadMore, nil)
	return nil
}

// Retry re-issues the last failed operation.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	p := c.pending
	c.mu.Unlock()

	if p == nil {
		return ErrNothingToRetry
	}

	switch p.op {
	case OpLoadMore:
		return c.LoadMore(ctx)
	case OpReload:
		return c.Reload(ctx)
	default:
		c.mu.Lock()
		gen := c.beginResetLocked(p.tag)
		c.mu.Unlock()
		err := c.finishReset(ctx, OpSelectTag, p.tag, gen)
		c.observe(OpSelectTag, err)
		return err
	}
}

// Subscribe returns a channel that receives the current snapshot immediately
// and every later change. A slow reader skips intermediate snapshots but the
// latest one is always delivered. cancel closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Close closes every subscription. Later Subscribe calls get a closed channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// pageNumber converts a continuation token to the decimal page number it
// names. Only digits are accepted; leading zeros are ignored.
func pageNumber(token models.Token) (int, error) {
	raw := strings.TrimSpace(string(token))
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	n, err := cast.ToIntE(strings.TrimLeft(raw, "0"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	return n, nil
}

// beginResetLocked moves to Loading(tag, []) under a new generation.
func (c *Controller) beginResetLocked(tag string) uint64 {
	c.generation++
	c.current = view{tag: tag}
	c.state = StateLoading
	c.err = nil
	c.publishLocked()
	return c.generation
}

// finishReset fetches page 1 for tag and settles the state.
func (c *Controller) finishReset(ctx context.Context, op, tag string, gen uint64) error {
	page, err := c.fetcher.FetchTools(ctx, models.FilterValue(tag, c.allLabel), 1, c.limit)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.staleLocked(tag)
		return ErrStale
	}
	c.state = StateIdle
	if err != nil {
		c.current = view{tag: c.stable.tag, result: c.stable.result.Clone()}
		c.err = err
		c.pending = &pendingOp{op: op, tag: tag}
		c.logger.Warn().Str("tag", tag).Str("operation", op).Str("error", err.Error()).Msg("tag fetch failed, keeping previous pages")
		c.publishLocked()
		return err
	}

	var result models.PaginatedResult
	result.Append(firstPageToken, *page)
	c.current = view{tag: tag, result: result}
	c.stable = view{tag: tag, result: result.Clone()}
	c.pending = nil
	c.logger.Debug().Str("tag", tag).Int("tools", len(page.Tools)).Msg("tag selected")
	c.publishLocked()
	return nil
}

func (c *Controller) staleLocked(tag string) {
	c.logger.Debug().Str("tag", tag).Msg("discarding stale response")
	if c.observer != nil {
		c.observer.ObserveStale()
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Tag:        c.current.tag,
		State:      c.state,
		Result:     c.current.result.Clone(),
		HasMore:    c.current.result.NextToken().Present(),
		Generation: c.generation,
		Err:        c.err,
		CanRetry:   c.pending != nil && c.err != nil,
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

// publishLocked delivers the current snapshot to every subscriber, replacing
// an undelivered older snapshot if the subscriber's buffer is full.
func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) observe(op string, err error) {
	if c.observer != nil && !errors.Is(err, ErrStale) {
		c.observer.ObserveTransition(op, err)
	}
}
