package listing

import "github.com/bobmcallan/webtools-portal/internal/models"

// State is the controller's fetch state.
type State int

const (
	StateIdle State = iota
	StateLoading
)

func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "idle"
}

// MarshalText renders the state as "idle" or "loading".
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is an immutable view of the controller at one point in time.
type Snapshot struct {
	Tag        string                 `json:"tag"`
	State      State                  `json:"state"`
	Result     models.PaginatedResult `json:"result"`
	HasMore    bool                   `json:"has_more"`
	Generation uint64                 `json:"generation"`
	Err        error                  `json:"-"`
	Error      string                 `json:"error,omitempty"`
	CanRetry   bool                   `json:"can_retry"`
}

// Loading reports whether a fetch is in flight.
func (s Snapshot) Loading() bool {
	return s.State == StateLoading
}

// Tools returns every accumulated tool in page order.
func (s Snapshot) Tools() []models.Tool {
	return s.Result.Tools()
}
