package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveFetch(resource string, _ time.Duration, kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, resource+":"+kind)
}

func TestFetchTags_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "webtools-portal/") {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["video","design","ai"]`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewToolsClient(srv.URL, WithObserver(obs))
	tags, err := c.FetchTags(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 3 || tags[0] != "video" || tags[2] != "ai" {
		t.Errorf("unexpected tags: %v", tags)
	}
	if len(obs.calls) != 1 || obs.calls[0] != "tags:" {
		t.Errorf("unexpected observations: %v", obs.calls)
	}
}

func TestFetchTags_NotAnArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tags":["video"]}`))
	}))
	defer srv.Close()

	_, err := NewToolsClient(srv.URL).FetchTags(context.Background())
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestFetchTools_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("tag") != "video" || q.Get("page") != "2" || q.Get("limit") != "9" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tools": [
				{"slug":"d","name":"D","description":"dee","url":"https://d.dev","createdAt":"2023-01-02T00:00:00Z","tags":["video"]},
				{"slug":"e","name":"E","description":"eee","url":"https://e.dev","createdAt":"2023-01-03T00:00:00Z","tags":["video"]}
			],
			"info": {"count": 11, "pages": 2, "next": null, "prev": "1"}
		}`))
	}))
	defer srv.Close()

	page, err := NewToolsClient(srv.URL).FetchTools(context.Background(), "video", 2, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := page.Slugs(); len(got) != 2 || got[0] != "d" || got[1] != "e" {
		t.Errorf("unexpected slugs: %v", got)
	}
	if page.Info.Next.Present() {
		t.Errorf("expected no next token, got %q", page.Info.Next)
	}
	if page.Info.Prev != "1" {
		t.Errorf("expected prev 1, got %q", page.Info.Prev)
	}
}

func TestFetchTools_EmptyTagIsSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values, ok := r.URL.Query()["tag"]
		if !ok || len(values) != 1 || values[0] != "" {
			t.Errorf("expected empty tag parameter, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"tools":[],"info":{"count":0,"pages":0}}`))
	}))
	defer srv.Close()

	page, err := NewToolsClient(srv.URL).FetchTools(context.Background(), "", 1, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Tools) != 0 {
		t.Errorf("expected empty page, got %d tools", len(page.Tools))
	}
}

func TestFetchTools_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := NewToolsClient(srv.URL, WithObserver(obs)).FetchTools(context.Background(), "x", 1, 9)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "upstream down") {
		t.Errorf("expected body snippet, got %q", statusErr.Body)
	}
	if !IsRetryable(err) {
		t.Error("5xx should be retryable")
	}
	if len(obs.calls) != 1 || obs.calls[0] != "tools:status" {
		t.Errorf("unexpected observations: %v", obs.calls)
	}
}

func TestFetchTools_MalformedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing tools", `{"info":{"count":0,"pages":0}}`},
		{"null tools", `{"tools":null,"info":{"count":0,"pages":0}}`},
		{"missing info", `{"tools":[]}`},
		{"tools not array", `{"tools":{"slug":"a"},"info":{}}`},
		{"tool without slug", `{"tools":[{"name":"nameless"}],"info":{}}`},
		{"bad token", `{"tools":[],"info":{"next":{"page":2}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewToolsClient(srv.URL).FetchTools(context.Background(), "", 1, 9)
			var malformed *MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedResponseError, got %v", err)
			}
			if ErrorKind(err) != KindMalformed {
				t.Errorf("expected kind malformed, got %s", ErrorKind(err))
			}
			if IsRetryable(err) {
				t.Error("malformed responses should not be retryable")
			}
		})
	}
}

func TestFetchTools_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewToolsClient(url).FetchTools(context.Background(), "", 1, 9)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if ErrorKind(err) != KindNetwork {
		t.Errorf("expected kind network, got %s", ErrorKind(err))
	}
}

func TestFetchTools_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewToolsClient(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.FetchTools(context.Background(), "", 1, 9)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
}

func TestFetchTools_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tools":[],"info":{}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewToolsClient(srv.URL).FetchTools(ctx, "", 1, 9)
	if ErrorKind(err) != KindCanceled {
		t.Errorf("expected kind canceled, got %s (%v)", ErrorKind(err), err)
	}
}

func TestFetchTools_RejectsNonPositiveArguments(t *testing.T) {
	c := NewToolsClient("http://unused")
	if _, err := c.FetchTools(context.Background(), "", 0, 9); err == nil {
		t.Error("expected error for page 0")
	}
	if _, err := c.FetchTools(context.Background(), "", 1, 0); err == nil {
		t.Error("expected error for limit 0")
	}
}

func TestErrorKind_Nil(t *testing.T) {
	if ErrorKind(nil) != "" {
		t.Error("nil error should have empty kind")
	}
	if ErrorKind(errors.New("plain")) != KindOther {
		t.Error("plain error should be other")
	}
}
