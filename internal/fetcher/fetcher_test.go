package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
)

func TestFetchSucceedsAgainstHealthyServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ip":"1.2.3.4"}`))
	}))
	defer srv.Close()

	f := New(50, time.Millisecond, 2*time.Millisecond)
	res, err := f.Fetch(context.Background(), srv.URL, Options{Source: "test-src", Timeout: time.Second})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", res.StatusCode)
	}
	if res.Signal != SignalNone {
		t.Errorf("expected no anti-bot signal, got %s", res.Signal)
	}
}

func TestFetchDetectsRateLimitAndRaisesPenalty(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("429 too many requests"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(50, time.Millisecond, 2*time.Millisecond)
	source := "rate-limited-src"

	_, err := f.Fetch(context.Background(), srv.URL, Options{Source: source, Timeout: time.Second, MaxRetries: 2})
	if err != nil {
		t.Fatalf("expected retry to succeed after rate limit, got %v", err)
	}

	backoff := f.backoffs.get(source)
	if backoff.penalty == 0 {
		t.Error("expected rate-limit penalty to be recorded")
	}
}

func TestFetchReturnsAntiBotErrorWhenAlwaysBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("access denied"))
	}))
	defer srv.Close()

	f := New(50, time.Millisecond, 2*time.Millisecond)
	_, err := f.Fetch(context.Background(), srv.URL, Options{Source: "blocked-src", Timeout: time.Second, MaxRetries: 1})
	if err == nil {
		t.Fatal("expected error from persistently blocked source")
	}
	if harvesterErrors.KindOf(err) != harvesterErrors.KindAntiBot {
		t.Errorf("expected anti-bot error kind, got %s", harvesterErrors.KindOf(err))
	}
}

func TestSourceBackoffSuccessRatio(t *testing.T) {
	b := newSourceBackoff()
	for i := 0; i < 10; i++ {
		b.recordOutcome(true, SignalNone)
	}
	for i := 0; i < 10; i++ {
		b.recordOutcome(false, SignalNone)
	}
	if ratio := b.successRatio(); ratio != 0.5 {
		t.Errorf("expected 0.5 success ratio, got %f", ratio)
	}
}

func TestDetectSignalClassifiesKnownMarkers(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   Signal
	}{
		{200, "all good", SignalNone},
		{429, "", SignalRateLimit},
		{200, "please complete the captcha to continue", SignalCaptcha},
		{200, "checking your browser before accessing", SignalCloudflareChallenge},
		{403, "access denied", SignalBlocked},
	}
	for _, c := range cases {
		if got := detectSignal(c.status, c.body); got != c.want {
			t.Errorf("detectSignal(%d, %q) = %s, want %s", c.status, c.body, got, c.want)
		}
	}
}
