package netutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDirectDownloader_ContextDeadlineOverridesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(20*time.Millisecond, "")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	body, err := d.Download(ctx, srv.URL)
	if err != nil {
		t.Fatalf("download should succeed with caller deadline, got err=%v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("body: got %q, want %q", string(body), "ok")
	}
}

func TestDirectDownloader_TimeoutWithoutContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(20*time.Millisecond, "")
	_, err := d.Download(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsRetryable(err) {
		t.Fatalf("timeout should be retryable: %v", err)
	}
}

func TestDirectDownloader_SendsHeaders(t *testing.T) {
	var gotUA, gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(time.Second, "portwatch/test")
	d.Token = "tok"
	if _, err := d.Download(context.Background(), srv.URL); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if gotUA != "portwatch/test" || gotAuth != "Bearer tok" || gotAccept != "application/json" {
		t.Fatalf("headers: ua=%q auth=%q accept=%q", gotUA, gotAuth, gotAccept)
	}
}

func TestDirectDownloader_StatusAndSizeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte("0123456789"))
		}
	}))
	defer srv.Close()

	d := NewDirectDownloader(time.Second, "")
	d.MaxBodyBytes = 4

	_, err := d.Download(context.Background(), srv.URL+"/missing")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("missing: got %v, want 404 HTTPStatusError", err)
	}
	if IsRetryable(err) {
		t.Fatal("404 should not be retryable")
	}

	_, err = d.Download(context.Background(), srv.URL+"/busy")
	if !IsRetryable(err) {
		t.Fatalf("503 should be retryable: %v", err)
	}

	_, err = d.Download(context.Background(), srv.URL+"/big")
	if err == nil || IsRetryable(err) {
		t.Fatalf("oversized body: got %v, want non-retryable error", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&NonRetryableError{Err: errors.New("bad url")}, false},
		{fmt.Errorf("wrapped: %w", context.Canceled), false},
		{&HTTPStatusError{StatusCode: 429}, true},
		{&HTTPStatusError{StatusCode: 400}, false},
		{errors.New("connection refused"), true},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("IsRetryable(%v): got %v, want %v", tc.err, got, tc.want)
		}
	}
}
