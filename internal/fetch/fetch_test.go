package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := New(0)
	u, _ := url.Parse(srv.URL)
	body, err := f.Fetch(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "hello" {
		t.Fatalf("got %q", body)
	}
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(0)
	u, _ := url.Parse(srv.URL)
	_, err := f.Fetch(context.Background(), u)
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	fe, ok := err.(*Error)
	if !ok || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("got %#v", err)
	}
}

func TestFetchWithCacheServesOn304(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("first-body"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(0)
	f.Cache = &Cache{Dir: dir}
	u, _ := url.Parse(srv.URL)

	body, err := f.Fetch(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "first-body" {
		t.Fatalf("got %q", body)
	}

	body2, err := f.Fetch(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if string(body2) != "first-body" {
		t.Fatalf("expected cached body on 304, got %q", body2)
	}
	if calls != 2 {
		t.Fatalf("expected 2 requests to the server, got %d", calls)
	}
}
