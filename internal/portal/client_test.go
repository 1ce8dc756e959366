package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestErrorExtraction(t *testing.T) {
	cases := map[string]string{
		`{"error":"invalid_credentials"}`:        "invalid_credentials",
		`{"message":"email already registered"}`: "email already registered",
		`{"error":"code","message":"readable"}`:  "readable",
		"plain text failure":                     "plain text failure",
		"":                                       "request failed",
	}
	for body, expect := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(body))
		}))
		client := NewClient(server.URL)
		_, err := client.Login(context.Background(), Credentials{Email: "a@b.test", Password: "x"})
		server.Close()
		if err == nil {
			t.Fatalf("expected error for body %q", body)
		}
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Message != expect {
			t.Fatalf("body %q: expected message %q, got %q", body, expect, apiErr.Message)
		}
	}
}

func TestTokenSafeUnderConcurrentRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, `{"error":"missing_token"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"users":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("token-0")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client.SetToken(fmt.Sprintf("token-%d", i))
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.ListUsers(context.Background(), ""); err != nil {
				t.Errorf("list users: %v", err)
			}
		}()
	}
	wg.Wait()
}
