package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/masapokki/line-night-idea-enhancer/config"
)

func testClient(endpoint string) *Client {
	return NewClient(&config.Config{
		GitHub: config.GitHubConfig{
			APIEndpoint: endpoint,
			Token:       "gh-token",
			RepoOwner:   "masapokki",
			RepoName:    "idea-archive",
		},
	})
}

func TestGetFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/masapokki/idea-archive/contents/data/database.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer gh-token" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sha": "abc123",
			// the API inserts newlines into long base64 payloads
			"content": "eyJ1c2Vy\ncyI6e319\n",
		})
	}))
	defer server.Close()

	content, sha, err := testClient(server.URL).GetFile(context.Background(), "data/database.json")
	if err != nil {
		t.Fatalf("GetFile() unexpected error: %v", err)
	}
	if string(content) != `{"users":{}}` {
		t.Errorf("unexpected decoded content %q", content)
	}
	if sha != "abc123" {
		t.Errorf("unexpected sha %q", sha)
	}
}

func TestGetFileNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, _, err := testClient(server.URL).GetFile(context.Background(), "data/database.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutFileUpdate(t *testing.T) {
	var got putRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := testClient(server.URL).PutFile(context.Background(), "data/database.json", "update database", []byte(`{"users":{}}`), "abc123")
	if err != nil {
		t.Fatalf("PutFile() unexpected error: %v", err)
	}
	if got.SHA != "abc123" {
		t.Errorf("expected sha forwarded for update, got %q", got.SHA)
	}
	decoded, err := base64.StdEncoding.DecodeString(got.Content)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != `{"users":{}}` {
		t.Errorf("unexpected content payload %q", decoded)
	}
}

func TestPutFileCreateOmitsSHA(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["sha"]; ok {
			t.Error("sha must be omitted when creating a file")
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := testClient(server.URL).PutFile(context.Background(), "data/database.json", "create database", []byte("{}"), "")
	if err != nil {
		t.Fatalf("PutFile() unexpected error: %v", err)
	}
}

func TestPutFileErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	err := testClient(server.URL).PutFile(context.Background(), "data/database.json", "update", []byte("{}"), "")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestEnabled(t *testing.T) {
	if !testClient("http://example.com").Enabled() {
		t.Error("fully configured client should be enabled")
	}
	if NewClient(&config.Config{}).Enabled() {
		t.Error("unconfigured client should be disabled")
	}
}
