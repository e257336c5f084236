// Package github is a minimal Contents API client used to mirror the
// database document into a repository.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
)

var ErrNotFound = errors.New("file not found")

type Client struct {
	endpoint string
	token    string
	owner    string
	repo     string
	client   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	endpoint := cfg.GitHub.APIEndpoint
	if endpoint == "" {
		endpoint = "https://api.github.com"
	}
	return &Client{
		endpoint: endpoint,
		token:    cfg.GitHub.Token,
		owner:    cfg.GitHub.RepoOwner,
		repo:     cfg.GitHub.RepoName,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether mirroring is configured at all.
func (c *Client) Enabled() bool {
	return c.token != "" && c.owner != "" && c.repo != ""
}

type contentsResponse struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.endpoint, c.owner, c.repo, path)
}

// GetFile fetches a file's decoded content and blob SHA. A missing file
// is reported as ErrNotFound so callers can branch to create.
func (c *Client) GetFile(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(path), nil)
	if err != nil {
		return nil, "", err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("github get %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	var parsed contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, "", fmt.Errorf("failed to parse contents response: %w", err)
	}
	// the API wraps base64 payloads across lines
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(parsed.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode file content: %w", err)
	}
	return decoded, parsed.SHA, nil
}

// PutFile creates or updates a file. sha must be the current blob SHA when
// updating and empty when creating.
func (c *Client) PutFile(ctx context.Context, path, message string, content []byte, sha string) error {
	payload, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github put %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	klog.V(6).Infof("github mirror updated %s (%d bytes)", path, len(content))
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
}
