// Package line is a thin adapter over the LINE Messaging API: webhook
// signature validation, reply/push delivery and message splitting.
package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
)

type Client struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	endpoint := cfg.Line.APIEndpoint
	if endpoint == "" {
		endpoint = "https://api.line.me"
	}
	return &Client{
		endpoint: endpoint,
		token:    cfg.Line.ChannelAccessToken,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// ValidateSignature checks the X-Line-Signature header: a base64 HMAC-SHA256
// of the raw request body keyed with the channel secret.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// Reply consumes the event's one-time reply token. Further messages for the
// same event must go through Push.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []Message) error {
	if err := c.postJSON(ctx, "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: messages}); err != nil {
		return fmt.Errorf("line reply failed: %w", err)
	}
	klog.V(6).Infof("line reply sent: messages=%d", len(messages))
	return nil
}

func (c *Client) Push(ctx context.Context, userID string, messages []Message) error {
	if err := c.postJSON(ctx, "/v2/bot/message/push", pushRequest{To: userID, Messages: messages}); err != nil {
		return fmt.Errorf("line push failed: %w", err)
	}
	klog.V(6).Infof("line push sent: userID=%s, messages=%d", userID, len(messages))
	return nil
}

func (c *Client) PushImage(ctx context.Context, userID, imageURL string) error {
	return c.Push(ctx, userID, []Message{NewImage(imageURL)})
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
