package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"ciphera/internal/domain"
)

// HTTP is a domain.RelayClient implementation over HTTP/JSON, talking to
// cmd/relay. It authenticates with the bearer token the relay returns from
// /register, attaching it to every subsequent request for the registering
// user.
type HTTP struct {
	base   string
	client *http.Client

	mu    sync.Mutex
	token string
}

// NewHTTP constructs a relay client against base. If client is nil,
// http.DefaultClient is used.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{base: base, client: client}
}

type registerResponse struct {
	Token  string `json:"token"`
	Canary string `json:"canary"`
}

// RegisterPreKeyBundle publishes b and records the bearer token the relay issues.
func (c *HTTP) RegisterPreKeyBundle(ctx context.Context, b domain.PreKeyBundle) (string, error) {
	var out registerResponse
	if err := c.post(ctx, "/register", b, &out, false); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return out.Canary, nil
}

// FetchPreKeyBundle retrieves the bundle for username.
func (c *HTTP) FetchPreKeyBundle(ctx context.Context, username domain.Username) (domain.PreKeyBundle, error) {
	var out domain.PreKeyBundle
	if err := c.get(ctx, "/prekey/"+url.PathEscape(username.String()), &out, false); err != nil {
		return domain.PreKeyBundle{}, err
	}
	return out, nil
}

type canaryResponse struct {
	Canary string `json:"canary"`
}

// FetchAccountCanary returns the relay's current canary value for username.
func (c *HTTP) FetchAccountCanary(ctx context.Context, username domain.Username) (string, error) {
	var out canaryResponse
	if err := c.get(ctx, "/account/"+url.PathEscape(username.String())+"/canary", &out, true); err != nil {
		return "", err
	}
	return out.Canary, nil
}

// SendMessage posts env to the relay, destined for env.To.
func (c *HTTP) SendMessage(ctx context.Context, env domain.Envelope) error {
	return c.post(ctx, "/msg/"+url.PathEscape(env.To.String()), env, nil, true)
}

// FetchMessages retrieves up to limit queued envelopes for username.
func (c *HTTP) FetchMessages(ctx context.Context, username domain.Username, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(username.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.Envelope
	if err := c.get(ctx, path, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// AckMessages acknowledges the first count queued envelopes for username.
func (c *HTTP) AckMessages(ctx context.Context, username domain.Username, count int) error {
	payload := struct {
		Count int `json:"count"`
	}{Count: count}
	return c.post(ctx, "/msg/"+url.PathEscape(username.String())+"/ack", payload, nil, true)
}

func (c *HTTP) post(ctx context.Context, path string, in, out any, authed bool) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("relay: encode %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, buf)
	if err != nil {
		return fmt.Errorf("relay: build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out, authed)
}

func (c *HTTP) get(ctx context.Context, path string, out any, authed bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("relay: build request %s: %w", path, err)
	}
	return c.do(req, path, out, authed)
}

func (c *HTTP) do(req *http.Request, path string, out any, authed bool) error {
	if authed {
		c.mu.Lock()
		tok := c.token
		c.mu.Unlock()
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay: %s %s: %s", req.Method, path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ domain.RelayClient = (*HTTP)(nil)
