package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
)

var (
	// ErrNotFound maps a 404: the session is gone or owned by someone else.
	ErrNotFound = errors.New("session unavailable")
	// ErrUnauthorized maps a 401: the credential is missing, invalid or expired.
	ErrUnauthorized = errors.New("please log in again")
	// ErrStreamFailed reports a gateway failure surfaced in-band on an open
	// stream.
	ErrStreamFailed = errors.New("streaming failed")
)

const terminalSentinel = "[DONE]"

// Credential is an issued bearer token plus the display name to show.
type Credential struct {
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
}

// Client is a typed wrapper over the server's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New builds a client for the API at baseURL.
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     log,
	}
}

// Register creates an account and returns its credential.
func (c *Client) Register(ctx context.Context, email, password, nickname string) (Credential, error) {
	var cred Credential
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", "",
		map[string]string{"email": email, "password": password, "nickname": nickname}, &cred)
	return cred, err
}

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, email, password string) (Credential, error) {
	var cred Credential
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": email, "password": password}, &cred)
	return cred, err
}

// ListSessions fetches the caller's sessions, newest first.
func (c *Client) ListSessions(ctx context.Context, token string) ([]chat.SessionSummary, error) {
	var sessions []chat.SessionSummary
	err := c.doJSON(ctx, http.MethodGet, "/api/sessions", token, nil, &sessions)
	return sessions, err
}

// CreateSession creates a session; an empty name means the server default.
func (c *Client) CreateSession(ctx context.Context, token, name string) (chat.Session, error) {
	var session chat.Session
	body := map[string]string{}
	if name != "" {
		body["sessionName"] = name
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/sessions", token, body, &session)
	return session, err
}

// GetSession fetches one owned session with its full log.
func (c *Client) GetSession(ctx context.Context, token, id string) (chat.Session, error) {
	var session chat.Session
	err := c.doJSON(ctx, http.MethodGet, "/api/sessions/"+id, token, nil, &session)
	return session, err
}

// RenameSession updates a session's name.
func (c *Client) RenameSession(ctx context.Context, token, id, name string) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/sessions/"+id, token,
		map[string]string{"newName": name}, nil)
}

// DeleteSession removes a session permanently.
func (c *Client) DeleteSession(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/sessions/"+id, token, nil, nil)
}

// StreamChat submits a conversation turn and invokes onFragment for every
// text delta until the terminal sentinel arrives. A malformed frame is logged
// and skipped; an in-band error event yields ErrStreamFailed.
func (c *Client) StreamChat(ctx context.Context, token, sessionID string, conversation []chat.Turn, onFragment func(delta string)) error {
	payload, err := json.Marshal(map[string]any{
		"conversation": conversation,
		"sessionId":    sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == terminalSentinel {
			return nil
		}

		var event struct {
			Content string `json:"content"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Fragment-level problem only: skip the frame, keep the stream.
			c.log.Warn("skipping malformed stream frame", zap.String("frame", data), zap.Error(err))
			continue
		}
		if event.Error != "" {
			return fmt.Errorf("%w: %s", ErrStreamFailed, event.Error)
		}
		if event.Content != "" {
			onFragment(event.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	return errors.New("stream closed before terminal event")
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	if payload.Error != "" {
		return fmt.Errorf("request failed (%d): %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}
