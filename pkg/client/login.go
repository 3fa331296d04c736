package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LoginRequest is the body of POST /usuario/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges a username and password for a session token. The token is
// returned as issued; callers hand it to session.Manager.Login.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}

	raw, err := c.DoRaw(ctx, http.MethodPost, "/usuario/login", LoginRequest{
		Username: strings.TrimSpace(username),
		Password: password,
	})
	if err != nil {
		if IsStatus(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden) {
			return "", fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return "", err
	}

	token := parseToken(raw)
	if token == "" {
		return "", fmt.Errorf("%w: login response carried no token", ErrInvalidCredentials)
	}
	c.logger.InfoContext(ctx, "login accepted", "username", strings.TrimSpace(username))
	return token, nil
}

// parseToken accepts {"token": "..."}, a JSON string, or a bare token body.
func parseToken(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '{':
		var lr loginResponse
		if err := json.Unmarshal(raw, &lr); err != nil {
			return ""
		}
		return strings.TrimSpace(lr.Token)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}
