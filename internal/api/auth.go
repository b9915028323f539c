package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/streamhive/watchparty/internal/session"
)

type LoginParams struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterParams struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	ID     string `json:"id"`
	User   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

func (r authResponse) session() session.Session {
	sess := session.Session{Token: r.Token, UserID: r.UserID, Name: r.User.Name}
	if sess.UserID == "" {
		sess.UserID = r.User.ID
	}
	if sess.UserID == "" {
		sess.UserID = r.ID
	}
	return sess.WithTokenClaims()
}

// Login authenticates and installs the returned session on the client.
func (c *Client) Login(ctx context.Context, params *LoginParams) (session.Session, error) {
	return c.authenticate(ctx, "/api/auth/login", params)
}

func (c *Client) Register(ctx context.Context, params *RegisterParams) (session.Session, error) {
	return c.authenticate(ctx, "/api/auth/register", params)
}

func (c *Client) authenticate(ctx context.Context, path string, params any) (session.Session, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+path, params, &resp); err != nil {
		return session.Session{}, fmt.Errorf("failed to authenticate: %w", err)
	}
	if resp.Token == "" {
		return session.Session{}, fmt.Errorf("failed to authenticate: %w", ErrUnauthorized)
	}

	sess := resp.session()
	c.SetSession(sess)

	return sess, nil
}
