// Package xapi is a minimal client for the X (Twitter) v2 API, covering
// the two lookups the verification flow needs: resolve a username to a
// user id, and list a user's most recent public posts.
package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.x.com"

// ErrUserNotFound means the API answered but the username resolves to no
// identity. Transport failures and non-2xx responses are returned as plain
// errors so callers can tell "no such user" from "X is unreachable".
var ErrUserNotFound = errors.New("xapi: user not found")

type User struct {
	ID       string
	Username string
	Name     string
}

type Post struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

type Client struct {
	bearer  string
	baseURL string
	http    *http.Client
}

func NewClient(bearer string) *Client {
	return &Client{
		bearer:  bearer,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake API.
func NewClientWithBaseURL(bearer, baseURL string) *Client {
	c := NewClient(bearer)
	c.baseURL = baseURL
	return c
}

func (c *Client) UserByUsername(ctx context.Context, username string) (User, error) {
	var out struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"data"`
	}
	u := c.baseURL + "/2/users/by/username/" + url.PathEscape(username)
	if err := c.getJSON(ctx, u, &out); err != nil {
		return User{}, err
	}
	if out.Data.ID == "" {
		return User{}, ErrUserNotFound
	}
	return User{ID: out.Data.ID, Username: out.Data.Username, Name: out.Data.Name}, nil
}

// RecentPosts returns up to max of the user's newest public posts. The API
// rejects max_results below 5, so smaller ceilings still request 5 and trim
// locally.
func (c *Client) RecentPosts(ctx context.Context, userID string, max int) ([]Post, error) {
	if max < 1 {
		max = 1
	}
	fetch := max
	if fetch < 5 {
		fetch = 5
	}

	var out struct {
		Data []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			CreatedAt string `json:"created_at"`
		} `json:"data"`
	}
	u := c.baseURL + "/2/users/" + url.PathEscape(userID) + "/tweets?max_results=" + strconv.Itoa(fetch) + "&tweet.fields=created_at,text"
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(out.Data))
	for _, p := range out.Data {
		ts, err := time.Parse(time.RFC3339, p.CreatedAt)
		if err != nil {
			// A post without a parseable timestamp can never satisfy the
			// validity window, so drop it rather than guess.
			continue
		}
		posts = append(posts, Post{ID: p.ID, Text: p.Text, CreatedAt: ts})
		if len(posts) >= max {
			break
		}
	}
	return posts, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Clawhammer")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("xapi: http %d", res.StatusCode)
	}
	return json.Unmarshal(b, dst)
}
