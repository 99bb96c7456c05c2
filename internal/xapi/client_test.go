package xapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserByUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/by/username/demo", r.URL.Path)
		assert.Equal(t, "Bearer test-bearer", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"12345","username":"demo","name":"Demo Agent"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-bearer", srv.URL)
	u, err := c.UserByUsername(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "12345", Username: "demo", Name: "Demo Agent"}, u)
}

func TestUserByUsernameNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// X answers 200 with an errors array and no data for unknown handles.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":[{"title":"Not Found Error"}]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-bearer", srv.URL)
	_, err := c.UserByUsername(context.Background(), "nosuchuser")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserByUsernameHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-bearer", srv.URL)
	_, err := c.UserByUsername(context.Background(), "demo")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound, "rate limiting is not a missing user")
	assert.Contains(t, err.Error(), "http 429")
}

func TestRecentPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/12345/tweets", r.URL.Path)
		assert.Equal(t, "8", r.URL.Query().Get("max_results"))
		assert.Equal(t, "created_at,text", r.URL.Query().Get("tweet.fields"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"1","text":"first","created_at":"2026-03-01T12:00:00Z"},
			{"id":"2","text":"no timestamp"},
			{"id":"3","text":"third","created_at":"2026-03-01T12:05:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-bearer", srv.URL)
	posts, err := c.RecentPosts(context.Background(), "12345", 8)
	require.NoError(t, err)

	require.Len(t, posts, 2, "posts without a parseable timestamp are dropped")
	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), posts[0].CreatedAt)
	assert.Equal(t, "3", posts[1].ID)
}

func TestRecentPostsSmallMaxStillRequestsFive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The API rejects max_results below 5.
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"1","text":"a","created_at":"2026-03-01T12:00:00Z"},
			{"id":"2","text":"b","created_at":"2026-03-01T12:01:00Z"},
			{"id":"3","text":"c","created_at":"2026-03-01T12:02:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-bearer", srv.URL)
	posts, err := c.RecentPosts(context.Background(), "12345", 2)
	require.NoError(t, err)
	assert.Len(t, posts, 2, "oversized response is trimmed to max")
}

func TestRecentPostsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"meta":{"result_count":0}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-bearer", srv.URL)
	posts, err := c.RecentPosts(context.Background(), "12345", 8)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
