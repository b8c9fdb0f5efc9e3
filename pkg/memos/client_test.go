package memos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture records what the fake service saw so assertions can run on the
// test goroutine after the call returns.
type capture struct {
	mu     sync.Mutex
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
	calls  []string
}

func (c *capture) record(r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = r.Method
	c.path = r.URL.Path
	c.query = r.URL.Query()
	c.header = r.Header.Clone()
	c.body = data
	c.calls = append(c.calls, r.Method+" "+r.URL.Path)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "test-token")
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("requires a base URL", func(t *testing.T) {
		_, err := NewClient("  ", "token")
		require.Error(t, err)
	})

	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewClient("http://localhost:5230", "")
		require.Error(t, err)
	})

	t.Run("trims a trailing slash", func(t *testing.T) {
		var rec capture
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
			fmt.Fprint(w, `{"memos":[]}`)
		}))
		t.Cleanup(srv.Close)

		client, err := NewClient(srv.URL+"/", "token")
		require.NoError(t, err)

		_, err = client.ListAll(context.Background())
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, "/api/v1/memos", rec.path)
	})
}

func TestClientSendsBearerAuth(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"memos":[]}`)
	})

	_, err := client.ListAll(context.Background())
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "Bearer test-token", rec.header.Get("Authorization"))
	assert.Equal(t, "application/json", rec.header.Get("Accept"))
}

func TestListRecent(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"memos":[{"name":"memos/1","content":"one"},{"name":"memos/2","content":"two"}]}`)
	})

	t.Run("passes the limit through", func(t *testing.T) {
		memos, err := client.ListRecent(context.Background(), 25)
		require.NoError(t, err)
		require.Len(t, memos, 2)
		assert.Equal(t, "one", memos[0].Content)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, "/api/v1/memos", rec.path)
		assert.Equal(t, "25", rec.query.Get("limit"))
	})

	t.Run("defaults a non-positive limit", func(t *testing.T) {
		_, err := client.ListRecent(context.Background(), 0)
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, "10", rec.query.Get("limit"))
	})
}

func TestListAll(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"memos":[{"content":"a"},{"content":"b"},{"content":"c"}]}`)
	})

	memos, err := client.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, memos, 3)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Empty(t, rec.query, "a plain listing sends no query parameters")
}

func TestGetByID(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"name":"memos/42","uid":"abc","content":"standup notes #work","visibility":"PRIVATE","tags":["work"],"pinned":true,"createTime":"2024-05-01T10:00:00Z"}`)
	})

	t.Run("fetches by bare id", func(t *testing.T) {
		memo, err := client.GetByID(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "memos/42", memo.Name)
		assert.Equal(t, "standup notes #work", memo.Content)
		assert.Equal(t, VisibilityPrivate, memo.Visibility)
		assert.True(t, memo.Pinned)
		assert.True(t, memo.CreateTime.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, "/api/v1/memos/42", rec.path)
	})

	t.Run("accepts the memos/ resource name", func(t *testing.T) {
		_, err := client.GetByID(context.Background(), "memos/42")
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, "/api/v1/memos/42", rec.path)
	})
}

func TestSearch(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"memos":[{"content":"buy milk"}]}`)
	})
	ctx := context.Background()

	t.Run("builds a contains predicate from the query", func(t *testing.T) {
		memos, err := client.Search(ctx, "milk", FilterExpression{})
		require.NoError(t, err)
		require.Len(t, memos, 1)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, `content.contains('milk')`, rec.query.Get("filter"))
	})

	t.Run("combines the query with a caller filter", func(t *testing.T) {
		_, err := client.Search(ctx, "milk", RawFilter("visibility == 'PRIVATE'"))
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, `content.contains('milk') && visibility == 'PRIVATE'`, rec.query.Get("filter"))
	})

	t.Run("passes a bare filter through when the query is empty", func(t *testing.T) {
		_, err := client.Search(ctx, "", RawFilter("pinned == true"))
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, `pinned == true`, rec.query.Get("filter"))
	})

	t.Run("escapes quotes in the query", func(t *testing.T) {
		_, err := client.Search(ctx, `mom's "note"`, FilterExpression{})
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, `content.contains('mom\'s "note"')`, rec.query.Get("filter"))
	})
}

func TestFilter(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"memos":[]}`)
	})
	ctx := context.Background()

	t.Run("sends the expression verbatim", func(t *testing.T) {
		expr, err := NewFilterBuilder().
			ContentContains("meeting").
			VisibilityIs("PRIVATE").
			Build()
		require.NoError(t, err)

		_, err = client.Filter(ctx, expr)
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, `content.contains('meeting') && visibility == 'PRIVATE'`, rec.query.Get("filter"))
	})

	t.Run("an empty expression lists everything", func(t *testing.T) {
		_, err := client.Filter(ctx, FilterExpression{})
		require.NoError(t, err)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Empty(t, rec.query, "no filter parameter for an empty expression")
	})
}

func TestCreate(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"name":"memos/9","content":"buy milk\n#home","visibility":"PRIVATE"}`)
	})
	ctx := context.Background()

	decodeBody := func(t *testing.T) (sent struct {
		Content    string `json:"content"`
		Visibility string `json:"visibility"`
	}) {
		t.Helper()
		rec.mu.Lock()
		defer rec.mu.Unlock()
		require.NoError(t, json.Unmarshal(rec.body, &sent))
		return sent
	}

	t.Run("posts the memo", func(t *testing.T) {
		memo, err := client.Create(ctx, "buy milk\n#home", "private", nil)
		require.NoError(t, err)
		assert.Equal(t, "memos/9", memo.Name)

		rec.mu.Lock()
		assert.Equal(t, http.MethodPost, rec.method)
		assert.Equal(t, "/api/v1/memos", rec.path)
		assert.Equal(t, "application/json", rec.header.Get("Content-Type"))
		rec.mu.Unlock()

		sent := decodeBody(t)
		assert.Equal(t, "buy milk\n#home", sent.Content)
		assert.Equal(t, "PRIVATE", sent.Visibility, "visibility is canonicalized before sending")
	})

	t.Run("appends tags as hashtags", func(t *testing.T) {
		_, err := client.Create(ctx, "buy milk", VisibilityPrivate, []string{"home", "mcp"})
		require.NoError(t, err)

		assert.Equal(t, "buy milk\n#home #mcp", decodeBody(t).Content)
	})

	t.Run("does not duplicate a tag already in the content", func(t *testing.T) {
		_, err := client.Create(ctx, "buy milk #home", VisibilityPrivate, []string{"home"})
		require.NoError(t, err)

		assert.Equal(t, "buy milk #home", decodeBody(t).Content)
	})
}

func TestUpdate(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"name":"memos/42","content":"updated"}`)
	})
	ctx := context.Background()

	decodeBody := func(t *testing.T) map[string]any {
		t.Helper()
		rec.mu.Lock()
		defer rec.mu.Unlock()
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.body, &body))
		return body
	}

	t.Run("sends only the content when that is all that changed", func(t *testing.T) {
		content := "updated"
		memo, err := client.Update(ctx, "memos/42", MemoPatch{Content: &content})
		require.NoError(t, err)
		assert.Equal(t, "updated", memo.Content)

		rec.mu.Lock()
		assert.Equal(t, http.MethodPatch, rec.method)
		assert.Equal(t, "/api/v1/memos/42", rec.path)
		rec.mu.Unlock()

		assert.Equal(t, map[string]any{"content": "updated"}, decodeBody(t))
	})

	t.Run("sends only the visibility when that is all that changed", func(t *testing.T) {
		vis := Visibility("public")
		_, err := client.Update(ctx, "42", MemoPatch{Visibility: &vis})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"visibility": "PUBLIC"}, decodeBody(t))
	})

	t.Run("sends both fields together", func(t *testing.T) {
		content := "updated"
		vis := VisibilityProtected
		_, err := client.Update(ctx, "42", MemoPatch{Content: &content, Visibility: &vis})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"content": "updated", "visibility": "PROTECTED"}, decodeBody(t))
	})
}

func TestDelete(t *testing.T) {
	t.Run("deletes by id", func(t *testing.T) {
		var rec capture
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
			fmt.Fprint(w, `{}`)
		})

		require.NoError(t, client.Delete(context.Background(), "memos/7"))

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, http.MethodDelete, rec.method)
		assert.Equal(t, "/api/v1/memos/7", rec.path)
	})

	t.Run("a second delete surfaces not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"memo not found"}`)
		})

		err := client.Delete(context.Background(), "7")
		var notFoundErr *NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
		assert.Contains(t, err.Error(), "memo not found")
	})
}

func TestRemoveTag(t *testing.T) {
	ctx := context.Background()

	t.Run("strips the tag and writes the memo back", func(t *testing.T) {
		var rec capture
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
			switch r.Method {
			case http.MethodGet:
				fmt.Fprint(w, `{"name":"memos/7","content":"buy milk\n#home #mcp"}`)
			case http.MethodPatch:
				fmt.Fprint(w, `{"name":"memos/7","content":"buy milk\n#mcp"}`)
			}
		})

		memo, err := client.RemoveTag(ctx, "7", "home")
		require.NoError(t, err)
		assert.Equal(t, "buy milk\n#mcp", memo.Content)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, []string{"GET /api/v1/memos/7", "PATCH /api/v1/memos/7"}, rec.calls)

		var sent map[string]any
		require.NoError(t, json.Unmarshal(rec.body, &sent))
		assert.Equal(t, map[string]any{"content": "buy milk\n#mcp"}, sent)
	})

	t.Run("an absent tag issues no write", func(t *testing.T) {
		var rec capture
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
			fmt.Fprint(w, `{"name":"memos/7","content":"buy milk"}`)
		})

		memo, err := client.RemoveTag(ctx, "7", "work")
		require.NoError(t, err)
		assert.Equal(t, "buy milk", memo.Content)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Equal(t, []string{"GET /api/v1/memos/7"}, rec.calls)
	})

	t.Run("a missing memo surfaces not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"memo not found"}`)
		})

		_, err := client.RemoveTag(ctx, "does-not-exist", "home")
		var notFoundErr *NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
	})
}

func TestListTags(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `[{"name":"home","creator":"users/1"},{"name":"mcp","creator":"users/1"}]`)
	})

	tags, err := client.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "home", tags[0].Name)
	assert.Equal(t, "users/1", tags[0].Creator)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/v1/tag", rec.path)
}

func TestAuthStatus(t *testing.T) {
	var rec capture
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		fmt.Fprint(w, `{"name":"users/1","nickname":"kay","role":"HOST"}`)
	})

	user, err := client.AuthStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "users/1", user.Name)
	assert.Equal(t, "kay", user.Nickname)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/v1/auth/status", rec.path)
}

func TestValidationBeforeNetwork(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected %s %s: invalid input must be rejected before any request", r.Method, r.URL.Path)
	})
	ctx := context.Background()

	empty := ""
	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{"get with a blank id", func(c *Client) error {
			_, err := c.GetByID(ctx, "  ")
			return err
		}},
		{"get with a bare prefix", func(c *Client) error {
			_, err := c.GetByID(ctx, "memos/")
			return err
		}},
		{"create with empty content", func(c *Client) error {
			_, err := c.Create(ctx, "   ", VisibilityPrivate, nil)
			return err
		}},
		{"create with an unknown visibility", func(c *Client) error {
			_, err := c.Create(ctx, "note", "SECRET", nil)
			return err
		}},
		{"update with no fields", func(c *Client) error {
			_, err := c.Update(ctx, "42", MemoPatch{})
			return err
		}},
		{"update with empty content", func(c *Client) error {
			_, err := c.Update(ctx, "42", MemoPatch{Content: &empty})
			return err
		}},
		{"delete with a blank id", func(c *Client) error {
			return c.Delete(ctx, "")
		}},
		{"remove tag with a blank tag", func(c *Client) error {
			_, err := c.RemoveTag(ctx, "42", " ")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(client)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 maps to an auth error",
			status: http.StatusUnauthorized,
			body:   `{"message":"invalid access token"}`,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
				assert.Contains(t, err.Error(), "invalid access token")
			},
		},
		{
			name:   "403 maps to an auth error",
			status: http.StatusForbidden,
			body:   "",
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
			},
		},
		{
			name:   "404 maps to not found",
			status: http.StatusNotFound,
			body:   `{"message":"memo not found"}`,
			check: func(t *testing.T, err error) {
				var notFoundErr *NotFoundError
				require.ErrorAs(t, err, &notFoundErr)
				assert.Contains(t, err.Error(), "memo not found")
			},
		},
		{
			name:   "500 maps to unavailable",
			status: http.StatusInternalServerError,
			body:   "backend exploded",
			check: func(t *testing.T, err error) {
				var unavailableErr *UnavailableError
				require.ErrorAs(t, err, &unavailableErr)
				assert.Equal(t, http.StatusInternalServerError, unavailableErr.StatusCode)
				assert.Contains(t, err.Error(), "backend exploded")
			},
		},
		{
			name:   "502 maps to unavailable",
			status: http.StatusBadGateway,
			body:   "",
			check: func(t *testing.T, err error) {
				var unavailableErr *UnavailableError
				require.ErrorAs(t, err, &unavailableErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := client.ListAll(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `this is not json`)
	})

	_, err := client.ListAll(context.Background())
	var malformedErr *MalformedResponseError
	require.ErrorAs(t, err, &malformedErr)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewClient(srv.URL, "test-token")
	require.NoError(t, err)
	srv.Close()

	_, err = client.ListAll(context.Background())
	var unavailableErr *UnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Error(t, unavailableErr.Err, "the transport error is kept for unwrapping")
}
