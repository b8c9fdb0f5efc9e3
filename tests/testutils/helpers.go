// Package testutils provides common utilities and helpers for testing
package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yuzhi-jiang/memos-mcp/pkg/memos"
	memosmcp "github.com/yuzhi-jiang/memos-mcp/pkg/memos-mcp"
)

// FakeMemos is an in-memory stand-in for a Memos instance. It implements the
// slice of the HTTP API the MCP server talks to and evaluates the filter
// clauses the expression builder emits, so search scenarios behave like a
// live service. Filters are a conjunction of content.contains, visibility
// equality, and createTime comparison clauses; anything else is a 400.
type FakeMemos struct {
	Token string

	mu     sync.Mutex
	nextID int
	memos  []memos.Memo
	server *httptest.Server
}

// NewFakeMemos starts the fake service. It shuts down with the test.
func NewFakeMemos(t *testing.T) *FakeMemos {
	t.Helper()

	f := &FakeMemos{Token: "test-token", nextID: 1}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL clients should dial.
func (f *FakeMemos) URL() string {
	return f.server.URL
}

// Seed inserts a memo directly, bypassing HTTP. Tags are derived from the
// hashtags in content the way the real service derives them. Seeded memos
// get increasing creation times so recency ordering is deterministic.
func (f *FakeMemos) Seed(content string, visibility memos.Visibility) memos.Memo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(content, visibility)
}

// Count reports how many memos the fake currently stores.
func (f *FakeMemos) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.memos)
}

func (f *FakeMemos) insert(content string, visibility memos.Visibility) memos.Memo {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(f.nextID) * time.Hour)
	memo := memos.Memo{
		Name:       fmt.Sprintf("memos/%d", f.nextID),
		UID:        fmt.Sprintf("uid-%d", f.nextID),
		Creator:    "users/1",
		Content:    content,
		Visibility: visibility,
		Tags:       memos.ContentTags(content),
		CreateTime: created,
		UpdateTime: created,
	}
	f.nextID++
	f.memos = append(f.memos, memo)
	return memo
}

func (f *FakeMemos) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	switch {
	case path == "/memos" && r.Method == http.MethodGet:
		f.listMemos(w, r)
	case path == "/memos" && r.Method == http.MethodPost:
		f.createMemo(w, r)
	case strings.HasPrefix(path, "/memos/"):
		f.memoByID(w, r, strings.TrimPrefix(path, "/memos/"))
	case path == "/tag" && r.Method == http.MethodGet:
		f.listTags(w)
	case path == "/auth/status" && r.Method == http.MethodPost:
		writeJSON(w, memos.User{Name: "users/1", Nickname: "tester", Email: "tester@example.com", Role: "USER"})
	default:
		writeError(w, http.StatusNotFound, "unknown route "+r.URL.Path)
	}
}

func (f *FakeMemos) listMemos(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")

	// Newest first, like the live service.
	matched := make([]memos.Memo, 0, len(f.memos))
	for i := len(f.memos) - 1; i >= 0; i-- {
		ok, err := matchesFilter(f.memos[i], filter)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ok {
			matched = append(matched, f.memos[i])
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(matched) {
			matched = matched[:limit]
		}
	}

	writeJSON(w, struct {
		Memos []memos.Memo `json:"memos"`
	}{Memos: matched})
}

func (f *FakeMemos) createMemo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content    string           `json:"content"`
		Visibility memos.Visibility `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, f.insert(body.Content, body.Visibility))
}

func (f *FakeMemos) memoByID(w http.ResponseWriter, r *http.Request, id string) {
	index := -1
	for i, memo := range f.memos {
		if memos.NormalizeID(memo.Name) == id {
			index = i
			break
		}
	}
	if index == -1 {
		writeError(w, http.StatusNotFound, "memo not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, f.memos[index])
	case http.MethodPatch:
		var patch struct {
			Content    *string           `json:"content"`
			Visibility *memos.Visibility `json:"visibility"`
		}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if patch.Content != nil {
			f.memos[index].Content = *patch.Content
			f.memos[index].Tags = memos.ContentTags(*patch.Content)
		}
		if patch.Visibility != nil {
			f.memos[index].Visibility = *patch.Visibility
		}
		f.memos[index].UpdateTime = f.memos[index].UpdateTime.Add(time.Minute)
		writeJSON(w, f.memos[index])
	case http.MethodDelete:
		f.memos = append(f.memos[:index], f.memos[index+1:]...)
		writeJSON(w, struct{}{})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (f *FakeMemos) listTags(w http.ResponseWriter) {
	seen := make(map[string]bool)
	tags := []memos.Tag{}
	for _, memo := range f.memos {
		for _, tag := range memo.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, memos.Tag{Name: tag, Creator: "users/1"})
			}
		}
	}
	writeJSON(w, tags)
}

func matchesFilter(memo memos.Memo, filter string) (bool, error) {
	if strings.TrimSpace(filter) == "" {
		return true, nil
	}

	for _, clause := range strings.Split(filter, "&&") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "content.contains('") && strings.HasSuffix(clause, "')"):
			needle := strings.TrimSuffix(strings.TrimPrefix(clause, "content.contains('"), "')")
			if !strings.Contains(memo.Content, unquoteCEL(needle)) {
				return false, nil
			}
		case strings.HasPrefix(clause, "visibility == '") && strings.HasSuffix(clause, "'"):
			want := strings.TrimSuffix(strings.TrimPrefix(clause, "visibility == '"), "'")
			if string(memo.Visibility) != want {
				return false, nil
			}
		case strings.HasPrefix(clause, "createTime "):
			ok, err := matchesCreateTime(memo, clause)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported filter clause %q", clause)
		}
	}
	return true, nil
}

func matchesCreateTime(memo memos.Memo, clause string) (bool, error) {
	rest := strings.TrimPrefix(clause, "createTime ")
	opEnd := strings.Index(rest, " ")
	if opEnd == -1 {
		return false, fmt.Errorf("unsupported filter clause %q", clause)
	}

	op := rest[:opEnd]
	arg := strings.TrimSpace(rest[opEnd+1:])
	if !strings.HasPrefix(arg, "timestamp('") || !strings.HasSuffix(arg, "')") {
		return false, fmt.Errorf("unsupported filter clause %q", clause)
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSuffix(strings.TrimPrefix(arg, "timestamp('"), "')"))
	if err != nil {
		return false, fmt.Errorf("bad timestamp in clause %q", clause)
	}

	switch op {
	case ">":
		return memo.CreateTime.After(ts), nil
	case ">=":
		return !memo.CreateTime.Before(ts), nil
	case "<":
		return memo.CreateTime.Before(ts), nil
	case "<=":
		return !memo.CreateTime.After(ts), nil
	case "==":
		return memo.CreateTime.Equal(ts), nil
	default:
		return false, fmt.Errorf("unsupported comparison %q", op)
	}
}

// unquoteCEL reverses the escaping the expression builder applies to string
// literals.
func unquoteCEL(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// SetupMemosServer creates an MCP server wired to the fake service with the
// default tag "mcp".
func SetupMemosServer(t *testing.T, fake *FakeMemos) *memosmcp.MemosServer {
	t.Helper()

	ms, err := memosmcp.NewMemosServer(memosmcp.Config{
		BaseURL:    fake.URL(),
		APIKey:     fake.Token,
		DefaultTag: "mcp",
	})
	if err != nil {
		t.Fatalf("Failed to create memos server: %v", err)
	}
	return ms
}

// ToolText returns the text payload of a tool result.
func ToolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	if len(result.Content) == 0 {
		t.Fatal("Tool result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

// AssertToolSuccess fails the test if the result carries an error payload.
func AssertToolSuccess(t *testing.T, result *mcp.CallToolResult) {
	t.Helper()

	if result.IsError {
		t.Fatalf("Tool call failed: %s", ToolText(t, result))
	}
}

// AssertToolErrorKind verifies a failed call reports the expected error kind.
func AssertToolErrorKind(t *testing.T, result *mcp.CallToolResult, kind string) {
	t.Helper()

	if !result.IsError {
		t.Fatalf("Expected error kind %s, got success: %s", kind, ToolText(t, result))
	}

	var payload struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(ToolText(t, result)), &payload); err != nil {
		t.Fatalf("Failed to decode error payload: %v", err)
	}
	if payload.Kind != kind {
		t.Errorf("Error kind mismatch: expected %s, got %s (%s)", kind, payload.Kind, payload.Message)
	}
}

// DecodeMemoList parses a successful tool result as a memo list.
func DecodeMemoList(t *testing.T, result *mcp.CallToolResult) []memos.Memo {
	t.Helper()

	AssertToolSuccess(t, result)
	var list []memos.Memo
	if err := json.Unmarshal([]byte(ToolText(t, result)), &list); err != nil {
		t.Fatalf("Failed to parse memo list: %v", err)
	}
	return list
}

// DecodeMemo parses a successful tool result as a single memo.
func DecodeMemo(t *testing.T, result *mcp.CallToolResult) memos.Memo {
	t.Helper()

	AssertToolSuccess(t, result)
	var memo memos.Memo
	if err := json.Unmarshal([]byte(ToolText(t, result)), &memo); err != nil {
		t.Fatalf("Failed to parse memo: %v", err)
	}
	return memo
}
