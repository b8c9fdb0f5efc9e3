// Package memos provides a typed client for the Memos HTTP API along with
// the filter-expression builder used for advanced queries.
package memos

import (
	"strings"
	"time"
)

// Visibility of a memo as the service defines it.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityProtected Visibility = "PROTECTED"
	VisibilityPrivate   Visibility = "PRIVATE"
)

// ParseVisibility validates a caller-supplied visibility value. Matching is
// case-insensitive; the canonical uppercase form is returned.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(strings.ToUpper(strings.TrimSpace(s))) {
	case VisibilityPublic:
		return VisibilityPublic, nil
	case VisibilityProtected:
		return VisibilityProtected, nil
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	default:
		return "", newValidationError("invalid visibility %q: must be one of PUBLIC, PROTECTED, PRIVATE", s)
	}
}

// Memo is a single note as the service returns it. The service owns every
// memo; each read produces a fresh snapshot and nothing is cached locally.
type Memo struct {
	Name       string     `json:"name,omitempty"`
	UID        string     `json:"uid,omitempty"`
	Creator    string     `json:"creator,omitempty"`
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Pinned     bool       `json:"pinned,omitempty"`
	CreateTime time.Time  `json:"createTime,omitzero"`
	UpdateTime time.Time  `json:"updateTime,omitzero"`
}

// MemoPatch carries the fields of a partial update. Nil fields are left
// untouched by the service.
type MemoPatch struct {
	Content    *string
	Visibility *Visibility
}

// Tag is one entry of the service's tag catalog.
type Tag struct {
	Name    string `json:"name"`
	Creator string `json:"creator,omitempty"`
}

// User identifies the owner of the configured credential.
type User struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

type listMemosResponse struct {
	Memos         []Memo `json:"memos"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// NormalizeID strips the "memos/" resource-name prefix. The service addresses
// notes as "memos/{id}" but its REST paths take the bare id; callers routinely
// paste either form.
func NormalizeID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "memos/")
}
