// Package store persists proposal versions.
package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"artbiz_proposal/tools"
)

var (
	// ErrPersistence wraps every write/read failure of a store or renderer.
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("version not found")
	// ErrStatusConflict is returned when a version already left the draft state.
	ErrStatusConflict = errors.New("version is not a draft")
)

const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Paths struct {
	MD  string `json:"md"`
	Doc string `json:"doc"`
}

// VersionMeta is the index entry of one saved proposal.
type VersionMeta struct {
	ID              string   `json:"id"`
	CreatedAt       int64    `json:"created_at"`
	Sponsor         string   `json:"sponsor"`
	Campaign        string   `json:"campaign"`
	ContentHash     string   `json:"sha1"`
	Paths           Paths    `json:"paths"`
	Tags            []string `json:"tags"`
	TemplateVersion string   `json:"template_version"`
	Status          string   `json:"status"`
	ApprovedAt      *int64   `json:"approved_at"`
	ApprovedBy      *string  `json:"approved_by"`
}

// UsedDoc is the evidence reference kept with a version.
type UsedDoc struct {
	Meta    map[string]string `json:"meta"`
	Preview string            `json:"preview"`
}

// Version is a saved proposal with its inputs.
type Version struct {
	VersionMeta
	Markdown string         `json:"markdown"`
	ToolData tools.ToolData `json:"tool_data"`
	UsedDocs []UsedDoc      `json:"used_docs"`
}

type SaveParams struct {
	Sponsor         string
	Campaign        string
	Markdown        string
	ToolData        tools.ToolData
	UsedDocs        []UsedDoc
	Tags            []string
	TemplateVersion string
}

// VersionStore keeps proposal versions, newest first.
type VersionStore interface {
	Save(ctx context.Context, p SaveParams) (VersionMeta, error)
	List(ctx context.Context, limit int) ([]VersionMeta, error)
	Get(ctx context.Context, id string) (Version, error)
	MarkApproved(ctx context.Context, id, by string) (VersionMeta, error)
	MarkRejected(ctx context.Context, id, by string) (VersionMeta, error)
}

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	slugDrop  = regexp.MustCompile(`[^A-Za-z0-9가-힣\-_.]`)
	slugLimit = 40
)

// Slug keeps ASCII letters/digits, Hangul and -_. ; whitespace becomes '-'.
func Slug(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "proposal"
	}
	s = spaceRe.ReplaceAllString(s, "-")
	s = slugDrop.ReplaceAllString(s, "")
	if r := []rune(s); len(r) > slugLimit {
		s = string(r[:slugLimit])
	}
	if s == "" {
		return "proposal"
	}
	return s
}

// ContentHash returns the hex SHA-1 of the markdown.
func ContentHash(md string) string {
	sum := sha1.Sum([]byte(md))
	return hex.EncodeToString(sum[:])
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
