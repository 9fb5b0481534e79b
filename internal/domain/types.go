// Package domain defines the normalized domain types for GitHub Projects v2.
// These types represent the core concepts independent of the GitHub GraphQL API structure.
//
// Project values are immutable snapshots: code that needs a changed project builds a new one
// (see WithFieldValue and WithDraftContent) and never writes through a shared slice.
package domain

// Well-known field names. Only these two fields carry behavior; every other field is inert metadata.
const (
	FieldStatus   = "Status"
	FieldPriority = "Priority"
)

// Project represents a GitHub Project v2 instance.
type Project struct {
	ID     string  // GitHub Project node ID
	Number int     // Project number within the owner's namespace
	Title  string  // Project title
	URL    string  // Project URL
	Fields []Field // Single-select fields in API response order
	Items  []Item  // Project items in API response order
}

// Field represents a project field definition.
type Field struct {
	ID      string   // GitHub field node ID (synthetic "unknown-<uuid>" when the API omitted it)
	Name    string   // Field name (e.g., "Status")
	Options []Option // Available options; empty (never nil) after decoding
}

// Option represents a single option value for a SINGLE_SELECT field.
type Option struct {
	ID    string // GitHub option node ID
	Name  string // Option name displayed to users (e.g., "In Progress", "Done")
	Color string // Option color (e.g., "GREEN", "YELLOW"); presentation only
}

// Item represents a project item. Content is nil when the item's content failed to decode
// or is a kind we do not model; that does not imply a draft.
type Item struct {
	ID          string
	FieldValues []FieldValue
	Content     *Content
}

// FieldValue is a single-select value attached to an item.
type FieldValue struct {
	Name     string   // Option name, empty if the API returned null
	OptionID string   // Backing option ID, empty if the API returned null
	Field    FieldRef // Field the value belongs to (empty for non single-select values)
}

// FieldRef identifies the field a value belongs to without carrying its options.
type FieldRef struct {
	ID   string
	Name string
}

// ContentKind tags the Content variant.
type ContentKind string

// ContentKind constants for item content types.
const (
	ContentTypeIssue       ContentKind = "Issue"
	ContentTypePullRequest ContentKind = "PullRequest"
	ContentTypeDraftIssue  ContentKind = "DraftIssue"
)

// DraftState is the fixed state reported for draft issues.
const DraftState = "draft"

// Content is the tagged union over Issue, PullRequest and DraftIssue.
// Fields that a variant does not carry are left at their zero value:
// drafts have no Number, URL, Assignees or Labels; pull requests have no Labels;
// only drafts carry a Body.
type Content struct {
	Kind      ContentKind
	ID        string // Content node ID (the DraftIssue ID for drafts), may be empty
	Title     string
	State     string
	URL       string
	Number    int
	Body      string
	CreatedAt string // ISO8601, may be empty for drafts
	UpdatedAt string // ISO8601, may be empty for drafts
	Assignees []Assignee
	Labels    []Label
}

// Assignee is a user assigned to an issue or pull request.
type Assignee struct {
	ID        string
	Login     string
	AvatarURL string
}

// Label is an issue label.
type Label struct {
	ID    string
	Name  string
	Color string
}

// User is the authenticated GitHub user as reported by the REST API.
type User struct {
	ID        int64
	Login     string
	Name      string
	Email     string
	AvatarURL string
}
