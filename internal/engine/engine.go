// Package engine executes user actions against GitHub: move a card, create a task, edit a task.
//
// Each action applies an optimistic edit to the board where one makes sense, issues the
// mutation, and then either refetches every project (success) or reverts the optimistic
// edit (failure). The store's snapshot is only ever replaced by a refetch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/h0rv/kanbanbar/internal/board"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/gh"
	"github.com/h0rv/kanbanbar/internal/store"
)

var (
	// ErrUnresolved indicates the item, its project, the field or the option could not be
	// found locally. No request was sent.
	ErrUnresolved = errors.New("could not resolve project/field/option")
	// ErrEmptyTitle indicates a task without a title.
	ErrEmptyTitle = errors.New("task title is required")
)

// Client is the subset of the GitHub client the engine mutates through.
type Client interface {
	UpdateItemField(ctx context.Context, token, projectID, itemID, fieldID, optionID string) error
	AddDraftIssue(ctx context.Context, token, projectID, title, body string) (string, error)
	UpdateDraftIssue(ctx context.Context, token, draftID, title, body string) error
}

// TokenSource yields the bearer token for each action.
type TokenSource interface {
	GetToken() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) GetToken() (string, error) { return f() }

// CreateStep names the follow-up mutation of CreateTask that failed.
type CreateStep string

const (
	StepStatus   CreateStep = "status"
	StepPriority CreateStep = "priority"
)

// PartialCreateError reports a draft that was created but whose status or priority
// could not be set. The draft is not deleted.
type PartialCreateError struct {
	ItemID string
	Step   CreateStep
	Err    error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf("created item %s but failed to set %s: %v", e.ItemID, e.Step, e.Err)
}

func (e *PartialCreateError) Unwrap() error { return e.Err }

// TaskInput describes a new task. Status and Priority are option names; empty means unset.
type TaskInput struct {
	ProjectID string
	Title     string
	Body      string
	Status    string
	Priority  string
}

// Engine coordinates mutations with the store and board.
type Engine struct {
	client Client
	store  *store.Store
	board  *board.Board
	tokens TokenSource
	log    *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// New creates an Engine.
func New(client Client, st *store.Store, b *board.Board, tokens TokenSource, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{client: client, store: st, board: b, tokens: tokens, log: log}
}

// LastError returns the error of the most recent action, or nil if it succeeded.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Store returns the project store the engine refreshes.
func (e *Engine) Store() *store.Store { return e.store }

// Board returns the board the engine edits.
func (e *Engine) Board() *board.Board { return e.board }

// Refresh refetches every project and re-selects the board's project from the new snapshot.
func (e *Engine) Refresh(ctx context.Context) error {
	token, err := e.token()
	if err != nil {
		return e.finish(err)
	}
	return e.finish(e.refresh(ctx, token))
}

// MoveCard sets the item's Status to the option named status.
func (e *Engine) MoveCard(ctx context.Context, itemID, status string) error {
	mv, err := e.BeginMove(itemID, status)
	if err != nil {
		return err
	}
	return mv.Commit(ctx)
}

// Move is a card move already shown on the board and not yet sent to GitHub.
type Move struct {
	engine    *Engine
	token     string
	projectID string
	itemID    string
	fieldID   string
	option    domain.Option
	undo      func()
}

// BeginMove resolves the move and applies it to the board without any network call, so a
// caller can render the card in its new column before Commit returns.
func (e *Engine) BeginMove(itemID, status string) (*Move, error) {
	token, err := e.token()
	if err != nil {
		return nil, e.finish(err)
	}

	project := e.store.FindProjectContaining(itemID)
	field := project.Field(domain.FieldStatus)
	opt := field.Option(status)
	if project == nil || field == nil || opt == nil {
		e.log.Warn("move not resolved", "item", itemID, "status", status)
		return nil, e.finish(fmt.Errorf("%w: item %s to %q", ErrUnresolved, itemID, status))
	}

	value := &domain.FieldValue{
		Name:     opt.Name,
		OptionID: opt.ID,
		Field:    domain.FieldRef{ID: field.ID, Name: field.Name},
	}
	return &Move{
		engine:    e,
		token:     token,
		projectID: project.ID,
		itemID:    itemID,
		fieldID:   field.ID,
		option:    *opt,
		undo:      e.applyFieldValue(project.ID, itemID, domain.FieldStatus, value),
	}, nil
}

// Commit sends the move. Success refetches every project; failure takes the board edit back.
func (mv *Move) Commit(ctx context.Context) error {
	e := mv.engine
	e.log.Info("moving card", "item", mv.itemID, "status", mv.option.Name)
	if err := e.client.UpdateItemField(ctx, mv.token, mv.projectID, mv.itemID, mv.fieldID, mv.option.ID); err != nil {
		mv.undo()
		e.log.Error("move failed, reverted", "item", mv.itemID, "error", err)
		return e.finish(err)
	}

	e.refreshAfterMutation(ctx, mv.token)
	return e.finish(nil)
}

// CreateTask adds a draft issue and then sets its status and priority when requested.
//
// The three mutations are independent: if setting status or priority fails, the draft
// stays created and a *PartialCreateError carries its item ID. Status is skipped when the
// project has no such option; priority likewise.
func (e *Engine) CreateTask(ctx context.Context, in TaskInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", e.finish(ErrEmptyTitle)
	}
	token, err := e.token()
	if err != nil {
		return "", e.finish(err)
	}

	itemID, err := e.client.AddDraftIssue(ctx, token, in.ProjectID, in.Title, in.Body)
	if err != nil {
		e.log.Error("create failed", "project", in.ProjectID, "error", err)
		return "", e.finish(err)
	}
	e.log.Info("created draft", "project", in.ProjectID, "item", itemID)

	project := e.store.ProjectByID(in.ProjectID)
	steps := []struct {
		step  CreateStep
		field string
		value string
	}{
		{StepStatus, domain.FieldStatus, in.Status},
		{StepPriority, domain.FieldPriority, in.Priority},
	}

	var partial error
	for _, s := range steps {
		if s.value == "" {
			continue
		}
		field := project.Field(s.field)
		opt := field.Option(s.value)
		if field == nil || opt == nil {
			e.log.Warn("skipping unresolved field", "field", s.field, "option", s.value)
			continue
		}
		if err := e.client.UpdateItemField(ctx, token, in.ProjectID, itemID, field.ID, opt.ID); err != nil {
			e.log.Error("setting field on new item failed", "item", itemID, "field", s.field, "error", err)
			partial = &PartialCreateError{ItemID: itemID, Step: s.step, Err: err}
			break
		}
	}

	e.refreshAfterMutation(ctx, token)
	return itemID, e.finish(partial)
}

// UpdateTask edits a draft issue's title and body. An empty body leaves the body unchanged.
// Linked issues and pull requests are not detected here; the API rejects them.
func (e *Engine) UpdateTask(ctx context.Context, itemID, title, body string) error {
	if strings.TrimSpace(title) == "" {
		return e.finish(ErrEmptyTitle)
	}
	token, err := e.token()
	if err != nil {
		return e.finish(err)
	}

	project := e.store.FindProjectContaining(itemID)
	if project == nil {
		return e.finish(fmt.Errorf("%w: item %s", ErrUnresolved, itemID))
	}

	// The draft node is addressed by its own ID when the snapshot carries it.
	draftID := itemID
	if c := project.Item(itemID).Content; c != nil && c.Kind == domain.ContentTypeDraftIssue && c.ID != "" {
		draftID = c.ID
	}

	undo := e.applyDraftContent(project.ID, itemID, title, body)

	e.log.Info("updating draft", "item", itemID, "draft", draftID)
	if err := e.client.UpdateDraftIssue(ctx, token, draftID, title, body); err != nil {
		undo()
		e.log.Error("update failed, reverted", "item", itemID, "error", err)
		return e.finish(err)
	}

	e.refreshAfterMutation(ctx, token)
	return e.finish(nil)
}

// applyFieldValue shows value on the board before the server confirms it and returns
// the function that takes it back.
func (e *Engine) applyFieldValue(projectID, itemID, fieldName string, value *domain.FieldValue) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.board.Project()
	if before == nil || before.ID != projectID || !before.HasItem(itemID) {
		return func() {}
	}
	var prev *domain.FieldValue
	if fv, ok := before.Item(itemID).FieldValue(fieldName); ok {
		prev = &fv
	}

	after := before.WithFieldValue(itemID, fieldName, value)
	if !e.board.ReplaceProject(before, after) {
		return func() {}
	}

	return e.revert(before, after, itemID, func(p *domain.Project) *domain.Project {
		return p.WithFieldValue(itemID, fieldName, prev)
	})
}

// applyDraftContent is applyFieldValue for a draft's title and body.
func (e *Engine) applyDraftContent(projectID, itemID, title, body string) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.board.Project()
	if before == nil || before.ID != projectID {
		return func() {}
	}
	item := before.Item(itemID)
	if item == nil || item.Content == nil || item.Content.Kind != domain.ContentTypeDraftIssue {
		return func() {}
	}
	prevTitle, prevBody := item.Content.Title, item.Content.Body
	if body == "" {
		body = prevBody
	}

	after := before.WithDraftContent(itemID, title, body)
	if !e.board.ReplaceProject(before, after) {
		return func() {}
	}

	return e.revert(before, after, itemID, func(p *domain.Project) *domain.Project {
		return p.WithDraftContent(itemID, prevTitle, prevBody)
	})
}

// revert returns the undo for an optimistic edit. If the board still shows the optimistic
// snapshot the previous one is reinstated; otherwise restore is applied to whatever the
// board shows now.
func (e *Engine) revert(before, after *domain.Project, itemID string, restore func(*domain.Project) *domain.Project) func() {
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.board.ReplaceProject(after, before) {
			return
		}
		current := e.board.Project()
		if current == nil || current.ID != before.ID || !current.HasItem(itemID) {
			return
		}
		e.board.ReplaceProject(current, restore(current))
	}
}

// refreshAfterMutation refetches after a successful mutation. A failed refetch is recorded
// by the store and leaves the optimistic board in place.
func (e *Engine) refreshAfterMutation(ctx context.Context, token string) {
	if err := e.refresh(ctx, token); err != nil {
		e.log.Warn("refresh after mutation failed", "error", err)
	}
}

func (e *Engine) refresh(ctx context.Context, token string) error {
	if _, err := e.store.FetchAll(ctx, token); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if current := e.board.Project(); current != nil {
		if fresh := e.store.ProjectByID(current.ID); fresh != nil {
			e.board.SetProject(fresh)
		}
	}
	return nil
}

func (e *Engine) token() (string, error) {
	token, err := e.tokens.GetToken()
	if err != nil {
		if errors.Is(err, gh.ErrNoToken) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", gh.ErrNoToken, err)
	}
	if token == "" {
		return "", gh.ErrNoToken
	}
	return token, nil
}

// finish maps err onto the gh error taxonomy, records it as the last error and returns it.
// Errors outside the taxonomy come back wrapped in gh.ErrUnknown.
func (e *Engine) finish(err error) error {
	err = gh.Classify(err)
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	return err
}
