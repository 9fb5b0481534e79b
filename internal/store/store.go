// Package store holds the authoritative snapshot of the viewer's GitHub Projects.
// Snapshots are replaced wholesale on every successful fetch and never edited in place;
// optimistic edits live in the board, not here.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/h0rv/kanbanbar/internal/domain"
)

var (
	// ErrProjectNotFound indicates no project matches the requested reference.
	ErrProjectNotFound = errors.New("project not found")
	// ErrAmbiguousProject indicates a title matches more than one project.
	ErrAmbiguousProject = errors.New("project reference is ambiguous")
)

// ProjectFetcher loads projects from GitHub.
type ProjectFetcher interface {
	FetchProjects(ctx context.Context, token string) ([]domain.Project, error)
	FetchProjectSummaries(ctx context.Context, token string) ([]domain.Project, error)
}

// Store manages the current project snapshot.
//
// Reads and writes are guarded by a mutex, but fetches are not sequenced: two concurrent
// FetchAll calls both run and whichever finishes last wins.
type Store struct {
	fetcher ProjectFetcher
	log     *slog.Logger

	mu       sync.RWMutex
	projects []domain.Project
	loaded   bool
	err      error
	inflight int
}

// New creates an empty Store.
func New(fetcher ProjectFetcher, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{fetcher: fetcher, log: log}
}

// FetchAll runs the full projects query and replaces the snapshot on success.
//
// On failure the error is recorded and the previous snapshot is kept. The reduced
// summaries query is then tried; its results are installed only when the store has
// never held a snapshot, so a working board is never replaced by item-less projects.
// The returned error is the full query's error even when summaries were installed.
func (s *Store) FetchAll(ctx context.Context, token string) ([]domain.Project, error) {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	projects, err := s.fetcher.FetchProjects(ctx, token)
	if err == nil {
		if projects == nil {
			projects = []domain.Project{}
		}
		s.mu.Lock()
		s.projects = projects
		s.loaded = true
		s.err = nil
		s.mu.Unlock()

		s.log.Debug("project snapshot replaced", "projects", len(projects))
		return s.CurrentProjects(), nil
	}

	s.log.Warn("failed to fetch projects", "error", err)
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	summaries, fbErr := s.fetcher.FetchProjectSummaries(ctx, token)
	if fbErr != nil {
		s.log.Warn("fallback projects query failed", "error", fbErr)
		return s.CurrentProjects(), err
	}

	s.mu.Lock()
	if !s.loaded {
		s.projects = summaries
		s.loaded = true
		s.log.Info("installed project summaries", "projects", len(summaries))
	}
	s.mu.Unlock()

	return s.CurrentProjects(), err
}

// CurrentProjects returns the current snapshot. Callers must not modify the projects.
func (s *Store) CurrentProjects() []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// FindProjectContaining returns the first project whose items include itemID, or nil.
func (s *Store) FindProjectContaining(itemID string) *domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.projects {
		if s.projects[i].HasItem(itemID) {
			p := s.projects[i]
			return &p
		}
	}
	return nil
}

// ProjectByID returns the project with the given ID, or nil.
func (s *Store) ProjectByID(id string) *domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.projects {
		if s.projects[i].ID == id {
			p := s.projects[i]
			return &p
		}
	}
	return nil
}

// FindProject resolves a user-supplied reference: a project ID, a number, or a
// case-insensitive title.
func (s *Store) FindProject(ref string) (*domain.Project, error) {
	ref = strings.TrimSpace(ref)
	if p := s.ProjectByID(ref); p != nil {
		return p, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		for i := range s.projects {
			if s.projects[i].Number == n {
				p := s.projects[i]
				return &p, nil
			}
		}
	}

	var match *domain.Project
	for i := range s.projects {
		if strings.EqualFold(s.projects[i].Title, ref) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q", ErrAmbiguousProject, ref)
			}
			p := s.projects[i]
			match = &p
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrProjectNotFound, ref)
	}
	return match, nil
}

// Err returns the last fetch error, or nil after a successful fetch.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Loaded reports whether the store has ever held a snapshot.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
