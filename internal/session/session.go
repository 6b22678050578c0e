// Package session holds the named tables of one analysis run and answers
// SQL queries over them.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/KaramelBytes/linkstat/internal/frame"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrUnknownView is returned when a view name was never registered.
var ErrUnknownView = errors.New("unknown view")

var viewName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Session is the explicit context of one analysis: an id that tags log
// lines, a logger and the registered views. It is not safe for concurrent
// use.
type Session struct {
	ID    uuid.UUID
	log   *slog.Logger
	views map[string]*frame.Table
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the base logger; the session id is added to it.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithID fixes the session id.
func WithID(id uuid.UUID) Option {
	return func(s *Session) { s.ID = id }
}

// New creates an empty session with a fresh id.
func New(opts ...Option) *Session {
	s := &Session{ID: uuid.New(), log: slog.Default(), views: map[string]*frame.Table{}}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("session_id", s.ID.String())
	return s
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.log }

// Register binds name to t, replacing any previous binding. Names must be
// plain SQL identifiers.
func (s *Session) Register(name string, t *frame.Table) error {
	if !viewName.MatchString(name) {
		return fmt.Errorf("register view: invalid name %q", name)
	}
	if t == nil {
		return fmt.Errorf("register view %q: nil table", name)
	}
	s.views[name] = t
	s.log.Debug("registered view", "view", name, "rows", t.Len(), "columns", t.Schema().Len())
	return nil
}

// View returns the table bound to name.
func (s *Session) View(name string) (*frame.Table, error) {
	t, ok := s.views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return t, nil
}

// Views lists registered names in order.
func (s *Session) Views() []string {
	names := lo.Keys(s.views)
	sort.Strings(names)
	return names
}
