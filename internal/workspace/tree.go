// Package workspace keeps an in-memory index of the directories a project
// tracks. Lookups never touch the disk; the index is built up front by
// walking each member root.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// DefaultIgnore lists globs, relative to a member root, that are not indexed
var DefaultIgnore = []string{"**/.git", "**/node_modules", "**/__pycache__"}

// Entry is one indexed file or directory
type Entry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// Member is a root directory tracked by the workspace
type Member struct {
	ID      string `json:"id"`
	AbsPath string `json:"abs_path"`
	// Local members live on this machine's filesystem and may be probed
	// directly when the index misses.
	Local bool `json:"local"`

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMember creates an empty member rooted at absPath
func NewMember(memberID, absPath string, local bool) *Member {
	return &Member{
		ID:      memberID,
		AbsPath: filepath.Clean(absPath),
		Local:   local,
		entries: make(map[string]Entry),
	}
}

// Insert records an entry at a root-relative path
func (m *Member) Insert(rel string, isDir bool) {
	key := normalize(rel)
	m.mu.Lock()
	m.entries[key] = Entry{Path: key, IsDir: isDir}
	m.mu.Unlock()
}

// EntryForPath looks up a root-relative path
func (m *Member) EntryForPath(rel string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[normalize(rel)]
	return entry, ok
}

// RootIsDir reports whether the member root was indexed as a directory
func (m *Member) RootIsDir() bool {
	entry, ok := m.EntryForPath(".")
	return ok && entry.IsDir
}

// Len returns the number of indexed entries
func (m *Member) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Tree is the ordered set of workspace members
type Tree struct {
	logger *zap.Logger
	ignore []string

	mu      sync.RWMutex
	members []*Member
	active  string
	nextID  int
}

// Option configures a Tree
type Option func(*Tree)

// WithLogger sets the tree's logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tree) {
		t.logger = logger
	}
}

// WithIgnore replaces the ignore globs used by Index
func WithIgnore(globs ...string) Option {
	return func(t *Tree) {
		t.ignore = append([]string(nil), globs...)
	}
}

// NewTree creates an empty workspace
func NewTree(opts ...Option) (*Tree, error) {
	t := &Tree{
		logger: zap.NewNop(),
		ignore: DefaultIgnore,
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, glob := range t.ignore {
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("invalid ignore pattern: %q", glob)
		}
	}
	return t, nil
}

// AddMember appends an already populated member
func (t *Tree) AddMember(m *Member) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.members = append(t.members, m)
	if t.active == "" {
		t.active = m.ID
	}
}

// NewMemberID returns the next sequential member ID
func (t *Tree) NewMemberID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return fmt.Sprintf("member-%d", t.nextID)
}

// Index walks root on the local filesystem and adds it as a member
func (t *Tree) Index(ctx context.Context, root string) (*Member, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat member root: %w", err)
	}

	member := NewMember(t.NewMemberID(), root, true)
	member.Insert(".", info.IsDir())

	if info.IsDir() {
		conf := fastwalk.Config{Follow: false}
		err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				// unreadable subtrees are left out of the index
				return nil
			}
			if p == root {
				return nil
			}

			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if t.ignored(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			member.Insert(rel, d.IsDir())
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", root, err)
		}
	}

	t.AddMember(member)
	t.logger.Info("Indexed workspace member",
		zap.String("member", member.ID),
		zap.String("root", root),
		zap.Int("entries", member.Len()),
	)
	return member, nil
}

func (t *Tree) ignored(rel string) bool {
	for _, glob := range t.ignore {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

// FindMember returns the member containing abs and abs relative to its root.
// When roots nest, the deepest root wins.
func (t *Tree) FindMember(abs string) (*Member, string, bool) {
	abs = filepath.Clean(abs)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		best    *Member
		bestRel string
	)
	for _, m := range t.members {
		rel, ok := within(m.AbsPath, abs)
		if !ok {
			continue
		}
		if best == nil || len(m.AbsPath) > len(best.AbsPath) {
			best, bestRel = m, rel
		}
	}
	return best, bestRel, best != nil
}

// Member looks a member up by ID
func (t *Tree) Member(memberID string) (*Member, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, m := range t.members {
		if m.ID == memberID {
			return m, true
		}
	}
	return nil, false
}

// Members returns the members in insertion order
func (t *Tree) Members() []*Member {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Member(nil), t.members...)
}

// SetActive marks the member holding the user's focus
func (t *Tree) SetActive(memberID string) error {
	if _, ok := t.Member(memberID); !ok {
		return fmt.Errorf("unknown workspace member: %s", memberID)
	}
	t.mu.Lock()
	t.active = memberID
	t.mu.Unlock()
	return nil
}

// ActiveDirectory returns the active member's root if it is a directory,
// otherwise the first member whose root is one.
func (t *Tree) ActiveDirectory() (string, bool) {
	t.mu.RLock()
	active := t.active
	members := append([]*Member(nil), t.members...)
	t.mu.RUnlock()

	for _, m := range members {
		if m.ID == active && m.RootIsDir() {
			return m.AbsPath, true
		}
	}
	for _, m := range members {
		if m.RootIsDir() {
			return m.AbsPath, true
		}
	}
	return "", false
}

func within(root, abs string) (string, bool) {
	if abs == root {
		return ".", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(abs, prefix) {
		return "", false
	}
	return filepath.ToSlash(strings.TrimPrefix(abs, prefix)), true
}

func normalize(rel string) string {
	rel = strings.Trim(path.Clean(filepath.ToSlash(rel)), "/")
	if rel == "" {
		return "."
	}
	return rel
}
