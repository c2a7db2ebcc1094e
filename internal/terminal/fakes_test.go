package terminal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/GriffinCanCode/termprov/internal/providers/filesystem"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
	"github.com/GriffinCanCode/termprov/internal/toolchain"
	"github.com/GriffinCanCode/termprov/internal/workspace"
)

type fakeToolchains struct {
	mu    sync.Mutex
	path  string
	err   error
	calls int
}

func (f *fakeToolchains) Active(_ context.Context, _, language string) (*toolchain.Toolchain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.path == "" {
		return nil, nil
	}
	return &toolchain.Toolchain{Name: "python", Language: language, Path: f.path}, nil
}

type fakeFS struct {
	mu    sync.Mutex
	dirs  map[string]bool
	fail  map[string]bool
	calls []string
}

func (f *fakeFS) Metadata(_ context.Context, path string) (*filesystem.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	if f.fail[path] {
		return nil, errors.New("io error")
	}
	isDir, ok := f.dirs[path]
	if !ok {
		return nil, nil
	}
	return &filesystem.Metadata{IsDir: isDir}, nil
}

func (f *fakeFS) probed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSession struct {
	id   id.TerminalID
	mu   sync.Mutex
	buf  bytes.Buffer
	done chan struct{}
	err  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{id: id.NewTerminalID(), done: make(chan struct{})}
}

func (s *fakeSession) ID() id.TerminalID     { return s.id }
func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *fakeSession) written() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

type fakeSink struct {
	mu       sync.Mutex
	launched []*LaunchPlan
	sessions []*fakeSession
	err      error
}

func (f *fakeSink) Launch(_ context.Context, plan *LaunchPlan, _ id.WindowID) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := newFakeSession()
	f.launched = append(f.launched, plan)
	f.sessions = append(f.sessions, s)
	return s, nil
}

// newTree builds an in-memory workspace with one member rooted at root
// holding the given directories.
func newTree(t *testing.T, root string, local bool, dirs ...string) *workspace.Tree {
	t.Helper()
	tree, err := workspace.NewTree()
	require.NoError(t, err)

	member := workspace.NewMember(tree.NewMemberID(), root, local)
	member.Insert(".", true)
	for _, dir := range dirs {
		member.Insert(dir, true)
	}
	tree.AddMember(member)
	return tree
}

// parseRemote takes the `sh -c <quoted>` transport argument, unwraps the outer
// quoting and parses the inner line the way the remote shell would.
func parseRemote(t *testing.T, invocation string) []*syntax.CallExpr {
	t.Helper()
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))

	outer, err := parser.Parse(strings.NewReader(invocation), "")
	require.NoError(t, err)
	require.Len(t, outer.Stmts, 1)
	call, ok := outer.Stmts[0].Cmd.(*syntax.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 3, "sh -c takes exactly one command string")

	line, err := expand.Literal(&expand.Config{}, call.Args[2])
	require.NoError(t, err)

	inner, err := parser.Parse(strings.NewReader(line), "")
	require.NoError(t, err)

	calls := make([]*syntax.CallExpr, 0, len(inner.Stmts))
	for _, stmt := range inner.Stmts {
		c, ok := stmt.Cmd.(*syntax.CallExpr)
		require.True(t, ok)
		calls = append(calls, c)
	}
	return calls
}

// fields expands a call's arguments and assignments against env
func fields(t *testing.T, call *syntax.CallExpr, env ...string) ([]string, map[string]string) {
	t.Helper()
	cfg := &expand.Config{Env: expand.ListEnviron(env...)}

	argv, err := expand.Fields(cfg, call.Args...)
	require.NoError(t, err)

	assigns := make(map[string]string, len(call.Assigns))
	for _, a := range call.Assigns {
		value := ""
		if a.Value != nil {
			value, err = expand.Literal(cfg, a.Value)
			require.NoError(t, err)
		}
		assigns[a.Name.Value] = value
	}
	return argv, assigns
}

// stubWorkspace resolves every path under root to one unindexed member. It
// stands in for hosts whose path syntax differs from the test machine's.
type stubWorkspace struct {
	root  string
	local bool
}

func (s *stubWorkspace) FindMember(abs string) (*workspace.Member, string, bool) {
	if !strings.HasPrefix(abs, s.root) {
		return nil, "", false
	}
	member := workspace.NewMember("stub", s.root, s.local)
	return member, strings.TrimPrefix(strings.TrimPrefix(abs, s.root), `\`), true
}

func (s *stubWorkspace) ActiveDirectory() (string, bool) {
	return s.root, true
}
