package fsnotify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/intake/internal/domain/filter"
)

// =============================================================================
// Watch scanner: working set fed by notifications, drained on List
// =============================================================================

// fakeNotifier records registrations and lets tests push events by hand.
type fakeNotifier struct {
	mu      sync.Mutex
	added   map[string]bool
	removed []string
	closed  bool
	events  chan fsnotify.Event
	errs    chan error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		added:  make(map[string]bool),
		events: make(chan fsnotify.Event, 64),
		errs:   make(chan error, 8),
	}
}

func (f *fakeNotifier) Add(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[path] = true
	return nil
}

func (f *fakeNotifier) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.added, path)
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeNotifier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeNotifier) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeNotifier) Errors() <-chan error          { return f.errs }

func (f *fakeNotifier) registered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for p := range f.added {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (f *fakeNotifier) push(name string, op fsnotify.Op) {
	f.events <- fsnotify.Event{Name: name, Op: op}
}

// newFakeScanner builds a Scanner wired to a fake notifier.
func newFakeScanner(opts Options) (*Scanner, *fakeNotifier) {
	fake := newFakeNotifier()
	s := NewScanner(opts)
	s.newNotifier = func(uint) (notifier, error) { return fake, nil }
	return s, fake
}

func writeFile(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

// collect polls List until want files were seen or the timeout passes.
func collect(s *Scanner, dir string, want int, timeout time.Duration) []string {
	var seen []string
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		seen = append(seen, s.List(dir)...)
		if len(seen) >= want {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	return seen
}

func TestScanner_SeedsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.txt"))
	b := writeFile(t, filepath.Join(dir, "sub", "b.txt"))

	s, fake := newFakeScanner(Options{})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	assert.Equal(t, []string{a, b}, s.List(dir))
	assert.Empty(t, s.List(dir), "working set must be drained by List")
	assert.Equal(t, []string{dir, filepath.Join(dir, "sub")}, fake.registered())
}

func TestScanner_CreateThenModifyYieldsOnce(t *testing.T) {
	dir := t.TempDir()
	s, fake := newFakeScanner(Options{Events: Create | Modify})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	c := writeFile(t, filepath.Join(dir, "c.txt"))
	fake.push(c, fsnotify.Create)
	fake.push(c, fsnotify.Write)
	fake.push(c, fsnotify.Write)

	assert.Equal(t, []string{c}, s.List(dir))
	assert.Empty(t, s.List(dir))
}

func TestScanner_IgnoresUnsubscribedKinds(t *testing.T) {
	dir := t.TempDir()
	s, fake := newFakeScanner(Options{}) // create only
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	existing := writeFile(t, filepath.Join(dir, "old.txt"))
	fake.push(existing, fsnotify.Write)
	fake.push(existing, fsnotify.Chmod)

	assert.Empty(t, s.List(dir))
}

func TestScanner_MissingFileIgnored(t *testing.T) {
	dir := t.TempDir()
	s, fake := newFakeScanner(Options{})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	fake.push(filepath.Join(dir, "gone.txt"), fsnotify.Create)
	assert.Empty(t, s.List(dir))
}

func TestScanner_NewDirectoryRegisteredAndWalked(t *testing.T) {
	dir := t.TempDir()
	s, fake := newFakeScanner(Options{})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	sub := filepath.Join(dir, "incoming")
	f := writeFile(t, filepath.Join(sub, "deep", "d.txt"))
	fake.push(sub, fsnotify.Create)

	assert.Equal(t, []string{f}, s.List(dir))
	assert.Contains(t, fake.registered(), sub)
	assert.Contains(t, fake.registered(), filepath.Join(sub, "deep"))
}

func TestScanner_ModifyOfDirectoryRegistersWithoutOffering(t *testing.T) {
	dir := t.TempDir()
	s, fake := newFakeScanner(Options{Events: Modify})
	require.NoError(t, s.Start(dir))
	defer s.Stop()
	require.Empty(t, s.List(dir))

	sub := filepath.Join(dir, "touched")
	writeFile(t, filepath.Join(sub, "already.txt"))
	fake.push(sub, fsnotify.Write)

	assert.Empty(t, s.List(dir), "modify walk must not re-offer files")
	assert.Contains(t, fake.registered(), sub)
}

func TestScanner_DeleteRemovesFromWorkingSetAndFilter(t *testing.T) {
	dir := t.TempDir()
	once := filter.NewAcceptOnce()
	s, fake := newFakeScanner(Options{Events: Create | Delete, Filter: once})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	a := writeFile(t, filepath.Join(dir, "a.txt"))
	fake.push(a, fsnotify.Create)
	require.Equal(t, []string{a}, s.List(dir))

	// Created and deleted between two Lists: never offered.
	b := writeFile(t, filepath.Join(dir, "b.txt"))
	fake.push(b, fsnotify.Create)
	require.NoError(t, os.Remove(b))
	fake.push(b, fsnotify.Remove)
	assert.Empty(t, s.List(dir))

	// Delete then recreate: the filter forgot a.txt, so it is eligible again.
	require.NoError(t, os.Remove(a))
	fake.push(a, fsnotify.Remove)
	assert.Empty(t, s.List(dir))
	writeFile(t, a)
	fake.push(a, fsnotify.Create)
	assert.Equal(t, []string{a}, s.List(dir))
}

func TestScanner_DeleteDirectoryCancelsRegistrations(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	writeFile(t, filepath.Join(sub, "inner", "x.txt"))

	s, fake := newFakeScanner(Options{Events: Create | Delete})
	require.NoError(t, s.Start(dir))
	defer s.Stop()
	require.Equal(t, 3, s.Registrations())

	require.NoError(t, os.RemoveAll(sub))
	fake.push(sub, fsnotify.Remove)

	assert.Empty(t, s.List(dir), "files under the deleted directory leave the working set")
	assert.Equal(t, []string{dir}, fake.registered())
	assert.Equal(t, 1, s.Registrations())
}

func TestScanner_RenameTreatedAsDelete(t *testing.T) {
	dir := t.TempDir()
	s, fake := newFakeScanner(Options{Events: Create | Delete})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	a := writeFile(t, filepath.Join(dir, "a.txt"))
	fake.push(a, fsnotify.Create)
	moved := filepath.Join(dir, "a.done")
	require.NoError(t, os.Rename(a, moved))
	fake.push(a, fsnotify.Rename)
	fake.push(moved, fsnotify.Create)

	assert.Equal(t, []string{moved}, s.List(dir))
}

// =============================================================================
// Overflow: full resync wins over incremental events
// =============================================================================

func TestScanner_OverflowRebuildsFromFreshWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"))
	s, fake := newFakeScanner(Options{Events: Create | Delete})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	// Changes whose events were "dropped". a.txt is still in the working
	// set from seeding; the resync must forget it.
	b := writeFile(t, filepath.Join(dir, "new", "b.txt"))
	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
	c := writeFile(t, filepath.Join(dir, "c.txt"))
	fake.errs <- fsnotify.ErrEventOverflow

	assert.Equal(t, []string{c, b}, s.List(dir))
	assert.Equal(t, []string{dir, filepath.Join(dir, "new")}, fake.registered())
}

func TestScanner_OverflowWithContextPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.txt"))
	writeFile(t, filepath.Join(dir, "other", "o.txt"))
	s, fake := newFakeScanner(Options{})
	require.NoError(t, s.Start(dir))
	defer s.Stop()
	s.List(dir)

	sub := filepath.Join(dir, "sub")
	f := writeFile(t, filepath.Join(sub, "s.txt"))
	fake.errs <- &OverflowError{Path: sub}

	assert.Equal(t, []string{f}, s.List(dir), "only the reported subtree is re-offered")
	assert.Equal(t, []string{dir, filepath.Join(dir, "other"), sub}, fake.registered())
}

func TestScanner_WatcherErrorIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	s, fake := newFakeScanner(Options{})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	fake.errs <- os.ErrPermission
	c := writeFile(t, filepath.Join(dir, "c.txt"))
	fake.push(c, fsnotify.Create)

	assert.Equal(t, []string{c}, s.List(dir))
}

// =============================================================================
// Pruning: depth bound and directory predicate
// =============================================================================

func TestScanner_MaxDepth(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, filepath.Join(dir, "1.txt"))
	two := writeFile(t, filepath.Join(dir, "a", "2.txt"))
	writeFile(t, filepath.Join(dir, "a", "b", "3.txt"))

	s, fake := newFakeScanner(Options{MaxDepth: 2})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	assert.Equal(t, []string{one, two}, s.List(dir))
	assert.Equal(t, []string{dir, filepath.Join(dir, "a")}, fake.registered())
}

func TestScanner_DirPredicatePrunes(t *testing.T) {
	dir := t.TempDir()
	visible := writeFile(t, filepath.Join(dir, "in", "v.txt"))
	writeFile(t, filepath.Join(dir, ".cache", "h.txt"))

	s, fake := newFakeScanner(Options{DirPredicate: SkipHidden})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	assert.Equal(t, []string{visible}, s.List(dir))
	assert.NotContains(t, fake.registered(), filepath.Join(dir, ".cache"))

	// A hidden directory created later is not registered either.
	hidden := filepath.Join(dir, ".tmp")
	writeFile(t, filepath.Join(hidden, "x.txt"))
	fake.push(hidden, fsnotify.Create)
	assert.Empty(t, s.List(dir))
	assert.NotContains(t, fake.registered(), hidden)
}

func TestIgnoreDirs(t *testing.T) {
	pred := IgnoreDirs(".git", "tmp")
	assert.False(t, pred("/in/.git"))
	assert.False(t, pred("/in/tmp"))
	assert.True(t, pred("/in/orders"))
}

// =============================================================================
// Discard-aware filters keep young files in the working set
// =============================================================================

type discardOnce struct {
	mu        sync.Mutex
	callbacks []func(string)
	held      map[string]bool
}

func (d *discardOnce) OnDiscard(fn func(string)) { d.callbacks = append(d.callbacks, fn) }

func (d *discardOnce) Filter(files []string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, f := range files {
		if !d.held[f] {
			d.held[f] = true
			for _, cb := range d.callbacks {
				cb(f)
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

func TestScanner_DiscardedFilesStay(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.txt"))

	s, _ := newFakeScanner(Options{Filter: &discardOnce{held: map[string]bool{}}})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	assert.Empty(t, s.List(dir), "first round discards")
	assert.Equal(t, []string{a}, s.List(dir), "discarded file is looked at again")
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestScanner_StopCleanup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "a.txt"))

	s, fake := newFakeScanner(Options{})
	require.NoError(t, s.Start(dir))
	require.NoError(t, s.Stop())

	assert.True(t, fake.closed)
	assert.Empty(t, fake.registered(), "no registrations may survive Stop")
	assert.Equal(t, "", s.Dir())
	assert.Nil(t, s.List(dir), "stopped scanner yields nothing")
	assert.Equal(t, 0, s.working.len())

	// Double-stop should be safe
	assert.NoError(t, s.Stop())
}

func TestScanner_RestartOnNewDirectory(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	b := writeFile(t, filepath.Join(second, "b.txt"))

	s := NewScanner(Options{})
	fakes := []*fakeNotifier{newFakeNotifier(), newFakeNotifier()}
	calls := 0
	s.newNotifier = func(uint) (notifier, error) {
		f := fakes[calls]
		calls++
		return f, nil
	}

	require.NoError(t, s.Start(first))
	require.NoError(t, s.Start(first), "same directory is a no-op")
	require.NoError(t, s.Start(second))
	defer s.Stop()

	assert.Equal(t, 2, calls)
	assert.True(t, fakes[0].closed)
	assert.Equal(t, second, s.Dir())
	assert.Equal(t, []string{b}, s.List(second))
}

// =============================================================================
// Real fsnotify end to end
// =============================================================================

func TestScanner_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	s := NewScanner(Options{Events: Create | Modify, Filter: filter.NewAcceptOnce()})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	c := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(c, []byte("new"), 0o644))

	seen := collect(s, dir, 1, 2*time.Second)
	// Give trailing write events a chance to arrive, then make sure they
	// did not produce a second entry.
	time.Sleep(100 * time.Millisecond)
	seen = append(seen, s.List(dir)...)
	assert.Equal(t, []string{c}, seen)
}

func TestScanner_DetectsFileInNewDirectory(t *testing.T) {
	dir := t.TempDir()
	s := NewScanner(Options{})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	sub := filepath.Join(dir, "batch")
	require.NoError(t, os.Mkdir(sub, 0o755))
	f := filepath.Join(sub, "f.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	seen := collect(s, dir, 1, 2*time.Second)
	assert.Equal(t, []string{f}, seen)
}

func TestScanner_DefaultBufferSize(t *testing.T) {
	var got []uint
	open := func(b uint) (notifier, error) {
		got = append(got, b)
		return newFakeNotifier(), nil
	}

	s := NewScanner(Options{})
	s.newNotifier = open
	require.NoError(t, s.Start(t.TempDir()))
	require.NoError(t, s.Stop())

	sized := NewScanner(Options{BufferSize: 16})
	sized.newNotifier = open
	require.NoError(t, sized.Start(t.TempDir()))
	require.NoError(t, sized.Stop())

	assert.Equal(t, []uint{DefaultBufferSize, 16}, got)
}

// pending returns how many notifications are queued for the next List.
func pending(s *Scanner) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == nil {
		return 0
	}
	return len(s.n.Events())
}

func TestScanner_BurstDrainedInOneList(t *testing.T) {
	dir, staging := t.TempDir(), t.TempDir()
	s := NewScanner(Options{})
	require.NoError(t, s.Start(dir))
	defer s.Stop()

	// Renaming in produces exactly one Create per file.
	const n = 25
	var want []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%02d.txt", i)
		src := writeFile(t, filepath.Join(staging, name))
		dst := filepath.Join(dir, name)
		require.NoError(t, os.Rename(src, dst))
		want = append(want, dst)
	}

	require.Eventually(t, func() bool { return pending(s) >= n }, 5*time.Second, 10*time.Millisecond,
		"events queue up between Lists")
	assert.Equal(t, want, s.List(dir), "one List applies every queued event")
}

// switchOnFilter moves the scanner to another root while its first Filter
// call is running, then reports everything it saw as discarded.
type switchOnFilter struct {
	mu      sync.Mutex
	fns     []func(string)
	onFirst func()
	calls   int
}

func (f *switchOnFilter) OnDiscard(fn func(string)) { f.fns = append(f.fns, fn) }

func (f *switchOnFilter) Filter(files []string) []string {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if !first {
		return files
	}
	f.onFirst()
	for _, file := range files {
		for _, fn := range f.fns {
			fn(file)
		}
	}
	return nil
}

func TestScanner_DiscardAfterSwitchDropped(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(first, "a.txt"))
	b := writeFile(t, filepath.Join(second, "b.txt"))

	f := &switchOnFilter{}
	s := NewScanner(Options{Filter: f})
	s.newNotifier = func(uint) (notifier, error) { return newFakeNotifier(), nil }
	f.onFirst = func() { require.NoError(t, s.Start(second)) }

	require.NoError(t, s.Start(first))
	defer s.Stop()

	assert.Empty(t, s.List(first))
	assert.Equal(t, []string{b}, s.List(second), "a.txt from the old root does not come back")
}

func TestScanner_DiscardAfterStopDropped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"))

	f := &switchOnFilter{}
	s, _ := newFakeScanner(Options{Filter: f})
	f.onFirst = func() { require.NoError(t, s.Stop()) }

	require.NoError(t, s.Start(dir))
	assert.Empty(t, s.List(dir))
	assert.Equal(t, 0, s.working.len())
}

func TestDepth(t *testing.T) {
	root := filepath.Join("/", "in")
	assert.Equal(t, 0, depth(root, root))
	assert.Equal(t, 1, depth(root, filepath.Join(root, "a")))
	assert.Equal(t, 2, depth(root, filepath.Join(root, "..d", "x.txt")), "dot-prefixed names are inside")
	assert.Equal(t, 0, depth(root, filepath.Join("/", "other", "x")))
	assert.Equal(t, 0, depth(root, "/"))
}
