package socket

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/intake/internal/domain/inbound"
)

// =============================================================================
// Unix socket daemon: JSON-over-socket protocol for receive, fail, ack, stats
// =============================================================================

// fakeSource hands out a fixed list of files.
type fakeSource struct {
	mu     sync.Mutex
	files  []inbound.Candidate
	failed []*inbound.Message
	acked  []string
}

func (f *fakeSource) Receive() (*inbound.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.files) == 0 {
		return nil, false
	}
	c := f.files[0]
	f.files = f.files[1:]
	return inbound.NewMessage(c), true
}

func (f *fakeSource) OnFailure(msg *inbound.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, msg)
}

func (f *fakeSource) Ack(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path == "/in/unknown" {
		return errors.New("not claimed")
	}
	f.acked = append(f.acked, path)
	return nil
}

func (f *fakeSource) Stats() StatsResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return StatsResult{Running: true, Directory: "/in", QueueDepth: len(f.files)}
}

// testSocketPath returns a unique socket path for a test.
func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.sock")
}

func startServer(t *testing.T, src Source) (*Server, *Client) {
	t.Helper()
	sockPath := testSocketPath(t)
	srv := NewServer(src, sockPath, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv, NewClient(sockPath)
}

func TestServer_ReceiveRoundtrip(t *testing.T) {
	src := &fakeSource{files: []inbound.Candidate{
		{File: "/in/a.txt", Root: "/in"},
		{File: "/in/sub/b.txt", Root: "/in"},
	}}
	_, client := startServer(t, src)

	msg, err := client.Receive()
	require.NoError(t, err)
	assert.True(t, msg.Found)
	assert.Equal(t, "/in/a.txt", msg.Payload)
	assert.Equal(t, "a.txt", msg.Headers[inbound.HeaderRelativePath])
	assert.NotEmpty(t, msg.ID)

	msg, err = client.Receive()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("sub", "b.txt"), msg.Headers[inbound.HeaderRelativePath])

	msg, err = client.Receive()
	require.NoError(t, err)
	assert.False(t, msg.Found, "empty source is not an error")
}

func TestServer_Fail(t *testing.T) {
	src := &fakeSource{}
	_, client := startServer(t, src)

	require.NoError(t, client.Fail(FailParams{ID: "m1", Payload: "/in/sub/a.txt", RelativePath: "sub/a.txt"}))
	require.Len(t, src.failed, 1)
	assert.Equal(t, "/in/sub/a.txt", src.failed[0].Payload)
	assert.Equal(t, "sub/a.txt", src.failed[0].RelativePath())

	err := client.Fail(FailParams{})
	assert.ErrorContains(t, err, "invalid fail params")
}

func TestServer_Ack(t *testing.T) {
	src := &fakeSource{}
	_, client := startServer(t, src)

	require.NoError(t, client.Ack("/in/a.txt"))
	assert.Equal(t, []string{"/in/a.txt"}, src.acked)
	assert.ErrorContains(t, client.Ack("/in/unknown"), "not claimed")
}

func TestServer_HealthAndStats(t *testing.T) {
	src := &fakeSource{files: []inbound.Candidate{{File: "/in/a", Root: "/in"}}}
	_, client := startServer(t, src)

	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Running)
	assert.Equal(t, "/in", health.Directory)
	assert.NotEmpty(t, health.Uptime)

	stats, err := client.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.QueueDepth)
}

func TestServer_UnknownMethod(t *testing.T) {
	_, client := startServer(t, &fakeSource{})
	_, err := client.call(Request{ID: "1", Method: "search"})
	assert.ErrorContains(t, err, "unknown method")
}

func TestServer_Shutdown(t *testing.T) {
	sockPath := testSocketPath(t)
	srv := NewServer(&fakeSource{}, sockPath, nil)
	require.NoError(t, srv.Start())

	client := NewClient(sockPath)
	assert.True(t, client.Ping())

	// Send shutdown request; this closes shutdownCh (signals the daemon).
	require.NoError(t, client.Shutdown())

	select {
	case <-srv.ShutdownCh():
	case <-time.After(time.Second):
		t.Fatal("ShutdownCh should be closed after Shutdown request")
	}

	// The daemon is responsible for calling Stop() after receiving the signal.
	srv.Stop()
	srv.Stop()

	_, err := os.Stat(sockPath)
	assert.True(t, os.IsNotExist(err), "socket file should be removed after shutdown")
	assert.False(t, client.Ping())
}

func TestServer_ConcurrentClientsNoDoubleDelivery(t *testing.T) {
	var files []inbound.Candidate
	for i := 0; i < 100; i++ {
		files = append(files, inbound.Candidate{File: filepath.Join("/in", string(rune('a'+i%26)), string(rune('a'+i/26))), Root: "/in"})
	}
	_, client := startServer(t, &fakeSource{files: files})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]int{}
	)
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, err := client.Receive()
				if err != nil {
					errs <- err
					return
				}
				if !msg.Found {
					return
				}
				mu.Lock()
				seen[msg.Payload]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent client error: %v", err)
	}
	assert.Len(t, seen, 100)
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func TestServer_StaleSocket(t *testing.T) {
	sockPath := testSocketPath(t)

	// Create a stale socket file (not a real listener)
	require.NoError(t, os.WriteFile(sockPath, []byte("stale"), 0600))

	srv := NewServer(&fakeSource{}, sockPath, nil)
	require.NoError(t, srv.Start(), "should replace stale socket")
	defer srv.Stop()

	health, err := NewClient(sockPath).Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestServer_AlreadyRunning(t *testing.T) {
	srv, _ := startServer(t, &fakeSource{})
	second := NewServer(&fakeSource{}, srv.Addr(), nil)
	assert.ErrorContains(t, second.Start(), "already running")

	require.NoError(t, second.Stop())
	assert.True(t, NewClient(srv.Addr()).Ping(), "a failed server leaves the live socket alone")
}

func TestSocketPath(t *testing.T) {
	a := SocketPath("/data/in")
	assert.Equal(t, a, SocketPath("/data/in"))
	assert.NotEqual(t, a, SocketPath("/data/other"))
	assert.Regexp(t, `^/tmp/intake-[0-9a-f]{12}\.sock$`, a)
}
