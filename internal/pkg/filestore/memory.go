package filestore

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// Memory is an in-memory Store used by tests and local development. It also
// counts calls per operation so tests can assert on side effects.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	calls   map[string]int

	// LinkFunc overrides link generation, e.g. to point at an httptest
	// server. The default returns a memory:// pseudo-URL.
	LinkFunc func(path string) string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		calls:   make(map[string]int),
	}
}

// Put seeds or replaces a file without counting as an upload call.
func (m *Memory) Put(filePath string, data []byte, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[filePath] = memoryObject{
		data:         append([]byte(nil), data...),
		lastModified: lastModified,
	}
}

// Get returns the stored content of filePath.
func (m *Memory) Get(filePath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[filePath]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Paths returns all stored file paths, for test assertions.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		paths = append(paths, p)
	}
	return paths
}

// CallCount returns how often the named operation ran ("ListFolder",
// "GetDownloadLink", "UploadBuffer", "MoveFile").
func (m *Memory) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of store operations across all kinds.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// ServeLinks starts a loopback HTTP server that serves stored file contents,
// and switches link generation to point at it. Without it download links are
// memory:// pseudo-URLs that no HTTP client can fetch, so local development
// with the memory backend needs this. The server lives until the process
// exits; the returned base URL is informational.
func (m *Memory) ServeLinks() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen for memory store links: %w", err)
	}
	base := "http://" + ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("/dl", func(w http.ResponseWriter, r *http.Request) {
		data, ok := m.Get(r.URL.Query().Get("path"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	go http.Serve(ln, mux)

	m.mu.Lock()
	m.LinkFunc = func(p string) string {
		return base + "/dl?path=" + url.QueryEscape(p)
	}
	m.mu.Unlock()

	return base, nil
}

func (m *Memory) ListFolder(_ context.Context, folder string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListFolder"]++

	prefix := strings.TrimSuffix(folder, "/") + "/"

	var entries []Entry
	seenFolders := make(map[string]bool)
	for p, obj := range m.objects {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			sub := rest[:idx]
			if !seenFolders[sub] {
				seenFolders[sub] = true
				entries = append(entries, Entry{
					Name:     sub,
					Path:     prefix + sub,
					IsFolder: true,
				})
			}
			continue
		}
		entries = append(entries, Entry{
			Name:         path.Base(p),
			Path:         p,
			LastModified: obj.lastModified,
		})
	}

	return entries, nil
}

func (m *Memory) GetDownloadLink(_ context.Context, filePath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["GetDownloadLink"]++

	if _, ok := m.objects[filePath]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}
	if m.LinkFunc != nil {
		return m.LinkFunc(filePath), nil
	}
	return "memory://" + filePath, nil
}

func (m *Memory) UploadBuffer(_ context.Context, filePath string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["UploadBuffer"]++

	m.objects[filePath] = memoryObject{
		data:         append([]byte(nil), data...),
		contentType:  contentType,
		lastModified: time.Now(),
	}
	return nil
}

func (m *Memory) MoveFile(_ context.Context, fromPath, toPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["MoveFile"]++

	obj, ok := m.objects[fromPath]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, fromPath)
	}
	delete(m.objects, fromPath)
	m.objects[toPath] = obj
	return nil
}
