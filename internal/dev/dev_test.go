package dev

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/islands/internal/config"
	"github.com/vango-dev/islands/pkg/compiler"
	"github.com/vango-dev/islands/pkg/plugin"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_Poll(t *testing.T) {
	tmpDir := t.TempDir()
	page := filepath.Join(tmpDir, "page.island")
	writeFile(t, page, "<div/>")

	watcher := NewWatcher(WatcherConfig{Paths: []string{tmpDir}})
	watcher.timestamps = watcher.scan()

	if changes := watcher.poll(); len(changes) != 0 {
		t.Fatalf("unexpected changes: %v", changes)
	}

	post := filepath.Join(tmpDir, "post.md")
	writeFile(t, post, "# hi")
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(page, future, future); err != nil {
		t.Fatal(err)
	}

	changes := watcher.poll()
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want 2", changes)
	}
	if changes[0].Path != page || changes[1].Path != post {
		t.Errorf("changes not in path order: %v", changes)
	}
	for _, c := range changes {
		if c.Type != ChangeComponent || c.Removed {
			t.Errorf("change = %+v", c)
		}
	}

	if err := os.Remove(post); err != nil {
		t.Fatal(err)
	}
	changes = watcher.poll()
	if len(changes) != 1 || !changes[0].Removed || changes[0].Path != post {
		t.Errorf("removal = %v", changes)
	}
}

func TestWatcher_Start(t *testing.T) {
	tmpDir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{
		Paths:    []string{tmpDir},
		Interval: 20 * time.Millisecond,
	})

	changes := make(chan Change, 10)
	watcher.OnChange(func(c Change) {
		changes <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watcher.Start(ctx)
	time.Sleep(60 * time.Millisecond)

	newFile := filepath.Join(tmpDir, "h.js")
	writeFile(t, newFile, "export {}")

	select {
	case change := <-changes:
		if change.Type != ChangeRuntime {
			t.Errorf("Type = %v, want runtime", change.Type)
		}
		if change.Path != newFile {
			t.Errorf("Path = %q, want %q", change.Path, newFile)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for change")
	}

	watcher.Stop()
	if watcher.IsRunning() {
		t.Error("watcher still running after Stop")
	}
}

func TestWatcher_ShouldIgnore(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Ignore: []string{"node_modules", "*.swp", "drafts/*.md", "build/cache"},
	})

	tests := []struct {
		path string
		want bool
	}{
		{"node_modules/x/index.js", true},
		{"pages/index.island.swp", true},
		{"drafts/wip.md", true},
		{"posts/drafts.md", false},
		{"build/cache/a.js", true},
		{"build/a.js", false},
		{"pages/index.island", false},
	}

	for _, tt := range tests {
		if got := watcher.shouldIgnore(filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("shouldIgnore(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcher_IgnoreIsRelativeToRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "node_modules", "islands", "runtime")
	helper := filepath.Join(root, "__island_component.js")
	writeFile(t, helper, "")

	watcher := NewWatcher(WatcherConfig{Paths: []string{root}})
	if _, ok := watcher.scan()[helper]; !ok {
		t.Error("files below a watched node_modules root must be seen")
	}
}

func TestClassifyChange(t *testing.T) {
	tests := []struct {
		path string
		want ChangeType
	}{
		{"src/a.island", ChangeComponent},
		{"src/b.MD", ChangeComponent},
		{"runtime/h.js", ChangeRuntime},
		{"runtime/h.mjs", ChangeRuntime},
		{config.ConfigFileName, ChangeConfig},
		{"public/logo.png", ChangeAsset},
	}
	for _, tt := range tests {
		if got := classifyChange(tt.path); got != tt.want {
			t.Errorf("classifyChange(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCollectWatchPaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.New()
	cfg.Dev.Watch = []string{"src", "content"}
	if err := cfg.SaveTo(filepath.Join(tmpDir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	got := CollectWatchPaths(cfg)
	want := []string{
		filepath.Join(tmpDir, config.DefaultRuntime),
		filepath.Join(tmpDir, config.ConfigFileName),
		filepath.Join(tmpDir, "src"),
		filepath.Join(tmpDir, "content"),
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("CollectWatchPaths() = %v, want %v", got, want)
	}
}

func dialHMR(t *testing.T, handler http.Handler) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + HMRPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitClients(t *testing.T, r *ReloadServer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want %d", r.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) ReloadMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ReloadMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestReloadServer_Broadcast(t *testing.T) {
	reload := NewReloadServer(nil)
	mux := http.NewServeMux()
	mux.Handle(HMRPath, reload)

	conn, closeFn := dialHMR(t, mux)
	defer closeFn()
	waitClients(t, reload, 1)

	reload.NotifyError("src/a.island", "unexpected token")
	if msg := readMessage(t, conn); msg.Type != ReloadTypeError || msg.File != "src/a.island" || msg.Error != "unexpected token" {
		t.Errorf("error message = %+v", msg)
	}

	reload.ClearError()
	if msg := readMessage(t, conn); msg.Type != ReloadTypeClear {
		t.Errorf("clear message = %+v", msg)
	}

	reload.NotifyReload("")
	if msg := readMessage(t, conn); msg.Type != ReloadTypeFull || msg.File != "" {
		t.Errorf("reload message = %+v", msg)
	}

	reload.Close()
	if reload.ClientCount() != 0 {
		t.Errorf("ClientCount after Close = %d", reload.ClientCount())
	}
}

func newTestServer(t *testing.T, c compiler.Compiler) *Server {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := config.New()
	if err := cfg.SaveTo(filepath.Join(tmpDir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	return NewServer(ServerOptions{
		Config:   cfg,
		Pipeline: plugin.New(plugin.Options{Compiler: c}),
	})
}

func TestServer_HandleChanges(t *testing.T) {
	fail := true
	s := newTestServer(t, compiler.Func(func(ctx context.Context, source string, req compiler.Request) (compiler.Result, error) {
		if fail {
			return compiler.Result{}, stderrors.New("unexpected token")
		}
		return compiler.Result{Code: "export default 1;"}, nil
	}))
	page := filepath.Join(s.config.SrcPath(), "index.island")
	writeFile(t, page, "<div/>")

	conn, closeFn := dialHMR(t, s.Handler())
	defer closeFn()
	waitClients(t, s.reload, 1)

	var rebuildErr error
	s.options.OnRebuild = func(changes []Change, err error) { rebuildErr = err }

	ctx := context.Background()
	s.handleChanges(ctx, []Change{{Path: page, Type: ChangeComponent}})
	if rebuildErr == nil {
		t.Fatal("expected compile error")
	}
	if msg := readMessage(t, conn); msg.Type != ReloadTypeError || msg.File != "src/index.island" {
		t.Errorf("message = %+v", msg)
	}

	fail = false
	s.handleChanges(ctx, []Change{{Path: page, Type: ChangeComponent}})
	if rebuildErr != nil {
		t.Fatalf("rebuild error: %v", rebuildErr)
	}
	if msg := readMessage(t, conn); msg.Type != ReloadTypeClear {
		t.Errorf("message = %+v, want clear", msg)
	}
	if msg := readMessage(t, conn); msg.Type != ReloadTypeFull || msg.File != "src/index.island" {
		t.Errorf("message = %+v, want reload", msg)
	}

	data, err := os.ReadFile(filepath.Join(s.config.OutputPath(), "index.js"))
	if err != nil || string(data) != "export default 1;" {
		t.Errorf("index.js = %q, %v", data, err)
	}
}

func TestServer_Handler(t *testing.T) {
	s := newTestServer(t, compiler.Func(func(ctx context.Context, source string, req compiler.Request) (compiler.Result, error) {
		return compiler.Result{}, nil
	}))
	writeFile(t, filepath.Join(s.config.OutputPath(), "index.js"), "export default 1;")

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/index.js", http.StatusOK, "export default 1;"},
		{"/metrics", http.StatusOK, ""},
		{"/missing.js", http.StatusNotFound, ""},
	}

	handler := s.Handler()
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.status)
		}
		if tt.body != "" && rec.Body.String() != tt.body {
			t.Errorf("GET %s body = %q, want %q", tt.path, rec.Body.String(), tt.body)
		}
	}
}

func TestServer_Start(t *testing.T) {
	s := newTestServer(t, compiler.Func(func(ctx context.Context, source string, req compiler.Request) (compiler.Result, error) {
		return compiler.Result{Code: "x"}, nil
	}))
	s.config.Dev.Port = 0
	s.config.Dev.HMRPort = 0
	s.config.Dev.Host = "127.0.0.1"

	addrs := make(chan string, 2)
	s.onListen = func(name string, addr net.Addr) { addrs <- addr.String() }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	var addr string
	select {
	case addr = <-addrs:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
