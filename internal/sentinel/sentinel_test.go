package sentinel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"sitesentinel/internal/config"
	"sitesentinel/internal/deployment"
	"sitesentinel/internal/notify"
	"sitesentinel/internal/watcher"
)

const validConfig = `[sentinel]
content_dir = "content"
log_file = "sentinel.log"

[deploy]
ssh_key = "~/.ssh/id_ed25519"
ssh_target = "deploy@example.com"
dest_dir = "/var/www/site"
`

const missingDestConfig = `[sentinel]
content_dir = "content"
log_file = "sentinel.log"

[deploy]
ssh_key = "~/.ssh/id_ed25519"
ssh_target = "deploy@example.com"
`

type fakePipeline struct {
	mu   sync.Mutex
	runs []*config.Config
}

func (f *fakePipeline) Run(_ context.Context, cfg *config.Config) *deployment.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, cfg)
	return &deployment.Run{ID: "test"}
}

func (f *fakePipeline) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type fakeInjector struct {
	paths []string
	err   error
}

func (f *fakeInjector) Inject(path string) error {
	f.paths = append(f.paths, path)
	return f.err
}

type fakeNotifier struct {
	titles   []string
	messages []string
}

func (f *fakeNotifier) Notify(title, msg string) {
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, msg)
}

type fixture struct {
	dir        string
	configPath string
	content    string
	store      *config.Store
	pipeline   *fakePipeline
	injector   *fakeInjector
	notifier   *fakeNotifier
	sentinel   *Sentinel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "site.toml")
	writeFile(t, configPath, validConfig)
	content := filepath.Join(dir, "content")
	if err := os.MkdirAll(content, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	f := &fixture{
		dir:        dir,
		configPath: configPath,
		content:    content,
		store:      config.NewStore(cfg),
		pipeline:   &fakePipeline{},
		injector:   &fakeInjector{},
		notifier:   &fakeNotifier{},
	}
	f.sentinel = New(Options{
		ConfigPath: configPath,
		Store:      f.store,
		Pipeline:   f.pipeline,
		Injector:   f.injector,
		Notifier:   f.notifier,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func batchOf(paths ...string) watcher.Batch {
	batch := make(watcher.Batch, len(paths))
	for i, p := range paths {
		batch[i] = watcher.Event{Path: p, Op: fsnotify.Write}
	}
	return batch
}

func TestHandleBatch_EmptyFileIsScaffolded(t *testing.T) {
	f := newFixture(t)
	post := filepath.Join(f.content, "my-first-post.md")
	writeFile(t, post, "")

	run := f.sentinel.HandleBatch(context.Background(), batchOf(post))

	if run != nil {
		t.Error("scaffolding alone should not build")
	}
	if len(f.injector.paths) != 1 || f.injector.paths[0] != post {
		t.Errorf("injected %v, want [%s]", f.injector.paths, post)
	}
	if f.pipeline.count() != 0 {
		t.Errorf("pipeline ran %d times, want 0", f.pipeline.count())
	}
}

func TestHandleBatch_ContentChangeRunsPipelineOnce(t *testing.T) {
	f := newFixture(t)
	a := filepath.Join(f.content, "a.md")
	b := filepath.Join(f.content, "b.md")
	writeFile(t, a, "+++\n+++\nbody")
	writeFile(t, b, "more")

	run := f.sentinel.HandleBatch(context.Background(), batchOf(a, b))

	if run == nil {
		t.Fatal("expected a pipeline run")
	}
	if f.pipeline.count() != 1 {
		t.Errorf("pipeline ran %d times, want 1", f.pipeline.count())
	}
	if len(f.injector.paths) != 0 {
		t.Errorf("non-empty files should not be injected: %v", f.injector.paths)
	}
}

func TestHandleBatch_DeletedContentBuilds(t *testing.T) {
	f := newFixture(t)

	f.sentinel.HandleBatch(context.Background(), batchOf(filepath.Join(f.content, "removed.md")))

	if f.pipeline.count() != 1 {
		t.Errorf("pipeline ran %d times, want 1", f.pipeline.count())
	}
}

func TestHandleBatch_IgnoresOtherFiles(t *testing.T) {
	f := newFixture(t)
	img := filepath.Join(f.content, "cover.png")
	writeFile(t, img, "png")

	if run := f.sentinel.HandleBatch(context.Background(), batchOf(img, f.content)); run != nil {
		t.Error("non-content files should not build")
	}
	if f.pipeline.count() != 0 || len(f.injector.paths) != 0 {
		t.Error("non-content files should be ignored")
	}
}

func TestHandleBatch_InvalidReloadKeepsPreviousConfig(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.configPath, missingDestConfig)

	f.sentinel.HandleBatch(context.Background(), batchOf(f.configPath))

	if got := f.store.Current().Deploy.DestDir; got != "/var/www/site" {
		t.Errorf("active dest_dir = %q, want previous value", got)
	}
	if len(f.notifier.titles) != 1 || f.notifier.titles[0] != notify.TitleConfigReload {
		t.Errorf("notifications = %v, want [%s]", f.notifier.titles, notify.TitleConfigReload)
	}

	// The loop keeps serving with the old snapshot
	post := filepath.Join(f.content, "post.md")
	writeFile(t, post, "body")
	f.sentinel.HandleBatch(context.Background(), batchOf(post))
	if f.pipeline.count() != 1 {
		t.Fatalf("pipeline ran %d times, want 1", f.pipeline.count())
	}
	if f.pipeline.runs[0].Deploy.DestDir != "/var/www/site" {
		t.Errorf("pipeline used dest_dir %q", f.pipeline.runs[0].Deploy.DestDir)
	}
}

func TestHandleBatch_ReloadAppliesBeforeBuild(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.configPath, validConfig+"\n[build]\ncommand = \"hugo --gc\"\n")
	post := filepath.Join(f.content, "post.md")
	writeFile(t, post, "body")

	f.sentinel.HandleBatch(context.Background(), batchOf(post, f.configPath))

	if f.pipeline.count() != 1 {
		t.Fatalf("pipeline ran %d times, want 1", f.pipeline.count())
	}
	if got := f.pipeline.runs[0].Build.Command; got != "hugo --gc" {
		t.Errorf("pipeline used build command %q, want reloaded value", got)
	}
	if len(f.notifier.titles) != 0 {
		t.Errorf("unexpected notifications: %v", f.notifier.titles)
	}
}

func TestHandleBatch_ContentWithUnchangedConfigRunsOnce(t *testing.T) {
	f := newFixture(t)
	existing := filepath.Join(f.content, "existing.md")
	writeFile(t, existing, "+++\ntitle = \"existing\"\n+++\nbody")
	before := f.store.Current()

	run := f.sentinel.HandleBatch(context.Background(), batchOf(existing, f.configPath))

	if run == nil {
		t.Fatal("expected a pipeline run")
	}
	if f.pipeline.count() != 1 {
		t.Errorf("pipeline ran %d times, want 1", f.pipeline.count())
	}
	if len(f.notifier.titles) != 0 {
		t.Errorf("unexpected notifications: %v", f.notifier.titles)
	}
	if len(f.injector.paths) != 0 {
		t.Errorf("non-empty file should not be injected: %v", f.injector.paths)
	}

	after := f.store.Current()
	if after.Deploy != before.Deploy || after.Build != before.Build ||
		after.Sentinel.ContentDir != before.Sentinel.ContentDir {
		t.Errorf("snapshot changed on reload of identical file: before %+v, after %+v", before, after)
	}
	if got := f.pipeline.runs[0].Deploy.DestDir; got != before.Deploy.DestDir {
		t.Errorf("pipeline used dest_dir %q, want %q", got, before.Deploy.DestDir)
	}
}

func TestHandleBatch_WrongTypeReloadNamesField(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.configPath, strings.Replace(validConfig, `dest_dir = "/var/www/site"`, "dest_dir = 7", 1))

	f.sentinel.HandleBatch(context.Background(), batchOf(f.configPath))

	if len(f.notifier.messages) != 1 {
		t.Fatalf("notifications = %v, want one", f.notifier.titles)
	}
	if !strings.HasPrefix(f.notifier.messages[0], "deploy.dest_dir: ") {
		t.Errorf("message = %q, want it to name deploy.dest_dir", f.notifier.messages[0])
	}
	if got := f.store.Current().Deploy.DestDir; got != "/var/www/site" {
		t.Errorf("active dest_dir = %q, want previous value", got)
	}
}

func TestHandleBatch_UnchangedConfigPathDoesNotBuild(t *testing.T) {
	f := newFixture(t)

	if run := f.sentinel.HandleBatch(context.Background(), batchOf(f.configPath)); run != nil {
		t.Error("config reload alone should not build")
	}
}

func TestHandleBatch_InjectionFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.injector.err = errors.New("permission denied")
	empty := filepath.Join(f.content, "empty.md")
	full := filepath.Join(f.content, "full.md")
	writeFile(t, empty, "")
	writeFile(t, full, "body")

	f.sentinel.HandleBatch(context.Background(), batchOf(empty, full))

	if len(f.notifier.titles) != 1 || f.notifier.titles[0] != notify.TitleSentinel {
		t.Errorf("notifications = %v, want [%s]", f.notifier.titles, notify.TitleSentinel)
	}
	if f.pipeline.count() != 1 {
		t.Errorf("pipeline ran %d times, want 1", f.pipeline.count())
	}
}

func TestRun_ProcessesUntilClosed(t *testing.T) {
	f := newFixture(t)
	post := filepath.Join(f.content, "post.md")
	writeFile(t, post, "body")

	batches := make(chan watcher.Batch, 2)
	errs := make(chan error, 2)
	batches <- batchOf(post)
	errs <- errors.New("queue overflow")
	errs <- &watcher.WatchError{Path: f.content, Err: errors.New("too many open files")}

	done := make(chan error, 1)
	go func() { done <- f.sentinel.Run(context.Background(), batches, errs) }()

	deadline := time.Now().Add(2 * time.Second)
	for f.pipeline.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(errs)
	time.Sleep(50 * time.Millisecond)
	close(batches)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after channel close")
	}
	if f.pipeline.count() != 1 {
		t.Errorf("pipeline ran %d times, want 1", f.pipeline.count())
	}
	if got := f.sentinel.WatchErrors(); got != 2 {
		t.Errorf("WatchErrors() = %d, want 2", got)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sentinel.Run(ctx, make(chan watcher.Batch), make(chan error)) }()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
