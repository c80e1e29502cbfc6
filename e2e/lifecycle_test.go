package e2e

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ugcstudio/api/internal/client"
	"github.com/ugcstudio/api/internal/lifecycle"
	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/stats"
	"github.com/ugcstudio/api/internal/store"
)

// serve starts the test app on a loopback listener and returns its base URL.
func serve(t *testing.T, ta *testApp) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go ta.app.Listener(ln)
	t.Cleanup(func() { _ = ta.app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestLifecycle_SubmitToCompletion(t *testing.T) {
	ta := setupApp(t)
	ta.workflow.statuses = []string{"Ready", "Ready", "Finished"}
	baseURL := serve(t, ta)

	dir := t.TempDir()
	kv, err := store.NewFileKV(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	blobs := store.NewBlobs(kv, nil)
	tracker := stats.NewTracker(blobs, nil)

	ctrl := lifecycle.New(lifecycle.Options{
		Backend:      client.NewAPIClient(baseURL, 5*time.Second, nil),
		Recorder:     tracker,
		Credentials:  blobs,
		PollInterval: 10 * time.Millisecond,
	})
	defer ctrl.Close()

	ctx := context.Background()
	if _, err := ctrl.Authenticate(ctx, testPassword); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	brief := model.Brief{
		Product:         "Glow serum",
		ProductPhotoURL: "https://cdn.example.com/serum.png",
		TargetAudience:  "women 25-40, skincare fans",
		ProductFeatures: "vitamin c, hyaluronic acid",
		VideoSetting:    "bright bathroom on a calm morning",
		Model:           model.ModelSora,
	}
	if err := ctrl.Submit(ctx, brief); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !ctrl.Snapshot().Celebrate {
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, state %s", ctrl.Snapshot().State)
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := ctrl.Snapshot()
	if snap.Job.VideoURL != ta.workflow.videoURL {
		t.Errorf("expected video %s, got %s", ta.workflow.videoURL, snap.Job.VideoURL)
	}
	if snap.Session.Remaining != 1 {
		t.Errorf("expected 1 video left, got %d", snap.Session.Remaining)
	}

	// a fresh tracker over the same directory sees the persisted result
	reopened := stats.NewTracker(store.NewBlobs(kv, nil), nil).Stats(ctx)
	if reopened.TotalVideos != 1 {
		t.Errorf("expected 1 persisted video, got %d", reopened.TotalVideos)
	}
	if reopened.XP != snap.Stats.XP || reopened.XP == 0 {
		t.Errorf("expected persisted xp %d, got %d", snap.Stats.XP, reopened.XP)
	}
	if got := blobs.LoadCredential(ctx); got != testPassword {
		t.Errorf("expected cached credential, got %q", got)
	}
}

func TestLifecycle_QuotaExhaustedStopsLocally(t *testing.T) {
	ta := setupApp(t, func(o *appOptions) { o.quotaPerDay = 0 })
	baseURL := serve(t, ta)

	blobs := store.NewBlobs(store.NewMemoryKV(), nil)
	ctrl := lifecycle.New(lifecycle.Options{
		Backend:     client.NewAPIClient(baseURL, 5*time.Second, nil),
		Recorder:    stats.NewTracker(blobs, nil),
		Credentials: blobs,
	})
	defer ctrl.Close()

	ctx := context.Background()
	if _, err := ctrl.Authenticate(ctx, testPassword); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	err := ctrl.Submit(ctx, model.Brief{
		Product:         "Glow serum",
		ProductPhotoURL: "https://cdn.example.com/serum.png",
		Model:           model.ModelNanoVeo,
	})
	if err == nil {
		t.Fatal("expected quota error")
	}
	if n := ta.workflow.startCount(); n != 0 {
		t.Errorf("expected no workflow calls, got %d", n)
	}
}

// switchable fronts one test server at a time, like a load balancer in front
// of a redeployed API.
type switchable struct {
	target atomic.Pointer[url.URL]
}

func (s *switchable) point(t *testing.T, baseURL string) {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse %s: %v", baseURL, err)
	}
	s.target.Store(u)
}

func (s *switchable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httputil.NewSingleHostReverseProxy(s.target.Load()).ServeHTTP(w, r)
}

func (f *fakeWorkflow) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func TestLifecycle_SurvivesSecretRotation(t *testing.T) {
	before := setupApp(t)
	before.workflow.statuses = []string{"Ready"}
	after := setupApp(t, func(o *appOptions) { o.jwtSecret = "rotated" })
	after.workflow.statuses = []string{"Ready", "Finished"}

	front := &switchable{}
	front.point(t, serve(t, before))
	proxy := httptest.NewServer(front)
	defer proxy.Close()

	blobs := store.NewBlobs(store.NewMemoryKV(), nil)
	ctrl := lifecycle.New(lifecycle.Options{
		Backend:      client.NewAPIClient(proxy.URL, 5*time.Second, nil),
		Recorder:     stats.NewTracker(blobs, nil),
		Credentials:  blobs,
		PollInterval: 10 * time.Millisecond,
	})
	defer ctrl.Close()

	ctx := context.Background()
	if _, err := ctrl.Authenticate(ctx, testPassword); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	err := ctrl.Submit(ctx, model.Brief{
		Product:         "Glow serum",
		ProductPhotoURL: "https://cdn.example.com/serum.png",
		Model:           model.ModelSora,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	front.point(t, serve(t, after))

	deadline := time.Now().Add(5 * time.Second)
	for !ctrl.Snapshot().Celebrate {
		if time.Now().After(deadline) {
			t.Fatalf("job never completed after rotation, state %s, polls %d",
				ctrl.Snapshot().State, after.workflow.pollCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctrl.Logout(ctx)
	session, err := ctrl.Authenticate(ctx, testPassword)
	if err != nil {
		t.Fatalf("re-login after rotation: %v", err)
	}
	if !session.Authenticated {
		t.Error("expected an authenticated session")
	}
	if notice := ctrl.Snapshot().Notice; notice != "" {
		t.Errorf("expected no notice, got %q", notice)
	}
}
