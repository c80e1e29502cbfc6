package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/scoring"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultRemaining    = 2
)

var (
	ErrBusy   = errors.New("a job is already in progress")
	ErrClosed = errors.New("controller closed")
)

// Backend is the remote side of the job lifecycle.
type Backend interface {
	Validate(ctx context.Context, credential string) (*model.ValidateResponse, error)
	Start(ctx context.Context, brief model.Brief, credential string) (*model.JobStartResponse, error)
	Status(ctx context.Context, jobID string) (*model.JobStatusResponse, error)
}

// SessionClearer is implemented by backends that cache server-issued session
// state next to the credential.
type SessionClearer interface {
	ClearSession()
}

// Recorder folds a completed job into the user's stats.
type Recorder interface {
	RecordCompletion(ctx context.Context, job model.Job) (model.UserStats, error)
}

// CredentialStore caches the access password between runs.
type CredentialStore interface {
	LoadCredential(ctx context.Context) string
	SaveCredential(ctx context.Context, credential string) error
	ClearCredential(ctx context.Context) error
}

// Session is what the server told us about the current credential.
type Session struct {
	Authenticated bool `json:"authenticated"`
	IsAdmin       bool `json:"isAdmin"`
	Remaining     int  `json:"remaining"`
}

// CanSubmit reports whether the quota allows another job.
func (s Session) CanSubmit() bool {
	return s.IsAdmin || s.Remaining > 0
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State        model.JobState   `json:"state"`
	Job          *model.Job       `json:"job,omitempty"`
	RemoteStatus string           `json:"remoteStatus,omitempty"`
	Error        string           `json:"error,omitempty"`
	Notice       string           `json:"notice,omitempty"`
	Session      Session          `json:"session"`
	Stats        *model.UserStats `json:"stats,omitempty"`
	Celebrate    bool             `json:"celebrate"`
}

// Options configures a Controller
type Options struct {
	Backend      Backend
	Recorder     Recorder
	Credentials  CredentialStore
	Clock        Clock
	PollInterval time.Duration
	Log          *zap.Logger
}

type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller drives one brief at a time through
// idle → submitting → processing → completed | failed.
type Controller struct {
	backend     Backend
	recorder    Recorder
	credentials CredentialStore
	clock       Clock
	interval    time.Duration
	log         *zap.Logger

	mu           sync.Mutex
	state        model.JobState
	job          *model.Job
	remoteStatus string
	errMsg       string
	notice       string
	session      Session
	credential   string
	stats        *model.UserStats
	celebrate    bool
	poll         *poller
	closed       bool
	observers    []func(Snapshot)
}

func New(opts Options) *Controller {
	c := &Controller{
		backend:     opts.Backend,
		recorder:    opts.Recorder,
		credentials: opts.Credentials,
		clock:       opts.Clock,
		interval:    opts.PollInterval,
		log:         opts.Log,
		state:       model.JobStateIdle,
		session:     Session{Remaining: DefaultRemaining},
	}
	if c.clock == nil {
		c.clock = SystemClock
	}
	if c.interval <= 0 {
		c.interval = DefaultPollInterval
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Subscribe registers fn to receive a snapshot after every state change.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Authenticate validates credential with the server and caches it.
func (c *Controller) Authenticate(ctx context.Context, credential string) (Session, error) {
	res, err := c.backend.Validate(ctx, credential)

	c.mu.Lock()
	if err != nil {
		if errors.Is(err, model.ErrAuthorization) {
			c.clearSessionLocked(ctx)
			c.notice = "Wrong password"
		} else {
			c.notice = err.Error()
		}
		c.unlockAndEmit()
		return Session{}, err
	}

	c.credential = credential
	c.session = Session{Authenticated: true, IsAdmin: res.IsAdmin, Remaining: res.Remaining}
	c.notice = ""
	session := c.session
	c.unlockAndEmit()

	if c.credentials != nil {
		if err := c.credentials.SaveCredential(ctx, credential); err != nil {
			c.log.Warn("lifecycle.credential_save_failed", zap.Error(err))
		}
	}
	return session, nil
}

// Restore re-validates a cached credential. It reports false when there was
// nothing to restore or the credential is no longer accepted.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	if c.credentials == nil {
		return false, nil
	}
	credential := c.credentials.LoadCredential(ctx)
	if credential == "" {
		return false, nil
	}
	if _, err := c.Authenticate(ctx, credential); err != nil {
		if errors.Is(err, model.ErrAuthorization) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Logout forgets the credential.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.clearSessionLocked(ctx)
	c.unlockAndEmit()
}

// Submit sends brief for rendering. It is only accepted while idle; an
// incomplete brief or an exhausted quota is rejected before any network call.
func (c *Controller) Submit(ctx context.Context, brief model.Brief) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != model.JobStateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	if err := c.admitLocked(&brief); err != nil {
		c.unlockAndEmit()
		return err
	}

	job := &model.Job{
		Input:     brief,
		State:     model.JobStateSubmitting,
		Score:     scoring.Score(brief),
		CreatedAt: c.clock.Now(),
	}
	c.state = model.JobStateSubmitting
	c.job = job
	c.errMsg = ""
	c.notice = ""
	c.celebrate = false
	credential := c.credential
	c.unlockAndEmit()

	res, err := c.backend.Start(ctx, brief, credential)

	c.mu.Lock()
	if c.closed || c.state != model.JobStateSubmitting || c.job != job {
		// reset or closed while the request was in flight
		c.mu.Unlock()
		return nil
	}

	if err != nil {
		switch {
		case errors.Is(err, model.ErrAuthorization):
			c.clearSessionLocked(ctx)
			c.state = model.JobStateIdle
			c.job = nil
			c.notice = "Wrong password"
		case errors.Is(err, model.ErrValidation):
			c.state = model.JobStateIdle
			c.job = nil
			c.notice = err.Error()
		default:
			c.state = model.JobStateFailed
			job.State = model.JobStateFailed
			c.errMsg = err.Error()
		}
		c.log.Warn("lifecycle.submit_failed", zap.Error(err))
		c.unlockAndEmit()
		return err
	}

	job.ID = res.JobID
	job.State = model.JobStateProcessing
	c.state = model.JobStateProcessing
	c.remoteStatus = res.Status
	c.session.IsAdmin = res.IsAdmin
	c.session.Remaining = res.Remaining
	c.startPollingLocked(job.ID)
	c.log.Info("lifecycle.job_started", zap.String("job_id", job.ID), zap.Int("score", job.Score))
	c.unlockAndEmit()
	return nil
}

func (c *Controller) admitLocked(brief *model.Brief) error {
	if strings.TrimSpace(brief.Product) == "" || strings.TrimSpace(brief.ProductPhotoURL) == "" {
		c.notice = "Add a product name and a product photo URL"
		return fmt.Errorf("%w: product and productPhotoUrl are required", model.ErrValidation)
	}
	if c.credential == "" {
		c.notice = "Enter the access password"
		return model.ErrAuthorization
	}
	if !c.session.CanSubmit() {
		c.notice = "No videos left today"
		return model.ErrQuotaExceeded
	}
	return nil
}

// Reset returns to idle from any state and stops polling.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.stopPollingLocked()
	c.state = model.JobStateIdle
	c.job = nil
	c.remoteStatus = ""
	c.errMsg = ""
	c.notice = ""
	c.celebrate = false
	c.unlockAndEmit()
}

// Close stops polling and waits for the poll loop to exit. Results that
// arrive afterwards are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	p := c.poll
	c.stopPollingLocked()
	c.mu.Unlock()

	if p != nil {
		<-p.done
	}
}

func (c *Controller) startPollingLocked(jobID string) {
	c.stopPollingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}
	c.poll = p

	ticker := c.clock.NewTicker(c.interval)
	go c.pollLoop(ctx, ticker, jobID, p.done)
}

// stopPollingLocked never waits: it may run on the poll goroutine itself.
func (c *Controller) stopPollingLocked() {
	if c.poll != nil {
		c.poll.cancel()
		c.poll = nil
	}
}

func (c *Controller) pollLoop(ctx context.Context, ticker Ticker, jobID string, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			res, err := c.backend.Status(ctx, jobID)
			if err != nil {
				if ctx.Err() == nil {
					c.log.Warn("lifecycle.poll_failed", zap.String("job_id", jobID), zap.Error(err))
				}
				continue
			}
			c.handleStatus(jobID, res)
		}
	}
}

// handleStatus applies one poll result. Completion is recorded at most once
// per job: only the first finished result seen while processing that job
// gets past the guard.
func (c *Controller) handleStatus(jobID string, res *model.JobStatusResponse) {
	c.mu.Lock()
	if c.closed || c.state != model.JobStateProcessing || c.job == nil || c.job.ID != jobID {
		c.mu.Unlock()
		return
	}

	if !res.Finished() {
		if res.Status == c.remoteStatus {
			c.mu.Unlock()
			return
		}
		c.remoteStatus = res.Status
		c.unlockAndEmit()
		return
	}

	c.stopPollingLocked()
	now := c.clock.Now()
	c.job.State = model.JobStateCompleted
	c.job.VideoURL = res.VideoURL
	c.job.CompletedAt = &now
	c.state = model.JobStateCompleted
	c.remoteStatus = res.Status
	job := *c.job
	c.mu.Unlock()

	var stats *model.UserStats
	if c.recorder != nil {
		s, err := c.recorder.RecordCompletion(context.Background(), job)
		if err != nil {
			c.log.Error("lifecycle.record_failed", zap.String("job_id", jobID), zap.Error(err))
		} else {
			stats = &s
		}
	}
	c.log.Info("lifecycle.job_completed", zap.String("job_id", jobID), zap.String("video_url", job.VideoURL))

	c.mu.Lock()
	if stats != nil {
		c.stats = stats
	}
	if c.state == model.JobStateCompleted && c.job != nil && c.job.ID == jobID {
		c.celebrate = true
	}
	c.unlockAndEmit()
}

func (c *Controller) clearSessionLocked(ctx context.Context) {
	c.credential = ""
	c.session = Session{Remaining: DefaultRemaining}
	if sc, ok := c.backend.(SessionClearer); ok {
		sc.ClearSession()
	}
	if c.credentials != nil {
		if err := c.credentials.ClearCredential(ctx); err != nil {
			c.log.Warn("lifecycle.credential_clear_failed", zap.Error(err))
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        c.state,
		RemoteStatus: c.remoteStatus,
		Error:        c.errMsg,
		Notice:       c.notice,
		Session:      c.session,
		Celebrate:    c.celebrate,
	}
	if c.job != nil {
		job := *c.job
		snap.Job = &job
	}
	if c.stats != nil {
		stats := *c.stats
		stats.PromptScores = append([]int(nil), c.stats.PromptScores...)
		snap.Stats = &stats
	}
	return snap
}

// unlockAndEmit releases c.mu and delivers a snapshot to the observers.
func (c *Controller) unlockAndEmit() {
	snap := c.snapshotLocked()
	observers := append([]func(Snapshot){}, c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
