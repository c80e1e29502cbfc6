package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/auth"
	"github.com/ugcstudio/api/internal/client"
	"github.com/ugcstudio/api/internal/limiter"
	"github.com/ugcstudio/api/internal/model"
)

// StatusPublisher receives every status fetched through the proxy
type StatusPublisher interface {
	BroadcastStatus(res *model.JobStatusResponse)
}

// Principal is an authenticated caller of the proxy route.
type Principal struct {
	Subject string
	Admin   bool
}

// UGCService gates job actions behind the shared passwords and a per-caller
// daily quota, then forwards them to the workflow.
type UGCService struct {
	runner    client.JobRunner
	gate      *auth.Gate
	quota     *limiter.Limiter
	publisher StatusPublisher
	jwtSecret string
	tokenTTL  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// UGCServiceOptions groups the collaborators of UGCService
type UGCServiceOptions struct {
	Runner    client.JobRunner
	Gate      *auth.Gate
	Quota     *limiter.Limiter
	Publisher StatusPublisher
	JWTSecret string
	TokenTTL  time.Duration
	Log       *zap.Logger
}

func NewUGCService(opts UGCServiceOptions) *UGCService {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UGCService{
		runner:    opts.Runner,
		gate:      opts.Gate,
		quota:     opts.Quota,
		publisher: opts.Publisher,
		jwtSecret: opts.JWTSecret,
		tokenTTL:  ttl,
		log:       log,
		now:       time.Now,
	}
}

// Authorize resolves the caller from a session token or, failing that, a
// password. A token that does not verify is not retried as a password.
func (s *UGCService) Authorize(password string, session *auth.SessionClaims) (*Principal, error) {
	if session != nil {
		return &Principal{Subject: session.Subject, Admin: session.Admin}, nil
	}
	ok, admin := s.gate.Check(password)
	if !ok {
		return nil, model.ErrAuthorization
	}
	return &Principal{Subject: auth.Fingerprint(password), Admin: admin}, nil
}

// Validate checks password and hands out a session token.
func (s *UGCService) Validate(ctx context.Context, password string) (*model.ValidateResponse, error) {
	p, err := s.Authorize(password, nil)
	if err != nil {
		s.log.Info("ugc.validate_rejected")
		return nil, err
	}

	remaining, err := s.remaining(ctx, p)
	if err != nil {
		return nil, err
	}

	token := ""
	if s.jwtSecret != "" {
		token, err = auth.IssueSessionToken(s.jwtSecret, p.Subject, p.Admin, s.tokenTTL, s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to issue session token: %w", err)
		}
	}

	return &model.ValidateResponse{
		Valid:     true,
		IsAdmin:   p.Admin,
		Remaining: remaining,
		Token:     token,
	}, nil
}

// Start forwards brief to the workflow. Non-admin callers spend one unit of
// quota, charged only once the workflow accepted the job.
func (s *UGCService) Start(ctx context.Context, p *Principal, brief *model.Brief) (*model.JobStartResponse, error) {
	if strings.TrimSpace(brief.Product) == "" || strings.TrimSpace(brief.ProductPhotoURL) == "" {
		return nil, fmt.Errorf("%w: product and productPhotoUrl are required", model.ErrValidation)
	}

	if !p.Admin {
		remaining, err := s.quota.Remaining(ctx, p.Subject)
		if err != nil {
			return nil, fmt.Errorf("failed to read quota: %w", err)
		}
		if remaining <= 0 {
			s.log.Info("ugc.quota_exceeded", zap.String("subject", p.Subject))
			return nil, model.ErrQuotaExceeded
		}
	}

	res, err := s.runner.StartJob(ctx, brief)
	if err != nil {
		s.log.Warn("ugc.start_failed", zap.String("subject", p.Subject), zap.Error(err))
		return nil, err
	}

	res.IsAdmin = p.Admin
	if p.Admin {
		res.Remaining = s.quota.Limit()
	} else {
		d, err := s.quota.CheckAndConsume(ctx, p.Subject)
		if err != nil {
			// the job is already running; report it rather than fail
			s.log.Error("ugc.quota_charge_failed", zap.String("job_id", res.JobID), zap.Error(err))
		}
		res.Remaining = d.Remaining
	}
	if res.Message == "" {
		res.Message = "Video generation started"
	}

	s.log.Info("ugc.job_started",
		zap.String("job_id", res.JobID),
		zap.String("model", string(brief.Model)),
		zap.Bool("admin", p.Admin),
		zap.Int("remaining", res.Remaining),
	)
	return res, nil
}

// Status fetches the workflow status of jobID and publishes it to watchers.
func (s *UGCService) Status(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: jobId is required", model.ErrValidation)
	}

	res, err := s.runner.JobStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.BroadcastStatus(res)
	}
	return res, nil
}

func (s *UGCService) remaining(ctx context.Context, p *Principal) (int, error) {
	if p.Admin {
		return s.quota.Limit(), nil
	}
	n, err := s.quota.Remaining(ctx, p.Subject)
	if err != nil {
		return 0, fmt.Errorf("failed to read quota: %w", err)
	}
	return n, nil
}
