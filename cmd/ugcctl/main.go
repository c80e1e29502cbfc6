package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/client"
	"github.com/ugcstudio/api/internal/config"
	"github.com/ugcstudio/api/internal/lifecycle"
	"github.com/ugcstudio/api/internal/logger"
	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/progression"
	"github.com/ugcstudio/api/internal/scoring"
	"github.com/ugcstudio/api/internal/stats"
	"github.com/ugcstudio/api/internal/store"
)

const usage = `usage: ugcctl [flags] <command>

commands:
  login <password>   check the access password and remember it
  logout             forget the remembered password
  score              rate a brief without submitting it
  submit             submit a brief and wait for the video
  stats              show level, badges and recent videos
  reset-stats        wipe stats and history

flags:
`

func main() {
	fs := pflag.NewFlagSet("ugcctl", pflag.ExitOnError)
	config.ClientFlags(fs)
	brief := briefFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClient(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer closeKV()

	blobs := store.NewBlobs(kv, log)
	tracker := stats.NewTracker(blobs, log)
	api := client.NewAPIClient(cfg.ServerURL, cfg.Timeout, log)
	ctrl := lifecycle.New(lifecycle.Options{
		Backend:      api,
		Recorder:     tracker,
		Credentials:  blobs,
		PollInterval: cfg.PollInterval,
		Log:          log,
	})
	defer ctrl.Close()

	app := &cli{ctrl: ctrl, tracker: tracker}

	switch cmd := fs.Arg(0); cmd {
	case "login":
		err = app.login(ctx, fs.Arg(1))
	case "logout":
		ctrl.Logout(ctx)
		fmt.Println("Logged out.")
	case "score":
		app.score(brief.build())
	case "submit":
		err = app.submit(ctx, brief.build())
	case "stats":
		app.stats(ctx)
	case "reset-stats":
		err = tracker.Reset(ctx)
	default:
		fs.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type briefInput struct {
	product, photo, audience, features, setting, model *string
}

func briefFlags(fs *pflag.FlagSet) *briefInput {
	return &briefInput{
		product:  fs.String("product", "", "product name"),
		photo:    fs.String("photo", "", "product photo URL"),
		audience: fs.String("audience", "", "target audience"),
		features: fs.String("features", "", "key features, comma separated"),
		setting:  fs.String("setting", "", "video setting"),
		model:    fs.String("model", string(model.ModelNanoVeo), "video model"),
	}
}

func (b *briefInput) build() model.Brief {
	return model.Brief{
		Product:         *b.product,
		ProductPhotoURL: *b.photo,
		TargetAudience:  *b.audience,
		ProductFeatures: *b.features,
		VideoSetting:    *b.setting,
		Model:           model.ModelID(*b.model),
	}
}

func openStore(cfg *config.ClientConfig) (store.KV, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Store.Backend) {
	case "", "file":
		kv, err := store.NewFileKV(cfg.Store.Dir)
		return kv, noop, err
	case "memory":
		return store.NewMemoryKV(), noop, nil
	case "redis":
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return store.NewRedisKV(rc, cfg.Store.Prefix), func() { rc.Close() }, nil
	case "r2", "s3":
		kv, err := store.NewS3KV(&cfg.R2, cfg.Store.Prefix)
		return kv, noop, err
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

type cli struct {
	ctrl    *lifecycle.Controller
	tracker *stats.Tracker
}

func (a *cli) login(ctx context.Context, password string) error {
	if password == "" {
		return errors.New("login needs a password")
	}
	s, err := a.ctrl.Authenticate(ctx, password)
	if err != nil {
		return err
	}
	if s.IsAdmin {
		fmt.Println("Logged in as admin.")
	} else {
		fmt.Printf("Logged in. %d video(s) left today.\n", s.Remaining)
	}
	return nil
}

func (a *cli) score(b model.Brief) {
	bd := scoring.Evaluate(b)
	fmt.Printf("Prompt quality: %d/100 (%s)\n", bd.Total, progression.QualityTier(bd.Total))
	fmt.Printf("  length   %2d/25\n", bd.Length)
	fmt.Printf("  detail   %2d/30\n", bd.Detail)
	fmt.Printf("  audience %2d/20\n", bd.Audience)
	fmt.Printf("  features %2d/15\n", bd.Features)
	fmt.Printf("  setting  %2d/10\n", bd.Setting)
}

func (a *cli) submit(ctx context.Context, b model.Brief) error {
	ok, err := a.ctrl.Restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("not logged in, run: ugcctl login <password>")
	}

	done := make(chan lifecycle.Snapshot, 1)
	a.ctrl.Subscribe(func(s lifecycle.Snapshot) {
		printSnapshot(s)
		if s.Celebrate || s.State == model.JobStateFailed {
			select {
			case done <- s:
			default:
			}
		}
	})

	a.score(b)
	if err := a.ctrl.Submit(ctx, b); err != nil {
		if n := a.ctrl.Snapshot().Notice; n != "" {
			return errors.New(n)
		}
		return err
	}

	select {
	case <-ctx.Done():
		fmt.Println("Stopped watching. The video keeps rendering on the server.")
		return nil
	case s := <-done:
		if s.State == model.JobStateFailed {
			return errors.New(s.Error)
		}
		if s.Stats != nil {
			printProgress(*s.Stats)
		}
		return nil
	}
}

func (a *cli) stats(ctx context.Context) {
	printProgress(a.tracker.Stats(ctx))

	history := a.tracker.History(ctx)
	if len(history) == 0 {
		return
	}
	fmt.Println("\nRecent videos:")
	for _, j := range history {
		fmt.Printf("  %s  %-20s %3d  %s\n", j.CreatedAt.Format("2006-01-02 15:04"), j.Input.Product, j.Score, j.VideoURL)
	}
}

func printSnapshot(s lifecycle.Snapshot) {
	switch s.State {
	case model.JobStateSubmitting:
		fmt.Println("Submitting…")
	case model.JobStateProcessing:
		if s.RemoteStatus != "" {
			fmt.Printf("Processing job %s (%s)\n", s.Job.ID, s.RemoteStatus)
		}
	case model.JobStateCompleted:
		if s.Celebrate && s.Job != nil {
			fmt.Printf("🎉 Video ready: %s\n", s.Job.VideoURL)
		}
	case model.JobStateFailed:
		fmt.Printf("Job failed: %s\n", s.Error)
	}
}

func printProgress(s model.UserStats) {
	info := progression.LevelFromXP(s.XP)
	if info.MaxedOut() {
		fmt.Printf("Level %d (max) · %d XP\n", info.Level, s.XP)
	} else {
		fmt.Printf("Level %d · %d/%d XP (%d%%)\n", info.Level, info.CurrentXP, info.NextLevelXP, info.Percent())
	}
	fmt.Printf("Videos: %d · avg quality %d · streak %d\n", s.TotalVideos, s.AvgQuality, s.Streak)
	for _, b := range progression.Badges(s) {
		mark := "  "
		if b.Earned {
			mark = b.Icon
		}
		fmt.Printf("  %s %-14s %s\n", mark, b.Name, b.Description)
	}
}
