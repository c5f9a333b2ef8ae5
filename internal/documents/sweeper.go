package documents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ecologiciel/gemini-rag-master/internal/genai"
)

// DefaultSweepSchedule runs the sweep every six hours. Provider file-store
// handles expire after roughly two days, so this catches them well before
// a chat call would reference a dead file.
const DefaultSweepSchedule = "0 */6 * * *"

// Sweeper periodically re-checks provider state for successful documents and
// flags the ones whose provider copy expired or failed.
type Sweeper struct {
	svc      *Service
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
}

func NewSweeper(log *slog.Logger, svc *Service, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		svc:      svc,
		cron:     cron.New(),
		schedule: schedule,
		logger:   log.With(slog.String("service", "document_sweeper")),
	}
}

// Start registers the sweep job and starts the scheduler.
func (sw *Sweeper) Start() error {
	_, err := sw.cron.AddFunc(sw.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sw.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	sw.cron.Start()
	sw.logger.Info("sweeper started", slog.String("schedule", sw.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
}

// Sweep checks every successful document against the provider file store.
func (sw *Sweeper) Sweep(ctx context.Context) {
	docs, err := sw.svc.repo.ListByStatus(ctx, StatusSuccess)
	if err != nil {
		sw.logger.Error("sweep list failed", slog.String("error", err.Error()))
		return
	}

	flagged := 0
	for _, doc := range docs {
		if doc.ProviderName == "" {
			continue
		}
		file, err := sw.svc.store.GetFile(ctx, doc.ProviderName)
		switch {
		case err != nil:
			var apiErr *genai.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
				sw.flag(ctx, doc, "provider file expired")
				flagged++
				continue
			}
			// Transient trouble: leave the row alone, next sweep retries.
			sw.logger.Warn("sweep check failed",
				slog.String("id", doc.ID),
				slog.String("error", err.Error()))
		case file.State != genai.FileStateActive:
			sw.flag(ctx, doc, "provider file state "+file.State)
			flagged++
		}
	}
	if flagged > 0 {
		sw.logger.Info("sweep flagged stale documents", slog.Int("count", flagged))
	}
}

func (sw *Sweeper) flag(ctx context.Context, doc Document, reason string) {
	if err := sw.svc.repo.UpdateStatus(ctx, doc.ID, StatusError); err != nil {
		sw.logger.Warn("sweep flag failed", slog.String("id", doc.ID), slog.String("error", err.Error()))
		return
	}
	sw.logger.Info("document flagged",
		slog.String("id", doc.ID),
		slog.String("name", doc.Name),
		slog.String("reason", reason))
}
