package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecologiciel/gemini-rag-master/internal/requestlog"
	"github.com/ecologiciel/gemini-rag-master/internal/whatsapp"
)

// Sender is the slice of the messaging client the broadcaster needs.
type Sender interface {
	SendText(ctx context.Context, to, body string) (whatsapp.SendResult, error)
	SendTemplate(ctx context.Context, to string, tpl whatsapp.Template) (whatsapp.SendResult, error)
}

// Broadcaster sends one message to many recipients, strictly one at a time
// with a pacing delay, and reports per-recipient outcomes.
type Broadcaster struct {
	sender Sender
	logs   *requestlog.Service
	delay  time.Duration
	logger *slog.Logger
}

func NewBroadcaster(log *slog.Logger, sender Sender, logs *requestlog.Service, delay time.Duration) *Broadcaster {
	if delay <= 0 {
		delay = time.Second
	}
	return &Broadcaster{
		sender: sender,
		logs:   logs,
		delay:  delay,
		logger: log.With(slog.String("service", "broadcast")),
	}
}

// Broadcast attempts every recipient in order. Failures are collected, never
// propagated mid-run; the report is the only outcome. A cancelled context
// marks the remaining recipients failed so the report still covers everyone.
func (b *Broadcaster) Broadcast(ctx context.Context, input BroadcastInput) (Report, error) {
	if len(input.Recipients) == 0 {
		return Report{}, fmt.Errorf("at least one recipient is required")
	}
	if input.Text == "" && input.Template == nil {
		return Report{}, fmt.Errorf("text or template is required")
	}

	report := Report{Total: len(input.Recipients)}
	for i, recipient := range input.Recipients {
		if err := ctx.Err(); err != nil {
			for _, remaining := range input.Recipients[i:] {
				report.Failed++
				report.Errors = append(report.Errors, BroadcastError{
					Recipient: remaining,
					Message:   "broadcast cancelled: " + err.Error(),
				})
			}
			break
		}

		if err := b.sendOne(ctx, recipient, input); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, toBroadcastError(recipient, err))
			b.logger.Warn("broadcast send failed",
				slog.String("recipient", recipient),
				slog.String("error", err.Error()))
		} else {
			report.Success++
		}

		if i < len(input.Recipients)-1 {
			b.pause(ctx)
		}
	}

	b.logs.Append(ctx, requestlog.Entry{
		Channel:  requestlog.ChannelBroadcast,
		Query:    broadcastSummary(input),
		Response: fmt.Sprintf("sent %d/%d", report.Success, report.Total),
		Success:  report.Failed == 0,
	})
	b.logger.Info("broadcast finished",
		slog.Int("total", report.Total),
		slog.Int("success", report.Success),
		slog.Int("failed", report.Failed))
	return report, nil
}

func (b *Broadcaster) sendOne(ctx context.Context, recipient string, input BroadcastInput) error {
	if input.Template != nil {
		_, err := b.sender.SendTemplate(ctx, recipient, *input.Template)
		return err
	}
	_, err := b.sender.SendText(ctx, recipient, input.Text)
	return err
}

// pause waits the pacing delay, returning early on cancellation; the main
// loop notices the cancelled context on its next iteration.
func (b *Broadcaster) pause(ctx context.Context) {
	timer := time.NewTimer(b.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func toBroadcastError(recipient string, err error) BroadcastError {
	be := BroadcastError{Recipient: recipient, Message: err.Error()}
	if errors.Is(err, whatsapp.ErrWindowExpired) {
		be.WindowViolation = true
	}
	var apiErr *whatsapp.APIError
	if errors.As(err, &apiErr) {
		be.Code = apiErr.Code
	}
	return be
}

func broadcastSummary(input BroadcastInput) string {
	if input.Template != nil {
		return "template:" + input.Template.Name
	}
	return input.Text
}
