// Package dispatch delivers a sorted batch of items to a destination chat,
// one item at a time, absorbing transport throttling and isolating
// per-item failures.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"sequence_bot/internal/model"
)

// ThrottleError is a transport-level signal that the caller must wait
// before retrying the same send.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled, retry after %s", e.RetryAfter)
}

// ErrDestinationUnreachable marks a systemic failure of the destination
// chat itself (e.g. the bot lacks permission there), as opposed to a
// failure of one item. Transports wrap it so the engine can abort the
// batch and let the caller run its fallback pass.
var ErrDestinationUnreachable = errors.New("destination unreachable")

// Transport sends individual items to a chat. Implementations may return
// *ThrottleError or errors wrapping ErrDestinationUnreachable.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	SendVideo(ctx context.Context, chatID int64, fileID, caption string) error
	SendAudio(ctx context.Context, chatID int64, fileID, caption string) error
}

// throttleMargin is added on top of the wait duration a throttle signal
// demands before the send is re-issued.
const throttleMargin = time.Second

// Telegram allows roughly 30 messages per second bot-wide; pacing at 20/s
// keeps dispatch comfortably below that before any throttle signal.
const sendsPerSecond = 20

// Engine dispatches item batches over a Transport.
type Engine struct {
	transport Transport
	limiter   *rate.Limiter
	log       *slog.Logger
}

// New creates an Engine with the default send pacing.
func New(transport Transport, log *slog.Logger) *Engine {
	return &Engine{
		transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(sendsPerSecond), 1),
		log:       log,
	}
}

// Dispatch delivers items strictly in the given order. Throttle signals
// are retried transparently; any other per-item failure is recorded in the
// result and the batch continues. An error wrapping
// ErrDestinationUnreachable aborts the run and is returned alongside the
// partial result so the caller can fall back to another destination.
func (e *Engine) Dispatch(ctx context.Context, items []model.Item, destination int64) (model.DispatchResult, error) {
	res := model.DispatchResult{Total: len(items)}

	for _, item := range items {
		if err := e.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("wait for send slot: %w", err)
		}

		err := WithThrottleRetry(ctx, func(ctx context.Context) error {
			return e.sendItem(ctx, item, destination)
		})
		if err == nil {
			res.SentCount++
			continue
		}
		if errors.Is(err, ErrDestinationUnreachable) {
			return res, fmt.Errorf("send %q: %w", item.Filename, err)
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		e.log.Error("send item", "filename", item.Filename, "chat_id", destination, "error", err)
		res.Failed = append(res.Failed, item.Filename)
	}

	return res, nil
}

// WithThrottleRetry re-issues op until it stops returning throttle
// signals. The retry loop is unbounded in attempts but bounded in real
// time by the signalled wait durations; each retry waits the demanded
// duration plus a safety margin. Non-throttle errors are returned as is.
func WithThrottleRetry(ctx context.Context, op func(context.Context) error) error {
	var wait time.Duration
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		return wait + throttleMargin, false
	})

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		var throttle *ThrottleError
		if errors.As(err, &throttle) {
			wait = throttle.RetryAfter
			return retry.RetryableError(err)
		}
		return err
	})
}

func (e *Engine) sendItem(ctx context.Context, item model.Item, destination int64) error {
	if item.FileID != "" {
		switch item.Format {
		case model.FormatDocument:
			return e.transport.SendDocument(ctx, destination, item.FileID, item.Filename)
		case model.FormatVideo:
			return e.transport.SendVideo(ctx, destination, item.FileID, item.Filename)
		case model.FormatAudio:
			return e.transport.SendAudio(ctx, destination, item.FileID, item.Filename)
		}
	}
	return e.transport.SendText(ctx, destination, "📄 "+item.Filename)
}
