package bot

import (
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sequence_bot/internal/dispatch"
)

func TestClassifySendError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		if got := classifySendError(nil); got != nil {
			t.Fatalf("want nil, got %v", got)
		}
	})

	t.Run("plain error passes through", func(t *testing.T) {
		plain := errors.New("connection reset")
		if got := classifySendError(plain); !errors.Is(got, plain) {
			t.Fatalf("want the original error, got %v", got)
		}
	})

	t.Run("retry_after becomes throttle", func(t *testing.T) {
		apiErr := &tgbotapi.Error{
			Code:    429,
			Message: "Too Many Requests",
			ResponseParameters: tgbotapi.ResponseParameters{
				RetryAfter: 7,
			},
		}
		got := classifySendError(apiErr)

		var throttle *dispatch.ThrottleError
		if !errors.As(got, &throttle) {
			t.Fatalf("want ThrottleError, got %v", got)
		}
		if throttle.RetryAfter != 7*time.Second {
			t.Errorf("want 7s retry, got %s", throttle.RetryAfter)
		}
	})

	t.Run("chat-level rejections become unreachable", func(t *testing.T) {
		cases := []*tgbotapi.Error{
			{Code: 403, Message: "Forbidden: bot was kicked from the channel chat"},
			{Code: 400, Message: "Bad Request: chat not found"},
			{Code: 400, Message: "Bad Request: not enough rights to send text messages to the chat"},
		}
		for _, apiErr := range cases {
			if got := classifySendError(apiErr); !errors.Is(got, dispatch.ErrDestinationUnreachable) {
				t.Errorf("%d %q: want ErrDestinationUnreachable, got %v", apiErr.Code, apiErr.Message, got)
			}
		}
	})

	t.Run("item-level 400 stays an item failure", func(t *testing.T) {
		apiErr := &tgbotapi.Error{Code: 400, Message: "Bad Request: wrong file identifier"}
		got := classifySendError(apiErr)
		if errors.Is(got, dispatch.ErrDestinationUnreachable) {
			t.Fatalf("item failure misclassified as unreachable: %v", got)
		}
		var throttle *dispatch.ThrottleError
		if errors.As(got, &throttle) {
			t.Fatalf("item failure misclassified as throttle: %v", got)
		}
	})
}
