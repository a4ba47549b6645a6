package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

type fakeSender struct {
	failures int
	calls    int
	last     *bot.SendMessageParams
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.calls++
	f.last = params
	if f.calls <= f.failures {
		return nil, errors.New("bad gateway")
	}
	return &tgmodels.Message{}, nil
}

func TestTelegram_Send(t *testing.T) {
	sender := &fakeSender{}
	tg := NewTelegramWithSender(sender, -1001, 10, logging.Discard())

	err := tg.Send(context.Background(), models.Notification{
		Message:   "Tomato is OUT OF STOCK! Reorder immediately.",
		Severity:  models.SeverityDanger,
		Source:    "inventory",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, sender.last)
	assert.Equal(t, int64(-1001), sender.last.ChatID)
	assert.Equal(t, "[DANGER] inventory\nTomato is OUT OF STOCK! Reorder immediately.\n2024-03-01 12:00:00", sender.last.Text)
}

func TestTelegram_SendRetries(t *testing.T) {
	sender := &fakeSender{failures: 1}
	tg := NewTelegramWithSender(sender, 1, 10, logging.Discard())

	require.NoError(t, tg.Send(context.Background(), models.Notification{Message: "x", Severity: models.SeverityDanger}))
	assert.Equal(t, 2, sender.calls)
}

func TestNewTelegram_RequiresCredentials(t *testing.T) {
	_, err := NewTelegram("", 1, 1, logging.Discard())
	assert.Error(t, err)
	_, err = NewTelegram("token", 0, 1, logging.Discard())
	assert.Error(t, err)
}
