package telegram

import (
	"context"
	"fmt"
	"time"

	"concern2care/internal/domain/submission"
	"concern2care/internal/domain/teacher"

	"gopkg.in/telebot.v3"
)

// AdminAlerter pushes urgent-submission alerts to a configured admin chat.
// It implements app.Alerter. Telegram is an out-of-band channel here, not the
// system of record: the admin notification row is always written regardless.
type AdminAlerter struct {
	bot         *telebot.Bot
	adminChatID int64
}

func NewAdminAlerter(token string, adminChatID int64) (*AdminAlerter, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &AdminAlerter{bot: bot, adminChatID: adminChatID}, nil
}

func (a *AdminAlerter) UrgentSubmission(ctx context.Context, sub *submission.Submission, t *teacher.EnrolledTeacher) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"🚨 Urgent submission %s\nTeacher: %s (%s)\nStudent: %s %s., grade %s\nSeverity: %s\n\n%s",
		sub.Reference, t.FullName(), t.Email,
		sub.StudentFirstName, sub.StudentLastInitial, sub.GradeLevel,
		sub.Severity, sub.ConcernDescription,
	)

	_, err := a.bot.Send(&telebot.Chat{ID: a.adminChatID}, text)
	if err != nil {
		return fmt.Errorf("failed to send Telegram alert: %w", err)
	}
	return nil
}
