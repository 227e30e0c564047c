// Package notifier consumes participation notifications from the queue and
// turns them into e-mail. Mail is follow-up only: every participation
// operation has already committed by the time a message lands here.
package notifier

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"campushub/internal/dto"
	"campushub/internal/mailer"
	"campushub/internal/model"
	"campushub/internal/rabbit"
	"campushub/internal/repo"
)

type Worker struct {
	rmq    *rabbit.Client
	repo   *repo.Repository
	mailer *mailer.Mailer
	done   chan struct{}
	cancel context.CancelFunc
}

func NewWorker(rmq *rabbit.Client, repository *repo.Repository, m *mailer.Mailer) *Worker {
	return &Worker{
		rmq:    rmq,
		repo:   repository,
		mailer: m,
		done:   make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	zlog.Logger.Info().Msg("notification worker started")

	go func() {
		defer close(w.done)

		if err := w.rmq.Consume(w.handle(cctx)); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("notification worker stopped by context")
	}()
}

func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *Worker) handle(ctx context.Context) func([]byte) error {
	return func(body []byte) error {
		var msg dto.NotificationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			zlog.Logger.Error().Err(err).Msgf("failed to unmarshal message: %s", string(body))
			return err
		}

		acct, err := w.repo.GetAccountByID(ctx, msg.AccountID)
		if err != nil {
			// Account may have been deleted since; drop the message.
			zlog.Logger.Warn().Err(err).Int64("account_id", msg.AccountID).
				Msg("account gone, skipping notification")
			return nil
		}

		event, err := w.repo.GetEventByID(ctx, msg.EventID)
		if err != nil {
			zlog.Logger.Warn().Err(err).Int64("event_id", msg.EventID).
				Msg("event gone, skipping notification")
			return nil
		}

		if err := w.mailer.SendParticipationEmail(
			msg.Kind,
			acct.Email,
			event.Title,
			event.StartTime.Format(model.TimeFormat),
		); err != nil {
			zlog.Logger.Warn().Err(err).
				Str("kind", msg.Kind).
				Int64("account_id", msg.AccountID).
				Msg("failed to send notification email")
		}
		return nil
	}
}
