package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sushihentaime/writtenwork/internal/common"
	"golang.org/x/exp/rand"
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, siteURL string, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:     mb,
		m:      NewMailer(host, port, username, password, sender, NewTemplate(siteURL)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		after:  time.After,
		done:   make(chan struct{}),
	}
}

// SendOTPEmail consumes auth.otp_requested events and mails the code to the user.
func (s *MailService) SendOTPEmail() error {
	msgs, err := s.mb.Consume(common.OTPRequestedKey, common.AuthExchange, common.OTPRequestedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return err
	}

	go func() {
		defer close(s.done)

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var data common.OTPRequested

				err := json.Unmarshal(msg.Body, &data)
				if err != nil {
					s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
					msg.Ack(false)
					continue
				}

				payload := otpEmail{
					Code:      data.Code,
					ExpiresIn: data.ExpiresIn,
				}

				if s.deliver(data.Email, payload) {
					s.logger.Info("otp email sent", slog.String("email", data.Email))
				} else if s.ctx.Err() != nil {
					// hand the message back to the broker for the next consumer
					msg.Nack(false, true)
					s.logger.Info("stopping SendOTPEmail during a retry", slog.String("email", data.Email))
					return
				} else {
					s.logger.Error("could not send otp email", slog.String("email", data.Email))
				}
				msg.Ack(false)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendOTPEmail due to context cancellation")
				return
			}
		}
	}()

	return nil
}

// deliver retries with exponential backoff and jitter.
func (s *MailService) deliver(email string, payload otpEmail) bool {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(email, payload, "otp_email.tmpl")
		if err == nil {
			return true
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying otp email", slog.String("email", email), slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("error", err.Error()))

		select {
		case <-s.ctx.Done():
			return false
		case <-s.after(delay):
		}
	}

	return false
}

// Close stops the consumer and waits briefly for it to exit.
func (s *MailService) Close() {
	s.cancel()

	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
	}
}
