package service

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/models"
)

// Notifier delivers the welcome message to a freshly registered user.
// Delivery is best effort and always decoupled from the registration
// response.
type Notifier interface {
	SendWelcome(ctx context.Context, user *models.User) error
}

// NewNotifier returns an SMTP notifier when a host is configured, or a
// log-only notifier otherwise.
func NewNotifier(cfg config.SMTPConfig, logger *logrus.Logger) Notifier {
	if cfg.Host == "" {
		return &logNotifier{logger: logger}
	}
	return &smtpNotifier{cfg: cfg, logger: logger}
}

type smtpNotifier struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
}

func (n *smtpNotifier) SendWelcome(_ context.Context, user *models.User) error {
	addr := n.cfg.Host + ":" + n.cfg.Port
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Welcome aboard\r\n\r\nHi %s,\r\n\r\nYour account has been created. Welcome!\r\n",
		n.cfg.From, user.Email, user.Name,
	)
	if err := smtp.SendMail(addr, nil, n.cfg.From, []string{user.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	n.logger.WithField("user_id", user.ID).Info("Welcome email sent")
	return nil
}

type logNotifier struct {
	logger *logrus.Logger
}

func (n *logNotifier) SendWelcome(_ context.Context, user *models.User) error {
	n.logger.WithField("user_id", user.ID).Info("Welcome email skipped, SMTP not configured")
	return nil
}
