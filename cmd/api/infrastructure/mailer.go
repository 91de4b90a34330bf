package infrastructure

import (
	"fmt"
	"time"

	"registration-service/internal/adapter/mail"
	"registration-service/internal/config"

	"go.uber.org/zap"
)

// NewMailer creates the SMTP sender for welcome emails
func NewMailer(cfg *config.Config, l *zap.Logger) (*mail.SMTPMailer, error) {
	m, err := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.User,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
		Timeout:  time.Duration(cfg.Mail.TimeoutSeconds) * time.Second,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to configure mailer: %w", err)
	}

	l.Info("mailer configured",
		zap.String("host", cfg.Mail.Host),
		zap.Int("port", cfg.Mail.Port),
	)

	return m, nil
}
