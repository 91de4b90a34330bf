package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	apperrors "registration-service/pkg/errors"
	"registration-service/pkg/logger"
)

// WelcomeSubject is the subject line of the registration email.
const WelcomeSubject = "Registration Successful 🎉"

const defaultPort = 587

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<h2>Welcome, {{.Name}}!</h2>
<p>Your registration was successful.</p>
<p>You can now log in to your account.</p>
<br/>
<p>Thanks,<br/>{{.Team}}</p>
`))

// Config holds SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username
	FromName string
	Timeout  time.Duration
}

// SMTPMailer sends welcome emails through an SMTP relay, one transaction per message.
type SMTPMailer struct {
	cfg  Config
	from string
	opts []gomail.Option
	log  *zap.Logger
}

// NewSMTPMailer validates cfg and returns a mailer. No connection is made.
func NewSMTPMailer(cfg Config, log *zap.Logger) (*SMTPMailer, error) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	if from == "" {
		return nil, errors.New("sender address is required: set EMAIL_FROM or EMAIL_USER")
	}

	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	// Fail fast on options the client rejects, e.g. an empty host.
	if _, err := gomail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("invalid smtp configuration: %w", err)
	}

	return &SMTPMailer{cfg: cfg, from: from, opts: opts, log: log}, nil
}

// SendWelcome composes and sends the welcome email to one recipient.
// Errors are returned as *errors.DeliveryError.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := m.welcomeMessage(to, name)
	if err != nil {
		return apperrors.NewDeliveryError(to, err)
	}

	client, err := gomail.NewClient(m.cfg.Host, m.opts...)
	if err != nil {
		return apperrors.NewDeliveryError(to, err)
	}

	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperrors.NewDeliveryError(to, err)
	}

	logger.WithContext(ctx, m.log).Debug("smtp transaction complete",
		zap.String("host", m.cfg.Host),
		zap.Int("port", m.cfg.Port),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (m *SMTPMailer) welcomeMessage(to, name string) (*gomail.Msg, error) {
	body, err := renderWelcome(name, m.cfg.FromName)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if m.cfg.FromName != "" {
		err = msg.FromFormat(m.cfg.FromName, m.from)
	} else {
		err = msg.From(m.from)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(WelcomeSubject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	return msg, nil
}

// renderWelcome renders the HTML body. The name is escaped.
func renderWelcome(name, team string) (string, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, struct{ Name, Team string }{name, team}); err != nil {
		return "", fmt.Errorf("failed to render welcome email: %w", err)
	}
	return buf.String(), nil
}
