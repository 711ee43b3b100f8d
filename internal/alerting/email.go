// internal/alerting/email.go - SMTP alert channel
package alerting

import (
    "fmt"

    mail "gopkg.in/mail.v2"

    "beacon/internal/config"
)

// Mailer sends one alert email. The SMTP dialer hides behind this so
// dispatcher tests can substitute a fake.
type Mailer interface {
    SendMail(to, subject, htmlBody string) error
}

type dialer interface {
    DialAndSend(m ...*mail.Message) error
}

type smtpMailer struct {
    from   string
    dialer dialer
}

// NewSMTPMailer builds a Mailer from SMTP configuration.
func NewSMTPMailer(cfg config.SMTPConfig) Mailer {
    return &smtpMailer{
        from:   cfg.From,
        dialer: mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
    }
}

func (s *smtpMailer) SendMail(to, subject, htmlBody string) error {
    m := mail.NewMessage()
    m.SetHeader("From", s.from)
    m.SetHeader("To", to)
    m.SetHeader("Subject", subject)
    m.SetBody("text/html", htmlBody)

    if err := s.dialer.DialAndSend(m); err != nil {
        return fmt.Errorf("smtp send: %w", err)
    }
    return nil
}

func emailSubject(a Alert) string {
    return fmt.Sprintf("[%s] %s", a.Severity, a.title())
}

func emailBody(a Alert) string {
    body := fmt.Sprintf(
        "<h2>%s</h2><p>%s</p><ul><li>Endpoint: <a href=%q>%s</a></li><li>Previous status: %s</li><li>Current status: %s</li><li>Time: %s</li></ul>",
        a.title(), a.summary(), a.URL, a.URL, a.OldStatus, a.NewStatus,
        a.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"),
    )
    if a.DashboardURL != "" {
        body += fmt.Sprintf("<p><a href=%q>Open the dashboard</a></p>", a.DashboardURL)
    }
    return body
}
