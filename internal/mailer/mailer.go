package mailer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	gomail "gopkg.in/gomail.v2"

	"interview-mailer/internal/config"
	"interview-mailer/internal/generate"
	"interview-mailer/internal/logging"
)

// Error carries the last transport error after all attempts were spent. It
// fails the row, never the job.
type Error struct {
	LastErr error
}

func (e *Error) Error() string {
	return fmt.Sprintf("SMTP failed: %v", e.LastErr)
}

func (e *Error) Unwrap() error { return e.LastErr }

// Mailer delivers generated messages over an authenticated STARTTLS session.
// The visible sender display name is fixed to "<Org> Recruitment" while the
// envelope sender stays the configured account.
type Mailer struct {
	email       string
	org         string
	signature   string
	subject     string
	maxAttempts int
	backoffBase time.Duration
	closing     []*regexp.Regexp
	dialer      *gomail.Dialer
	send        func(*gomail.Message) error
	sleep       func(time.Duration)
}

func New(cfg config.Config) *Mailer {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPEmail, cfg.SMTPPassword)
	m := &Mailer{
		email:       cfg.SMTPEmail,
		org:         cfg.OrgName,
		signature:   cfg.Signature,
		subject:     cfg.EmailSubject,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		closing:     generate.ClosingPatterns(cfg.OrgName),
		dialer:      dialer,
		sleep:       time.Sleep,
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = 3
	}
	if m.backoffBase <= 0 {
		m.backoffBase = time.Second
	}
	m.send = func(msg *gomail.Message) error { return dialer.DialAndSend(msg) }
	return m
}

// Deliver sends the message to a single recipient with bounded retries.
func (m *Mailer) Deliver(recipient, body string) error {
	msg := m.Compose(recipient, body)

	var lastErr error
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if err := m.send(msg); err != nil {
			lastErr = err
			logging.WithFields(map[string]interface{}{
				"recipient": recipient,
				"attempt":   attempt + 1,
			}).WithError(err).Warn("smtp send failed")
			m.sleep(m.backoffBase << uint(attempt))
			continue
		}
		return nil
	}
	return &Error{LastErr: lastErr}
}

// Compose builds the dual-part message: the raw body as the plain-text
// alternative and a styled HTML part with the signature block appended.
func (m *Mailer) Compose(recipient, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.email, m.org+" Recruitment"))
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", m.Subject())
	msg.SetBody("text/plain", body)
	msg.AddAlternative("text/html", m.htmlBody(body))
	return msg
}

// Subject applies the configured subject template, force-prefixing the
// organization name when absent.
func (m *Mailer) Subject() string {
	subject := m.subject
	if !strings.Contains(strings.ToLower(subject), strings.ToLower(m.org)) {
		subject = fmt.Sprintf("%s — %s", m.org, subject)
	}
	return subject
}

func (m *Mailer) htmlBody(body string) string {
	core := body
	if !looksLikeHTML(body) {
		core = paragraphsToHTML(body)
	}
	return fmt.Sprintf(
		"<div style=\"font-family: Aptos, system-ui, -apple-system, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; font-size:12pt; line-height:1.4; color:#000;\">\n%s\n%s\n</div>",
		core, m.signatureHTML(),
	)
}

// signatureHTML renders the configured signature block. HTML signatures are
// trusted as-is; plain text gets newline conversion. The same boilerplate
// closing stripping applied to generated text runs on the signature to avoid
// duplicated sign-offs.
func (m *Mailer) signatureHTML() string {
	sig := strings.TrimSpace(m.signature)
	var html string
	if sig == "" {
		html = fmt.Sprintf("<div style=\"margin-top:12px;\">Kind regards,<br>%s Recruitment</div>", m.org)
	} else if strings.Contains(sig, "<") && strings.Contains(sig, ">") {
		html = sig
	} else {
		html = "<div style=\"margin-top:12px;\">" + strings.ReplaceAll(sig, "\n", "<br>") + "</div>"
	}
	return generate.StripClosing(html, m.closing)
}

// looksLikeHTML detects whether text already carries HTML markup.
func looksLikeHTML(text string) bool {
	return strings.Contains(text, "<") && strings.Contains(text, ">") && strings.Contains(text, "</")
}

// paragraphsToHTML converts blank-line-separated paragraphs to <p> blocks
// with <br> for intra-paragraph newlines.
func paragraphsToHTML(text string) string {
	var parts []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts = append(parts, "<p style='margin:0 0 12px 0;'>"+strings.ReplaceAll(p, "\n", "<br>")+"</p>")
	}
	return strings.Join(parts, "\n")
}
