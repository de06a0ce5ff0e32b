package generate

import (
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"interview-mailer/internal/logging"
	"interview-mailer/internal/models"
)

// Texter is the outbound text-generation call.
type Texter interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error carries the last provider error after all attempts were spent. It
// fails the row, never the job.
type Error struct {
	LastErr error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Gemini failed: %v", e.LastErr)
}

func (e *Error) Unwrap() error { return e.LastErr }

// Generator produces the final message text for one candidate row.
type Generator struct {
	client        Texter
	org           string
	maxAttempts   int
	regenAttempts int
	backoffBase   time.Duration
	closing       []*regexp.Regexp
	sleep         func(time.Duration)
}

func New(client Texter, org string, maxAttempts, regenAttempts int, backoffBase time.Duration) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &Generator{
		client:        client,
		org:           org,
		maxAttempts:   maxAttempts,
		regenAttempts: regenAttempts,
		backoffBase:   backoffBase,
		closing:       ClosingPatterns(org),
		sleep:         time.Sleep,
	}
}

// Generate builds the prompt for the row, calls the provider with bounded
// retries, and runs the sanitizer pipeline. htmlTemplate selects template
// mode when non-empty. An empty final text after all attempts is a terminal
// row failure.
func (g *Generator) Generate(ctx context.Context, row models.CandidateRow, htmlTemplate string) (string, error) {
	prompt := buildPrompt(row, g.org, htmlTemplate != "")

	text, lastErr := g.callWithRetries(ctx, prompt, row.Index)
	if text != "" {
		text = stripCodeFences(text)
		text = replacePlaceholders(text, row.Name, row.Surname)

		// Placeholder residue means the provider ignored the instruction;
		// regenerate a bounded number of times from the same prompt.
		for regen := 0; regen < g.regenAttempts && hasPlaceholder(text); regen++ {
			fresh, err := g.client.Generate(ctx, prompt)
			if err != nil {
				lastErr = err
				break
			}
			text = replacePlaceholders(stripCodeFences(fresh), row.Name, row.Surname)
		}

		if htmlTemplate != "" {
			text = g.render(htmlTemplate, row, text)
		} else {
			text = g.ensureOrgSignOff(text)
		}
		text = StripClosing(text, g.closing)
	}

	if text == "" {
		return "", &Error{LastErr: lastErr}
	}
	return text, nil
}

func (g *Generator) callWithRetries(ctx context.Context, prompt string, rowIndex int) (string, error) {
	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		text, err := g.client.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		logging.WithFields(map[string]interface{}{
			"row":     rowIndex,
			"attempt": attempt + 1,
		}).WithError(err).Warn("generation attempt failed")
		g.sleep(g.backoffBase << uint(attempt))
	}
	return "", lastErr
}

// render executes the caller-supplied template with the row variables and the
// sanitized body. A broken template falls back to a minimal paragraph wrap so
// the row still gets a sendable message.
func (g *Generator) render(htmlTemplate string, row models.CandidateRow, body string) string {
	tmpl, err := template.New("email").Parse(htmlTemplate)
	if err != nil {
		logging.WithError(err).Error("failed to parse HTML template, falling back to plain wrap")
		return wrapParagraph(body)
	}
	var sb strings.Builder
	data := map[string]interface{}{
		"name":     row.Name,
		"surname":  row.Surname,
		"email":    row.Email,
		"feedback": row.Feedback,
		"decision": row.Decision,
		"body":     template.HTML(body),
	}
	if err := tmpl.Execute(&sb, data); err != nil {
		logging.WithError(err).Error("failed to render HTML template, falling back to plain wrap")
		return wrapParagraph(body)
	}
	return sb.String()
}

// ensureOrgSignOff appends a short sign-off paragraph when the organization
// name is absent from freeform output.
func (g *Generator) ensureOrgSignOff(text string) string {
	if strings.Contains(strings.ToLower(text), strings.ToLower(g.org)) {
		return text
	}
	text = strings.TrimSpace(text)
	signOff := fmt.Sprintf("<p style='margin-top:12px;'>Kind regards,<br>%s</p>", g.org)
	if strings.HasSuffix(text, "</p>") || strings.Contains(text, "<p") {
		return text + signOff
	}
	return wrapParagraph(text) + signOff
}

func wrapParagraph(text string) string {
	return "<p>" + strings.ReplaceAll(text, "\n", "<br>") + "</p>"
}
