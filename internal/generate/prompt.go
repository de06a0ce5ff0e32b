package generate

import (
	"fmt"

	"interview-mailer/internal/models"
)

// buildPrompt writes the provider prompt for one row. With a rendering
// template on hand we only want a short plain paragraph to embed; without one
// the provider must return a complete, ready-to-send HTML fragment.
func buildPrompt(row models.CandidateRow, org string, templateMode bool) string {
	if templateMode {
		return fmt.Sprintf(
			"Write a short, polite and personalized paragraph specifically for %s %s"+
				" based on this interview feedback: %q. The decision is %q. "+
				"Do NOT include placeholders like {name} or [Name]. Do NOT include a signature. "+
				"Keep it to one concise paragraph suitable for insertion into an HTML template. "+
				"Include the company name %s somewhere in the paragraph. Return only the paragraph text.",
			row.Name, row.Surname, row.Feedback, row.Decision, org,
		)
	}
	return fmt.Sprintf(
		"Write a short, polite, and personalized HTML email body specifically to %s %s <%s> "+
			"based on this interview feedback: %q. The decision is %q. "+
			"Start the email with 'Dear <Name> <Surname>,' (replace with the real name). "+
			"Include the company name '%s' in the body and in the sign-off. "+
			"Do NOT include template placeholders such as {name}, [Name], [[name]], or similar — produce the final HTML text that can be sent as-is. "+
			"Return an HTML fragment (use <p> for paragraphs) and do not wrap it in <html>/<body> tags.",
		row.Name, row.Surname, row.Email, row.Feedback, row.Decision, org,
	)
}
