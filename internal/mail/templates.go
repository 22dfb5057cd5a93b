package mail

import (
	"fmt"
	"html"
)

const htmlLayout = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>%s</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f4f4f9;">
	<div style="max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 8px; padding: 30px; color: #333333;">
		<h1 style="font-size: 22px;">%s</h1>
		<p>%s</p>
		<p><a href="%s" style="color: #0066cc; font-weight: 600;">%s</a></p>
		<p style="font-size: 12px; color: #888888;">If you did not request this, you can ignore this e-mail.</p>
	</div>
</body>
</html>`

func linkMessage(to, subject, intro, link, action string) Message {
	return Message{
		To:      to,
		Subject: subject,
		Text:    fmt.Sprintf("%s\n\n%s: %s\n", intro, action, link),
		HTML: fmt.Sprintf(htmlLayout,
			html.EscapeString(subject), html.EscapeString(subject), html.EscapeString(intro),
			html.EscapeString(link), html.EscapeString(action)),
	}
}

// VerificationEmail asks the recipient to confirm their address.
func VerificationEmail(to, link string) Message {
	return linkMessage(to, "Verify your FireNews e-mail",
		"Welcome to FireNews! Please confirm your e-mail address.", link, "Verify e-mail")
}

// PasswordResetEmail carries a password reset link.
func PasswordResetEmail(to, link string) Message {
	return linkMessage(to, "Reset your FireNews password",
		"We received a request to reset your password.", link, "Reset password")
}
