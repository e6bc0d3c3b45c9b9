package mailer

import "html/template"

var verificationTemplate = template.Must(template.New("verify").Parse(`<html>
  <body>
    <h2>Welcome {{.Name}}!</h2>
    <p>Thank you for registering. Please verify your email address by clicking the link below:</p>
    <a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px;">Verify Email</a>
    <p>Or copy this link: {{.Link}}</p>
    <p>This link will expire in 24 hours.</p>
  </body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
  <body>
    <h2>Hello {{.Name}},</h2>
    <p>You requested to reset your password. Click the link below to proceed:</p>
    <a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #2196F3; color: white; text-decoration: none; border-radius: 5px;">Reset Password</a>
    <p>Or copy this link: {{.Link}}</p>
    <p>This link will expire in 1 hour.</p>
    <p>If you didn't request this, please ignore this email.</p>
  </body>
</html>`))
