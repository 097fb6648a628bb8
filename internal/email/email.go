package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"github.com/pliu/personifid/internal/xlog"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	send sendFunc
}

func NewSender(host, port, username, password, from string) *Sender {
	return &Sender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		send:     smtp.SendMail,
	}
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
        .header { background-color: #60A5FA; color: white; padding: 10px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { padding: 20px; }
        .button { display: inline-block; padding: 10px 20px; background-color: #1D4ED8; color: white; text-decoration: none; border-radius: 4px; font-weight: bold; }
        .footer { margin-top: 20px; font-size: 0.8em; color: #777; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Welcome to Personif-ID</h1>
        </div>
        <div class="content">
            <p>Hi {{.Username}},</p>
            <p>Confirm your email address to finish setting up your identities.</p>
            <p style="text-align: center;">
                <a href="{{.Link}}" class="button">Verify Email</a>
            </p>
            <p>If you didn't create an account, you can safely ignore this email.</p>
        </div>
        <div class="footer">
            <p>Personif-ID</p>
        </div>
    </div>
</body>
</html>
`))

const verificationSubject = "Verify your Personif-ID email"

func (s *Sender) SendVerificationEmail(to, username, link string) error {
	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, map[string]string{"Username": username, "Link": link}); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	// Without a host the mail is only logged, for local development.
	if s.Host == "" {
		xlog.Infof("smtp host not configured, verification mail for %s: %s", to, link)
		return nil
	}

	headers := [][2]string{
		{"From", s.From},
		{"To", to},
		{"Subject", verificationSubject},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="UTF-8"`},
	}
	var message strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&message, "%s: %s\r\n", h[0], h[1])
	}
	message.WriteString("\r\n")
	message.Write(body.Bytes())

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	send := s.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(net.JoinHostPort(s.Host, s.Port), auth, s.From, []string{to}, []byte(message.String())); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}
