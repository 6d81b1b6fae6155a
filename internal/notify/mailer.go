package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"

	"github.com/roomservice/api/internal/config"
	"github.com/roomservice/api/internal/enum"
	"github.com/roomservice/api/internal/events"
)

var orderMailTmpl = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>New order {{.OrderNumber}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f7f6; padding: 20px;">
<table width="100%" style="max-width: 600px; margin: auto; background-color: #ffffff;">
<tr><td style="padding: 30px; text-align: center; background-color: #004149; color: #ffffff;">
<h1 style="margin: 0;">New order {{.OrderNumber}}</h1>
</td></tr>
<tr><td style="padding: 30px;">
<h2>Guest</h2>
<p>
<strong>Name:</strong> {{.CustomerName}}<br>
<strong>Room:</strong> {{.RoomNumber}}<br>
<strong>Phone:</strong> {{.CustomerPhone}}
</p>
<h2>Items</h2>
<table width="100%" style="border-collapse: collapse;">
<thead><tr style="background-color: #f2f2f2;"><th style="text-align: left;">Item</th><th>Quantity</th></tr></thead>
<tbody>
{{- range .Items}}
<tr><td style="padding: 12px 15px;">{{.ItemName}}</td><td style="padding: 12px 15px; text-align: center;">{{.Quantity}}</td></tr>
{{- end}}
</tbody>
</table>
</td></tr>
</table>
</body>
</html>
`))

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer e-mails new orders to the front desk. Other events are ignored.
type Mailer struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *Mailer) Name() string { return "smtp" }

func (m *Mailer) Send(ctx context.Context, env events.Envelope) error {
	if env.EventType != enum.EventOrderCreated {
		return nil
	}
	p, err := events.UnwrapPayload[events.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	msg, err := m.buildMessage(p)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	// net/smtp has no context support; run it aside so ctx bounds the wait.
	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(addr, auth, m.cfg.Sender, []string{m.cfg.Receiver}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send order mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) buildMessage(p events.OrderCreatedPayload) ([]byte, error) {
	var body bytes.Buffer
	if err := orderMailTmpl.Execute(&body, p); err != nil {
		return nil, fmt.Errorf("render order mail: %w", err)
	}

	subject := fmt.Sprintf("New order %s from %s (room %s)", p.OrderNumber, p.CustomerName, p.RoomNumber)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", m.cfg.Receiver)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
