package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"contact-gateway/contactform/domain"

	"github.com/jordan-wright/email"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	SSL  bool
}

// EmailNotifier envia um email por lead para a equipe comercial.
type EmailNotifier struct {
	SMTP          SMTPConfig
	From          string
	To            []string
	SubjectPrefix string

	// send é trocado nos testes.
	send func(e *email.Email) error
}

func NewEmailNotifier(cfg SMTPConfig, from string, to []string, subjectPrefix string) *EmailNotifier {
	n := &EmailNotifier{SMTP: cfg, From: from, To: to, SubjectPrefix: subjectPrefix}
	n.send = n.sendSMTP
	return n
}

func (n *EmailNotifier) Notify(ctx context.Context, lead domain.Lead) error {
	if len(n.To) == 0 {
		return errors.New("email notifier: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := BuildLeadEmail(lead, n.From, n.To, n.SubjectPrefix)
	send := n.send
	if send == nil {
		send = n.sendSMTP
	}
	if err := send(e); err != nil {
		return fmt.Errorf("send lead email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) sendSMTP(e *email.Email) error {
	addr := net.JoinHostPort(n.SMTP.Host, strconv.Itoa(n.SMTP.Port))
	var auth smtp.Auth
	if n.SMTP.User != "" {
		auth = smtp.PlainAuth("", n.SMTP.User, n.SMTP.Pass, n.SMTP.Host)
	}
	if n.SMTP.SSL {
		return e.SendWithTLS(addr, auth, nil)
	}
	return e.Send(addr, auth)
}

// BuildLeadEmail monta a mensagem; o Reply-To aponta para quem preencheu o formulário.
func BuildLeadEmail(lead domain.Lead, from string, to []string, subjectPrefix string) *email.Email {
	p := lead.Payload

	var b strings.Builder
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}
	line("Name", p.Name)
	line("Email", p.Email)
	line("Phone", p.Phone)
	line("County", p.County)
	line("City", p.City)
	line("Property type", p.PropertyType)
	line("Lead ID", lead.ID.String())
	line("Client", string(lead.ClientKey))
	line("Page", lead.Referer)
	b.WriteString("\n")
	b.WriteString(p.Message)
	b.WriteString("\n")

	subject := "New contact from " + p.Name
	if p.City != "" {
		subject += " (" + p.City + ")"
	}

	e := email.NewEmail()
	e.From = from
	e.To = to
	e.ReplyTo = []string{fmt.Sprintf("%s <%s>", p.Name, p.Email)}
	e.Subject = strings.TrimSpace(subjectPrefix + " " + subject)
	e.Text = []byte(b.String())
	return e
}
