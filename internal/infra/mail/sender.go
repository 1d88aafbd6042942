package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"

	"github.com/dustin/go-humanize"
	"gopkg.in/gomail.v2"

	"github.com/ali-azain/GlassFlow-CRM/internal/infra/queue"
)

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var (
	dealWonTmpl = template.Must(template.New("deal_won").Parse(
		`<h2>Deal won 🏆</h2>
<p><strong>{{.LeadName}}</strong>{{if .Company}} ({{.Company}}){{end}} moved to <strong>Won</strong>{{if .FromStage}} from {{.FromStage}}{{end}}.</p>
<p>Deal value: <strong>{{.Value}}</strong></p>`))

	importSummaryTmpl = template.Must(template.New("import_summary").Parse(
		`{{if .Failed}}<h2>Import stopped</h2>
<p>{{.Imported}} of {{.Total}} leads were imported before the import stopped.</p>
<p>Reason: {{.Error}}</p>{{else}}<h2>Import finished</h2>
<p>{{.Imported}} of {{.Total}} leads were added to your pipeline.</p>{{end}}`))
)

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

// DealWon implements queue.Notifier.
func (s *EmailSender) DealWon(_ context.Context, event queue.LeadEvent) error {
	data := DealWonData{
		LeadName:  event.LeadName,
		Company:   event.Company,
		Value:     formatMoney(event.Value),
		FromStage: event.FromStage,
	}
	subject := fmt.Sprintf("Deal won: %s 🏆", event.LeadName)
	return s.send(event.Recipient, subject, dealWonTmpl, data)
}

// ImportSummary implements queue.Notifier.
func (s *EmailSender) ImportSummary(_ context.Context, event queue.LeadEvent) error {
	data := ImportSummaryData{
		Imported: event.Imported,
		Total:    event.Total,
		Failed:   event.Type == queue.EventImportFailed,
		Error:    event.Error,
	}
	subject := fmt.Sprintf("Lead import finished: %d/%d", event.Imported, event.Total)
	if data.Failed {
		subject = fmt.Sprintf("Lead import stopped: %d/%d", event.Imported, event.Total)
	}
	return s.send(event.Recipient, subject, importSummaryTmpl, data)
}

func (s *EmailSender) send(to, subject string, t *template.Template, data any) error {
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email over SMTP: %w", err)
	}
	return nil
}

// formatMoney renders whole dollars with thousands separators, e.g. $12,500.
func formatMoney(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}
