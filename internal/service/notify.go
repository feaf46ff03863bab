package service

import (
	"context"
	"fmt"
	"net/smtp"
	"screener-backend/internal/scan"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

// Mailer sends plain text mail.
//
// note: fault injection point
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type SmtpMailer struct {
	Config SmtpConfig
}

func (m SmtpMailer) Send(ctx context.Context, to []string, subject, body string) error {
	ctx, span := tracer.Start(ctx, "SmtpMailer.Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Screener <%s>", m.Config.EmailAddress)
	mail.To = to
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.Config.Server, m.Config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", m.Config.EmailAddress, m.Config.Password, m.Config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

func summaryBody(jobID string, batch scan.Batch, highConviction []scan.Ranked, report Report) string {
	failed := 0
	rows := 0
	for _, o := range batch.Outcomes {
		if o.Err != nil {
			failed++
		}
		rows += len(o.Rows)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scan %s completed.\n\n", jobID)
	fmt.Fprintf(&b, "Screeners scanned: %d (%d failed)\n", len(batch.Outcomes), failed)
	fmt.Fprintf(&b, "Rows found: %d\n", rows)
	fmt.Fprintf(&b, "Unique stocks: %d\n", len(batch.Tally))
	fmt.Fprintf(&b, "High conviction stocks: %d\n", len(highConviction))
	if len(highConviction) > 0 {
		b.WriteString("\n")
		for i, r := range highConviction {
			if i == dashboardTopStocks {
				break
			}
			fmt.Fprintf(&b, "  %-16s %d screeners\n", r.Symbol, r.Count)
		}
	}
	if report.Path != "" {
		fmt.Fprintf(&b, "\nReport: %s\n", report.Path)
	}
	return b.String()
}

func (s *Service) notify(ctx context.Context, jobID string, batch scan.Batch, highConviction []scan.Ranked, report Report) error {
	if s.mailer == nil || len(s.opts.Notify) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Screener scan: %d high conviction stocks", len(highConviction))
	return s.mailer.Send(ctx, s.opts.Notify, subject, summaryBody(jobID, batch, highConviction, report))
}
