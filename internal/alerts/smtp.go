package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/liamashdown/agentlens/internal/convergence"
)

// SMTPSender sends alerts via email
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, user, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
	}
}

// Send sends the alert via email
func (s *SMTPSender) Send(ctx context.Context, alert *AlphaAlert) error {
	if len(s.to) == 0 {
		return fmt.Errorf("send email: no recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, s.to, s.buildMessage(alert)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(alert *AlphaAlert) []byte {
	subject := fmt.Sprintf("[%s] %s: %s", alert.Severity, kindLabel(alert.Signal.Kind), alert.Signal.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(buildEmailBody(alert))
	return []byte(b.String())
}

func buildEmailBody(alert *AlphaAlert) string {
	sig := alert.Signal

	var b strings.Builder
	fmt.Fprintf(&b, "AGENTLENS ALPHA - %s\n", alert.Severity)
	b.WriteString("═══════════════════════════════════════\n\n")
	b.WriteString("SIGNAL\n")
	b.WriteString("─────────────────────────────────────\n")
	fmt.Fprintf(&b, "Kind:           %s\n", kindLabel(sig.Kind))
	fmt.Fprintf(&b, "Title:          %s\n", sig.Title)
	fmt.Fprintf(&b, "Confidence:     %d/100\n", sig.Confidence)
	fmt.Fprintf(&b, "Markets:        %s\n", strings.Join(sig.MarketIDs, ", "))
	fmt.Fprintf(&b, "Traders:        %s\n", traderList(sig.Traders))
	fmt.Fprintf(&b, "Action:         %s\n", sig.Action)
	if alert.MarketURL != "" {
		fmt.Fprintf(&b, "Market URL:     %s\n", alert.MarketURL)
	}
	b.WriteString("\n")

	if alert.Convergence != nil {
		b.WriteString(formatEmailBreakdown(alert.Convergence))
	}

	b.WriteString("═══════════════════════════════════════\n")
	fmt.Fprintf(&b, "Environment: %s\n", alert.Environment)
	fmt.Fprintf(&b, "Generated: %s\n", alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("\nNote: Signals summarise public wallet positions;\n")
	b.WriteString("they are not trading advice.\n")
	return b.String()
}

func formatEmailBreakdown(c *convergence.ConvergenceScore) string {
	bd := c.Breakdown

	var b strings.Builder
	b.WriteString("CONVERGENCE\n")
	b.WriteString("─────────────────────────────────────\n")
	fmt.Fprintf(&b, "Consensus:      %d/%d\n", bd.Consensus, convergence.MaxConsensus)
	fmt.Fprintf(&b, "Edge:           %d/%d\n", bd.Edge, convergence.MaxEdge)
	fmt.Fprintf(&b, "Momentum:       %d/%d\n", bd.Momentum, convergence.MaxMomentum)
	fmt.Fprintf(&b, "Validation:     %d/%d\n", bd.Validation, convergence.MaxValidation)
	fmt.Fprintf(&b, "Quality:        %d/%d\n", bd.Quality, convergence.MaxQuality)
	fmt.Fprintf(&b, "\nTotal:          %d/100 (%s)\n\n", c.Total, c.Tier)
	return b.String()
}
