package notification

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cgchiraggupta/backend-temple-project--sub000/config"
)

// EmailSender delivers donor receipt emails over SMTP.
type EmailSender struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
	FromAddr string
}

// ✅ Accept config instead of using os.Getenv
func NewEmailSender(cfg *config.Config) *EmailSender {
	return &EmailSender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		FromName: cfg.SMTPFromName,
		FromAddr: cfg.SMTPFromEmail,
	}
}

// SendDonationReceipt emails the donor a confirmation for a recorded
// donation. Skipped silently when the donor gave no email or SMTP is not
// configured.
func (e *EmailSender) SendDonationReceipt(event DonationCompletedEvent) error {
	if event.DonorEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Donation Receipt %s", event.ReceiptNumber)
	body := fmt.Sprintf(
		"Dear %s,\r\n\r\n"+
			"Thank you for your donation of %.2f %s (%s).\r\n"+
			"Receipt number: %s\r\n"+
			"Transaction id: %s\r\n\r\n"+
			"With gratitude,\r\nTemple Office\r\n",
		event.DonorName, event.Amount, event.Currency, event.DonationType,
		event.ReceiptNumber, event.TransactionID,
	)

	return e.send(event.DonorEmail, subject, body)
}

func (e *EmailSender) send(to, subject, body string) error {
	if e.Host == "" || e.Username == "" || e.Password == "" {
		fmt.Println("⚠️ SMTP not configured. Email not sent.")
		return nil
	}

	fromAddr := e.FromAddr
	if fromAddr == "" {
		fromAddr = e.Username
	}

	addr := fmt.Sprintf("%s:%s", e.Host, e.Port)

	// Dial first, then StartTLS on the existing connection.
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		InsecureSkipVerify: true,
		ServerName:         e.Host,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", e.Username, e.Password, e.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := client.Mail(fromAddr); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	from := fromAddr
	if e.FromName != "" {
		from = fmt.Sprintf("%s <%s>", e.FromName, fromAddr)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if _, err = w.Write([]byte(msg.String())); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	return client.Quit()
}
