// Package mailer отправляет письма об эскалации заявок. Канал best-effort:
// состояние заявки — источник правды, почта — побочный сигнал.
package mailer

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/wifi-portal/request-service/internal/model"
)

type Mailer struct {
	smtpHost string
	smtpPort string
	username string
	password string
	from     string
}

// New возвращает отправителя. Пустой host — все вызовы Notify становятся
// логируемым no-op (не ошибка: канал просто не сконфигурирован).
func New(host, port, username, password, from string) *Mailer {
	return &Mailer{
		smtpHost: host,
		smtpPort: port,
		username: username,
		password: password,
		from:     from,
	}
}

// Configured сообщает, настроен ли SMTP-канал.
func (m *Mailer) Configured() bool {
	return m.smtpHost != ""
}

// Notify шлёт письмо об эскалации всем получателям. Возвращает true, если
// отправка прошла; ошибки логируются и никогда не пробрасываются наверх —
// сбой почты не должен влиять на уже закоммиченный переход статуса.
func (m *Mailer) Notify(r *model.WifiRequest, recipients []string, reason string) bool {
	if !m.Configured() {
		log.Printf("mailer: smtp not configured, skipping notification for request %s", r.ID)
		return false
	}
	if len(recipients) == 0 {
		return false
	}
	subject := fmt.Sprintf("WiFi Request Escalated - %s", r.ID)
	body := BuildBody(r, reason)
	if err := m.send(recipients, subject, body); err != nil {
		log.Printf("mailer: send for request %s: %v", r.ID, err)
		return false
	}
	return true
}

// BuildBody собирает текст письма: кто, где, что за проблема и почему
// заявка эскалирована.
func BuildBody(r *model.WifiRequest, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request from %s (%s) has been escalated.\n", r.Name, r.Email)
	fmt.Fprintf(&b, "Room: %s\n", r.RoomNumber)
	fmt.Fprintf(&b, "Issue Type: %s\n", r.IssueType)
	fmt.Fprintf(&b, "Device Type: %s\n", r.DeviceType)
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	fmt.Fprintf(&b, "\n%s\n", reason)
	b.WriteString("\nPlease address this request as soon as possible.\n")
	return b.String()
}

// send доставляет письмо по implicit TLS (порт 465) с PLAIN-аутентификацией.
func (m *Mailer) send(to []string, subject, body string) error {
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", m.from) +
			fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)

	serverAddr := m.smtpHost + ":" + m.smtpPort
	tlsConfig := &tls.Config{
		ServerName: m.smtpHost,
	}
	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.smtpHost)
	if err != nil {
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", m.username, m.password, m.smtpHost)
	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(m.from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
