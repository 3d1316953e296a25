// Package mail, uygulamanın email bildirimlerini soyutlar.
//
// Sender interface'i sayesinde service katmanı concrete Resend client'ına
// değil, soyutlamaya bağımlıdır. MAIL_API_KEY boşsa NewNoopSender kullanılır
// ve uygulama mail olmadan da çalışır (lokal geliştirme).
package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// Sender, email gönderimi için interface.
type Sender interface {
	// SendOfflineMessage, karşı tarafı çevrimdışıyken gelen mesaj hakkında
	// bilgilendirir. preview, mesaj gövdesinin kısaltılmış halidir.
	SendOfflineMessage(ctx context.Context, toEmail, fromName, threadID, preview string) error
}

// resendSender, Resend API ile gönderen Sender implementasyonu.
type resendSender struct {
	client    *resend.Client
	fromEmail string // Resend'de doğrulanmış domain altında olmalı
	appURL    string // konuşma linki için (ör: https://takas.app)
}

// NewResendSender, Resend client'ı ile yeni bir Sender oluşturur.
func NewResendSender(apiKey, fromEmail, appURL string) Sender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

// SendOfflineMessage, "yeni mesajın var" bildirimi gönderir.
// Mesajın tamamı değil kısa bir önizleme gömülür; içerik uygulamada okunur.
func (s *resendSender) SendOfflineMessage(ctx context.Context, toEmail, fromName, threadID, preview string) error {
	threadLink := fmt.Sprintf("%s/threads/%s", s.appURL, threadID)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f4f5;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:32px;">
          <tr>
            <td>
              <h1 style="color:#18181b;font-size:20px;margin:0 0 16px 0;">takas</h1>
              <p style="color:#3f3f46;font-size:15px;line-height:1.6;margin:0 0 16px 0;">
                <strong>%s</strong> sent you a message:
              </p>
              <p style="color:#71717a;font-size:14px;line-height:1.6;margin:0 0 24px 0;border-left:3px solid #e4e4e7;padding-left:12px;">%s</p>
              <table cellpadding="0" cellspacing="0">
                <tr>
                  <td style="background-color:#16a34a;border-radius:6px;padding:10px 28px;">
                    <a href="%s" style="color:#ffffff;text-decoration:none;font-size:14px;font-weight:600;">Open conversation</a>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, fromName, preview, threadLink)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("takas <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: fmt.Sprintf("New message from %s — takas", fromName),
		Html:    html,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send offline message email: %w", err)
	}

	return nil
}

// noopSender, mail yapılandırılmamışken kullanılan boş implementasyon.
type noopSender struct{}

// NewNoopSender, hiçbir şey göndermeyen bir Sender döner.
func NewNoopSender() Sender {
	return noopSender{}
}

func (noopSender) SendOfflineMessage(ctx context.Context, toEmail, fromName, threadID, preview string) error {
	return nil
}
