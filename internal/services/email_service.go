package services

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"orgchat/internal/models"
)

type EmailService interface {
	SendMentionEmail(email, title, message, chatURL string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendMentionEmail(email, title, message, chatURL string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", title)

	body := fmt.Sprintf(`
		<h3>%s</h3>
		<p>%s</p>
		<p><a href="%s">Open the conversation</a></p>
	`, html.EscapeString(title), html.EscapeString(message), chatURL)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mention email: %w", err)
	}
	return nil
}

// EmailChannel pushes mention notifications by email.
type EmailChannel struct {
	email  EmailService
	appURL string
}

func NewEmailChannel(email EmailService, appURL string) *EmailChannel {
	return &EmailChannel{email: email, appURL: appURL}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Push(_ context.Context, user *models.User, n *models.Notification) error {
	if user == nil || user.Email == "" {
		return nil
	}
	return c.email.SendMentionEmail(user.Email, n.Title, n.Message, chatURL(c.appURL, n))
}

func chatURL(appURL string, n *models.Notification) string {
	link, ok := n.Data["link"].(*models.NotificationLink)
	if !ok || link == nil {
		return appURL + "/chat"
	}
	if id, ok := link.Params["chatId"].(string); ok && id != "" {
		return fmt.Sprintf("%s%s?chatId=%s", appURL, link.Route, id)
	}
	return appURL + link.Route
}
