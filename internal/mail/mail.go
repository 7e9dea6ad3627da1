package mail

import (
	"fmt"
	"io"
	"log"

	gomail "gopkg.in/gomail.v2"
)

// Attachment — вложение письма, собранное в памяти.
type Attachment struct {
	Filename string
	Content  []byte
}

// Options описывает одно исходящее письмо. Заполняется либо Text, либо HTML.
type Options struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Sender определяет интерфейс почтового сервиса.
type Sender interface {
	Send(opts Options) error
}

// Client отправляет письма через SMTP.
type Client struct {
	dialer *gomail.Dialer
	from   string
}

func NewClient(cfg *Config) *Client {
	return &Client{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (c *Client) Send(opts Options) error {
	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", opts.To)
	m.SetHeader("Subject", opts.Subject)

	if opts.HTML != "" {
		m.SetBody("text/html", opts.HTML)
	} else {
		m.SetBody("text/plain", opts.Text)
	}

	for _, att := range opts.Attachments {
		content := att.Content
		m.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	if err := c.dialer.DialAndSend(m); err != nil {
		log.Printf("[Mail] Failed to send message to %s: %v", opts.To, err)
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
