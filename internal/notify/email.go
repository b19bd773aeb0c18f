package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// SMTPSender delivers email through shoutrrr's smtp service.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// serviceURL builds the shoutrrr smtp URL for one recipient.
func (s *SMTPSender) serviceURL(to string) string {
	u := url.URL{
		Scheme: "smtp",
		Host:   fmt.Sprintf("%s:%d", s.host, s.port),
		Path:   "/",
	}
	if s.username != "" {
		u.User = url.UserPassword(s.username, s.password)
	}

	q := url.Values{}
	q.Set("from", s.from)
	q.Set("to", to)
	u.RawQuery = q.Encode()

	return u.String()
}

// Send delivers one email with the given subject and body.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	_ = ctx // the router applies its own timeout

	sender, err := shoutrrr.CreateSender(s.serviceURL(to))
	if err != nil {
		return fmt.Errorf("failed to create email sender: %w", err)
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	params := stypes.Params{}
	params.SetTitle(subject)

	for _, sendErr := range sender.Send(body, &params) {
		if sendErr != nil {
			return fmt.Errorf("failed to send email: %w", sendErr)
		}
	}
	return nil
}
