package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/extract"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/models"
)

// ErrNoRecipient is returned for candidates without a usable email address.
var ErrNoRecipient = errors.New("candidate has no email address")

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP server using STARTTLS and PLAIN auth.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if strings.TrimSpace(from) == "" {
		from = username
	}
	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	return s.sendMail(addr, auth, s.From, []string{msg.To}, compose(s.From, msg))
}

func compose(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender only logs messages. It is used for dry runs.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{logger: logger.WithFields(log)}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("invitation (dry run)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", logger.TruncateForLog(msg.Body, 200)),
	)
	return nil
}

type Notifier struct {
	sender Sender
	logger *zap.Logger
}

func New(sender Sender, log *zap.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger.WithFields(log)}
}

// Invite renders and sends one invitation. Failures are *cverrors.NotificationError.
func (n *Notifier) Invite(ctx context.Context, view models.MatchView) error {
	inv := InvitationFor(view)
	if inv.Email == "" || strings.EqualFold(inv.Email, extract.UnknownEmail) {
		return cverrors.NewNotificationError(view.CandidateID, ErrNoRecipient)
	}

	msg, err := Render(inv)
	if err != nil {
		return cverrors.NewNotificationError(inv.Email, err)
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		return cverrors.NewNotificationError(inv.Email, fmt.Errorf("send: %w", err))
	}

	n.logger.Info("invitation sent",
		zap.Int64("job_id", view.JobID),
		zap.String("candidate_id", view.CandidateID),
		zap.Float64("score", view.Score),
	)
	return nil
}
