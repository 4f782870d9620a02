package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/models"
)

func TestRender(t *testing.T) {
	msg, err := Render(Invitation{
		Name:     "Jane Doe",
		Email:    "jane@x.com",
		JobTitle: "Data Engineer",
		Score:    0.87654,
		Slots:    DefaultSlots,
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if msg.Subject != "Interview Invitation for Data Engineer" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.To != "jane@x.com" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	for _, want := range []string{
		"Hi Jane Doe,",
		"position of Data Engineer",
		"Match Score: 0.88",
		"- Option 1: Tomorrow, 10:00 AM\n- Option 2: Day after, 2:00 PM\n- Option 3: Next Monday, 11:30 AM\n\nLooking",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body misses %q:\n%s", want, msg.Body)
		}
	}
}

type recordingSender struct {
	sent []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestInvite(t *testing.T) {
	view := models.MatchView{JobID: 1, JobTitle: "Go Developer", CandidateID: "C1", Name: "Ann", Email: "ann@example.com", Score: 0.9}

	t.Run("sends", func(t *testing.T) {
		sender := &recordingSender{}
		if err := New(sender, zap.NewNop()).Invite(context.Background(), view); err != nil {
			t.Fatalf("Invite returned error: %v", err)
		}
		if len(sender.sent) != 1 || sender.sent[0].To != "ann@example.com" {
			t.Fatalf("unexpected sent messages: %+v", sender.sent)
		}
	})

	t.Run("placeholder email", func(t *testing.T) {
		sender := &recordingSender{}
		v := view
		v.Email = "unknown@email.com"
		err := New(sender, nil).Invite(context.Background(), v)
		if !errors.Is(err, ErrNoRecipient) || !errors.Is(err, cverrors.ErrNotification) {
			t.Fatalf("expected no recipient notification error, got %v", err)
		}
		if len(sender.sent) != 0 {
			t.Fatal("nothing must be sent to the placeholder address")
		}
	})

	t.Run("sender failure", func(t *testing.T) {
		err := New(&recordingSender{err: errors.New("connection refused")}, nil).Invite(context.Background(), view)

		var notifyErr *cverrors.NotificationError
		if !errors.As(err, &notifyErr) || notifyErr.Recipient != "ann@example.com" {
			t.Fatalf("expected notification error for recipient, got %v", err)
		}
	})
}

func TestSMTPSender(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)

	s := NewSMTPSender("smtp.example.com", 587, "hr@example.com", "secret", "")
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "ann@example.com", Subject: "Hello", Body: "line1\nline2"})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr %q", gotAddr)
	}
	if gotAuth == nil {
		t.Fatal("expected auth to be configured")
	}
	if gotFrom != "hr@example.com" || len(gotTo) != 1 || gotTo[0] != "ann@example.com" {
		t.Fatalf("unexpected envelope from=%q to=%v", gotFrom, gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Hello\r\n") || !strings.HasSuffix(gotMsg, "line1\r\nline2") {
		t.Fatalf("unexpected message:\n%s", gotMsg)
	}
}

func TestLogSender(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	if err := NewLogSender(zap.New(core)).Send(context.Background(), Message{To: "a@b.c", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["to"] != "a@b.c" {
		t.Fatalf("unexpected fields: %v", entries[0].ContextMap())
	}
}
