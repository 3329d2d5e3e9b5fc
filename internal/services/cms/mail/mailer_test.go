package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

var sentAt = time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

type parsedPart struct {
	contentType string
	body        string
}

func parseMessage(t *testing.T, raw []byte) (gomail.Header, []parsedPart) {
	t.Helper()
	r, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	var parts []parsedPart
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		ct, _, _ := p.Header.(*gomail.InlineHeader).ContentType()
		parts = append(parts, parsedPart{contentType: ct, body: string(body)})
	}
	return r.Header, parts
}

func TestComposeTextOnly(t *testing.T) {
	t.Parallel()

	composed, err := Compose(Message{
		Subject: "The page \"About\" has been approved",
		Text:    "Hello",
		From:    "CMS <cms@example.com>",
		To:      []string{"editor@example.com"},
	}, sentAt)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if composed.From != "cms@example.com" {
		t.Fatalf("envelope from = %q", composed.From)
	}
	header, parts := parseMessage(t, composed.Raw)
	if got := header.Get(HeaderAutoSubmitted); got != "auto-generated" {
		t.Fatalf("auto-submitted = %q", got)
	}
	subject, _ := header.Subject()
	if subject != "The page \"About\" has been approved" {
		t.Fatalf("subject = %q", subject)
	}
	if id, err := header.MessageID(); err != nil || !strings.HasSuffix(id, "@example.com") {
		t.Fatalf("message id = %q, %v", id, err)
	}
	if len(parts) != 1 || parts[0].contentType != "text/plain" || parts[0].body != "Hello" {
		t.Fatalf("parts = %+v", parts)
	}
	if strings.Contains(string(composed.Raw), "multipart/") {
		t.Fatal("text-only message should not be multipart")
	}
}

func TestComposeWithHTMLIsAlternative(t *testing.T) {
	t.Parallel()

	composed, err := Compose(Message{
		Subject: "Submitted",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
		From:    "cms@example.com",
		To:      []string{"a@example.com", "B <b@example.com>"},
	}, sentAt)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := []string{"a@example.com", "b@example.com"}; strings.Join(composed.To, ",") != strings.Join(want, ",") {
		t.Fatalf("envelope to = %v", composed.To)
	}
	if !strings.Contains(string(composed.Raw), "multipart/alternative") {
		t.Fatal("expected multipart/alternative body")
	}
	header, parts := parseMessage(t, composed.Raw)
	if header.Get(HeaderAutoSubmitted) != "auto-generated" {
		t.Fatal("missing auto-submitted header")
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts[0].contentType != "text/plain" || parts[0].body != "plain body" {
		t.Fatalf("text part = %+v", parts[0])
	}
	if parts[1].contentType != "text/html" || parts[1].body != "<p>html body</p>" {
		t.Fatalf("html part = %+v", parts[1])
	}
}

func TestComposeRejectsBadAddresses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		msg  Message
		want error
	}{
		{"no recipients", Message{From: "cms@example.com", To: []string{" "}}, ErrNoRecipients},
		{"bad sender", Message{From: "not an address", To: []string{"a@example.com"}}, nil},
		{"bad recipient", Message{From: "cms@example.com", To: []string{"nope"}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compose(tc.msg, sentAt)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMailerUsesDefaultFromAndOneConnection(t *testing.T) {
	t.Parallel()

	outbox := &Outbox{}
	mailer := New(outbox, "webmaster@example.com", WithClock(func() time.Time { return sentAt }))
	err := mailer.Send(context.Background(),
		Message{Subject: "one", Text: "1", To: []string{"a@example.com"}},
		Message{Subject: "two", Text: "2", From: "other@example.com", To: []string{"b@example.com"}},
	)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	sent := outbox.Messages()
	if len(sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(sent))
	}
	if sent[0].From != "webmaster@example.com" || sent[1].From != "other@example.com" {
		t.Fatalf("from = %q, %q", sent[0].From, sent[1].From)
	}
	opened, closed := outbox.Connections()
	if opened != 1 || closed != 1 {
		t.Fatalf("connections opened %d closed %d, want 1/1", opened, closed)
	}
	header, _ := parseMessage(t, sent[0].Raw)
	if date, err := header.Date(); err != nil || !date.Equal(sentAt) {
		t.Fatalf("date = %v, %v", date, err)
	}
}

func TestMailerPropagatesTransportErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("relay down")
	msg := Message{Subject: "s", Text: "t", To: []string{"a@example.com"}}

	outbox := &Outbox{OpenErr: boom}
	if err := New(outbox, "cms@example.com").Send(context.Background(), msg); !errors.Is(err, boom) {
		t.Fatalf("open err = %v", err)
	}

	outbox = &Outbox{SendErr: boom}
	if err := New(outbox, "cms@example.com").Send(context.Background(), msg); !errors.Is(err, boom) {
		t.Fatalf("send err = %v", err)
	}
	if _, closed := outbox.Connections(); closed != 1 {
		t.Fatalf("closed = %d, want connection closed after failure", closed)
	}
}

func TestMailerSendNothing(t *testing.T) {
	t.Parallel()

	outbox := &Outbox{}
	if err := New(outbox, "cms@example.com").Send(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if opened, _ := outbox.Connections(); opened != 0 {
		t.Fatalf("opened = %d, want 0", opened)
	}
}

func TestLogTransportAcceptsMessages(t *testing.T) {
	t.Parallel()

	mailer := New(LogTransport{}, "cms@example.com")
	if err := mailer.Send(context.Background(), Message{Subject: "s", Text: "t", To: []string{"a@example.com"}}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSMTPTransportRequiresAddress(t *testing.T) {
	t.Parallel()

	if _, err := (SMTPTransport{}).Open(context.Background()); err == nil {
		t.Fatal("expected missing address error")
	}
	if _, err := (SMTPTransport{Addr: "no-port"}).Open(context.Background()); err == nil {
		t.Fatal("expected bad address error")
	}
}
