package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// Composed is a message rendered to RFC 5322 bytes with its envelope.
type Composed struct {
	From string
	To   []string
	Raw  []byte
}

// Compose renders msg. Text-only messages are a single text/plain part;
// messages with HTML are multipart/alternative with the text part first.
func Compose(msg Message, date time.Time) (Composed, error) {
	from, err := gomail.ParseAddress(strings.TrimSpace(msg.From))
	if err != nil {
		return Composed{}, fmt.Errorf("parse sender %q: %w", msg.From, err)
	}
	to := make([]*gomail.Address, 0, len(msg.To))
	envelopeTo := make([]string, 0, len(msg.To))
	for _, raw := range msg.To {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := gomail.ParseAddress(raw)
		if err != nil {
			return Composed{}, fmt.Errorf("parse recipient %q: %w", raw, err)
		}
		to = append(to, addr)
		envelopeTo = append(envelopeTo, addr.Address)
	}
	if len(to) == 0 {
		return Composed{}, ErrNoRecipients
	}

	var h gomail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*gomail.Address{from})
	h.SetAddressList("To", to)
	h.SetSubject(msg.Subject)
	h.SetMessageID(messageID(from.Address))
	h.Set(HeaderAutoSubmitted, autoGenerated)

	var buf bytes.Buffer
	if strings.TrimSpace(msg.HTML) == "" {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := gomail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return Composed{}, fmt.Errorf("create message: %w", err)
		}
		if err := writeAndClose(w, msg.Text); err != nil {
			return Composed{}, err
		}
	} else if err := writeAlternative(&buf, h, msg); err != nil {
		return Composed{}, err
	}

	return Composed{From: from.Address, To: envelopeTo, Raw: buf.Bytes()}, nil
}

func writeAlternative(buf *bytes.Buffer, h gomail.Header, msg Message) error {
	mw, err := gomail.CreateWriter(buf, h)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("create alternative part: %w", err)
	}
	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain", msg.Text},
		{"text/html", msg.HTML},
	} {
		var ph gomail.InlineHeader
		ph.SetContentType(part.contentType, map[string]string{"charset": "utf-8"})
		pw, err := iw.CreatePart(ph)
		if err != nil {
			return fmt.Errorf("create %s part: %w", part.contentType, err)
		}
		if err := writeAndClose(pw, part.body); err != nil {
			return err
		}
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("close alternative part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

func writeAndClose(w io.WriteCloser, body string) error {
	if _, err := io.WriteString(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return nil
}

func messageID(sender string) string {
	domain := "localhost"
	if at := strings.LastIndex(sender, "@"); at >= 0 && at < len(sender)-1 {
		domain = sender[at+1:]
	}
	return uuid.NewString() + "@" + domain
}
