package notify

import (
	"context"
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/louisbranch/folio/internal/services/cms/domain"
)

type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func TestSendModerationNotificationUnknownName(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := NewModerationNotifier(f.deps).SendModerationNotification(context.Background(), domain.Revision{ID: 1, PageID: pageID}, "published", nil)
	if !errors.Is(err, ErrUnknownNotification) {
		t.Fatalf("err = %v, want ErrUnknownNotification", err)
	}
}

func TestSendModerationNotificationRecipients(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		excluded *domain.User
		want     []string
	}{
		{SubmittedForModeration, &domain.User{ID: editorID}, []string{"moderator@example.com", "admin@example.com"}},
		{ApprovedModeration, nil, []string{"moderator@example.com", "admin@example.com"}},
		{RejectedModeration, &domain.User{ID: adminID}, []string{"editor@example.com", "moderator@example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			revision := domain.Revision{ID: 9, PageID: pageID}
			sent, err := NewModerationNotifier(f.deps).SendModerationNotification(context.Background(), revision, tc.name, tc.excluded)
			if err != nil {
				t.Fatalf("send: %v", err)
			}
			if sent != len(tc.want) {
				t.Fatalf("sent = %d, want %d", sent, len(tc.want))
			}
			if len(f.sender.messages) != 1 {
				t.Fatalf("messages = %d, want 1", len(f.sender.messages))
			}
			msg := f.sender.messages[0]
			if !reflect.DeepEqual(msg.To, tc.want) {
				t.Fatalf("to = %v, want %v", msg.To, tc.want)
			}
			if msg.HTML != "" {
				t.Fatalf("unexpected html body %q", msg.HTML)
			}
		})
	}
}

func TestSendModerationNotificationContext(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.deps.Templates = NewTemplates(fstest.MapFS{
		"notifications/submitted_for_moderation.subject.txt": {Data: []byte("  Review {{.page.Title}}\n")},
		"notifications/submitted_for_moderation.txt":         {Data: []byte("{{.SITE_ROOT_URL}}|{{.content_type_name_lower}}|{{.revision.ID}}")},
	})
	_, err := NewModerationNotifier(f.deps).SendModerationNotification(context.Background(), domain.Revision{ID: 9, PageID: pageID}, SubmittedForModeration, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := f.sender.messages[0]
	if msg.Subject != "Review About us" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.Text != "https://cms.example.com|blog_page|9" {
		t.Fatalf("text = %q", msg.Text)
	}
}

func TestSendModerationNotificationWithoutEmails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.accounts.permissions[domain.PermissionPublish] = []int64{noEmailID}
	sent, err := NewModerationNotifier(f.deps).SendModerationNotification(context.Background(), domain.Revision{ID: 1, PageID: pageID}, ApprovedModeration, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent = %d, want 0", sent)
	}
	if len(f.sender.messages) != 0 {
		t.Fatal("expected nothing sent")
	}
}

func TestBuiltInModerationTemplatesRender(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if _, err := NewModerationNotifier(f.deps).SendModerationNotification(context.Background(), domain.Revision{ID: 9, PageID: pageID}, SubmittedForModeration, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := f.sender.messages[0]
	if msg.Subject != `The page "About us" has been submitted for moderation` {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "(blog_page)") || !strings.Contains(msg.Text, "/admin/pages/100/revisions/9/view/") {
		t.Fatalf("text = %q", msg.Text)
	}
}

func TestRenderKeepsInnerSubjectSpacing(t *testing.T) {
	t.Parallel()

	templates := NewTemplates(fstest.MapFS{
		"subject.txt": {Data: []byte("\n  Review {{.title}}  \n")},
		"body.txt":    {Data: []byte("body")},
	})
	rendered, err := templates.Render(TemplateSet{Subject: "subject.txt", Text: "body.txt"}, "en", map[string]any{"title": "Q1  report"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if rendered.Subject != "Review Q1  report" {
		t.Fatalf("subject = %q, want %q", rendered.Subject, "Review Q1  report")
	}
}
