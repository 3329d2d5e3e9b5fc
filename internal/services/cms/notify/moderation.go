package notify

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/folio/internal/platform/errors"
	"github.com/louisbranch/folio/internal/services/cms/domain"
	"github.com/louisbranch/folio/internal/services/cms/mail"
)

// Moderation notification names.
const (
	SubmittedForModeration = "submitted_for_moderation"
	ApprovedModeration     = "approved_moderation"
	RejectedModeration     = "rejected_moderation"
)

// ErrUnknownNotification is returned for moderation notification names
// without a recipient rule.
var ErrUnknownNotification = apperrors.New(apperrors.CodeUnknownNotification, "unknown notification type")

// moderationPermission maps a moderation notification to the page
// permission its recipients hold.
func moderationPermission(notification string) (string, bool) {
	switch notification {
	case SubmittedForModeration, RejectedModeration:
		return domain.PermissionChange, true
	case ApprovedModeration:
		return domain.PermissionPublish, true
	}
	return "", false
}

// ModerationNotifier sends revision-level moderation mail to everyone with
// the matching permission on the page.
type ModerationNotifier struct {
	deps Deps
}

// NewModerationNotifier builds a ModerationNotifier.
func NewModerationNotifier(deps Deps) *ModerationNotifier {
	return &ModerationNotifier{deps: deps}
}

// SendModerationNotification mails notification about revision to users
// with the page permission it requires, except excluded, and returns how many
// addresses it was sent to. Nothing is sent when no recipient has an email
// address.
func (n *ModerationNotifier) SendModerationNotification(ctx context.Context, revision domain.Revision, notification string, excluded *domain.User) (int, error) {
	permission, ok := moderationPermission(notification)
	if !ok {
		return 0, fmt.Errorf("%q: %w", notification, ErrUnknownNotification)
	}
	users, err := n.deps.Accounts.UsersWithPagePermission(ctx, permission, revision.PageID)
	if err != nil {
		return 0, fmt.Errorf("list %s users: %w", permission, err)
	}
	users = excludeActor(users, excluded)

	page, err := n.deps.Pages.GetPage(ctx, revision.PageID)
	if err != nil {
		return 0, fmt.Errorf("load page %d: %w", revision.PageID, err)
	}
	data := map[string]any{
		"revision":                revision,
		"page":                    page,
		"content_type":            page.ContentType,
		"content_type_name":       page.ContentType,
		"content_type_name_lower": domain.CamelToSnake(page.ContentType),
	}
	return n.sendNotification(ctx, users, notification, data)
}

func (n *ModerationNotifier) sendNotification(ctx context.Context, users []domain.User, notification string, extra map[string]any) (int, error) {
	var emails []string
	for _, user := range users {
		if email := strings.TrimSpace(user.Email); email != "" {
			emails = append(emails, email)
		}
	}
	if len(emails) == 0 {
		return 0, nil
	}
	if n.deps.Mailer == nil || n.deps.Templates == nil {
		return 0, fmt.Errorf("notification mailer is not configured")
	}

	data := map[string]any{"SITE_ROOT_URL": strings.TrimRight(n.deps.Settings.SiteRootURL, "/")}
	for k, v := range extra {
		data[k] = v
	}
	rendered, err := n.deps.Templates.Render(TemplateSet{
		Subject: TemplateDirectory + notification + ".subject.txt",
		Text:    TemplateDirectory + notification + ".txt",
	}, n.deps.Settings.Language, data)
	if err != nil {
		return 0, err
	}
	if err := n.deps.Mailer.Send(ctx, mail.Message{
		Subject: rendered.Subject,
		Text:    rendered.Text,
		To:      emails,
	}); err != nil {
		return 0, err
	}
	return len(emails), nil
}
