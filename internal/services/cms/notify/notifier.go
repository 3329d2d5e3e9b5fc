// Package notify sends template-driven email about moderation events.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/platform/metrics"
	"github.com/louisbranch/folio/internal/services/cms/domain"
	"github.com/louisbranch/folio/internal/services/cms/mail"
	"go.uber.org/zap"
)

// Notification names. Each matches a UserProfile preference flag.
const (
	NotificationSubmitted = "submitted"
	NotificationApproved  = "approved"
	NotificationRejected  = "rejected"
)

// TemplateDirectory prefixes every notification template name.
const TemplateDirectory = "notifications/"

// Sender delivers composed mail.
type Sender interface {
	Send(ctx context.Context, messages ...mail.Message) error
}

// Settings are the site-wide values notifications depend on.
type Settings struct {
	SiteRootURL       string
	IncludeSuperusers bool
	// Language is the fallback language for recipients without a
	// preference.
	Language string
}

// Deps are the collaborators shared by every notifier.
type Deps struct {
	Accounts   domain.AccountReader
	Pages      domain.PageReader
	Moderation domain.ModerationReader
	Mailer     Sender
	Templates  *Templates
	Settings   Settings
}

// TemplateSet names the templates of one notification. HTML is optional.
type TemplateSet struct {
	Subject string
	Text    string
	HTML    string
}

// Notifier turns one event instance into a message.
type Notifier interface {
	// Notification names the event, e.g. "approved".
	Notification() string
	CanHandle(ctx context.Context, instance any) (bool, error)
	ValidRecipients(ctx context.Context, instance any, actor *domain.User) ([]domain.User, error)
	TemplateSet(instance any) TemplateSet
	Context(ctx context.Context, instance any, actor *domain.User) (map[string]any, error)
	Send(ctx context.Context, set TemplateSet, data map[string]any, recipients []domain.User) error
}

// Dispatcher runs notifiers and records their outcome.
type Dispatcher struct {
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Dispatch runs n with the default dispatcher.
func Dispatch(ctx context.Context, n Notifier, instance any, actor *domain.User) (bool, error) {
	return Dispatcher{}.Dispatch(ctx, n, instance, actor)
}

// Dispatch sends n's notification about instance. It returns false when n
// cannot handle instance and true, without sending, when no recipient is
// left. Otherwise it reports whether sending succeeded.
func (d Dispatcher) Dispatch(ctx context.Context, n Notifier, instance any, actor *domain.User) (bool, error) {
	logger := logging.OrNop(d.Logger).With(zap.String("notification", n.Notification()))

	ok, err := n.CanHandle(ctx, instance)
	if err != nil {
		d.Metrics.NotificationOutcome(n.Notification(), metrics.OutcomeFailed)
		return false, err
	}
	if !ok {
		d.Metrics.NotificationOutcome(n.Notification(), metrics.OutcomeSkipped)
		return false, nil
	}

	recipients, err := n.ValidRecipients(ctx, instance, actor)
	if err != nil {
		d.Metrics.NotificationOutcome(n.Notification(), metrics.OutcomeFailed)
		return false, err
	}
	if len(recipients) == 0 {
		d.Metrics.NotificationOutcome(n.Notification(), metrics.OutcomeNoRecipients)
		logger.Debug("no recipients")
		return true, nil
	}

	set := n.TemplateSet(instance)
	data, err := n.Context(ctx, instance, actor)
	if err != nil {
		d.Metrics.NotificationOutcome(n.Notification(), metrics.OutcomeFailed)
		return false, err
	}
	if err := n.Send(ctx, set, data, recipients); err != nil {
		d.Metrics.NotificationOutcome(n.Notification(), metrics.OutcomeFailed)
		logger.Warn("notification failed", zap.Error(err))
		return false, err
	}
	d.Metrics.NotificationOutcome(n.Notification(), metrics.OutcomeSent)
	logger.Info("notification sent", zap.Int("recipients", len(recipients)))
	return true, nil
}

// modelNamer is implemented by event instances that select templates.
type modelNamer interface {
	ModelName() string
}

// emailNotifier holds the email behavior shared by every notifier.
type emailNotifier struct {
	notification string
	deps         Deps
}

func (e emailNotifier) Notification() string { return e.notification }

// TemplateSet derives "<snake model>_<notification>" template names.
func (e emailNotifier) TemplateSet(instance any) TemplateSet {
	base := TemplateDirectory + templateBasePrefix(instance) + e.notification
	return TemplateSet{
		Subject: base + "_subject.txt",
		Text:    base + ".txt",
		HTML:    base + ".html",
	}
}

func templateBasePrefix(instance any) string {
	name := fmt.Sprintf("%T", instance)
	if named, ok := instance.(modelNamer); ok {
		name = named.ModelName()
	} else if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[dot+1:]
	}
	return domain.CamelToSnake(name) + "_"
}

// filterRecipients keeps active users with an email address whose profile
// allows the notification. Duplicates are dropped.
func (e emailNotifier) filterRecipients(ctx context.Context, users []domain.User) ([]domain.User, error) {
	seen := make(map[int64]bool, len(users))
	out := make([]domain.User, 0, len(users))
	for _, user := range users {
		if seen[user.ID] || !user.IsActive || strings.TrimSpace(user.Email) == "" {
			continue
		}
		seen[user.ID] = true
		profile, err := e.deps.Accounts.GetUserProfile(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("load profile of user %d: %w", user.ID, err)
		}
		if profile.Allows(e.notification) {
			out = append(out, user)
		}
	}
	return out, nil
}

func (e emailNotifier) baseContext() map[string]any {
	return map[string]any{
		"settings":      e.deps.Settings,
		"SITE_ROOT_URL": strings.TrimRight(e.deps.Settings.SiteRootURL, "/"),
	}
}

// Send renders set once and mails a single message to every recipient.
func (e emailNotifier) Send(ctx context.Context, set TemplateSet, data map[string]any, recipients []domain.User) error {
	if e.deps.Mailer == nil || e.deps.Templates == nil {
		return fmt.Errorf("notification mailer is not configured")
	}
	lang, err := e.language(ctx, recipients)
	if err != nil {
		return err
	}
	rendered, err := e.deps.Templates.Render(set, lang, data)
	if err != nil {
		return err
	}
	to := make([]string, 0, len(recipients))
	for _, user := range recipients {
		to = append(to, user.Email)
	}
	return e.deps.Mailer.Send(ctx, mail.Message{
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
		To:      to,
	})
}

// language is the preferred language shared by all recipients, or the
// configured default when they differ.
func (e emailNotifier) language(ctx context.Context, recipients []domain.User) (string, error) {
	shared := ""
	for i, user := range recipients {
		profile, err := e.deps.Accounts.GetUserProfile(ctx, user.ID)
		if err != nil {
			return "", fmt.Errorf("load profile of user %d: %w", user.ID, err)
		}
		if i == 0 {
			shared = profile.PreferredLanguage
		} else if profile.PreferredLanguage != shared {
			shared = ""
			break
		}
	}
	if shared == "" {
		return e.deps.Settings.Language, nil
	}
	return shared, nil
}

func excludeActor(users []domain.User, actor *domain.User) []domain.User {
	if actor == nil {
		return users
	}
	out := users[:0:0]
	for _, user := range users {
		if user.ID != actor.ID {
			out = append(out, user)
		}
	}
	return out
}
