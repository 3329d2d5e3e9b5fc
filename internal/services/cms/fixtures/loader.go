package fixtures

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/services/cms/domain"
)

// Loader writes a manifest through the tree use-cases and the stores.
type Loader struct {
	Tree       *domain.Tree
	Accounts   domain.AccountStore
	Moderation domain.ModerationStore
	Logger     *zap.Logger
}

// Result counts the records a load created.
type Result struct {
	Groups    int
	Users     int
	Pages     int
	Workflows int
}

// Load creates every record of manifest in dependency order: groups, pages,
// permissions, users, then workflows. It stops at the first failure; records
// created before it are kept.
func (l Loader) Load(ctx context.Context, manifest Manifest) (Result, error) {
	if l.Tree == nil || l.Accounts == nil || l.Moderation == nil {
		return Result{}, errors.New("tree, accounts and moderation stores are required")
	}
	if err := manifest.Validate(); err != nil {
		return Result{}, err
	}
	logger := logging.OrNop(l.Logger)
	var result Result

	groupIDs := make(map[string]int64, len(manifest.Groups))
	for _, group := range manifest.Groups {
		created, err := l.Accounts.CreateGroup(ctx, domain.Group{Name: group.Name})
		if err != nil {
			return result, fmt.Errorf("create group %q: %w", group.Name, err)
		}
		groupIDs[group.Name] = created.ID
		result.Groups++
	}

	pageIDs := map[string]int64{}
	var createPages func(parent *domain.Page, pages []Page) error
	createPages = func(parent *domain.Page, pages []Page) error {
		for _, page := range pages {
			input := domain.NewPageInput{
				Title:       page.Title,
				Slug:        page.Slug,
				ContentType: page.ContentType,
				ForExplorer: page.ForExplorer,
			}
			var (
				created domain.Page
				err     error
			)
			if parent == nil {
				created, err = l.Tree.CreateRoot(ctx, input)
			} else {
				created, err = l.Tree.AddChild(ctx, parent.ID, input)
			}
			if err != nil {
				return fmt.Errorf("create page %q: %w", page.Key, err)
			}
			pageIDs[page.Key] = created.ID
			result.Pages++
			if err := createPages(&created, page.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := createPages(nil, manifest.Pages); err != nil {
		return result, err
	}

	for _, group := range manifest.Groups {
		for _, perm := range group.Permissions {
			grant := domain.GroupPagePermission{
				GroupID:    groupIDs[group.Name],
				PageID:     pageIDs[perm.Page],
				Permission: perm.Permission,
			}
			if err := l.Accounts.GrantPagePermission(ctx, grant); err != nil {
				return result, fmt.Errorf("grant %s on %q to %q: %w", perm.Permission, perm.Page, group.Name, err)
			}
		}
	}

	for _, user := range manifest.Users {
		active := true
		if user.Active != nil {
			active = *user.Active
		}
		created, err := l.Accounts.CreateUser(ctx, domain.User{
			Username:    user.Username,
			Email:       user.Email,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			IsActive:    active,
			IsSuperuser: user.Superuser,
		})
		if err != nil {
			return result, fmt.Errorf("create user %q: %w", user.Username, err)
		}
		for _, name := range user.Groups {
			if err := l.Accounts.AddUserToGroup(ctx, created.ID, groupIDs[name]); err != nil {
				return result, fmt.Errorf("add user %q to %q: %w", user.Username, name, err)
			}
		}
		if user.Profile != nil {
			if err := l.Accounts.PutUserProfile(ctx, user.Profile.apply(domain.DefaultUserProfile(created.ID))); err != nil {
				return result, fmt.Errorf("save profile of %q: %w", user.Username, err)
			}
		}
		result.Users++
	}

	for _, workflow := range manifest.Workflows {
		created, err := l.Moderation.CreateWorkflow(ctx, domain.Workflow{Name: workflow.Name, Active: true})
		if err != nil {
			return result, fmt.Errorf("create workflow %q: %w", workflow.Name, err)
		}
		for _, task := range workflow.Tasks {
			ids := make([]int64, 0, len(task.Groups))
			for _, name := range task.Groups {
				ids = append(ids, groupIDs[name])
			}
			createdTask, err := l.Moderation.CreateTask(ctx, domain.Task{
				Name:     task.Name,
				Kind:     domain.TaskKindGroupApproval,
				Active:   true,
				GroupIDs: ids,
			})
			if err != nil {
				return result, fmt.Errorf("create task %q: %w", task.Name, err)
			}
			if err := l.Moderation.AddWorkflowTask(ctx, created.ID, createdTask.ID); err != nil {
				return result, fmt.Errorf("add task %q to %q: %w", task.Name, workflow.Name, err)
			}
		}
		for _, key := range workflow.Pages {
			if err := l.Moderation.AssignWorkflow(ctx, pageIDs[key], created.ID); err != nil {
				return result, fmt.Errorf("assign %q to %q: %w", workflow.Name, key, err)
			}
		}
		result.Workflows++
	}

	logger.Info("fixture loaded",
		zap.Int("groups", result.Groups),
		zap.Int("users", result.Users),
		zap.Int("pages", result.Pages),
		zap.Int("workflows", result.Workflows),
	)
	return result, nil
}

func (p Profile) apply(profile domain.UserProfile) domain.UserProfile {
	if p.SubmittedNotifications != nil {
		profile.SubmittedNotifications = *p.SubmittedNotifications
	}
	if p.ApprovedNotifications != nil {
		profile.ApprovedNotifications = *p.ApprovedNotifications
	}
	if p.RejectedNotifications != nil {
		profile.RejectedNotifications = *p.RejectedNotifications
	}
	profile.PreferredLanguage = p.PreferredLanguage
	return profile
}
