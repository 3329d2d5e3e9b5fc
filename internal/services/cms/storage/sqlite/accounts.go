package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/folio/internal/services/cms/domain"
)

const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name, u.is_active, u.is_superuser`

func scanUser(row rowScanner) (domain.User, error) {
	var user domain.User
	var active, superuser int
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&active,
		&superuser,
	); err != nil {
		return domain.User{}, err
	}
	user.IsActive = active != 0
	user.IsSuperuser = superuser != 0
	return user, nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser inserts a user. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if err := s.ready(ctx); err != nil {
		return domain.User{}, err
	}
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return domain.User{}, fmt.Errorf("username is required")
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (username, email, first_name, last_name, is_active, is_superuser)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username,
		strings.TrimSpace(user.Email),
		user.FirstName,
		user.LastName,
		boolToInt(user.IsActive),
		boolToInt(user.IsSuperuser),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, fmt.Errorf("username %q already exists", user.Username)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return domain.User{}, fmt.Errorf("create user id: %w", err)
	}
	return user, nil
}

// GetUser returns one user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	if err := s.ready(ctx); err != nil {
		return domain.User{}, err
	}
	user, err := scanUser(s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.NotFoundf("user %d not found", id)
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns users matching any criterion of query, ordered by id.
// An empty query matches nobody.
func (s *Store) ListUsers(ctx context.Context, query domain.UserQuery) ([]domain.User, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		or   []string
		args []any
	)
	if query.Superusers {
		or = append(or, "u.is_superuser = 1")
	}
	if len(query.GroupIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(query.GroupIDs)), ",")
		or = append(or, "u.id IN (SELECT user_id FROM user_groups WHERE group_id IN ("+placeholders+"))")
		for _, id := range query.GroupIDs {
			args = append(args, id)
		}
	}
	if len(or) == 0 {
		return nil, nil
	}
	users, err := s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users u WHERE `+strings.Join(or, " OR ")+` ORDER BY u.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UsersWithPagePermission returns active users that are superusers or are
// members of a group granted permission on pageID or one of its ancestors.
func (s *Store) UsersWithPagePermission(ctx context.Context, permission string, pageID int64) ([]domain.User, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	users, err := s.queryUsers(ctx,
		ancestorsCTE+`
SELECT `+userColumns+` FROM users u
 WHERE u.is_active = 1
   AND (u.is_superuser = 1 OR u.id IN (
        SELECT ug.user_id
          FROM user_groups ug
          JOIN group_page_permissions gpp ON gpp.group_id = ug.group_id
         WHERE gpp.permission = ?
           AND gpp.page_id IN (SELECT id FROM chain)))
 ORDER BY u.id`,
		pageID, permission,
	)
	if err != nil {
		return nil, fmt.Errorf("users with page permission: %w", err)
	}
	return users, nil
}

// CreateGroup inserts a group. Names are unique.
func (s *Store) CreateGroup(ctx context.Context, group domain.Group) (domain.Group, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Group{}, err
	}
	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return domain.Group{}, fmt.Errorf("group name is required")
	}
	res, err := s.sqlDB.ExecContext(ctx, `INSERT INTO groups (name) VALUES (?)`, group.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Group{}, fmt.Errorf("group %q already exists", group.Name)
		}
		return domain.Group{}, fmt.Errorf("create group: %w", err)
	}
	if group.ID, err = res.LastInsertId(); err != nil {
		return domain.Group{}, fmt.Errorf("create group id: %w", err)
	}
	return group, nil
}

// GetGroupByName returns the group called name.
func (s *Store) GetGroupByName(ctx context.Context, name string) (domain.Group, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Group{}, err
	}
	var group domain.Group
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id, name FROM groups WHERE name = ?`, strings.TrimSpace(name)).
		Scan(&group.ID, &group.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Group{}, domain.NotFoundf("group %q not found", name)
		}
		return domain.Group{}, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// AddUserToGroup records a membership; repeating it is a no-op.
func (s *Store) AddUserToGroup(ctx context.Context, userID int64, groupID int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_groups (user_id, group_id) VALUES (?, ?)`,
		userID, groupID,
	); err != nil {
		return fmt.Errorf("add user to group: %w", err)
	}
	return nil
}

// GrantPagePermission grants a permission on a page subtree to a group.
func (s *Store) GrantPagePermission(ctx context.Context, grant domain.GroupPagePermission) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if !domain.ValidPermission(grant.Permission) {
		return fmt.Errorf("unknown page permission %q", grant.Permission)
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_page_permissions (group_id, page_id, permission) VALUES (?, ?, ?)`,
		grant.GroupID, grant.PageID, grant.Permission,
	); err != nil {
		return fmt.Errorf("grant page permission: %w", err)
	}
	return nil
}

// GetUserProfile returns the stored profile, or the default profile when
// the user never saved one.
func (s *Store) GetUserProfile(ctx context.Context, userID int64) (domain.UserProfile, error) {
	if err := s.ready(ctx); err != nil {
		return domain.UserProfile{}, err
	}
	profile := domain.UserProfile{UserID: userID}
	var submitted, approved, rejected int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT submitted_notifications, approved_notifications, rejected_notifications, preferred_language
		   FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(&submitted, &approved, &rejected, &profile.PreferredLanguage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultUserProfile(userID), nil
		}
		return domain.UserProfile{}, fmt.Errorf("get user profile: %w", err)
	}
	profile.SubmittedNotifications = submitted != 0
	profile.ApprovedNotifications = approved != 0
	profile.RejectedNotifications = rejected != 0
	return profile, nil
}

// PutUserProfile creates or replaces a user's profile.
func (s *Store) PutUserProfile(ctx context.Context, profile domain.UserProfile) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, submitted_notifications, approved_notifications, rejected_notifications, preferred_language)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   submitted_notifications = excluded.submitted_notifications,
		   approved_notifications = excluded.approved_notifications,
		   rejected_notifications = excluded.rejected_notifications,
		   preferred_language = excluded.preferred_language`,
		profile.UserID,
		boolToInt(profile.SubmittedNotifications),
		boolToInt(profile.ApprovedNotifications),
		boolToInt(profile.RejectedNotifications),
		strings.TrimSpace(profile.PreferredLanguage),
	); err != nil {
		return fmt.Errorf("put user profile: %w", err)
	}
	return nil
}
