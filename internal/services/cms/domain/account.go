package domain

// Page permission types granted to groups.
const (
	PermissionAdd        = "add"
	PermissionChange     = "change"
	PermissionPublish    = "publish"
	PermissionLock       = "lock"
	PermissionUnlock     = "unlock"
	PermissionBulkDelete = "bulk_delete"
)

// ValidPermission reports whether permission is a known page permission.
func ValidPermission(permission string) bool {
	switch permission {
	case PermissionAdd, PermissionChange, PermissionPublish,
		PermissionLock, PermissionUnlock, PermissionBulkDelete:
		return true
	}
	return false
}

// User is an admin account.
type User struct {
	ID          int64
	Username    string
	Email       string
	FirstName   string
	LastName    string
	IsActive    bool
	IsSuperuser bool
}

// FullName returns "First Last", falling back to the username.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// Group collects users for permission grants and approval tasks.
type Group struct {
	ID   int64
	Name string
}

// GroupPagePermission grants one permission on a page subtree.
type GroupPagePermission struct {
	GroupID    int64
	PageID     int64
	Permission string
}

// UserProfile carries per-user notification preferences.
type UserProfile struct {
	UserID                 int64
	SubmittedNotifications bool
	ApprovedNotifications  bool
	RejectedNotifications  bool
	PreferredLanguage      string
}

// DefaultUserProfile is the profile of a user that never saved one.
func DefaultUserProfile(userID int64) UserProfile {
	return UserProfile{
		UserID:                 userID,
		SubmittedNotifications: true,
		ApprovedNotifications:  true,
		RejectedNotifications:  true,
	}
}

// Allows reports whether the profile opts in to notification. Unknown
// notification names are never allowed.
func (p UserProfile) Allows(notification string) bool {
	switch notification {
	case "submitted":
		return p.SubmittedNotifications
	case "approved":
		return p.ApprovedNotifications
	case "rejected":
		return p.RejectedNotifications
	}
	return false
}

// UserQuery selects users. Criteria are OR-ed: a user matches when it is a
// superuser (with Superusers set) or a member of one of GroupIDs.
type UserQuery struct {
	Superusers bool
	GroupIDs   []int64
}
