package notify

import (
	"context"

	"github.com/louisbranch/folio/internal/services/cms/domain"
	"github.com/louisbranch/folio/internal/services/cms/mail"
)

type fakeAccounts struct {
	users       map[int64]domain.User
	groups      map[int64][]int64
	profiles    map[int64]domain.UserProfile
	permissions map[string][]int64
}

func (f *fakeAccounts) GetUser(_ context.Context, id int64) (domain.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return domain.User{}, domain.NotFoundf("user %d not found", id)
}

func (f *fakeAccounts) ListUsers(_ context.Context, query domain.UserQuery) ([]domain.User, error) {
	var out []domain.User
	for id := int64(1); id <= int64(len(f.users)); id++ {
		user, ok := f.users[id]
		if !ok {
			continue
		}
		match := query.Superusers && user.IsSuperuser
		for _, gid := range query.GroupIDs {
			for _, member := range f.groups[gid] {
				if member == user.ID {
					match = true
				}
			}
		}
		if match {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeAccounts) UsersWithPagePermission(_ context.Context, permission string, _ int64) ([]domain.User, error) {
	var out []domain.User
	for _, id := range f.permissions[permission] {
		out = append(out, f.users[id])
	}
	return out, nil
}

func (f *fakeAccounts) GetUserProfile(_ context.Context, userID int64) (domain.UserProfile, error) {
	if profile, ok := f.profiles[userID]; ok {
		return profile, nil
	}
	return domain.DefaultUserProfile(userID), nil
}

type fakePages struct {
	pages map[int64]domain.Page
}

func (f *fakePages) GetPage(_ context.Context, id int64) (domain.Page, error) {
	if page, ok := f.pages[id]; ok {
		return page, nil
	}
	return domain.Page{}, domain.NotFoundf("page %d not found", id)
}

func (f *fakePages) ListRootPages(context.Context) ([]domain.Page, error) { return nil, nil }

func (f *fakePages) ListChildren(context.Context, int64) ([]domain.Page, error) { return nil, nil }

type fakeModeration struct {
	workflows  map[int64]domain.Workflow
	tasks      map[int64]domain.Task
	states     map[int64]domain.WorkflowState
	taskStates map[int64]domain.TaskState
}

func (f *fakeModeration) GetRevision(_ context.Context, id int64) (domain.Revision, error) {
	return domain.Revision{}, domain.NotFoundf("revision %d not found", id)
}

func (f *fakeModeration) GetWorkflow(_ context.Context, id int64) (domain.Workflow, error) {
	if w, ok := f.workflows[id]; ok {
		return w, nil
	}
	return domain.Workflow{}, domain.NotFoundf("workflow %d not found", id)
}

func (f *fakeModeration) GetTask(_ context.Context, id int64) (domain.Task, error) {
	if t, ok := f.tasks[id]; ok {
		return t, nil
	}
	return domain.Task{}, domain.NotFoundf("task %d not found", id)
}

func (f *fakeModeration) GetWorkflowState(_ context.Context, id int64) (domain.WorkflowState, error) {
	if s, ok := f.states[id]; ok {
		return s, nil
	}
	return domain.WorkflowState{}, domain.NotFoundf("workflow state %d not found", id)
}

func (f *fakeModeration) GetTaskState(_ context.Context, id int64) (domain.TaskState, error) {
	if s, ok := f.taskStates[id]; ok {
		return s, nil
	}
	return domain.TaskState{}, domain.NotFoundf("task state %d not found", id)
}

type recordingSender struct {
	messages []mail.Message
	err      error
}

func (r *recordingSender) Send(_ context.Context, messages ...mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, messages...)
	return nil
}

const (
	editorID    int64 = 1
	moderatorID int64 = 2
	adminID     int64 = 3
	noEmailID   int64 = 4
	inactiveID  int64 = 5
	optedOutID  int64 = 6

	moderatorsGroup int64 = 10
	pageID          int64 = 100
	workflowID      int64 = 200
	groupTaskID     int64 = 300
	otherTaskID     int64 = 301
	stateID         int64 = 400
	taskStateID     int64 = 500
)

type fixture struct {
	deps     Deps
	accounts *fakeAccounts
	sender   *recordingSender
	state    domain.WorkflowState
	task     domain.TaskState
}

func newFixture() fixture {
	accounts := &fakeAccounts{
		users: map[int64]domain.User{
			editorID:    {ID: editorID, Username: "editor", FirstName: "Eddie", LastName: "Tor", Email: "editor@example.com", IsActive: true},
			moderatorID: {ID: moderatorID, Username: "moderator", Email: "moderator@example.com", IsActive: true},
			adminID:     {ID: adminID, Username: "admin", Email: "admin@example.com", IsActive: true, IsSuperuser: true},
			noEmailID:   {ID: noEmailID, Username: "noemail", IsActive: true, IsSuperuser: true},
			inactiveID:  {ID: inactiveID, Username: "inactive", Email: "inactive@example.com", IsSuperuser: true},
			optedOutID:  {ID: optedOutID, Username: "optedout", Email: "optedout@example.com", IsActive: true},
		},
		groups: map[int64][]int64{moderatorsGroup: {moderatorID, optedOutID, editorID}},
		profiles: map[int64]domain.UserProfile{
			optedOutID: {UserID: optedOutID, SubmittedNotifications: false, ApprovedNotifications: true, RejectedNotifications: true},
		},
		permissions: map[string][]int64{
			domain.PermissionChange:  {editorID, moderatorID, adminID, noEmailID},
			domain.PermissionPublish: {moderatorID, adminID},
		},
	}
	current := taskStateID
	requestedBy := editorID
	state := domain.WorkflowState{
		ID:                 stateID,
		PageID:             pageID,
		WorkflowID:         workflowID,
		Status:             domain.WorkflowStatusInProgress,
		RequestedByID:      &requestedBy,
		CurrentTaskStateID: &current,
	}
	taskState := domain.TaskState{
		ID:              taskStateID,
		WorkflowStateID: stateID,
		TaskID:          groupTaskID,
		Status:          domain.TaskStatusRejected,
		Comment:         "Please cite sources",
	}
	moderation := &fakeModeration{
		workflows: map[int64]domain.Workflow{workflowID: {ID: workflowID, Name: "Moderators approval", Active: true}},
		tasks: map[int64]domain.Task{
			groupTaskID: {ID: groupTaskID, Name: "Legal review", Kind: domain.TaskKindGroupApproval, Active: true, GroupIDs: []int64{moderatorsGroup}},
			otherTaskID: {ID: otherTaskID, Name: "Custom", Kind: "custom", Active: true},
		},
		states:     map[int64]domain.WorkflowState{stateID: state},
		taskStates: map[int64]domain.TaskState{taskStateID: taskState},
	}
	sender := &recordingSender{}
	deps := Deps{
		Accounts:   accounts,
		Pages:      &fakePages{pages: map[int64]domain.Page{pageID: {ID: pageID, Title: "About us", Slug: "about", URLPath: "/about/", ContentType: "BlogPage"}}},
		Moderation: moderation,
		Mailer:     sender,
		Templates:  NewTemplates(nil),
		Settings:   Settings{SiteRootURL: "https://cms.example.com/", IncludeSuperusers: true, Language: "en"},
	}
	return fixture{deps: deps, accounts: accounts, sender: sender, state: state, task: taskState}
}

func userPtr(u domain.User) *domain.User { return &u }
