package domain

import (
	"context"
	"sort"
	"time"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeTreeStore struct {
	pages   map[int64]Page
	nextID  int64
	updates int
	moves   []PageMove
	moveErr error
}

func newFakeTreeStore() *fakeTreeStore {
	return &fakeTreeStore{pages: map[int64]Page{}}
}

func (s *fakeTreeStore) GetPage(_ context.Context, id int64) (Page, error) {
	page, ok := s.pages[id]
	if !ok {
		return Page{}, NotFoundf("page %d not found", id)
	}
	return page, nil
}

func (s *fakeTreeStore) ListRootPages(_ context.Context) ([]Page, error) {
	return s.collect(func(p Page) bool { return p.ParentID == nil }), nil
}

func (s *fakeTreeStore) ListChildren(_ context.Context, parentID int64) ([]Page, error) {
	return s.collect(func(p Page) bool { return p.ParentID != nil && *p.ParentID == parentID }), nil
}

func (s *fakeTreeStore) collect(keep func(Page) bool) []Page {
	var out []Page
	for _, page := range s.pages {
		if keep(page) {
			out = append(out, page)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *fakeTreeStore) CreatePage(_ context.Context, page Page) (Page, error) {
	s.nextID++
	page.ID = s.nextID
	if page.ParentID != nil {
		parent := s.pages[*page.ParentID]
		page.SortOrder = parent.NumChild
		parent.NumChild++
		s.pages[parent.ID] = parent
	}
	s.pages[page.ID] = page
	return page, nil
}

func (s *fakeTreeStore) UpdatePage(_ context.Context, page Page) error {
	if _, ok := s.pages[page.ID]; !ok {
		return NotFoundf("page %d not found", page.ID)
	}
	s.updates++
	s.pages[page.ID] = page
	return nil
}

func (s *fakeTreeStore) MovePage(_ context.Context, move PageMove) error {
	if s.moveErr != nil {
		return s.moveErr
	}
	s.moves = append(s.moves, move)
	pageID, parentID := move.PageID, move.ParentID
	page := s.pages[pageID]
	if page.ParentID != nil {
		old := s.pages[*page.ParentID]
		old.NumChild--
		s.pages[old.ID] = old
	}
	parent := s.pages[parentID]
	page.SortOrder = 0
	for _, sibling := range s.collect(func(p Page) bool { return p.ParentID != nil && *p.ParentID == parentID }) {
		if sibling.SortOrder >= page.SortOrder {
			page.SortOrder = sibling.SortOrder + 1
		}
	}
	parent.NumChild++
	s.pages[parent.ID] = parent
	pid := parentID
	page.ParentID = &pid
	delta := parent.Depth + 1 - page.Depth
	s.pages[page.ID] = page
	s.shiftDepth(page.ID, delta)
	for id, urlPath := range move.URLPaths {
		p := s.pages[id]
		p.URLPath = urlPath
		p.UpdatedAt = move.At
		s.pages[id] = p
	}
	return nil
}

func (s *fakeTreeStore) shiftDepth(id int64, delta int) {
	page := s.pages[id]
	page.Depth += delta
	s.pages[id] = page
	for _, child := range s.collect(func(p Page) bool { return p.ParentID != nil && *p.ParentID == id }) {
		s.shiftDepth(child.ID, delta)
	}
}

func (s *fakeTreeStore) ListPages(_ context.Context, filter PageFilter) (PageList, error) {
	pages := s.collect(func(p Page) bool {
		if filter.HasChildren != nil && (p.NumChild > 0) != *filter.HasChildren {
			return false
		}
		if filter.ForExplorerOnly && !p.ForExplorer {
			return false
		}
		return true
	})
	return PageList{Pages: pages, TotalCount: len(pages)}, nil
}

func (s *fakeTreeStore) ListAncestors(_ context.Context, pageID int64) ([]Page, error) {
	var chain []Page
	page := s.pages[pageID]
	for page.ParentID != nil {
		page = s.pages[*page.ParentID]
		chain = append([]Page{page}, chain...)
	}
	return chain, nil
}

type fakeModerationStore struct {
	revisions     map[int64]Revision
	workflows     map[int64]Workflow
	tasks         map[int64]Task
	workflowTasks map[int64][]int64
	assignments   map[int64]int64
	states        map[int64]WorkflowState
	taskStates    map[int64]TaskState
	pages         *fakeTreeStore
	nextID        int64
	startErr      error
}

func newFakeModerationStore(pages *fakeTreeStore) *fakeModerationStore {
	return &fakeModerationStore{
		revisions:     map[int64]Revision{},
		workflows:     map[int64]Workflow{},
		tasks:         map[int64]Task{},
		workflowTasks: map[int64][]int64{},
		assignments:   map[int64]int64{},
		states:        map[int64]WorkflowState{},
		taskStates:    map[int64]TaskState{},
		pages:         pages,
	}
}

func (s *fakeModerationStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeModerationStore) GetRevision(_ context.Context, id int64) (Revision, error) {
	if r, ok := s.revisions[id]; ok {
		return r, nil
	}
	return Revision{}, NotFoundf("revision %d not found", id)
}

func (s *fakeModerationStore) GetWorkflow(_ context.Context, id int64) (Workflow, error) {
	if w, ok := s.workflows[id]; ok {
		return w, nil
	}
	return Workflow{}, NotFoundf("workflow %d not found", id)
}

func (s *fakeModerationStore) GetTask(_ context.Context, id int64) (Task, error) {
	if t, ok := s.tasks[id]; ok {
		return t, nil
	}
	return Task{}, NotFoundf("task %d not found", id)
}

func (s *fakeModerationStore) GetWorkflowState(_ context.Context, id int64) (WorkflowState, error) {
	if st, ok := s.states[id]; ok {
		return st, nil
	}
	return WorkflowState{}, NotFoundf("workflow state %d not found", id)
}

func (s *fakeModerationStore) GetTaskState(_ context.Context, id int64) (TaskState, error) {
	if st, ok := s.taskStates[id]; ok {
		return st, nil
	}
	return TaskState{}, NotFoundf("task state %d not found", id)
}

func (s *fakeModerationStore) CreateRevision(_ context.Context, r Revision) (Revision, error) {
	r.ID = s.id()
	s.revisions[r.ID] = r
	return r, nil
}

func (s *fakeModerationStore) CreateWorkflow(_ context.Context, w Workflow) (Workflow, error) {
	w.ID = s.id()
	s.workflows[w.ID] = w
	return w, nil
}

func (s *fakeModerationStore) CreateTask(_ context.Context, t Task) (Task, error) {
	t.ID = s.id()
	s.tasks[t.ID] = t
	return t, nil
}

func (s *fakeModerationStore) AddWorkflowTask(_ context.Context, workflowID int64, taskID int64) error {
	s.workflowTasks[workflowID] = append(s.workflowTasks[workflowID], taskID)
	return nil
}

func (s *fakeModerationStore) ListWorkflowTasks(_ context.Context, workflowID int64) ([]Task, error) {
	var out []Task
	for _, id := range s.workflowTasks[workflowID] {
		out = append(out, s.tasks[id])
	}
	return out, nil
}

func (s *fakeModerationStore) AssignWorkflow(_ context.Context, pageID int64, workflowID int64) error {
	s.assignments[pageID] = workflowID
	return nil
}

func (s *fakeModerationStore) FindWorkflowForPage(ctx context.Context, pageID int64) (Workflow, error) {
	chain, _ := s.pages.ListAncestors(ctx, pageID)
	ids := []int64{pageID}
	for i := len(chain) - 1; i >= 0; i-- {
		ids = append(ids, chain[i].ID)
	}
	for _, id := range ids {
		if wid, ok := s.assignments[id]; ok && s.workflows[wid].Active {
			return s.workflows[wid], nil
		}
	}
	return Workflow{}, NotFoundf("no workflow for page %d", pageID)
}

func (s *fakeModerationStore) FindInProgressWorkflowState(_ context.Context, pageID int64) (WorkflowState, error) {
	for _, st := range s.states {
		if st.PageID == pageID && st.Status == WorkflowStatusInProgress {
			return st, nil
		}
	}
	return WorkflowState{}, NotFoundf("no workflow in progress for page %d", pageID)
}

func (s *fakeModerationStore) StartWorkflow(_ context.Context, start WorkflowStart) (WorkflowStart, error) {
	if s.startErr != nil {
		return WorkflowStart{}, s.startErr
	}
	start.Revision.ID = s.id()
	s.revisions[start.Revision.ID] = start.Revision
	start.State.ID = s.id()
	start.TaskState.ID = s.id()
	start.TaskState.WorkflowStateID = start.State.ID
	start.TaskState.RevisionID = start.Revision.ID
	start.State.CurrentTaskStateID = &start.TaskState.ID
	s.states[start.State.ID] = start.State
	s.taskStates[start.TaskState.ID] = start.TaskState
	return start, nil
}

func (s *fakeModerationStore) UpdateWorkflowState(_ context.Context, st WorkflowState) error {
	s.states[st.ID] = st
	return nil
}

func (s *fakeModerationStore) CreateTaskState(_ context.Context, st TaskState) (TaskState, error) {
	st.ID = s.id()
	s.taskStates[st.ID] = st
	return st, nil
}

func (s *fakeModerationStore) UpdateTaskState(_ context.Context, st TaskState) error {
	s.taskStates[st.ID] = st
	return nil
}

type recordedSignals struct {
	signals []Signal
	err     error
}

func (r *recordedSignals) Send(_ context.Context, signal Signal) error {
	r.signals = append(r.signals, signal)
	return r.err
}

func (r *recordedSignals) kinds() []SignalKind {
	out := make([]SignalKind, 0, len(r.signals))
	for _, s := range r.signals {
		out = append(out, s.Kind)
	}
	return out
}
