package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// 所有 mock 以互斥锁保护并返回副本，条件更新在锁内原子完成，
// 便于在无数据库的情况下验证并发语义

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) ListByRoles(_ context.Context, roles []string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		for _, r := range roles {
			if u.Role == r && u.IsActive {
				result = append(result, *u)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock ThesisRepository ──

type mockThesisRepo struct {
	mu      sync.Mutex
	theses  map[string]*model.Thesis
	users   *mockUserRepo
	updates int
}

func newMockThesisRepo(users *mockUserRepo) *mockThesisRepo {
	return &mockThesisRepo{theses: make(map[string]*model.Thesis), users: users}
}

func (m *mockThesisRepo) Create(_ context.Context, thesis *model.Thesis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if thesis.ThesisID == "" {
		thesis.ThesisID = uuid.NewString()
	}
	if thesis.Version == 0 {
		thesis.Version = 1
	}
	now := time.Now().UTC()
	thesis.CreatedAt, thesis.UpdatedAt = now, now
	cp := *thesis
	m.theses[thesis.ThesisID] = &cp
	return nil
}

func (m *mockThesisRepo) get(id string) (*model.Thesis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.theses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockThesisRepo) preload(t *model.Thesis) {
	if m.users == nil {
		return
	}
	if u, err := m.users.GetByID(context.Background(), t.StudentID); err == nil {
		t.Student = u
	}
	if t.HasSupervisor() {
		if u, err := m.users.GetByID(context.Background(), *t.SupervisorID); err == nil {
			t.Supervisor = u
		}
	}
}

func (m *mockThesisRepo) GetByID(_ context.Context, id string) (*model.Thesis, error) {
	t, err := m.get(id)
	if err != nil {
		return nil, err
	}
	m.preload(t)
	return t, nil
}

func (m *mockThesisRepo) GetForUpdate(_ context.Context, id string) (*model.Thesis, error) {
	return m.get(id)
}

func (m *mockThesisRepo) List(_ context.Context, filter repository.ThesisFilter) ([]model.Thesis, int64, error) {
	m.mu.Lock()
	var result []model.Thesis
	for _, t := range m.theses {
		if filter.StudentID != "" && t.StudentID != filter.StudentID {
			continue
		}
		if filter.SupervisorID != "" && !t.IsSupervisedBy(filter.SupervisorID) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		result = append(result, *t)
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	for i := range result {
		m.preload(&result[i])
	}
	return result, int64(len(result)), nil
}

func (m *mockThesisRepo) cas(thesis *model.Thesis, apply func(stored *model.Thesis)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.theses[thesis.ThesisID]
	if !ok || stored.Version != thesis.Version {
		return pkgerrors.ErrOptimisticLock
	}
	apply(stored)
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	stored.UpdatedBy = thesis.UpdatedBy
	thesis.Version = stored.Version
	m.updates++
	return nil
}

func (m *mockThesisRepo) UpdateContent(_ context.Context, thesis *model.Thesis) error {
	return m.cas(thesis, func(stored *model.Thesis) {
		stored.Title = thesis.Title
		stored.Abstract = thesis.Abstract
	})
}

func (m *mockThesisRepo) UpdateStatus(_ context.Context, thesis *model.Thesis) error {
	return m.cas(thesis, func(stored *model.Thesis) {
		stored.Status = thesis.Status
		stored.SupervisorID = thesis.SupervisorID
		stored.SubmittedAt = thesis.SubmittedAt
		stored.ApprovedAt = thesis.ApprovedAt
	})
}

func (m *mockThesisRepo) AssignSupervisor(_ context.Context, thesisID, supervisorID, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.theses[thesisID]
	if !ok || stored.HasSupervisor() {
		return pkgerrors.ErrOptimisticLock
	}
	id := supervisorID
	stored.SupervisorID = &id
	stored.UpdatedBy = &actorID
	stored.Version++
	m.updates++
	return nil
}

func (m *mockThesisRepo) SetDefenseDate(_ context.Context, thesisID string, date time.Time, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.theses[thesisID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.DefenseDate = &date
	stored.UpdatedBy = &actorID
	stored.Version++
	return nil
}

// ── Mock SupervisionRequestRepository ──

type mockRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*model.SupervisionRequest
	// skipLiveIndex 关闭进行中申请的唯一约束，用于构造竞争场景
	skipLiveIndex bool
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[string]*model.SupervisionRequest)}
}

func (m *mockRequestRepo) Create(_ context.Context, req *model.SupervisionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.skipLiveIndex && req.Status.IsLive() {
		for _, r := range m.requests {
			if r.ThesisID == req.ThesisID && r.Status.IsLive() {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	cp := *req
	m.requests[req.RequestID] = &cp
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.SupervisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestRepo) GetForUpdate(ctx context.Context, id string) (*model.SupervisionRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRequestRepo) List(_ context.Context, filter repository.RequestFilter) ([]model.SupervisionRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.SupervisionRequest
	for _, r := range m.requests {
		if filter.ThesisID != "" && r.ThesisID != filter.ThesisID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.AssistantID != "" && r.AssistantID != filter.AssistantID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		result = append(result, *r)
	}
	return result, int64(len(result)), nil
}

func (m *mockRequestRepo) CountLive(_ context.Context, thesisID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.requests {
		if r.ThesisID == thesisID && r.Status.IsLive() {
			n++
		}
	}
	return n, nil
}

func (m *mockRequestRepo) HasDeclined(_ context.Context, thesisID, assistantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ThesisID == thesisID && r.AssistantID == assistantID && r.Status == workflow.RequestDeclined {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestRepo) FindApproved(_ context.Context, thesisID string) (*model.SupervisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ThesisID == thesisID && r.Status == workflow.RequestApproved {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestRepo) Resolve(_ context.Context, req *model.SupervisionRequest, from workflow.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[req.RequestID]
	if !ok || stored.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = req.Status
	stored.ResolvedAt = req.ResolvedAt
	stored.UpdatedBy = req.UpdatedBy
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockRequestRepo) statusOf(id string) workflow.RequestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

// ── Mock DeadlineRepository ──

type mockDeadlineRepo struct {
	mu        sync.Mutex
	deadlines map[string]*model.Deadline
	createErr error
}

func newMockDeadlineRepo() *mockDeadlineRepo {
	return &mockDeadlineRepo{deadlines: make(map[string]*model.Deadline)}
}

func (m *mockDeadlineRepo) Create(ctx context.Context, item *model.Deadline) error {
	items := []model.Deadline{*item}
	if err := m.BatchCreate(ctx, items); err != nil {
		return err
	}
	*item = items[0]
	return nil
}

func (m *mockDeadlineRepo) BatchCreate(_ context.Context, items []model.Deadline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	now := time.Now().UTC()
	for i := range items {
		if items[i].DeadlineID == "" {
			items[i].DeadlineID = uuid.NewString()
		}
		items[i].CreatedAt = now
		cp := items[i]
		m.deadlines[cp.DeadlineID] = &cp
	}
	return nil
}

func (m *mockDeadlineRepo) GetByID(_ context.Context, id string) (*model.Deadline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deadlines[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeadlineRepo) List(_ context.Context, filter repository.DeadlineFilter) ([]model.Deadline, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Deadline
	for _, d := range m.deadlines {
		if filter.Type != "" && d.DeadlineType != filter.Type {
			continue
		}
		if filter.ThesisID != "" && (d.ThesisID == nil || *d.ThesisID != filter.ThesisID) {
			continue
		}
		if filter.BatchID != "" && (d.BatchID == nil || *d.BatchID != filter.BatchID) {
			continue
		}
		if filter.ActiveOnly && !d.IsActive {
			continue
		}
		if filter.GlobalOnly && !d.IsGlobal {
			continue
		}
		if filter.From != nil && d.DeadlineDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && d.DeadlineDate.After(*filter.To) {
			continue
		}
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DeadlineDate.Before(result[j].DeadlineDate) })
	return result, int64(len(result)), nil
}

func (m *mockDeadlineRepo) Update(_ context.Context, item *model.Deadline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deadlines[item.DeadlineID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *item
	m.deadlines[item.DeadlineID] = &cp
	return nil
}

func (m *mockDeadlineRepo) Deactivate(_ context.Context, id, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deadlines[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.IsActive = false
	d.UpdatedBy = &actorID
	return nil
}

func (m *mockDeadlineRepo) Delete(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deadlines[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.deadlines, id)
	return nil
}

// ── Mock 审计 Repository ──

type mockTransitionRepo struct {
	mu    sync.Mutex
	items []model.ThesisTransition
}

func (m *mockTransitionRepo) Create(_ context.Context, t *model.ThesisTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.TransitionID == "" {
		t.TransitionID = uuid.NewString()
	}
	m.items = append(m.items, *t)
	return nil
}

func (m *mockTransitionRepo) ListByThesis(_ context.Context, thesisID string) ([]model.ThesisTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ThesisTransition
	for _, t := range m.items {
		if t.ThesisID == thesisID {
			result = append(result, t)
		}
	}
	return result, nil
}

type mockReviewRepo struct {
	mu    sync.Mutex
	items []model.Review
}

func (m *mockReviewRepo) Create(_ context.Context, r *model.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ReviewID == "" {
		r.ReviewID = uuid.NewString()
	}
	m.items = append(m.items, *r)
	return nil
}

func (m *mockReviewRepo) ListByThesis(_ context.Context, thesisID string) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Review
	for _, r := range m.items {
		if r.ThesisID == thesisID {
			result = append(result, r)
		}
	}
	return result, nil
}

// ── Mock CommitteeRepository ──

type mockCommitteeRepo struct {
	mu      sync.Mutex
	members map[string]*model.CommitteeMember
	users   *mockUserRepo
}

func newMockCommitteeRepo(users *mockUserRepo) *mockCommitteeRepo {
	return &mockCommitteeRepo{members: make(map[string]*model.CommitteeMember), users: users}
}

func (m *mockCommitteeRepo) Create(_ context.Context, member *model.CommitteeMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members {
		if existing.ThesisID == member.ThesisID && existing.UserID == member.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if member.MemberID == "" {
		member.MemberID = uuid.NewString()
	}
	now := time.Now().UTC()
	member.CreatedAt, member.UpdatedAt = now, now
	cp := *member
	m.members[member.MemberID] = &cp
	return nil
}

func (m *mockCommitteeRepo) GetByID(_ context.Context, id string) (*model.CommitteeMember, error) {
	m.mu.Lock()
	member, ok := m.members[id]
	var cp model.CommitteeMember
	if ok {
		cp = *member
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if u, err := m.users.GetByID(context.Background(), cp.UserID); err == nil {
		cp.User = u
	}
	return &cp, nil
}

func (m *mockCommitteeRepo) GetForUpdate(ctx context.Context, id string) (*model.CommitteeMember, error) {
	return m.GetByID(ctx, id)
}

func (m *mockCommitteeRepo) ListByThesis(ctx context.Context, thesisID string) ([]model.CommitteeMember, error) {
	m.mu.Lock()
	var ids []string
	for id, member := range m.members {
		if member.ThesisID == thesisID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	result := make([]model.CommitteeMember, 0, len(ids))
	for _, id := range ids {
		member, err := m.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, *member)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockCommitteeRepo) Exists(_ context.Context, thesisID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.ThesisID == thesisID && member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCommitteeRepo) Update(_ context.Context, member *model.CommitteeMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.members[member.MemberID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Role = member.Role
	stored.HasApproved = member.HasApproved
	stored.ApprovalDate = member.ApprovalDate
	stored.UpdatedBy = member.UpdatedBy
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockCommitteeRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.members, id)
	return nil
}

// ── 测试装配 ──

type mockRepos struct {
	users       *mockUserRepo
	theses      *mockThesisRepo
	requests    *mockRequestRepo
	deadlines   *mockDeadlineRepo
	transitions *mockTransitionRepo
	reviews     *mockReviewRepo
	committee   *mockCommitteeRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	m := &mockRepos{
		users:       users,
		theses:      newMockThesisRepo(users),
		requests:    newMockRequestRepo(),
		deadlines:   newMockDeadlineRepo(),
		transitions: &mockTransitionRepo{},
		reviews:     &mockReviewRepo{},
		committee:   newMockCommitteeRepo(users),
	}
	repo := &repository.Repository{
		User:       m.users,
		Thesis:     m.theses,
		Request:    m.requests,
		Deadline:   m.deadlines,
		Transition: m.transitions,
		Review:     m.reviews,
		Committee:  m.committee,
	}
	return repo, m
}

func (m *mockRepos) addUser(id, role string) {
	_ = m.users.Upsert(context.Background(), &model.User{
		UserID: id, Name: id, Email: id + "@example.edu", Role: role, IsActive: true,
	})
}

func (m *mockRepos) addThesis(studentID string, status workflow.ThesisStatus, supervisorID *string) *model.Thesis {
	t := &model.Thesis{Title: "分布式事务研究", Status: status, StudentID: studentID, SupervisorID: supervisorID}
	_ = m.theses.Create(context.Background(), t)
	return t
}

func (m *mockRepos) addRequest(thesisID, studentID, assistantID string, status workflow.RequestStatus) *model.SupervisionRequest {
	r := &model.SupervisionRequest{ThesisID: thesisID, StudentID: studentID, AssistantID: assistantID, Status: status}
	_ = m.requests.Create(context.Background(), r)
	return r
}

func (m *mockRepos) thesis(id string) *model.Thesis {
	t, _ := m.theses.get(id)
	return t
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
