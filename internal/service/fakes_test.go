package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory реализации интерфейсов хранилищ для тестов сервисов

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ============ Users ============

type fakeUserRepo struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*model.User
	students map[int64]*model.Student
	tutors   map[int64]*model.Tutor
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[int64]*model.User),
		students: make(map[int64]*model.Student),
		tutors:   make(map[int64]*model.Tutor),
	}
}

// addTutor регистрирует тьютора, принимающего студентов
func (r *fakeUserRepo) addTutor(subjects ...string) *model.User {
	u := &model.User{Email: uuid.NewString() + "@example.com", FirstName: "Tutor", Role: model.RoleTutor}
	_ = r.Create(context.Background(), u)
	_ = r.CreateTutor(context.Background(), &model.Tutor{UserID: u.ID, Subjects: subjects, IsAcceptingStudents: true})
	return u
}

func (r *fakeUserRepo) addStudent() *model.User {
	u := &model.User{Email: uuid.NewString() + "@example.com", FirstName: "Student", Role: model.RoleStudent}
	_ = r.Create(context.Background(), u)
	_ = r.CreateStudent(context.Background(), &model.Student{UserID: u.ID})
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	var users []*model.User
	for _, id := range ids {
		u, _ := r.GetByID(ctx, id)
		if u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) SetTelegramID(_ context.Context, userID int64, telegramID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if telegramID != nil {
		for _, other := range r.users {
			if other.ID != userID && other.TelegramID != nil && *other.TelegramID == *telegramID {
				return repository.ErrDuplicate
			}
		}
	}
	u.TelegramID = telegramID
	return nil
}

func (r *fakeUserRepo) CreateStudent(_ context.Context, student *model.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *student
	r.students[student.UserID] = &copied
	return nil
}

func (r *fakeUserRepo) CreateTutor(_ context.Context, tutor *model.Tutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *tutor
	r.tutors[tutor.UserID] = &copied
	return nil
}

func (r *fakeUserRepo) GetStudent(_ context.Context, userID int64) (*model.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[userID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeUserRepo) GetTutor(_ context.Context, userID int64) (*model.Tutor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[userID]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r *fakeUserRepo) UpdateStudent(ctx context.Context, student *model.Student) error {
	if s, _ := r.GetStudent(ctx, student.UserID); s == nil {
		return repository.ErrNotFound
	}
	return r.CreateStudent(ctx, student)
}

func (r *fakeUserRepo) UpdateTutor(ctx context.Context, tutor *model.Tutor) error {
	if t, _ := r.GetTutor(ctx, tutor.UserID); t == nil {
		return repository.ErrNotFound
	}
	return r.CreateTutor(ctx, tutor)
}

func (r *fakeUserRepo) ListTutors(_ context.Context, subject string, limit, offset int) ([]*model.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.User
	for id, t := range r.tutors {
		if !t.IsAcceptingStudents || (subject != "" && !t.TeachesSubject(subject)) {
			continue
		}
		u := *r.users[id]
		tutor := *t
		u.Tutor = &tutor
		all = append(all, &u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// ============ Availability ============

type fakeAvailabilityRepo struct {
	mu      sync.Mutex
	nextID  int64
	windows map[int64][]*model.Availability
	blocked []*model.BlockedDate
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{windows: make(map[int64][]*model.Availability)}
}

func (r *fakeAvailabilityRepo) ListByTutor(_ context.Context, tutorID int64) ([]*model.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Availability{}, r.windows[tutorID]...), nil
}

func (r *fakeAvailabilityRepo) ReplaceForTutor(_ context.Context, tutorID int64, windows []*model.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range windows {
		r.nextID++
		w.ID = r.nextID
		w.TutorID = tutorID
	}
	r.windows[tutorID] = append([]*model.Availability{}, windows...)
	return nil
}

func (r *fakeAvailabilityRepo) ListBlockedDates(_ context.Context, tutorID int64, from time.Time) ([]*model.BlockedDate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	var result []*model.BlockedDate
	for _, b := range r.blocked {
		if b.TutorID == tutorID && !b.Date.Before(fromDay) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (r *fakeAvailabilityRepo) AddBlockedDate(_ context.Context, blocked *model.BlockedDate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blocked {
		if b.TutorID == blocked.TutorID && b.Date.Equal(blocked.Date) {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	blocked.ID = r.nextID
	r.blocked = append(r.blocked, blocked)
	return nil
}

func (r *fakeAvailabilityRepo) DeleteBlockedDate(_ context.Context, tutorID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range r.blocked {
		if b.ID == id && b.TutorID == tutorID {
			r.blocked = append(r.blocked[:i], r.blocked[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// ============ Sessions ============

type fakeSessionRepo struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[int64]*model.Session)}
}

func (r *fakeSessionRepo) LockTutor(context.Context, int64) error { return nil }

func (r *fakeSessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id int64) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) ListActiveByTutor(_ context.Context, tutorID int64, from, to time.Time, excludeID int64) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Session
	for _, s := range r.sorted() {
		if s.TutorID == tutorID && s.IsActive() && s.ID != excludeID && s.Overlaps(from, to) {
			copied := *s
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeSessionRepo) ListForUser(_ context.Context, userID int64, filter repository.SessionFilter) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*model.Session{}
	for _, s := range r.sorted() {
		if !s.HasParticipant(userID) {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.From != nil && s.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.StartTime.Before(*filter.To) {
			continue
		}
		copied := *s
		result = append(result, &copied)
	}
	if filter.Desc {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result, nil
}

func (r *fakeSessionRepo) UpdateIfStatus(_ context.Context, s *model.Session, expected model.SessionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[s.ID]
	if !ok || current.Status != expected {
		return false, nil
	}
	s.UpdatedAt = time.Now()
	copied := *s
	copied.Student, copied.Tutor = nil, nil
	r.sessions[s.ID] = &copied
	return true, nil
}

func (r *fakeSessionRepo) SweepPast(_ context.Context, now time.Time) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var completed, expired int64
	for _, s := range r.sessions {
		switch {
		case s.Status == model.SessionStatusConfirmed && !s.EndTime.After(now):
			s.Status = model.SessionStatusCompleted
			completed++
		case s.Status == model.SessionStatusPending && !s.StartTime.After(now):
			s.Status = model.SessionStatusCancelled
			s.CancelReason = expiredReason
			expired++
		}
	}
	return completed, expired, nil
}

func (r *fakeSessionRepo) sorted() []*model.Session {
	list := make([]*model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	return list
}

// ============ Messaging ============

type fakeConversationRepo struct {
	mu            sync.Mutex
	nextID        int64
	conversations map[int64]*model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[int64]*model.Conversation)}
}

func (r *fakeConversationRepo) GetOrCreate(_ context.Context, userA, userB int64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, b := model.OrderedPair(userA, userB)
	for _, c := range r.conversations {
		if c.UserAID == a && c.UserBID == b {
			copied := *c
			return &copied, nil
		}
	}
	r.nextID++
	c := &model.Conversation{ID: r.nextID, UserAID: a, UserBID: b, CreatedAt: time.Now()}
	r.conversations[c.ID] = c
	copied := *c
	return &copied, nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id int64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *fakeConversationRepo) ListForUser(_ context.Context, userID int64) ([]*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*model.Conversation{}
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			copied := *c
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *fakeConversationRepo) TouchLastMessage(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conversations[id]; ok {
		c.LastMessageAt = &at
	}
	return nil
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	nextID    int64
	messages  map[int64]*model.Message
	reactions []*model.MessageReaction
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[int64]*model.Message)}
}

func (r *fakeMessageRepo) Create(_ context.Context, m *model.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.messages {
		if existing.SenderID == m.SenderID && existing.ClientID == m.ClientID {
			*m = *existing
			return false, nil
		}
	}
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	copied := *m
	r.messages[m.ID] = &copied
	return true, nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id int64) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMessageRepo) GetByClientID(_ context.Context, senderID int64, clientID uuid.UUID) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.SenderID == senderID && m.ClientID == clientID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID, beforeID int64, limit int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*model.Message{}
	for id := r.nextID; id > 0 && len(result) < limit; id-- {
		m, ok := r.messages[id]
		if !ok || m.ConversationID != conversationID || (beforeID != 0 && id >= beforeID) {
			continue
		}
		copied := *m
		result = append(result, &copied)
	}
	return result, nil
}

func (r *fakeMessageRepo) UpdateContent(_ context.Context, m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.messages[m.ID]
	if !ok || stored.IsDeleted {
		return repository.ErrNotFound
	}
	stored.Content = m.Content
	stored.IsEdited = true
	m.IsEdited = true
	return nil
}

func (r *fakeMessageRepo) MarkDeleted(_ context.Context, m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.messages[m.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.IsDeleted = true
	m.IsDeleted = true
	return nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, conversationID, readerID int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last int64
	for id, m := range r.messages {
		if m.ConversationID == conversationID && m.SenderID != readerID && m.ReadAt == nil {
			readAt := at
			m.ReadAt = &readAt
			if id > last {
				last = id
			}
		}
	}
	return last, nil
}

func (r *fakeMessageRepo) ToggleReaction(_ context.Context, messageID, userID int64, emoji string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, reaction := range r.reactions {
		if reaction.MessageID == messageID && reaction.UserID == userID && reaction.Emoji == emoji {
			r.reactions = append(r.reactions[:i], r.reactions[i+1:]...)
			return false, nil
		}
	}
	r.reactions = append(r.reactions, &model.MessageReaction{MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: time.Now()})
	return true, nil
}

func (r *fakeMessageRepo) ListReactions(_ context.Context, messageIDs []int64) (map[int64][]*model.MessageReaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}
	result := make(map[int64][]*model.MessageReaction)
	for _, reaction := range r.reactions {
		if wanted[reaction.MessageID] {
			result[reaction.MessageID] = append(result[reaction.MessageID], reaction)
		}
	}
	return result, nil
}

// ============ Connections ============

type fakeConnectionRepo struct {
	mu          sync.Mutex
	nextID      int64
	connections map[int64]*model.Connection
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{connections: make(map[int64]*model.Connection)}
}

func (r *fakeConnectionRepo) Create(_ context.Context, c *model.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.connections {
		if existing.Involves(c.RequesterID) && existing.Involves(c.AddresseeID) {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	copied := *c
	r.connections[c.ID] = &copied
	return nil
}

func (r *fakeConnectionRepo) Reopen(_ context.Context, c *model.Connection) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.connections[c.ID]
	if !ok || stored.Status != model.ConnectionStatusDeclined {
		return false, nil
	}
	stored.RequesterID = c.RequesterID
	stored.AddresseeID = c.AddresseeID
	stored.Status = model.ConnectionStatusPending
	stored.Message = c.Message
	stored.RespondedAt = nil
	c.Status = model.ConnectionStatusPending
	c.RespondedAt = nil
	return true, nil
}

func (r *fakeConnectionRepo) GetByID(_ context.Context, id int64) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connections[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *fakeConnectionRepo) GetBetween(_ context.Context, userA, userB int64) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.connections {
		if c.Involves(userA) && c.Involves(userB) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

// Respond повторяет условный UPDATE ... WHERE status = 'pending'
func (r *fakeConnectionRepo) Respond(_ context.Context, id int64, status model.ConnectionStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connections[id]
	if !ok || c.Status != model.ConnectionStatusPending {
		return false, nil
	}
	c.Status = status
	c.RespondedAt = &at
	return true, nil
}

func (r *fakeConnectionRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connections[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.connections, id)
	return nil
}

func (r *fakeConnectionRepo) ListByStatus(_ context.Context, userID int64, status model.ConnectionStatus) ([]*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*model.Connection{}
	for _, c := range r.connections {
		if c.Involves(userID) && c.Status == status {
			copied := *c
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeConnectionRepo) CountAccepted(ctx context.Context, userID int64) (int, error) {
	list, _ := r.ListByStatus(ctx, userID, model.ConnectionStatusAccepted)
	return len(list), nil
}

// ============ Study plans ============

type fakePlanRepo struct {
	mu      sync.Mutex
	nextID  int64
	plans   map[int64]*model.StudyPlan
	modules map[int64]*model.Module
	tasks   map[int64]*model.Task

	lockedTasks []int64
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{
		plans:   make(map[int64]*model.StudyPlan),
		modules: make(map[int64]*model.Module),
		tasks:   make(map[int64]*model.Task),
	}
}

func (r *fakePlanRepo) Create(_ context.Context, p *model.StudyPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	copied := *p
	copied.Modules = nil
	r.plans[p.ID] = &copied
	return nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id int64) (*model.StudyPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakePlanRepo) ListForUser(_ context.Context, userID int64) ([]*model.StudyPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*model.StudyPlan{}
	for _, p := range r.plans {
		if p.HasParticipant(userID) {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakePlanRepo) Update(_ context.Context, p *model.StudyPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.plans[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	progress := stored.ProgressPercentage
	copied := *p
	copied.Modules = nil
	copied.ProgressPercentage = progress
	r.plans[p.ID] = &copied
	return nil
}

func (r *fakePlanRepo) UpdateProgress(_ context.Context, planID int64, progress int, status model.StudyPlanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	p.ProgressPercentage = progress
	p.Status = status
	return nil
}

func (r *fakePlanRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.plans, id)
	for moduleID, m := range r.modules {
		if m.PlanID == id {
			r.deleteModuleLocked(moduleID)
		}
	}
	return nil
}

func (r *fakePlanRepo) CountTasks(_ context.Context, planID int64) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var completed, total int
	for _, t := range r.tasks {
		if m, ok := r.modules[t.ModuleID]; ok && m.PlanID == planID {
			total++
			if t.IsCompleted {
				completed++
			}
		}
	}
	return completed, total, nil
}

func (r *fakePlanRepo) CreateModule(_ context.Context, m *model.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	copied := *m
	copied.Tasks = nil
	r.modules[m.ID] = &copied
	return nil
}

func (r *fakePlanRepo) GetModule(_ context.Context, id int64) (*model.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *fakePlanRepo) ListModules(_ context.Context, planID int64) ([]*model.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	modules := []*model.Module{}
	for _, m := range r.modules {
		if m.PlanID != planID {
			continue
		}
		copied := *m
		copied.Tasks = []*model.Task{}
		for _, t := range r.tasks {
			if t.ModuleID == m.ID {
				task := *t
				copied.Tasks = append(copied.Tasks, &task)
			}
		}
		sort.Slice(copied.Tasks, func(i, j int) bool { return copied.Tasks[i].ID < copied.Tasks[j].ID })
		modules = append(modules, &copied)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ID < modules[j].ID })
	return modules, nil
}

func (r *fakePlanRepo) UpdateModule(_ context.Context, m *model.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[m.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *m
	copied.Tasks = nil
	r.modules[m.ID] = &copied
	return nil
}

func (r *fakePlanRepo) DeleteModule(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[id]; !ok {
		return repository.ErrNotFound
	}
	r.deleteModuleLocked(id)
	return nil
}

func (r *fakePlanRepo) deleteModuleLocked(id int64) {
	delete(r.modules, id)
	for taskID, t := range r.tasks {
		if t.ModuleID == id {
			delete(r.tasks, taskID)
		}
	}
}

func (r *fakePlanRepo) CreateTask(_ context.Context, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *fakePlanRepo) GetTask(_ context.Context, id int64) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r *fakePlanRepo) GetTaskForUpdate(ctx context.Context, id int64) (*model.Task, error) {
	r.mu.Lock()
	r.lockedTasks = append(r.lockedTasks, id)
	r.mu.Unlock()
	return r.GetTask(ctx, id)
}

func (r *fakePlanRepo) UpdateTask(_ context.Context, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = t.Title
	stored.Description = t.Description
	stored.DueDate = t.DueDate
	stored.Position = t.Position
	return nil
}

func (r *fakePlanRepo) SetTaskCompleted(_ context.Context, taskID int64, completed bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return repository.ErrNotFound
	}
	t.IsCompleted = completed
	t.CompletedAt = nil
	if completed {
		t.CompletedAt = &at
	}
	return nil
}

func (r *fakePlanRepo) DeleteTask(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

// ============ Side effects ============

type sentNotification struct {
	UserID int64
	Text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Text: text})
}

func (n *recordingNotifier) recipients() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []int64
	for _, s := range n.sent {
		ids = append(ids, s.UserID)
	}
	return ids
}

type publishedEvent struct {
	ConversationID int64
	Type           string
	Payload        interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishToConversation(conversationID int64, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{ConversationID: conversationID, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type fakeTokens struct{}

func (fakeTokens) Generate(userID int64, role model.Role) (string, time.Time, error) {
	return "token-" + string(role), time.Now().Add(time.Hour), nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
