package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hospitaldesk/internal/models"
	"hospitaldesk/internal/repositories"
)

var errStoreDown = errors.New("store down")

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || (user.PhoneNumber != "" && u.PhoneNumber == user.PhoneNumber) {
			return nil, repositories.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return user, nil
}

func (r *fakeUserRepo) find(match func(*models.User) bool) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.DeletedAt == nil && match(u) {
			copied := *u
			return &copied
		}
	}
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (r *fakeUserRepo) FindByPhoneNumber(_ context.Context, phone string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.PhoneNumber == phone }), nil
}

func (r *fakeUserRepo) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (*mongo.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return &mongo.UpdateResult{}, nil
	}
	for key, value := range fields {
		switch key {
		case "name":
			u.Name = value.(string)
		case "password":
			u.Password = value.(string)
		case "phone_number":
			u.PhoneNumber = value.(string)
		case "dob":
			dob := value.(time.Time)
			u.DOB = &dob
		}
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *fakeUserRepo) SetRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.RefreshToken = token
	}
	return nil
}

func (r *fakeUserRepo) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	u.RefreshToken = ""
	return nil
}

func (r *fakeUserRepo) EnsureIndexes(context.Context) error { return nil }

type fakeOTPRepo struct {
	mu   sync.Mutex
	otps []*models.OTP
}

func subjectMatches(o *models.OTP, s models.OTPSubject) bool {
	return o.Purpose == s.Purpose && o.PhoneNumber == s.PhoneNumber && o.Email == s.Email
}

func isActive(o *models.OTP, now time.Time) bool {
	return !o.IsUsed && !o.ExpiresAt.Before(now)
}

func (r *fakeOTPRepo) Create(_ context.Context, otp *models.OTP) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp.ID = primitive.NewObjectID()
	stored := *otp
	r.otps = append(r.otps, &stored)
	return otp, nil
}

func (r *fakeOTPRepo) CountSince(_ context.Context, s models.OTPSubject, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.otps {
		if subjectMatches(o, s) && !o.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeOTPRepo) InvalidateActive(_ context.Context, s models.OTPSubject, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.otps {
		if subjectMatches(o, s) && isActive(o, now) {
			o.IsUsed = true
			n++
		}
	}
	return n, nil
}

func (r *fakeOTPRepo) IncrementActiveAttempts(_ context.Context, s models.OTPSubject, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.otps {
		if subjectMatches(o, s) && isActive(o, now) {
			o.Attempts++
			n++
		}
	}
	return n, nil
}

func (r *fakeOTPRepo) ConsumeActive(_ context.Context, s models.OTPSubject, code string, now time.Time) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.otps) - 1; i >= 0; i-- {
		o := r.otps[i]
		if subjectMatches(o, s) && isActive(o, now) && o.Code == code {
			before := *o
			o.IsUsed = true
			return &before, nil
		}
	}
	return nil, nil
}

func (r *fakeOTPRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeOTPRepo) all() []models.OTP {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.OTP, 0, len(r.otps))
	for _, o := range r.otps {
		out = append(out, *o)
	}
	return out
}

type fakeChatRepo struct {
	mu        sync.Mutex
	messages  []models.ChatMessage
	clock     time.Time
	createErr error
	findErr   error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{clock: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func sameOwner(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakeChatRepo) Create(_ context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.clock = r.clock.Add(time.Second)
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = r.clock
	r.messages = append(r.messages, *msg)
	return msg, nil
}

func (r *fakeChatRepo) FindRecent(_ context.Context, owner *primitive.ObjectID, limit, offset int) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var mine []models.ChatMessage
	for _, m := range r.messages {
		if sameOwner(m.UserID, owner) {
			mine = append(mine, m)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	if offset >= len(mine) {
		return []models.ChatMessage{}, nil
	}
	mine = mine[offset:]
	if len(mine) > limit {
		mine = mine[:limit]
	}
	return mine, nil
}

func (r *fakeChatRepo) CountByUser(_ context.Context, owner *primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if sameOwner(m.UserID, owner) {
			n++
		}
	}
	return n, nil
}

func (r *fakeChatRepo) DeleteByUser(_ context.Context, owner primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[:0]
	var n int64
	for _, m := range r.messages {
		if sameOwner(m.UserID, &owner) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return n, nil
}

func (r *fakeChatRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeChatRepo) last() models.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[len(r.messages)-1]
}

type fakeHospitalRepo struct {
	hospitals []models.Hospital
	err       error
}

func (r *fakeHospitalRepo) Create(_ context.Context, h *models.Hospital) (*models.Hospital, error) {
	if r.err != nil {
		return nil, r.err
	}
	h.ID = primitive.NewObjectID()
	h.CreatedAt = time.Now().UTC()
	r.hospitals = append(r.hospitals, *h)
	return h, nil
}

func (r *fakeHospitalRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.hospitals {
		if r.hospitals[i].ID == id && r.hospitals[i].DeletedAt == nil {
			h := r.hospitals[i]
			return &h, nil
		}
	}
	return nil, nil
}

func (r *fakeHospitalRepo) FindAll(_ context.Context, _ repositories.HospitalSort) ([]models.Hospital, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Hospital
	for _, h := range r.hospitals {
		if h.DeletedAt == nil {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeHospitalRepo) firstWhere(match func(models.Hospital) bool) (*models.Hospital, error) {
	all, err := r.FindAll(context.Background(), repositories.SortByName)
	if err != nil {
		return nil, err
	}
	for _, h := range all {
		if match(h) {
			return &h, nil
		}
	}
	return nil, nil
}

func (r *fakeHospitalRepo) FindFirstByNameOrAddress(_ context.Context, term string) (*models.Hospital, error) {
	term = strings.ToLower(term)
	return r.firstWhere(func(h models.Hospital) bool {
		return strings.Contains(strings.ToLower(h.Name), term) || strings.Contains(strings.ToLower(h.Address), term)
	})
}

func (r *fakeHospitalRepo) FindFirstByName(_ context.Context, term string) (*models.Hospital, error) {
	term = strings.ToLower(term)
	return r.firstWhere(func(h models.Hospital) bool {
		return strings.Contains(strings.ToLower(h.Name), term)
	})
}

func (r *fakeHospitalRepo) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.Hospital, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.hospitals {
		h := &r.hospitals[i]
		if h.ID != id || h.DeletedAt != nil {
			continue
		}
		if v, ok := fields["name"]; ok {
			h.Name = v.(string)
		}
		if v, ok := fields["phone"]; ok {
			h.Phone = v.(string)
		}
		if v, ok := fields["latitude"]; ok {
			h.Latitude = v.(float64)
		}
		updated := *h
		return &updated, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeHospitalRepo) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	if r.err != nil {
		return r.err
	}
	for i := range r.hospitals {
		if r.hospitals[i].ID == id && r.hospitals[i].DeletedAt == nil {
			now := time.Now().UTC()
			r.hospitals[i].DeletedAt = &now
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeDoctorRepo struct {
	doctors []models.Doctor
	err     error
	limits  []int
}

func (r *fakeDoctorRepo) filter(limit int, match func(models.Doctor) bool) ([]models.Doctor, error) {
	r.limits = append(r.limits, limit)
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Doctor
	for _, d := range r.doctors {
		if d.Active && match(d) && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDoctorRepo) SearchByName(_ context.Context, name string, limit int) ([]models.Doctor, error) {
	name = strings.ToLower(name)
	return r.filter(limit, func(d models.Doctor) bool {
		return strings.Contains(strings.ToLower(d.Name), name) || strings.Contains(strings.ToLower(d.Display), name)
	})
}

func (r *fakeDoctorRepo) ListActive(_ context.Context, limit int) ([]models.Doctor, error) {
	return r.filter(limit, func(models.Doctor) bool { return true })
}

func (r *fakeDoctorRepo) FindBySpecialization(_ context.Context, specialization string, limit int) ([]models.Doctor, error) {
	specialization = strings.ToLower(specialization)
	return r.filter(limit, func(d models.Doctor) bool {
		return strings.Contains(strings.ToLower(d.Display), specialization)
	})
}

// fakeModel replays scripted responses and records every request.
type fakeModel struct {
	responses []*llms.ContentResponse
	err       error
	calls     [][]llms.MessageContent
	options   []llms.CallOptions
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls = append(m.calls, messages)
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.options = append(m.options, opts)

	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func toolResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: calls}}}
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{ID: id, Type: "function", FunctionCall: &llms.FunctionCall{Name: name, Arguments: args}}
}

type sentMessage struct {
	to   string
	body string
}

type fakeGateway struct {
	sent []sentMessage
	err  error
}

func (g *fakeGateway) SendMessage(_ context.Context, to, body string) error {
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, sentMessage{to: to, body: body})
	return nil
}

type fakeEmail struct {
	sent []sentMessage
	err  error
}

func (e *fakeEmail) SendEmail(to, _ string, msg string) error {
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, sentMessage{to: to, body: msg})
	return nil
}
