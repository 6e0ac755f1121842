package service

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService() (*UserService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	return NewUserService(fakeTx{}, repo, fakeTokens{}, testLogger()), repo
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{
			name: "student",
			in:   RegisterInput{Email: "Student@Example.com", Password: "password1", FirstName: "Ann", Role: model.RoleStudent},
		},
		{
			name: "tutor",
			in:   RegisterInput{Email: "tutor@example.com", Password: "password1", FirstName: "Tom", Role: model.RoleTutor},
		},
		{
			name:    "bad email",
			in:      RegisterInput{Email: "not-an-email", Password: "password1", Role: model.RoleStudent},
			wantErr: ErrValidation,
		},
		{
			name:    "short password",
			in:      RegisterInput{Email: "a@example.com", Password: "short", Role: model.RoleStudent},
			wantErr: ErrValidation,
		},
		{
			name:    "password over 72 bytes",
			in:      RegisterInput{Email: "a@example.com", Password: strings.Repeat("é", 72), Role: model.RoleStudent},
			wantErr: ErrValidation,
		},
		{
			name: "multibyte password within 72 bytes",
			in:   RegisterInput{Email: "b@example.com", Password: strings.Repeat("é", 36), Role: model.RoleStudent},
		},
		{
			name:    "unknown role",
			in:      RegisterInput{Email: "a@example.com", Password: "password1", Role: "admin"},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newUserService()

			result, err := svc.Register(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.users)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, result.Token)
			assert.Equal(t, tt.in.Role, result.User.Role)
			assert.NotEqual(t, tt.in.Password, result.User.PasswordHash)

			if tt.in.Role == model.RoleTutor {
				assert.Contains(t, repo.tutors, result.User.ID)
				assert.True(t, repo.tutors[result.User.ID].IsAcceptingStudents)
			} else {
				assert.Contains(t, repo.students, result.User.ID)
			}
		})
	}
}

func TestUserService_RegisterDuplicateEmailAndLogin(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "password1", Role: model.RoleStudent})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "ANN@example.com", Password: "password2", Role: model.RoleTutor})
	assert.ErrorIs(t, err, ErrEmailTaken)

	result, err := svc.Login(ctx, "ann@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "token-student", result.Token)

	_, err = svc.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Profiles(t *testing.T) {
	svc, repo := newUserService()
	ctx := context.Background()
	tutor := repo.addTutor()
	student := repo.addStudent()

	bio := "  I teach math  "
	updated, err := svc.UpdateProfile(ctx, tutor.ID, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "I teach math", updated.Bio)
	require.NotNil(t, updated.Tutor)

	got, err := svc.UpdateTutorProfile(ctx, tutor.ID, &model.Tutor{
		Subjects:            []string{" Math", "math", "", "Physics"},
		HourlyRate:          2500,
		IsAcceptingStudents: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Physics"}, got.Subjects)

	_, err = svc.UpdateTutorProfile(ctx, student.ID, &model.Tutor{})
	assert.ErrorIs(t, err, ErrNotATutor)

	_, err = svc.UpdateTutorProfile(ctx, tutor.ID, &model.Tutor{HourlyRate: -1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStudentProfile(ctx, tutor.ID, &model.Student{})
	assert.ErrorIs(t, err, ErrNotAStudent)

	st, err := svc.UpdateStudentProfile(ctx, student.ID, &model.Student{School: "School 57"})
	require.NoError(t, err)
	assert.Equal(t, "School 57", st.School)

	profile, err := svc.GetProfile(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Student)
	assert.Equal(t, "School 57", profile.Student.School)

	_, err = svc.GetProfile(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_LinkTelegram(t *testing.T) {
	svc, repo := newUserService()
	ctx := context.Background()
	a := repo.addStudent()
	b := repo.addStudent()

	id := int64(12345)
	require.NoError(t, svc.LinkTelegram(ctx, a.ID, &id))
	assert.ErrorIs(t, svc.LinkTelegram(ctx, b.ID, &id), ErrTelegramTaken)

	negative := int64(-1)
	assert.ErrorIs(t, svc.LinkTelegram(ctx, b.ID, &negative), ErrValidation)

	require.NoError(t, svc.LinkTelegram(ctx, a.ID, nil))
	require.NoError(t, svc.LinkTelegram(ctx, b.ID, &id))

	assert.ErrorIs(t, svc.LinkTelegram(ctx, 999, &id), ErrUserNotFound)
}

func TestUserService_ListTutors(t *testing.T) {
	svc, repo := newUserService()
	ctx := context.Background()
	repo.addTutor("Math")
	repo.addTutor("Physics")
	closed := repo.addTutor("Math")
	repo.tutors[closed.ID].IsAcceptingStudents = false

	tutors, total, err := svc.ListTutors(ctx, "math", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tutors, 1)
	assert.True(t, tutors[0].Tutor.TeachesSubject("Math"))

	tutors, total, err = svc.ListTutors(ctx, "", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, tutors, 1)

	tutors, _, err = svc.ListTutors(ctx, "", 5, 10)
	require.NoError(t, err)
	assert.NotNil(t, tutors)
	assert.Empty(t, tutors)
}

func TestNormalizePaging(t *testing.T) {
	tests := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{page: 0, perPage: 0, wantPage: 1, wantPerPage: 20},
		{page: 3, perPage: 500, wantPage: 3, wantPerPage: 100},
		{page: math.MaxInt, perPage: 100, wantPage: maxPage, wantPerPage: 100},
	}

	for _, tt := range tests {
		page, perPage := normalizePaging(tt.page, tt.perPage)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantPerPage, perPage)
		assert.GreaterOrEqual(t, (page-1)*perPage, 0)
	}
}
