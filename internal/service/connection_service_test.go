package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectionFixture struct {
	users    *fakeUserRepo
	repo     *fakeConnectionRepo
	notifier *recordingNotifier
	svc      *ConnectionService
	alice    *model.User
	bob      *model.User
}

func newConnectionFixture() *connectionFixture {
	f := &connectionFixture{
		users:    newFakeUserRepo(),
		repo:     newFakeConnectionRepo(),
		notifier: &recordingNotifier{},
	}
	f.alice = f.users.addStudent()
	f.bob = f.users.addTutor("Math")
	f.svc = NewConnectionService(fakeTx{}, f.repo, f.users, f.notifier, testLogger())
	return f
}

func TestConnectionService_AcceptOnlyOnce(t *testing.T) {
	f := newConnectionFixture()
	ctx := context.Background()

	c, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID, "hi!")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionStatusPending, c.Status)

	_, err = f.svc.Accept(ctx, f.alice.ID, c.ID)
	assert.ErrorIs(t, err, ErrForbidden, "requester cannot accept own request")

	accepted, err := f.svc.Accept(ctx, f.bob.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	_, err = f.svc.Accept(ctx, f.bob.ID, c.ID)
	assert.ErrorIs(t, err, ErrAlreadyResponded)

	_, err = f.svc.Decline(ctx, f.bob.ID, c.ID)
	assert.ErrorIs(t, err, ErrAlreadyResponded)

	stored, _ := f.repo.GetByID(ctx, c.ID)
	assert.Equal(t, model.ConnectionStatusAccepted, stored.Status)

	assert.Equal(t, []int64{f.bob.ID, f.alice.ID}, f.notifier.recipients())
}

func TestConnectionService_ConcurrentAnswersSucceedOnce(t *testing.T) {
	f := newConnectionFixture()
	ctx := context.Background()

	c, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID, "")
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.svc.Accept(ctx, f.bob.ID, c.ID)
			} else {
				_, err = f.svc.Decline(ctx, f.bob.ID, c.ID)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrAlreadyResponded):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestConnectionService_Request(t *testing.T) {
	f := newConnectionFixture()
	ctx := context.Background()

	_, err := f.svc.Request(ctx, f.alice.ID, f.alice.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Request(ctx, f.alice.ID, 999, "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	c, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, f.bob.ID, f.alice.ID, "")
	assert.ErrorIs(t, err, ErrConnectionExists, "pair is unordered")

	_, err = f.svc.Decline(ctx, f.bob.ID, c.ID)
	require.NoError(t, err)

	// после отказа пара может запросить снова, строка переиспользуется
	again, err := f.svc.Request(ctx, f.bob.ID, f.alice.ID, "second try")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, model.ConnectionStatusPending, again.Status)
	assert.Equal(t, f.bob.ID, again.RequesterID)

	_, err = f.svc.Accept(ctx, f.alice.ID, again.ID)
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, f.alice.ID, f.bob.ID, "")
	assert.ErrorIs(t, err, ErrConnectionExists)
}

func TestConnectionService_ListsAndRemove(t *testing.T) {
	f := newConnectionFixture()
	ctx := context.Background()
	carol := f.users.addStudent()

	toBob, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID, "")
	require.NoError(t, err)
	fromCarol, err := f.svc.Request(ctx, carol.ID, f.alice.ID, "")
	require.NoError(t, err)

	pending, err := f.svc.Pending(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, pending.Outgoing, 1)
	require.Len(t, pending.Incoming, 1)
	assert.Equal(t, toBob.ID, pending.Outgoing[0].ID)
	assert.Equal(t, fromCarol.ID, pending.Incoming[0].ID)
	assert.Equal(t, carol.ID, pending.Incoming[0].OtherUser.ID)

	state, err := f.svc.Status(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", state.Status)
	assert.Equal(t, "incoming", state.Direction)

	err = f.svc.Remove(ctx, f.alice.ID, toBob.ID)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = f.svc.Accept(ctx, f.bob.ID, toBob.ID)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.bob.ID, list[0].OtherUser.ID)

	assert.ErrorIs(t, f.svc.Remove(ctx, carol.ID, toBob.ID), ErrConnectionNotFound)
	require.NoError(t, f.svc.Remove(ctx, f.bob.ID, toBob.ID))

	state, err = f.svc.Status(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "none", state.Status)
}
