package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"portal/internal/mocks"
	"portal/internal/testutil"
	"portal/internal/websocket"
	"portal/pkg/types"
)

type dispatchFixture struct {
	gateway    *mocks.MockPersistenceGateway
	registry   *websocket.Registry
	dispatcher *Dispatcher
}

func newDispatchFixture(t *testing.T, cfg Config) *dispatchFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockPersistenceGateway(ctrl)
	registry := websocket.NewRegistry(false)
	return &dispatchFixture{
		gateway:    gateway,
		registry:   registry,
		dispatcher: NewDispatcher(gateway, registry, cfg),
	}
}

func (f *dispatchFixture) online(userID string) *testutil.FakeConnection {
	conn := testutil.NewFakeConnection(userID)
	f.registry.Register(userID, conn)
	return conn
}

func strPtr(s string) *string { return &s }

func persisted(in *types.NewMessage) *types.Message {
	msg := &types.Message{
		ID:        "msg-" + in.SenderID,
		SenderID:  in.SenderID,
		Content:   in.Content,
		Type:      in.Type,
		CreatedAt: time.Now().UTC(),
	}
	if in.ReceiverID != "" {
		msg.ReceiverID = strPtr(in.ReceiverID)
	}
	if in.CourseID != "" {
		msg.CourseID = strPtr(in.CourseID)
	}
	if in.ClientMessageID != "" {
		msg.ClientMessageID = strPtr(in.ClientMessageID)
	}
	return msg
}

func TestDispatch_DirectMessagePersistsThenDelivers(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")
	bob := f.online("bob")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			// Nothing may be pushed before the row exists
			assert.Empty(t, bob.Writes())
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			assert.Equal(t, "alice", in.SenderID)
			assert.Equal(t, types.MessageTypeDirect, in.Type)
			return persisted(in), true, nil
		})

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type:       types.EventMessage,
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hello",
	})
	require.NoError(t, err)

	pushed := bob.NewMessages()
	require.Len(t, pushed, 1)
	assert.Equal(t, types.EventNewMessage, pushed[0].Type)
	assert.Equal(t, "hello", pushed[0].Message.Content)
	assert.Empty(t, alice.Writes(), "sender must not receive an echo")
}

func TestDispatch_OfflineReceiverStillPersists(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			return persisted(in), true, nil
		})

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "carol", Content: "later",
	})
	require.NoError(t, err)
	assert.Empty(t, alice.Writes())
}

func TestDispatch_EmptySenderFilledFromConnection(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")
	f.online("bob")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			assert.Equal(t, "alice", in.SenderID)
			return persisted(in), true, nil
		})

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, ReceiverID: "bob", Content: "hi",
	})
	require.NoError(t, err)
}

func TestDispatch_SenderMismatchRejected(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")
	bob := f.online("bob")

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "mallory", ReceiverID: "bob", Content: "spoof",
		ClientMessageID: "c-1",
	})
	assert.ErrorIs(t, err, ErrSenderMismatch)

	errs := alice.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, MsgSenderMismatch, errs[0].Message)
	assert.False(t, errs[0].Retryable)
	assert.Equal(t, "c-1", errs[0].ClientMessageID)
	assert.Empty(t, bob.Writes())
}

func TestDispatch_UnauthenticatedSenderRejected(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	anon := testutil.NewFakeConnection("")

	err := f.dispatcher.Dispatch(context.Background(), anon, &types.MessageEvent{
		Type: types.EventMessage, ReceiverID: "bob", Content: "hi",
	})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	require.Len(t, anon.Errors(), 1)
	assert.Equal(t, MsgNotAuthenticated, anon.Errors()[0].Message)
}

func TestDispatch_InvalidMessageNotPersisted(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", Content: "no target",
	})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	errs := alice.Errors()
	require.Len(t, errs, 1)
	assert.False(t, errs[0].Retryable)
	assert.NotEmpty(t, errs[0].Message)
}

func TestDispatch_FieldErrorsDescribed(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "hi",
		MessageType: "broadcast",
	})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	errs := alice.Errors()
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0].Message, "Invalid message: "))
	assert.Contains(t, errs[0].Message, "type failed message_type")
}

func TestDispatch_PersistFailureIsRetryableAndSkipsFanOut(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")
	bob := f.online("bob")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		Return(nil, false, errors.New("database is locked"))

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "hi",
		ClientMessageID: "c-42",
	})
	assert.ErrorIs(t, err, ErrPersistFailed)

	errs := alice.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, MsgPersistFailed, errs[0].Message)
	assert.True(t, errs[0].Retryable)
	assert.Equal(t, "c-42", errs[0].ClientMessageID)
	assert.Empty(t, bob.Writes())
}

func TestDispatch_PersistTimeoutBoundsTheWrite(t *testing.T) {
	f := newDispatchFixture(t, Config{PersistTimeout: 20 * time.Millisecond, RatePerMinute: 100})
	alice := f.online("alice")
	bob := f.online("bob")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *types.NewMessage) (*types.Message, bool, error) {
			<-ctx.Done()
			return nil, false, ctx.Err()
		})

	start := time.Now()
	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "slow",
	})
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, bob.Writes())
	require.Len(t, alice.Errors(), 1)
	assert.True(t, alice.Errors()[0].Retryable)
}

func TestDispatch_DuplicateKeyDoesNotFanOutAgain(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")
	bob := f.online("bob")

	first := true
	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			created := first
			first = false
			return persisted(in), created, nil
		})

	event := types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "once",
		ClientMessageID: "c-7",
	}
	replay := event
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), alice, &event))
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), alice, &replay))

	assert.Len(t, bob.NewMessages(), 1)
	assert.Empty(t, alice.Writes())
}

func TestDispatch_MessageToSelfNotEchoed(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			return persisted(in), true, nil
		})

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "alice", Content: "note to self",
	})
	require.NoError(t, err)
	assert.Empty(t, alice.Writes())
}

func TestDispatch_CourseMessageReachesOnlineMembersOnly(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	instructor := f.online("prof")
	s1 := f.online("s1")
	s2 := f.online("s2")
	outsider := f.online("outsider")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			return persisted(in), true, nil
		})
	f.gateway.EXPECT().
		CourseMemberIDs(gomock.Any(), "cs101").
		Return([]string{"prof", "s1", "s2", "s3"}, nil)

	err := f.dispatcher.Dispatch(context.Background(), instructor, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "prof", CourseID: "cs101", Content: "quiz friday",
		MessageType: types.MessageTypeCourse,
	})
	require.NoError(t, err)

	assert.Len(t, s1.NewMessages(), 1)
	assert.Len(t, s2.NewMessages(), 1)
	assert.Empty(t, outsider.Writes())
	assert.Empty(t, instructor.Writes())
}

func TestDispatch_UnrestrictedCourseBroadcast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnrestrictedCourseBroadcast = true
	f := newDispatchFixture(t, cfg)
	instructor := f.online("prof")
	s1 := f.online("s1")
	outsider := f.online("outsider")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			return persisted(in), true, nil
		})

	err := f.dispatcher.Dispatch(context.Background(), instructor, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "prof", CourseID: "cs101", Content: "all hands",
		MessageType: types.MessageTypeCourse,
	})
	require.NoError(t, err)

	assert.Len(t, s1.NewMessages(), 1)
	assert.Len(t, outsider.NewMessages(), 1)
	assert.Empty(t, instructor.Writes())
}

func TestDispatch_MemberLookupFailureKeepsMessage(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	instructor := f.online("prof")
	s1 := f.online("s1")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			return persisted(in), true, nil
		})
	f.gateway.EXPECT().
		CourseMemberIDs(gomock.Any(), "cs101").
		Return(nil, errors.New("connection reset"))

	err := f.dispatcher.Dispatch(context.Background(), instructor, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "prof", CourseID: "cs101", Content: "hi",
		MessageType: types.MessageTypeCourse,
	})
	require.NoError(t, err)
	assert.Empty(t, s1.Writes())
	assert.Empty(t, instructor.Errors())
}

func TestDispatch_GroupMessageToCourseIsNotBroadcast(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	alice := f.online("alice")
	s1 := f.online("s1")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			return persisted(in), true, nil
		})

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", CourseID: "cs101", Content: "hi",
		MessageType: types.MessageTypeGroup,
	})
	require.NoError(t, err)
	assert.Empty(t, s1.Writes())
}

func TestDispatch_RateLimited(t *testing.T) {
	f := newDispatchFixture(t, Config{PersistTimeout: time.Second, RatePerMinute: 2})
	alice := f.online("alice")

	f.gateway.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, in *types.NewMessage) (*types.Message, bool, error) {
			return persisted(in), true, nil
		})

	for i := 0; i < 2; i++ {
		require.NoError(t, f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
			Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "burst",
		}))
	}

	err := f.dispatcher.Dispatch(context.Background(), alice, &types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "one too many",
		ClientMessageID: "c-3",
	})
	assert.ErrorIs(t, err, ErrRateLimited)

	errs := alice.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, MsgRateLimited, errs[0].Message)
	assert.True(t, errs[0].Retryable)
	assert.Equal(t, "c-3", errs[0].ClientMessageID)
}

func TestFanOut_CountsAcceptedDeliveries(t *testing.T) {
	f := newDispatchFixture(t, DefaultConfig())
	closed := f.online("bob")
	require.NoError(t, closed.Close())

	msg := &types.Message{ID: "m1", SenderID: "alice", ReceiverID: strPtr("bob"), Type: types.MessageTypeDirect}
	assert.Equal(t, 0, f.dispatcher.FanOut(context.Background(), msg))

	f.online("bob")
	assert.Equal(t, 1, f.dispatcher.FanOut(context.Background(), msg))
}
