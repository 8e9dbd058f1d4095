package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/core/mocks"
)

type pipelineMocks struct {
	eligibility *mocks.MockEligibility
	moderator   *mocks.MockModerator
	store       *mocks.MockMessageStore
	pipeline    *core.Pipeline
}

func newPipelineMocks(t *testing.T) *pipelineMocks {
	ctrl := gomock.NewController(t)
	m := &pipelineMocks{
		eligibility: mocks.NewMockEligibility(ctrl),
		moderator:   mocks.NewMockModerator(ctrl),
		store:       mocks.NewMockMessageStore(ctrl),
	}
	m.pipeline = core.NewPipeline(m.eligibility, m.moderator, m.store, core.NewHub(nil, nil), nil)
	return m
}

func TestPipelineProcess_StepOrder(t *testing.T) {
	req := require.New(t)
	m := newPipelineMocks(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	gomock.InOrder(
		m.eligibility.EXPECT().Check(gomock.Any(), int64(1)).Return(nil),
		m.eligibility.EXPECT().Check(gomock.Any(), int64(2)).Return(nil),
		m.moderator.EXPECT().FindForbidden(gomock.Any(), "hi").Return(nil, nil),
		m.store.EXPECT().AppendMessage(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg *core.Message) error {
				msg.ID = 10
				msg.CreatedAt = created
				return nil
			}),
	)

	msg, err := m.pipeline.Process(ctx, 1, core.SendMessage{ReceiverID: 2, Content: "hi", Type: core.MessageTypeText})
	req.NoError(err)
	req.Equal(int64(10), msg.ID)
	req.Equal(created, msg.CreatedAt)
	req.False(msg.IsRead)
}

func TestPipelineProcess_BlockedNeverPersists(t *testing.T) {
	m := newPipelineMocks(t)

	m.eligibility.EXPECT().Check(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.moderator.EXPECT().FindForbidden(gomock.Any(), gomock.Any()).Return([]string{"spamword"}, nil)
	m.store.EXPECT().AppendMessage(gomock.Any(), gomock.Any()).Times(0)

	_, err := m.pipeline.Process(context.Background(), 1, core.SendMessage{ReceiverID: 2, Content: "spamword", Type: core.MessageTypeText})

	var blocked *core.BlockedError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, []string{"spamword"}, blocked.Words)
}

func TestPipelineProcess_ImageSkipsModeration(t *testing.T) {
	m := newPipelineMocks(t)

	m.eligibility.EXPECT().Check(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.moderator.EXPECT().FindForbidden(gomock.Any(), gomock.Any()).Times(0)
	m.store.EXPECT().AppendMessage(gomock.Any(), gomock.Any()).Return(nil)

	_, err := m.pipeline.Process(context.Background(), 1, core.SendMessage{ReceiverID: 2, Content: "spamword.png", Type: core.MessageTypeImage})
	require.NoError(t, err)
}

func TestPipelineProcess_ReceiverRejectedStopsEarly(t *testing.T) {
	m := newPipelineMocks(t)

	m.eligibility.EXPECT().Check(gomock.Any(), int64(1)).Return(nil)
	m.eligibility.EXPECT().Check(gomock.Any(), int64(3)).Return(core.ErrBlacklisted)
	m.moderator.EXPECT().FindForbidden(gomock.Any(), gomock.Any()).Times(0)
	m.store.EXPECT().AppendMessage(gomock.Any(), gomock.Any()).Times(0)

	_, err := m.pipeline.Process(context.Background(), 1, core.SendMessage{ReceiverID: 3, Content: "hi", Type: core.MessageTypeText})
	require.ErrorIs(t, err, core.ErrBlacklisted)
	require.Equal(t, core.ErrCodeBlacklisted, core.ChatErrorFor(err).Code)
}

func TestPipelineProcess_StoreFailureIsTransient(t *testing.T) {
	m := newPipelineMocks(t)
	storeErr := errors.New("database is locked")

	m.eligibility.EXPECT().Check(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.moderator.EXPECT().FindForbidden(gomock.Any(), gomock.Any()).Return(nil, nil)
	m.store.EXPECT().AppendMessage(gomock.Any(), gomock.Any()).Return(storeErr)

	_, err := m.pipeline.Process(context.Background(), 1, core.SendMessage{ReceiverID: 2, Content: "hi", Type: core.MessageTypeText})
	require.ErrorIs(t, err, storeErr)
	require.Equal(t, core.ErrCodeChatRejected, core.ChatErrorFor(err).Code)
}
