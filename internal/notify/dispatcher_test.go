package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	id "hometrust/pkg/domain"
	txcontext "hometrust/pkg/platform/tx"
)

type DispatcherSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	ctrl       *gomock.Controller
	store      *InMemory
	publisher  *MockPublisher
	deadLetter *MockDeadLetter
	dispatcher *Dispatcher
}

func (s *DispatcherSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctrl = gomock.NewController(s.T())
	s.store = NewInMemory()
	s.publisher = NewMockPublisher(s.ctrl)
	s.deadLetter = NewMockDeadLetter(s.ctrl)
	s.dispatcher = NewDispatcher(s.store, s.publisher, txcontext.Passthrough{},
		DispatcherConfig{MaxAttempts: 3, BaseBackoff: 5 * time.Second},
		WithDeadLetter(s.deadLetter),
	)
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) enqueue() *Notification {
	notification := New(id.NewAccountID(), TemplateBanned, map[string]string{"reason": "fraud"}, s.now)
	s.Require().NoError(s.store.Enqueue(s.ctx, notification))
	return notification
}

func (s *DispatcherSuite) findRow(notification *Notification) *Notification {
	for _, row := range s.store.All() {
		if row.ID == notification.ID {
			return row
		}
	}
	s.FailNow("notification row missing")
	return nil
}

func (s *DispatcherSuite) TestSuccessfulPublishMarksSent() {
	notification := s.enqueue()

	s.publisher.EXPECT().
		Publish(gomock.Any(), notification.AccountID.String(), gomock.Any()).
		Return(nil)

	s.Require().NoError(s.dispatcher.DispatchDue(s.ctx, s.now))

	row := s.findRow(notification)
	s.Equal(StatusSent, row.Status)
}

func (s *DispatcherSuite) TestFailureSchedulesRetryWithBackoff() {
	notification := s.enqueue()

	s.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("broker unavailable"))

	s.Require().NoError(s.dispatcher.DispatchDue(s.ctx, s.now))

	row := s.findRow(notification)
	s.Equal(StatusPending, row.Status)
	s.Equal(1, row.Attempts)
	s.Equal("broker unavailable", row.LastError)
	s.Equal(s.now.Add(5*time.Second), row.NextAttemptAt)

	s.Run("not due again before the backoff elapses", func() {
		s.Require().NoError(s.dispatcher.DispatchDue(s.ctx, s.now.Add(time.Second)))
	})

	s.Run("second failure doubles the backoff", func() {
		retryAt := s.now.Add(5 * time.Second)
		s.publisher.EXPECT().
			Publish(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("broker unavailable"))

		s.Require().NoError(s.dispatcher.DispatchDue(s.ctx, retryAt))

		row := s.findRow(notification)
		s.Equal(2, row.Attempts)
		s.Equal(retryAt.Add(10*time.Second), row.NextAttemptAt)
	})
}

func (s *DispatcherSuite) TestExhaustionDeadLetters() {
	notification := s.enqueue()
	s.Require().NoError(s.store.MarkFailed(s.ctx, notification.ID, 2, s.now, "broker unavailable", s.now))

	s.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("broker unavailable"))
	s.deadLetter.EXPECT().
		Push(gomock.Any(), gomock.Any()).
		Return(nil)

	s.Require().NoError(s.dispatcher.DispatchDue(s.ctx, s.now))

	row := s.findRow(notification)
	s.Equal(StatusDead, row.Status)
	s.Equal("broker unavailable", row.LastError)
}

func (s *DispatcherSuite) TestDeadLetterPushFailureLeavesRowPending() {
	notification := s.enqueue()
	s.Require().NoError(s.store.MarkFailed(s.ctx, notification.ID, 2, s.now, "broker unavailable", s.now))

	s.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("broker unavailable"))
	s.deadLetter.EXPECT().
		Push(gomock.Any(), gomock.Any()).
		Return(errors.New("redis down"))

	s.Require().NoError(s.dispatcher.DispatchDue(s.ctx, s.now))

	row := s.findRow(notification)
	s.Equal(StatusPending, row.Status)
}

func (s *DispatcherSuite) TestBatchRespectsLimit() {
	dispatcher := NewDispatcher(s.store, s.publisher, txcontext.Passthrough{},
		DispatcherConfig{BatchSize: 2, MaxAttempts: 3, BaseBackoff: time.Second})

	for i := 0; i < 3; i++ {
		s.enqueue()
	}

	s.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		Times(2)

	s.Require().NoError(dispatcher.DispatchDue(s.ctx, s.now))
}
