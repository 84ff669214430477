package engine

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"veridesk/internal/console/models"
	"veridesk/internal/console/store"
	dErrors "veridesk/pkg/domain-errors"
)

func (s *EngineSuite) TestSetDisposition_OptimisticUpdate() {
	ctx := context.Background()
	s.deliver(s.newSubmission("a1", "5550100", "1111"))

	s.Run("Given a pending record When approved Then the snapshot reflects it before the ack", func() {
		var seen models.Disposition
		s.mockCollection.EXPECT().
			Write(gomock.Any(), "a1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, patch store.Patch) error {
				record, _ := s.engine.Record("a1")
				seen = record.Disposition
				s.Require().NotNil(patch.Disposition)
				s.Equal(models.DispositionApproved, *patch.Disposition)
				return nil
			})

		s.Require().NoError(s.engine.SetDisposition(ctx, "a1", models.DispositionApproved))
		s.Equal(models.DispositionApproved, seen, "local mirror applied before the write returned")

		msg, ok := s.engine.Message()
		s.Require().True(ok)
		s.Equal(MessageSuccess, msg.Kind)
		s.Equal("submission approved", msg.Text)
	})

	s.Run("Given a rejected write When set Then the local change stays", func() {
		s.mockCollection.EXPECT().
			Write(gomock.Any(), "a1", gomock.Any()).
			Return(errors.New("permission denied"))

		err := s.engine.SetDisposition(ctx, "a1", models.DispositionRejected)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWriteFailed))

		record, found := s.engine.Record("a1")
		s.Require().True(found)
		s.Equal(models.DispositionRejected, record.Disposition, "no rollback on failure")

		msg, ok := s.engine.Message()
		s.Require().True(ok)
		s.Equal(MessageError, msg.Kind)
	})

	s.Run("Given pending as target When set Then invalid input", func() {
		err := s.engine.SetDisposition(ctx, "a1", models.DispositionPending)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *EngineSuite) TestCommitCode() {
	ctx := context.Background()

	s.Run("Given nothing staged When commit Then no write happens", func() {
		s.deliver(s.newSubmission("a1", "5550100", "1111"))
		s.Require().NoError(s.engine.CommitCode(ctx, "a1"))
	})

	s.Run("Given a staged value When commit Then it becomes committed and the entry clears", func() {
		s.deliver(s.newSubmission("a1", "5550100", "1111"))
		s.engine.Stage("a1", "9999")

		s.mockCollection.EXPECT().
			Write(gomock.Any(), "a1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, patch store.Patch) error {
				s.Require().NotNil(patch.Code)
				s.Equal("9999", *patch.Code)
				return nil
			})

		s.Require().NoError(s.engine.CommitCode(ctx, "a1"))

		record, _ := s.engine.Record("a1")
		s.Equal("9999", record.Code)
		view, _ := s.engine.View()
		s.Require().Len(view, 1)
		s.False(view[0].Staged)

		msg, ok := s.engine.Message()
		s.Require().True(ok)
		s.Equal("verification code updated", msg.Text)
	})

	s.Run("Given a failed write When commit Then the staging entry clears anyway", func() {
		s.deliver(s.newSubmission("a1", "5550100", "1111"))
		s.engine.Stage("a1", "9999")

		s.mockCollection.EXPECT().
			Write(gomock.Any(), "a1", gomock.Any()).
			Return(errors.New("write rejected"))

		err := s.engine.CommitCode(ctx, "a1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWriteFailed))

		view, _ := s.engine.View()
		s.Require().Len(view, 1)
		s.False(view[0].Staged, "the staged value is not restored after failure")
	})
}

func (s *EngineSuite) TestConfirmationGate() {
	ctx := context.Background()
	s.deliver(
		s.newSubmission("a1", "5550100", "1111"),
		s.newSubmission("b2", "5550122", "2222"),
	)

	s.Run("Given no pending request When confirm Then it is refused", func() {
		err := s.engine.Confirm(ctx)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNoPendingConfirmation))
	})

	s.Run("Given a cancelled request When confirm Then it is refused", func() {
		s.engine.RequestHide("a1")
		s.engine.Cancel()

		_, pending := s.engine.PendingConfirmation()
		s.False(pending)
		err := s.engine.Confirm(ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeNoPendingConfirmation))
	})

	s.Run("Given a newer request When confirm Then the last request wins", func() {
		s.engine.RequestHide("a1")
		s.engine.RequestHideAll()
		s.engine.RequestHide("b2")

		target, pending := s.engine.PendingConfirmation()
		s.Require().True(pending)
		s.Equal("b2", target)

		s.mockCollection.EXPECT().Write(gomock.Any(), "b2", gomock.Any()).Return(nil)
		s.Require().NoError(s.engine.Confirm(ctx))

		// The confirmation was consumed.
		err := s.engine.Confirm(ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeNoPendingConfirmation))
	})
}

func (s *EngineSuite) TestHideOne() {
	ctx := context.Background()

	s.Run("Given a confirmed hide When executed Then the record leaves the snapshot immediately", func() {
		s.deliver(s.newSubmission("a1", "5550100", "1111"), s.newSubmission("b2", "5550122", "2222"))
		s.engine.RequestHide("a1")

		s.mockCollection.EXPECT().
			Write(gomock.Any(), "a1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, patch store.Patch) error {
				_, found := s.engine.Record("a1")
				s.False(found, "removed locally before the write returned")
				s.Require().NotNil(patch.Hidden)
				s.True(*patch.Hidden)
				return nil
			})

		s.Require().NoError(s.engine.Confirm(ctx))
		s.Equal(Stats{Total: 1}, s.engine.Stats())

		msg, ok := s.engine.Message()
		s.Require().True(ok)
		s.Equal("submission cleared", msg.Text)
	})

	s.Run("Given a failed hide write When executed Then the record is not restored", func() {
		s.deliver(s.newSubmission("a1", "5550100", "1111"))
		s.engine.RequestHide("a1")

		s.mockCollection.EXPECT().
			Write(gomock.Any(), "a1", gomock.Any()).
			Return(errors.New("write rejected"))

		err := s.engine.Confirm(ctx)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWriteFailed))

		_, found := s.engine.Record("a1")
		s.False(found)
	})
}

func (s *EngineSuite) TestHideAll() {
	ctx := context.Background()

	s.Run("Given a confirmed bulk clear When the batch succeeds Then the snapshot empties", func() {
		s.deliver(s.newSubmission("a1", "5550100", "1111"), s.newSubmission("b2", "5550122", "2222"))
		s.engine.RequestHideAll()

		s.mockCollection.EXPECT().
			BatchWrite(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, updates []store.Update) error {
				s.Require().Len(updates, 2)
				s.Equal("a1", updates[0].ID)
				s.Equal("b2", updates[1].ID)
				for _, u := range updates {
					s.Require().NotNil(u.Patch.Hidden)
					s.True(*u.Patch.Hidden)
				}
				return nil
			})

		s.Require().NoError(s.engine.Confirm(ctx))
		s.Equal(Stats{}, s.engine.Stats())

		msg, ok := s.engine.Message()
		s.Require().True(ok)
		s.Equal("all submissions cleared", msg.Text)
	})

	s.Run("Given a failed batch When executed Then the snapshot is untouched", func() {
		s.deliver(s.newSubmission("a1", "5550100", "1111"), s.newSubmission("b2", "5550122", "2222"))
		s.engine.RequestHideAll()

		s.mockCollection.EXPECT().
			BatchWrite(gomock.Any(), gomock.Any()).
			Return(errors.New("batch rejected"))

		err := s.engine.Confirm(ctx)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWriteFailed))

		s.Equal(Stats{Total: 2}, s.engine.Stats(), "no speculative clearing on failure")

		msg, ok := s.engine.Message()
		s.Require().True(ok)
		s.Equal(MessageError, msg.Kind)
	})
}
