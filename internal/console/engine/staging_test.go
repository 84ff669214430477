package engine

import (
	"veridesk/internal/console/models"
)

func (s *EngineSuite) TestStaging_ShadowsCommittedValue() {
	s.deliver(s.newSubmission("a1", "5550100", "1111"))

	s.engine.Stage("a1", "9999")

	s.Equal("9999", s.engine.EffectiveCode("a1"))
	view, _ := s.engine.View()
	s.Require().Len(view, 1)
	s.Equal("9999", view[0].EffectiveCode)
	s.True(view[0].Staged)
	s.Equal("1111", view[0].Code, "the committed value stays untouched")
}

func (s *EngineSuite) TestStaging_SurvivesSnapshotRefresh() {
	s.deliver(s.newSubmission("a1", "5550100", "1111"))
	s.engine.Stage("a1", "9999")

	// A fresh change-set carries a new committed value for the same record.
	s.deliver(s.newSubmission("a1", "5550100", "2222"))

	s.Equal("9999", s.engine.EffectiveCode("a1"), "the staged edit outlives the refresh")
	record, found := s.engine.Record("a1")
	s.Require().True(found)
	s.Equal("2222", record.Code)
}

func (s *EngineSuite) TestStaging_TypingCommittedValueClearsEntry() {
	s.deliver(s.newSubmission("a1", "5550100", "1111"))

	s.engine.Stage("a1", "9999")
	s.engine.Stage("a1", "1111")

	view, _ := s.engine.View()
	s.Require().Len(view, 1)
	s.False(view[0].Staged)
	s.Equal("1111", view[0].EffectiveCode)
}

func (s *EngineSuite) TestStaging_UnknownRecord() {
	s.deliver(s.newSubmission("a1", "5550100", "1111"))

	s.Equal("", s.engine.EffectiveCode("ghost"))

	// Staging for a record outside the snapshot is kept until committed or
	// cleared; the record may re-enter on a later change-set.
	s.engine.Stage("ghost", "7777")
	s.Equal("7777", s.engine.EffectiveCode("ghost"))

	s.deliver(
		s.newSubmission("a1", "5550100", "1111"),
		models.Submission{ID: "ghost", Phone: "5550177", Disposition: models.DispositionPending},
	)
	s.Equal("7777", s.engine.EffectiveCode("ghost"))
}
