package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/gamemaster-api/internal/clients/narrator"
	narratormock "github.com/KirkDiggler/gamemaster-api/internal/clients/narrator/mock"
	"github.com/KirkDiggler/gamemaster-api/internal/combat"
	"github.com/KirkDiggler/gamemaster-api/internal/dice"
	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
	session "github.com/KirkDiggler/gamemaster-api/internal/orchestrators/session"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/clock"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/idgen"
	sessionrepo "github.com/KirkDiggler/gamemaster-api/internal/repositories/session"
	"github.com/KirkDiggler/gamemaster-api/internal/testutils"
)

func int32Ptr(v int32) *int32 { return &v }

type OrchestratorTestSuite struct {
	suite.Suite
	cleanup      func()
	ctrl         *gomock.Controller
	mockNarrator *narratormock.MockClient
	repo         sessionrepo.Repository
	svc          session.Service
	ctx          context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctrl = gomock.NewController(s.T())
	s.mockNarrator = narratormock.NewMockClient(s.ctrl)

	fixed := clock.NewFixed(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	repo, err := sessionrepo.NewRedis(&sessionrepo.RedisConfig{
		Client: client,
		Clock:  fixed,
	})
	s.Require().NoError(err)
	s.repo = repo

	svc, err := session.NewOrchestrator(&session.Config{
		SessionRepo: repo,
		Roller:      dice.NewSequenceRoller(15, 8, 12),
		Narrator:    s.mockNarrator,
		IDGenerator: idgen.NewSequential("sess"),
		Clock:       fixed,
	})
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = context.Background()
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.ctrl.Finish()
	s.cleanup()
}

func (s *OrchestratorTestSuite) createSession() *entities.Session {
	out, err := s.svc.CreateSession(s.ctx, &session.CreateSessionInput{
		CampaignID: "camp_1",
		Location:   "forest clearing",
	})
	s.Require().NoError(err)
	return out.Session
}

func (s *OrchestratorTestSuite) participants() []combat.Participant {
	return []combat.Participant{
		{ID: "fighter", Name: "Brienne", Type: entities.CombatantTypePlayer, MaxHP: 14, Initiative: int32Ptr(18)},
		{ID: "goblin-1", Name: "Goblin", Type: entities.CombatantTypeMonster, MaxHP: 7, Initiative: int32Ptr(12)},
	}
}

func (s *OrchestratorTestSuite) startCombat(sess *entities.Session) *entities.Session {
	out, err := s.svc.StartCombat(s.ctx, &session.StartCombatInput{
		SessionID:       sess.ID,
		Participants:    s.participants(),
		ExpectedVersion: sess.Version,
	})
	s.Require().NoError(err)
	return out.Session
}

func (s *OrchestratorTestSuite) TestCreateAndGetSession() {
	created := s.createSession()

	s.Equal(entities.SessionStatusActive, created.Status)
	s.Equal(int64(1), created.Version)
	s.Equal("forest clearing", created.Location)

	got, err := s.svc.GetSession(s.ctx, &session.GetSessionInput{SessionID: created.ID})
	s.Require().NoError(err)
	s.Equal(created.ID, got.Session.ID)
}

func (s *OrchestratorTestSuite) TestCreateSession_RequiresCampaign() {
	_, err := s.svc.CreateSession(s.ctx, &session.CreateSessionInput{})
	s.True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestListSessions() {
	first := s.createSession()
	second := s.createSession()

	out, err := s.svc.ListSessions(s.ctx, &session.ListSessionsInput{CampaignID: "camp_1"})
	s.Require().NoError(err)

	s.Len(out.Sessions, 2)
	ids := []string{out.Sessions[0].ID, out.Sessions[1].ID}
	s.ElementsMatch([]string{first.ID, second.ID}, ids)
}

func (s *OrchestratorTestSuite) TestStartCombat() {
	sess := s.createSession()

	updated := s.startCombat(sess)

	s.Require().NotNil(updated.Combat)
	s.True(updated.Combat.Active)
	s.Equal(int32(1), updated.Combat.Round)
	s.Equal("fighter", updated.Combat.Order[0].CombatantID)
	s.Equal(int64(2), updated.Version)
}

func (s *OrchestratorTestSuite) TestStartCombat_RollsInitiative() {
	sess := s.createSession()

	out, err := s.svc.StartCombat(s.ctx, &session.StartCombatInput{
		SessionID: sess.ID,
		Participants: []combat.Participant{
			{ID: "a", Name: "A", Type: entities.CombatantTypePlayer, MaxHP: 10},
			{ID: "b", Name: "B", Type: entities.CombatantTypeMonster, MaxHP: 10},
		},
		ExpectedVersion: sess.Version,
	})
	s.Require().NoError(err)

	// SequenceRoller yields 15 then 8
	s.Equal(int32(15), out.Session.Combat.Order[0].Initiative)
	s.Equal("a", out.Session.Combat.Order[0].CombatantID)
}

func (s *OrchestratorTestSuite) TestStartCombat_AlreadyInCombat() {
	sess := s.startCombat(s.createSession())

	_, err := s.svc.StartCombat(s.ctx, &session.StartCombatInput{
		SessionID:       sess.ID,
		Participants:    s.participants(),
		ExpectedVersion: sess.Version,
	})
	s.True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestStartCombat_StaleVersion() {
	sess := s.createSession()

	_, err := s.svc.StartCombat(s.ctx, &session.StartCombatInput{
		SessionID:       sess.ID,
		Participants:    s.participants(),
		ExpectedVersion: 99,
	})
	s.True(errors.IsVersionConflict(err))
}

func (s *OrchestratorTestSuite) TestAdvanceTurn() {
	sess := s.startCombat(s.createSession())

	out, err := s.svc.AdvanceTurn(s.ctx, &session.AdvanceTurnInput{
		SessionID:       sess.ID,
		ExpectedVersion: sess.Version,
	})
	s.Require().NoError(err)

	s.False(out.CombatEnded)
	s.Equal(int32(1), out.Session.Combat.TurnIndex)
	s.Require().NotNil(out.Current)
	s.Equal("goblin-1", out.Current.ID)
}

func (s *OrchestratorTestSuite) TestAdvanceTurn_RoundChangeTicksDurations() {
	sess := s.startCombat(s.createSession())

	// Poison the fighter for 2 rounds via a player action
	actionOut, err := s.svc.ApplyAction(s.ctx, &session.ApplyActionInput{
		SessionID: sess.ID,
		Changes: []entities.StateChange{
			{Kind: entities.StateChangeConditionAdd, Target: "fighter", Detail: "poisoned", Value: 2},
		},
		ExpectedVersion: sess.Version,
	})
	s.Require().NoError(err)
	sess = actionOut.Session

	// Advance through the goblin's turn and wrap into round 2
	out, err := s.svc.AdvanceTurn(s.ctx, &session.AdvanceTurnInput{
		SessionID:       sess.ID,
		ExpectedVersion: sess.Version,
	})
	s.Require().NoError(err)
	out, err = s.svc.AdvanceTurn(s.ctx, &session.AdvanceTurnInput{
		SessionID:       out.Session.ID,
		ExpectedVersion: out.Session.Version,
	})
	s.Require().NoError(err)

	s.Equal(int32(2), out.Session.Combat.Round)
	fighter := out.Session.Combat.Combatant("fighter")
	s.Require().Len(fighter.Conditions, 1)
	s.Equal(int32(1), fighter.Conditions[0].Rounds)
}

func (s *OrchestratorTestSuite) TestAdvanceTurn_NoCombat() {
	sess := s.createSession()

	_, err := s.svc.AdvanceTurn(s.ctx, &session.AdvanceTurnInput{
		SessionID:       sess.ID,
		ExpectedVersion: sess.Version,
	})
	s.True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestApplyAction_DamageEndsCombat() {
	sess := s.startCombat(s.createSession())

	out, err := s.svc.ApplyAction(s.ctx, &session.ApplyActionInput{
		SessionID: sess.ID,
		Changes: []entities.StateChange{
			{Kind: entities.StateChangeDamage, Target: "goblin-1", Value: 7, Description: "greatsword"},
		},
		ExpectedVersion: sess.Version,
	})
	s.Require().NoError(err)

	s.Len(out.Applied, 1)
	s.True(out.CombatEnded)
	s.Equal(combat.OutcomeVictory, out.Outcome)
	s.Nil(out.Session.Combat)
}

func (s *OrchestratorTestSuite) TestApplyAction_StaleVersionLeavesStateUntouched() {
	sess := s.startCombat(s.createSession())

	_, err := s.svc.ApplyAction(s.ctx, &session.ApplyActionInput{
		SessionID: sess.ID,
		Changes: []entities.StateChange{
			{Kind: entities.StateChangeDamage, Target: "goblin-1", Value: 3},
		},
		ExpectedVersion: sess.Version - 1,
	})
	s.True(errors.IsVersionConflict(err))

	got, err := s.svc.GetSession(s.ctx, &session.GetSessionInput{SessionID: sess.ID})
	s.Require().NoError(err)
	s.Equal(int32(7), got.Session.Combat.Combatant("goblin-1").CurrentHP)
	s.Equal(sess.Version, got.Session.Version)
}

func (s *OrchestratorTestSuite) TestSubmitNarration_Structured() {
	sess := s.startCombat(s.createSession())

	raw := `The blade bites deep. ` +
		`{"narrative": "The goblin staggers back, bleeding.", ` +
		`"state_changes": [{"kind": "damage", "target": "goblin-1", "value": 4}], ` +
		`"location": "crypt antechamber"}`

	out, err := s.svc.SubmitNarration(s.ctx, &session.SubmitNarrationInput{
		SessionID: sess.ID,
		RawText:   raw,
	})
	s.Require().NoError(err)

	s.Equal("The goblin staggers back, bleeding.", out.Narrative)
	s.Len(out.Applied, 1)
	s.Equal("crypt antechamber", out.Session.Location)
	s.Equal(int32(3), out.Session.Combat.Combatant("goblin-1").CurrentHP)
	s.Equal(sess.Version+1, out.Session.Version)
}

func (s *OrchestratorTestSuite) TestSubmitNarration_PlainTextIsNarrativeOnly() {
	sess := s.createSession()

	out, err := s.svc.SubmitNarration(s.ctx, &session.SubmitNarrationInput{
		SessionID: sess.ID,
		RawText:   "The goblin snarls and lunges!",
	})
	s.Require().NoError(err)

	s.Equal("The goblin snarls and lunges!", out.Narrative)
	s.Empty(out.Applied)
}

func (s *OrchestratorTestSuite) TestSubmitNarration_MissingNarrativeFallsBackToRaw() {
	sess := s.createSession()
	raw := `{"state_changes": [{"kind": "damage", "target": "x", "value": 1}]}`

	out, err := s.svc.SubmitNarration(s.ctx, &session.SubmitNarrationInput{
		SessionID: sess.ID,
		RawText:   raw,
	})
	s.Require().NoError(err)

	s.Equal(raw, out.Narrative, "raw reply becomes the narrative")
	s.Empty(out.Applied)
}

func (s *OrchestratorTestSuite) TestSubmitNarration_IntroducesNPCs() {
	sess := s.createSession()

	out, err := s.svc.SubmitNarration(s.ctx, &session.SubmitNarrationInput{
		SessionID: sess.ID,
		RawText: `{"narrative": "A hooded figure emerges.", ` +
			`"npcs": [{"name": "Bram", "disposition": "hostile"}]}`,
	})
	s.Require().NoError(err)

	s.Require().Len(out.Session.NPCs, 1)
	s.Equal("Bram", out.Session.NPCs[0].Name)
	s.Equal(entities.DispositionHostile, out.Session.NPCs[0].Disposition)
}

func (s *OrchestratorTestSuite) TestSubmitNarration_PausedSession() {
	sess := s.createSession()
	_, err := s.svc.PauseSession(s.ctx, &session.PauseSessionInput{SessionID: sess.ID})
	s.Require().NoError(err)

	_, err = s.svc.SubmitNarration(s.ctx, &session.SubmitNarrationInput{
		SessionID: sess.ID,
		RawText:   "The world waits.",
	})
	s.True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestNarrateTurn() {
	sess := s.createSession()

	s.mockNarrator.EXPECT().
		GenerateNarration(gomock.Any(), gomock.Any()).
		Return(&narrator.GenerateOutput{
			Raw: `{"narrative": "Rain hammers the crypt door.", "location": "crypt entrance"}`,
		}, nil)

	out, err := s.svc.NarrateTurn(s.ctx, &session.NarrateTurnInput{SessionID: sess.ID})
	s.Require().NoError(err)

	s.Equal("Rain hammers the crypt door.", out.Narrative)
	s.Equal("crypt entrance", out.Session.Location)
}

func (s *OrchestratorTestSuite) TestNarrateTurn_NarratorFailure() {
	sess := s.createSession()

	s.mockNarrator.EXPECT().
		GenerateNarration(gomock.Any(), gomock.Any()).
		Return(nil, errors.Unavailable("model offline"))

	_, err := s.svc.NarrateTurn(s.ctx, &session.NarrateTurnInput{SessionID: sess.ID})
	s.Require().Error(err)
	s.Equal(errors.CodeUnavailable, errors.GetCode(err))
}

func (s *OrchestratorTestSuite) TestPauseResumeEnd() {
	sess := s.createSession()

	paused, err := s.svc.PauseSession(s.ctx, &session.PauseSessionInput{SessionID: sess.ID})
	s.Require().NoError(err)
	s.Equal(entities.SessionStatusPaused, paused.Session.Status)

	// Pausing twice is a precondition failure
	_, err = s.svc.PauseSession(s.ctx, &session.PauseSessionInput{SessionID: sess.ID})
	s.True(errors.IsFailedPrecondition(err))

	resumed, err := s.svc.ResumeSession(s.ctx, &session.ResumeSessionInput{SessionID: sess.ID})
	s.Require().NoError(err)
	s.Equal(entities.SessionStatusActive, resumed.Session.Status)

	ended, err := s.svc.EndSession(s.ctx, &session.EndSessionInput{SessionID: sess.ID})
	s.Require().NoError(err)
	s.Equal(entities.SessionStatusEnded, ended.Session.Status)

	_, err = s.svc.EndSession(s.ctx, &session.EndSessionInput{SessionID: sess.ID})
	s.True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestEndSession_DiscardsCombat() {
	sess := s.startCombat(s.createSession())

	ended, err := s.svc.EndSession(s.ctx, &session.EndSessionInput{SessionID: sess.ID})
	s.Require().NoError(err)
	s.Nil(ended.Session.Combat)
}

func (s *OrchestratorTestSuite) TestSaveSummary() {
	sess := s.createSession()

	out, err := s.svc.SaveSummary(s.ctx, &session.SaveSummaryInput{
		SessionID: sess.ID,
		Summary:   "The party reached the crypt.",
	})
	s.Require().NoError(err)
	s.Equal("The party reached the crypt.", out.Session.Summary)
	s.Equal(sess.Version+1, out.Session.Version)
}

func (s *OrchestratorTestSuite) TestRollDice() {
	out, err := s.svc.RollDice(s.ctx, &session.RollDiceInput{Notation: "2d6+3"})
	s.Require().NoError(err)

	s.Len(out.Result.Dice, 2)
	s.Equal(out.Result.DiceTotal+3, out.Result.Total)
}

func (s *OrchestratorTestSuite) TestRollDice_InvalidNotation() {
	_, err := s.svc.RollDice(s.ctx, &session.RollDiceInput{Notation: "2dsix"})
	s.True(errors.IsInvalidArgument(err))
}
