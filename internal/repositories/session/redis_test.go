package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/clock"
	session "github.com/KirkDiggler/gamemaster-api/internal/repositories/session"
	"github.com/KirkDiggler/gamemaster-api/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	cleanup func()
	clock   *clock.Fixed
	repo    session.Repository
	ctx     context.Context
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.clock = clock.NewFixed(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))

	repo, err := session.NewRedis(&session.RedisConfig{
		Client: client,
		Clock:  s.clock,
	})
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *RedisRepositoryTestSuite) testSession() *entities.Session {
	return &entities.Session{
		ID:         "sess_123",
		CampaignID: "camp_456",
		Status:     entities.SessionStatusActive,
		Location:   "forest clearing",
		NPCs: []entities.NPC{
			{Name: "Bram", Disposition: entities.DispositionFriendly},
		},
		Combat: &entities.CombatState{
			Active:    true,
			Round:     2,
			TurnIndex: 1,
			Order: []entities.InitiativeEntry{
				{CombatantID: "fighter", Name: "Brienne", Type: entities.CombatantTypePlayer, Initiative: 18},
				{CombatantID: "goblin-1", Name: "Goblin", Type: entities.CombatantTypeMonster, Initiative: 12},
			},
			Combatants: []*entities.Combatant{
				{ID: "fighter", Name: "Brienne", Type: entities.CombatantTypePlayer, CurrentHP: 9, MaxHP: 14, Active: true,
					Conditions: []entities.Condition{{Name: "poisoned", Rounds: 2, Source: "goblin blade"}}},
				{ID: "goblin-1", Name: "Goblin", Type: entities.CombatantTypeMonster, CurrentHP: 7, MaxHP: 7, Active: true},
			},
		},
	}
}

func (s *RedisRepositoryTestSuite) TestCreateAndGet_RoundTrip() {
	created, err := s.repo.Create(s.ctx, session.CreateInput{Session: s.testSession()})
	s.Require().NoError(err)
	s.Equal(int64(1), created.Session.Version)
	s.Equal(s.clock.Now(), created.Session.LastActivity)

	got, err := s.repo.Get(s.ctx, session.GetInput{ID: "sess_123"})
	s.Require().NoError(err)

	// Full combat state survives the round trip
	s.Equal(created.Session, got.Session)
	s.Equal(int32(2), got.Session.Combat.Round)
	s.Equal(int32(1), got.Session.Combat.TurnIndex)
	s.Require().Len(got.Session.Combat.Combatants, 2)
	s.Equal("poisoned", got.Session.Combat.Combatants[0].Conditions[0].Name)
}

func (s *RedisRepositoryTestSuite) TestCreate_DuplicateID() {
	_, err := s.repo.Create(s.ctx, session.CreateInput{Session: s.testSession()})
	s.Require().NoError(err)

	_, err = s.repo.Create(s.ctx, session.CreateInput{Session: s.testSession()})
	s.Require().Error(err)
	s.True(errors.IsAlreadyExists(err))
}

func (s *RedisRepositoryTestSuite) TestCreate_Validation() {
	_, err := s.repo.Create(s.ctx, session.CreateInput{})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.Create(s.ctx, session.CreateInput{Session: &entities.Session{ID: "x"}})
	s.True(errors.IsInvalidArgument(err))
}

func (s *RedisRepositoryTestSuite) TestGet_NotFound() {
	_, err := s.repo.Get(s.ctx, session.GetInput{ID: "sess_missing"})
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestUpdateIfVersion_Success() {
	created, err := s.repo.Create(s.ctx, session.CreateInput{Session: s.testSession()})
	s.Require().NoError(err)

	s.clock.Advance(5 * time.Minute)

	updated := created.Session.Clone()
	updated.Location = "abandoned watchtower"

	out, err := s.repo.UpdateIfVersion(s.ctx, session.UpdateIfVersionInput{
		Session:         updated,
		ExpectedVersion: 1,
	})
	s.Require().NoError(err)

	s.Equal(int64(2), out.Session.Version, "version increments by exactly 1")
	s.Equal("abandoned watchtower", out.Session.Location)
	s.Equal(s.clock.Now(), out.Session.LastActivity, "last_activity refreshed on write")
	s.Equal(created.Session.CreatedAt, out.Session.CreatedAt)

	got, err := s.repo.Get(s.ctx, session.GetInput{ID: "sess_123"})
	s.Require().NoError(err)
	s.Equal(int64(2), got.Session.Version)
}

func (s *RedisRepositoryTestSuite) TestUpdateIfVersion_StaleVersion() {
	created, err := s.repo.Create(s.ctx, session.CreateInput{Session: s.testSession()})
	s.Require().NoError(err)

	// Two actors read version 1; the first write wins
	first := created.Session.Clone()
	first.Location = "north road"
	second := created.Session.Clone()
	second.Location = "south road"

	_, err = s.repo.UpdateIfVersion(s.ctx, session.UpdateIfVersionInput{
		Session:         first,
		ExpectedVersion: 1,
	})
	s.Require().NoError(err)

	_, err = s.repo.UpdateIfVersion(s.ctx, session.UpdateIfVersionInput{
		Session:         second,
		ExpectedVersion: 1,
	})
	s.Require().Error(err)
	s.True(errors.IsVersionConflict(err))

	// Loser performed no partial mutation; version moved by exactly 1
	got, err := s.repo.Get(s.ctx, session.GetInput{ID: "sess_123"})
	s.Require().NoError(err)
	s.Equal(int64(2), got.Session.Version)
	s.Equal("north road", got.Session.Location)
}

func (s *RedisRepositoryTestSuite) TestUpdateIfVersion_NotFound() {
	sess := s.testSession()
	sess.ID = "sess_missing"

	_, err := s.repo.UpdateIfVersion(s.ctx, session.UpdateIfVersionInput{
		Session:         sess,
		ExpectedVersion: 1,
	})
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestUpdateIfVersion_Validation() {
	_, err := s.repo.UpdateIfVersion(s.ctx, session.UpdateIfVersionInput{
		Session:         s.testSession(),
		ExpectedVersion: 0,
	})
	s.True(errors.IsInvalidArgument(err))
}

func (s *RedisRepositoryTestSuite) TestDelete() {
	_, err := s.repo.Create(s.ctx, session.CreateInput{Session: s.testSession()})
	s.Require().NoError(err)

	_, err = s.repo.Delete(s.ctx, session.DeleteInput{ID: "sess_123"})
	s.Require().NoError(err)

	_, err = s.repo.Get(s.ctx, session.GetInput{ID: "sess_123"})
	s.True(errors.IsNotFound(err))

	list, err := s.repo.ListByCampaign(s.ctx, session.ListByCampaignInput{CampaignID: "camp_456"})
	s.Require().NoError(err)
	s.Empty(list.Sessions)
}

func (s *RedisRepositoryTestSuite) TestDelete_NotFound() {
	_, err := s.repo.Delete(s.ctx, session.DeleteInput{ID: "sess_missing"})
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestListByCampaign() {
	first := s.testSession()
	second := s.testSession()
	second.ID = "sess_789"
	other := s.testSession()
	other.ID = "sess_other"
	other.CampaignID = "camp_other"

	for _, sess := range []*entities.Session{first, second, other} {
		_, err := s.repo.Create(s.ctx, session.CreateInput{Session: sess})
		s.Require().NoError(err)
	}

	list, err := s.repo.ListByCampaign(s.ctx, session.ListByCampaignInput{CampaignID: "camp_456"})
	s.Require().NoError(err)

	s.Len(list.Sessions, 2)
	ids := []string{list.Sessions[0].ID, list.Sessions[1].ID}
	s.ElementsMatch([]string{"sess_123", "sess_789"}, ids)
}
