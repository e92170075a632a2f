package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gamelink-api/internal/domain/entity"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"github.com/yourusername/gamelink-api/internal/repository/memory"
)

// fakeRecallBroker — in-memory брокер: session handle -> recall токены.
type fakeRecallBroker struct {
	tokens      map[string][]string
	lookupErr   error
	linkErr     error
	linkedCalls int
}

func newFakeRecallBroker() *fakeRecallBroker {
	return &fakeRecallBroker{tokens: make(map[string][]string)}
}

func (b *fakeRecallBroker) LookupRecallTokens(_ context.Context, recallSessionID string) ([]string, error) {
	if b.lookupErr != nil {
		return nil, b.lookupErr
	}
	return b.tokens[recallSessionID], nil
}

func (b *fakeRecallBroker) LinkPersona(_ context.Context, recallSessionID, _, token string) error {
	if b.linkErr != nil {
		return b.linkErr
	}
	b.linkedCalls++
	b.tokens[recallSessionID] = append(b.tokens[recallSessionID], token)
	return nil
}

func newTestRecallService(t *testing.T, broker RecallBroker) (*RecallService, *memory.PlayerProfileRepo) {
	t.Helper()

	profileRepo := memory.NewPlayerProfileRepo()
	svc, err := NewRecallService(broker, profileRepo, nil, 0)
	require.NoError(t, err)
	return svc, profileRepo
}

func TestRecallSession_NewPlayer(t *testing.T) {
	broker := newFakeRecallBroker()
	svc, _ := newTestRecallService(t, broker)

	status, profile, err := svc.RecallSession(context.Background(), "unknown-session")
	require.NoError(t, err)

	assert.Equal(t, StatusNewPlayer, status)
	assert.Nil(t, profile)
}

func TestRecallSession_AccountFound(t *testing.T) {
	broker := newFakeRecallBroker()
	svc, profileRepo := newTestRecallService(t, broker)

	broker.tokens["session-1"] = []string{"token-abc"}
	require.NoError(t, profileRepo.Create(&entity.PlayerProfile{
		RecallToken:      "token-abc",
		Username:         "alice",
		CoinsOwned:       7,
		DistanceTraveled: 500,
		CreatedAt:        time.Now(),
	}))

	status, profile, err := svc.RecallSession(context.Background(), "session-1")
	require.NoError(t, err)

	assert.Equal(t, StatusAccountFound, status)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 7, profile.CoinsOwned)
}

func TestRecallSession_OrphanedToken(t *testing.T) {
	broker := newFakeRecallBroker()
	svc, _ := newTestRecallService(t, broker)

	// Брокер знает о связке, локальной записи нет
	broker.tokens["session-1"] = []string{"token-without-record"}

	status, profile, err := svc.RecallSession(context.Background(), "session-1")
	require.NoError(t, err)

	assert.Equal(t, StatusOrphanedToken, status)
	assert.Nil(t, profile)
}

func TestRecallSession_BrokerError(t *testing.T) {
	broker := newFakeRecallBroker()
	broker.lookupErr = apperrors.ErrUpstreamUnavailable
	svc, _ := newTestRecallService(t, broker)

	_, _, err := svc.RecallSession(context.Background(), "session-1")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestCreateAccount_RegistersPersonaAndPersistsProfile(t *testing.T) {
	broker := newFakeRecallBroker()
	svc, _ := newTestRecallService(t, broker)

	profile, err := svc.CreateAccount(context.Background(), "session-1", "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 1, profile.CoinsOwned)
	assert.Equal(t, 100, profile.DistanceTraveled)
	assert.NotEmpty(t, profile.RecallToken)
	assert.Equal(t, 1, broker.linkedCalls)

	// Последующий recall той же сессии находит созданный аккаунт
	status, found, err := svc.RecallSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccountFound, status)
	assert.Equal(t, profile.RecallToken, found.RecallToken)
}

func TestCreateAccount_BrokerFailureLeavesNoProfile(t *testing.T) {
	broker := newFakeRecallBroker()
	broker.linkErr = apperrors.ErrUpstreamUnavailable
	svc, _ := newTestRecallService(t, broker)

	_, err := svc.CreateAccount(context.Background(), "session-1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

	// Порядок broker-then-store: при сбое брокера локальных следов нет
	status, _, err := svc.RecallSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNewPlayer, status)
}

func TestCreateAccount_UniqueTokensPerAccount(t *testing.T) {
	broker := newFakeRecallBroker()
	svc, _ := newTestRecallService(t, broker)

	first, err := svc.CreateAccount(context.Background(), "session-1", "alice")
	require.NoError(t, err)
	second, err := svc.CreateAccount(context.Background(), "session-2", "bob")
	require.NoError(t, err)

	assert.NotEqual(t, first.RecallToken, second.RecallToken)
}
