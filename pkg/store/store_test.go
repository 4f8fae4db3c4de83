package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/models"
	"github.com/roleplay/memoryruntime/pkg/store"
	testdb "github.com/roleplay/memoryruntime/test/database"
)

func newCharacter(userID string) models.Character {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Character{
		ID:           uuid.New().String(),
		UserID:       userID,
		CreatorID:    userID,
		Name:         "Test Character",
		Persona:      "a friendly test fixture",
		SystemPrompt: "You are {{char}}, speaking with {{user}}.",
		FirstMessage: "Hello!",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStoreCreateAndFindOneByCriteria(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	userID := uuid.New().String()
	character := newCharacter(userID)
	require.NoError(t, s.Create(ctx, &character))

	var found models.Character
	criteria := store.NewCriteria().Where("id", store.OpEQ, character.ID)
	require.NoError(t, s.FindOneByCriteria(ctx, &found, character.TableName(), criteria))
	assert.Equal(t, character.Name, found.Name)
	assert.Equal(t, character.UserID, found.UserID)
}

func TestStoreFindOneByCriteriaReturnsErrNotFound(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	var found models.Character
	criteria := store.NewCriteria().Where("id", store.OpEQ, uuid.New().String())
	err := s.FindOneByCriteria(ctx, &found, models.Character{}.TableName(), criteria)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStoreUpdateAppliesToMatchingRows(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	userID := uuid.New().String()
	character := newCharacter(userID)
	require.NoError(t, s.Create(ctx, &character))

	character.Name = "Renamed Character"
	character.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	criteria := store.NewCriteria().Where("id", store.OpEQ, character.ID)
	require.NoError(t, s.Update(ctx, &character, criteria))

	var found models.Character
	require.NoError(t, s.FindOneByCriteria(ctx, &found, character.TableName(), criteria))
	assert.Equal(t, "Renamed Character", found.Name)
}

func TestStoreDeleteByCriteria(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	userID := uuid.New().String()
	character := newCharacter(userID)
	require.NoError(t, s.Create(ctx, &character))

	criteria := store.NewCriteria().Where("id", store.OpEQ, character.ID)
	require.NoError(t, s.DeleteByCriteria(ctx, character.TableName(), criteria))

	var found models.Character
	err := s.FindOneByCriteria(ctx, &found, character.TableName(), criteria)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStoreWithTxRollsBackOnError(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	userID := uuid.New().String()
	character := newCharacter(userID)

	wantErr := assert.AnError
	err := s.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Create(ctx, &character); err != nil {
			return err
		}
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	var found models.Character
	criteria := store.NewCriteria().Where("id", store.OpEQ, character.ID)
	err = s.FindOneByCriteria(ctx, &found, character.TableName(), criteria)
	assert.ErrorIs(t, err, store.ErrNotFound, "the character created inside the rolled-back tx must not be visible")
}

func TestStoreWithTxCommitsOnSuccess(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	userID := uuid.New().String()
	character := newCharacter(userID)

	err := s.WithTx(ctx, func(tx *store.Store) error {
		return tx.Create(ctx, &character)
	})
	require.NoError(t, err)

	var found models.Character
	criteria := store.NewCriteria().Where("id", store.OpEQ, character.ID)
	require.NoError(t, s.FindOneByCriteria(ctx, &found, character.TableName(), criteria))
	assert.Equal(t, character.Name, found.Name)
}

func TestStoreFindByCriteriaOrdersAndLimits(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	userID := uuid.New().String()
	var characters []models.Character
	for i := 0; i < 3; i++ {
		c := newCharacter(userID)
		c.Name = uuid.New().String()
		c.CreatedAt = c.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.Create(ctx, &c))
		characters = append(characters, c)
		time.Sleep(10 * time.Millisecond)
	}

	var found []models.Character
	criteria := store.NewCriteria().
		Where("user_id", store.OpEQ, userID).
		Order("created_at", true).
		WithLimit(2)
	require.NoError(t, s.FindByCriteria(ctx, &found, models.Character{}.TableName(), criteria))
	require.Len(t, found, 2)
	assert.Equal(t, characters[2].ID, found[0].ID, "most recently created character should sort first")
}
