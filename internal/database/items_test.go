package database

import (
	"context"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	item := seedItem(t, db, owner.ID, "Drill")
	assert.NotZero(t, item.ID)

	found, err := db.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drill", found.Name)
	assert.Equal(t, owner.ID, found.OwnerID)
	assert.True(t, found.Available)
	assert.Nil(t, found.RequestID)

	found.Available = false
	found.Description = "broken"
	require.NoError(t, db.UpdateItem(ctx, found))

	found, err = db.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, found.Available)
	assert.Equal(t, "broken", found.Description)

	_, err = db.GetItemByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, db.UpdateItem(ctx, &models.Item{ID: 999}), domain.ErrNotFound)
}

func TestGetItemsByOwner_Pagination(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")

	for _, name := range []string{"a", "b", "c"} {
		seedItem(t, db, owner.ID, name)
	}
	seedItem(t, db, other.ID, "foreign")

	all, err := db.GetItemsByOwner(ctx, owner.ID, models.Page{Offset: 0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Name)

	page, err := db.GetItemsByOwner(ctx, owner.ID, models.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Name)
}

func TestSearchAvailableItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	drill := &models.Item{OwnerID: owner.ID, Name: "Power DRILL", Description: "cordless", Available: true}
	require.NoError(t, db.CreateItem(ctx, drill))
	saw := &models.Item{OwnerID: owner.ID, Name: "Saw", Description: "cuts like a drill would not", Available: true}
	require.NoError(t, db.CreateItem(ctx, saw))
	hidden := &models.Item{OwnerID: owner.ID, Name: "Old drill", Description: "unavailable", Available: false}
	require.NoError(t, db.CreateItem(ctx, hidden))
	percent := &models.Item{OwnerID: owner.ID, Name: "100% cotton tent", Description: "tent", Available: true}
	require.NoError(t, db.CreateItem(ctx, percent))

	found, err := db.SearchAvailableItems(ctx, "dRiLl", models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, drill.ID, found[0].ID)
	assert.Equal(t, saw.ID, found[1].ID)

	found, err = db.SearchAvailableItems(ctx, "%", models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, percent.ID, found[0].ID)

	found, err = db.SearchAvailableItems(ctx, "drill", models.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, saw.ID, found[0].ID)
}

func TestSearchAvailableItems_Unicode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	drill := &models.Item{OwnerID: owner.ID, Name: "Дрель Bosch", Description: "Аккумуляторная", Available: true}
	require.NoError(t, db.CreateItem(ctx, drill))
	saw := &models.Item{OwnerID: owner.ID, Name: "Пила", Description: "ручная", Available: true}
	require.NoError(t, db.CreateItem(ctx, saw))

	for _, text := range []string{"дрель", "Дрель", "ДРЕЛЬ", "дРеЛь bOsCh", "аккумулятор"} {
		t.Run(text, func(t *testing.T) {
			found, err := db.SearchAvailableItems(ctx, text, models.Page{Limit: 10})
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, drill.ID, found[0].ID)
		})
	}

	found, err := db.SearchAvailableItems(ctx, "ПИЛ", models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, saw.ID, found[0].ID)
}

func TestGetItemsByRequests(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	requestor := seedUser(t, db, "requestor")
	owner := seedUser(t, db, "owner")

	request := &models.ItemRequest{Description: "need a ladder", RequestorID: requestor.ID}
	require.NoError(t, db.CreateRequest(ctx, request))

	answer := &models.Item{OwnerID: owner.ID, Name: "Ladder", Description: "3m", Available: true, RequestID: &request.ID}
	require.NoError(t, db.CreateItem(ctx, answer))
	seedItem(t, db, owner.ID, "unrelated")

	items, err := db.GetItemsByRequests(ctx, []int64{request.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, answer.ID, items[0].ID)
	require.NotNil(t, items[0].RequestID)
	assert.Equal(t, request.ID, *items[0].RequestID)

	items, err = db.GetItemsByRequests(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
