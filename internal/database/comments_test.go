package database

import (
	"context"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	author := seedUser(t, db, "author")
	drill := seedItem(t, db, owner.ID, "drill")
	saw := seedItem(t, db, owner.ID, "saw")

	second := &models.Comment{Text: "second", ItemID: drill.ID, AuthorID: author.ID, Created: testNow}
	first := &models.Comment{Text: "first", ItemID: drill.ID, AuthorID: author.ID, Created: testNow.Add(-time.Hour)}
	other := &models.Comment{Text: "saw ok", ItemID: saw.ID, AuthorID: author.ID, Created: testNow}
	for _, c := range []*models.Comment{second, first, other} {
		require.NoError(t, db.CreateComment(ctx, c))
		assert.Equal(t, "author", c.AuthorName)
	}

	byItem, err := db.GetCommentsByItem(ctx, drill.ID)
	require.NoError(t, err)
	require.Len(t, byItem, 2)
	assert.Equal(t, "first", byItem[0].Text)
	assert.Equal(t, "second", byItem[1].Text)
	assert.Equal(t, "author", byItem[0].AuthorName)

	batch, err := db.GetCommentsByItems(ctx, []int64{drill.ID, saw.ID})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "first", batch[0].Text)
	assert.Equal(t, "second", batch[1].Text)
	assert.Equal(t, "saw ok", batch[2].Text)

	empty, err := db.GetCommentsByItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
