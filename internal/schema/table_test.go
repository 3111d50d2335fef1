package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub/internal/models"
	"socialhub/internal/schema"
)

func TestCreateTableFromModel(t *testing.T) {
	table, err := schema.CreateTableFromModel(&models.Like{})
	require.NoError(t, err)

	assert.Equal(t, "likes", table.TableName())

	var names []string
	for _, col := range table.TableColumns() {
		names = append(names, col.ColumnName())
	}
	assert.ElementsMatch(t, []string{"id", "post_id", "user_id", "created_at"}, names)
}

func TestTableDependencies(t *testing.T) {
	tests := []struct {
		model interface{}
		deps  []string
	}{
		{&models.User{}, nil},
		{&models.Post{}, []string{"users"}},
		{&models.Comment{}, []string{"posts", "users"}},
		{&models.Follows{}, []string{"users"}},
		{&models.Notification{}, []string{"comments", "posts", "users"}},
	}

	for _, tt := range tests {
		table, err := schema.CreateTableFromModel(tt.model)
		require.NoError(t, err)
		assert.Equal(t, tt.deps, table.Dependencies(), table.TableName())
	}
}

func TestTableIndexes(t *testing.T) {
	table, err := schema.CreateTableFromModel(&models.Like{})
	require.NoError(t, err)

	var unique []string
	for _, idx := range table.Indexes() {
		if idx.Class == "UNIQUE" {
			unique = append(unique, idx.Name)
		}
	}
	assert.Contains(t, unique, "idx_likes_user_post")
}
