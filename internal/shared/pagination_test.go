package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 21, TotalPages: 3}, NewPagination(2, 10, 21))
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Total: 0, TotalPages: 0}, NewPagination(0, 0, 0))
}

func TestListFiltersNormalize(t *testing.T) {
	f := ListFilters{Limit: 500}.Normalize()
	assert.Equal(t, DefaultPage, f.Page)
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, SortDesc, f.SortOrder)
	assert.Equal(t, 0, f.Offset())
	assert.Equal(t, 20, ListFilters{Page: 3, Limit: 10}.Offset())
}

func TestOrderClause(t *testing.T) {
	columns := map[string]string{"name": "p.name", "createdAt": "p.created_at"}

	clause, err := ListFilters{}.Normalize().OrderClause(columns, "p.created_at")
	require.NoError(t, err)
	assert.Equal(t, "p.created_at DESC", clause)

	clause, err = ListFilters{SortBy: "name", SortOrder: SortAsc}.OrderClause(columns, "p.created_at")
	require.NoError(t, err)
	assert.Equal(t, "p.name ASC", clause)

	_, err = ListFilters{SortBy: "password"}.OrderClause(columns, "p.created_at")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "createdAt name")
}
