package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestWhereClause(t *testing.T) {
	where, args := whereClause(orders.ListFilter{})
	require.Empty(t, where)
	require.Empty(t, args)

	userID := int64(100)
	pinned := true
	where, args = whereClause(orders.ListFilter{
		UserID:    &userID,
		Statuses:  []models.OrderStatus{models.StatusCreated, models.StatusProcessing},
		Pinned:    &pinned,
		EventDate: "2025-06-07",
	})
	require.Equal(t, " WHERE o.user_id = ? AND o.status IN (?, ?) AND o.is_pinned = ? AND o.event_date = ?", where)
	require.Equal(t, []any{int64(100), "dibuat", "diproses", true, "2025-06-07"}, args)
}

func TestIsDuplicateEntry(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'guest@catering.local' for key 'email'"}
	require.True(t, isDuplicateEntry(dup))
	require.True(t, isDuplicateEntry(fmt.Errorf("insert guest: %w", dup)))
	require.False(t, isDuplicateEntry(&mysql.MySQLError{Number: 1213}))
	require.False(t, isDuplicateEntry(errors.New("boom")))
}

func TestNullablePointers(t *testing.T) {
	require.Nil(t, nullInt64Ptr(sql.NullInt64{}))
	require.Equal(t, int64(7), *nullInt64Ptr(sql.NullInt64{Int64: 7, Valid: true}))
	require.Nil(t, nullStringPtr(sql.NullString{}))
	require.Equal(t, "Pedas", *nullStringPtr(sql.NullString{String: "Pedas", Valid: true}))
}
