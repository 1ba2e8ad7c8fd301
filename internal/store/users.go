package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/01moynul/catering-golang/internal/orders"
)

const userColumns = `id, role, name, email, password_hash, phone_number, cashback_balance, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Role, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber,
		&u.CashbackBalance, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, orders.ErrUserNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// UserByEmail backs the login endpoint.
func (s *MySQLStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}
