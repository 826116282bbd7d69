package database

import (
	"context"

	"github.com/google/uuid"
)

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, `
		SELECT id, branch_id, full_name, email, password_hash, role, created_at
		FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.BranchID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, `
		SELECT id, branch_id, full_name, email, password_hash, role, created_at
		FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.BranchID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}
