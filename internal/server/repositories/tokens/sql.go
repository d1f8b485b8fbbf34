package tokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Append(ctx context.Context, userID string, token models.Token) error {

	query :=
		`INSERT INTO user_tokens (user_id, access, token)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, token) DO NOTHING
		 `

	_, err := r.db.ExecContext(ctx, query, userID, token.Access, token.Token)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) Remove(ctx context.Context, userID string, token string) error {

	query :=
		`DELETE FROM user_tokens
		 WHERE user_id = $1 AND token = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]models.Token, error) {

	query :=
		`SELECT access, token FROM user_tokens
		 WHERE user_id = $1
		 ORDER BY seq
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Token, 0)
	for rows.Next() {
		var t models.Token
		if err := rows.Scan(&t.Access, &t.Token); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
