package sqlite

import (
	"context"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
)

type challengesRepo struct {
	q querier
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO challenges (id, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.AccountID, formatTime(c.ExpiresAt), formatTime(c.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *challengesRepo) GetChallenge(ctx context.Context, id string) (domain.Challenge, error) {
	var (
		c         domain.Challenge
		expiresAt string
		createdAt string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, account_id, expires_at, created_at FROM challenges
		WHERE id = ? AND expires_at > ?`,
		id, formatTime(time.Now()),
	).Scan(&c.ID, &c.AccountID, &expiresAt, &createdAt)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}

	if c.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return domain.Challenge{}, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Challenge{}, err
	}
	return c, nil
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
	return err
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= ?`,
		formatTime(time.Now()))
	return err
}
