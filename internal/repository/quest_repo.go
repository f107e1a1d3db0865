package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestRepo reads the quests table written by the catalog seeding job.
type QuestRepo struct {
	pool *pgxpool.Pool
}

func NewQuestRepo(pool *pgxpool.Pool) *QuestRepo {
	return &QuestRepo{pool: pool}
}

func (r *QuestRepo) ListTexts(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT text FROM quests WHERE text IS NOT NULL ORDER BY text")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
