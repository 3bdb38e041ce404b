package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

// TagAdapter looks up persisted tags in Postgres
type TagAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTagAdapter creates a new tag adapter
func NewTagAdapter(client *postgres.Client) *TagAdapter {
	return &TagAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.TagRepository = (*TagAdapter)(nil)

// FindIDsByNames matches tag names exactly (case-sensitive)
func (a *TagAdapter) FindIDsByNames(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return []int64{}, nil
	}

	query, args, err := a.db.From("tags").
		Prepared(true).
		Select("id").
		Where(goqu.Ex{"name": names}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build tag lookup query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewCandidateStoreError("failed to look up tags", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewCandidateStoreError("failed to scan tag id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewCandidateStoreError("error iterating tags", err)
	}

	return ids, nil
}
