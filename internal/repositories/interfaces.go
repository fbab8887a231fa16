package repositories

import (
	"context"

	"github.com/chrisdamba/cleanbotsim/internal/models"
)

type RunRepository interface {
	Create(ctx context.Context, run *models.RunSummary) error
	GetAll(ctx context.Context) ([]*models.RunSummary, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}
