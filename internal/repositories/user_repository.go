package repositories

import (
	"context"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// UserRepository interface for user operations (identity is owned by Casdoor)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
