package services

import (
	"context"
	"fmt"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

// AccessService answers capability checks for engine operations. Permissions
// are a closed enumeration; a missing capability row denies everything.
type AccessService struct {
	storage *storage.SQLiteRepository
}

func NewAccessService(storage *storage.SQLiteRepository) *AccessService {
	return &AccessService{storage: storage}
}

// Can reports whether a staff member holds a permission.
func (s *AccessService) Can(ctx context.Context, userID int64, p core.Permission) (bool, error) {
	ac, err := s.storage.GetAccessControl(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("access check: %w", err)
	}
	return ac.Has(p), nil
}

// Grant replaces a staff member's capability row.
func (s *AccessService) Grant(ctx context.Context, ac core.AccessControl) error {
	if err := s.storage.SetAccessControl(ctx, ac); err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	return nil
}
