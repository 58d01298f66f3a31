package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/repository"
	"github.com/qss-platform/resident-service/pkg/util"
)

// DirectoryService manages the owner and master registries behind the
// dashboard CRUD surface.
type DirectoryService struct {
	owners  repository.OwnerRepository
	masters repository.MasterRepository
	logger  *zap.Logger
}

func NewDirectoryService(owners repository.OwnerRepository, masters repository.MasterRepository, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{owners: owners, masters: masters, logger: logger}
}

// CreateOwner registers an owner record. The phone is normalized before
// storage so enrollment lookups match regardless of input formatting.
func (s *DirectoryService) CreateOwner(ctx context.Context, owner *domain.Owner) error {
	owner.Phone = NormalizePhone(owner.Phone)
	if owner.Phone == "" {
		return util.NewValidationError("phone required", nil)
	}
	if owner.FullName == "" {
		return util.NewValidationError("full name required", nil)
	}
	if owner.ResidentialComplex == "" {
		return util.NewValidationError("residential complex required", nil)
	}
	owner.IsActive = true
	owner.Language = domain.NormalizeLanguage(owner.Language)

	if existing, err := s.owners.GetByPhone(ctx, owner.Phone); err == nil && existing != nil {
		return util.NewConflict("owner with this phone already exists",
			map[string]any{"phone": owner.Phone})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return util.MapError(err)
	}

	if err := s.owners.Create(ctx, owner); err != nil {
		return util.MapError(err)
	}
	s.logger.Info("owner registered", zap.Int64("owner_id", owner.ID), zap.String("phone", owner.Phone))
	return nil
}

// UpdateOwner updates an existing owner record.
func (s *DirectoryService) UpdateOwner(ctx context.Context, owner *domain.Owner) error {
	owner.Phone = NormalizePhone(owner.Phone)
	owner.Language = domain.NormalizeLanguage(owner.Language)
	if err := s.owners.Update(ctx, owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("owner", map[string]any{"owner_id": owner.ID})
		}
		return util.MapError(err)
	}
	return nil
}

// GetOwner fetches one owner.
func (s *DirectoryService) GetOwner(ctx context.Context, id int64) (*domain.Owner, error) {
	owner, err := s.owners.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("owner", map[string]any{"owner_id": id})
		}
		return nil, util.MapError(err)
	}
	return owner, nil
}

// ListOwners pages through the owner registry.
func (s *DirectoryService) ListOwners(ctx context.Context, page, perPage int) ([]domain.Owner, int, error) {
	total, err := s.owners.Count(ctx)
	if err != nil {
		return nil, 0, util.MapError(err)
	}
	offset, limit, _ := util.Paginate(total, page, perPage)
	owners, err := s.owners.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, util.MapError(err)
	}
	return owners, total, nil
}

// DeactivateOwner soft-deletes an owner; their tickets stay intact.
func (s *DirectoryService) DeactivateOwner(ctx context.Context, id int64) error {
	if err := s.owners.Deactivate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("owner", map[string]any{"owner_id": id})
		}
		return util.MapError(err)
	}
	return nil
}

// CreateMaster registers a master.
func (s *DirectoryService) CreateMaster(ctx context.Context, master *domain.Master) error {
	if master.TelegramID == 0 {
		return util.NewValidationError("telegram id required", nil)
	}
	if master.FullName == "" {
		return util.NewValidationError("full name required", nil)
	}
	master.IsActive = true
	master.Language = domain.NormalizeLanguage(master.Language)

	if existing, err := s.masters.GetByTelegramID(ctx, master.TelegramID); err == nil && existing != nil {
		return util.NewConflict("master with this telegram id already exists",
			map[string]any{"telegram_id": master.TelegramID})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return util.MapError(err)
	}

	if err := s.masters.Create(ctx, master); err != nil {
		return util.MapError(err)
	}
	s.logger.Info("master registered", zap.Int64("master_id", master.ID), zap.Int64("telegram_id", master.TelegramID))
	return nil
}

// UpdateMaster updates an existing master record.
func (s *DirectoryService) UpdateMaster(ctx context.Context, master *domain.Master) error {
	master.Language = domain.NormalizeLanguage(master.Language)
	if err := s.masters.Update(ctx, master); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("master", map[string]any{"master_id": master.ID})
		}
		return util.MapError(err)
	}
	return nil
}

// GetMaster fetches one master.
func (s *DirectoryService) GetMaster(ctx context.Context, id int64) (*domain.Master, error) {
	master, err := s.masters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("master", map[string]any{"master_id": id})
		}
		return nil, util.MapError(err)
	}
	return master, nil
}

// ListMasters pages through the master registry.
func (s *DirectoryService) ListMasters(ctx context.Context, page, perPage int) ([]domain.Master, int, error) {
	total, err := s.masters.Count(ctx)
	if err != nil {
		return nil, 0, util.MapError(err)
	}
	offset, limit, _ := util.Paginate(total, page, perPage)
	masters, err := s.masters.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, util.MapError(err)
	}
	return masters, total, nil
}

// ListActiveMasters returns every active master, for reassignment pickers.
func (s *DirectoryService) ListActiveMasters(ctx context.Context) ([]domain.Master, error) {
	masters, err := s.masters.ListActive(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return masters, nil
}

// DeactivateMaster soft-deletes a master.
func (s *DirectoryService) DeactivateMaster(ctx context.Context, id int64) error {
	if err := s.masters.Deactivate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("master", map[string]any{"master_id": id})
		}
		return util.MapError(err)
	}
	return nil
}
