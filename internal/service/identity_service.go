package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/qss-platform/resident-service/internal/auth"
	"github.com/qss-platform/resident-service/internal/config"
	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/repository"
	"github.com/qss-platform/resident-service/pkg/util"
)

// Identity is the resolved principal for an inbound telegram id.
type Identity struct {
	Role     domain.Role
	Owner    *domain.Owner
	Master   *domain.Master
	Admin    *domain.Admin
	Language string
}

// IdentityService resolves who a telegram id belongs to and handles owner
// enrollment plus dashboard credential login.
type IdentityService struct {
	owners  repository.OwnerRepository
	masters repository.MasterRepository
	admins  repository.AdminRepository
	tokens  *auth.TokenManager
	authCfg config.AuthConfig
	logger  *zap.Logger
}

func NewIdentityService(
	owners repository.OwnerRepository,
	masters repository.MasterRepository,
	admins repository.AdminRepository,
	tokens *auth.TokenManager,
	authCfg config.AuthConfig,
	logger *zap.Logger,
) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		owners:  owners,
		masters: masters,
		admins:  admins,
		tokens:  tokens,
		authCfg: authCfg,
		logger:  logger,
	}
}

// Resolve determines the role for a telegram id. Admin wins over master wins
// over owner, so an id present in several registries always acts under its
// highest role.
func (s *IdentityService) Resolve(ctx context.Context, telegramID int64) (*Identity, error) {
	admin, err := s.admins.GetByTelegramID(ctx, telegramID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, util.MapError(err)
	}
	if admin != nil {
		return &Identity{
			Role:     domain.RoleAdmin,
			Admin:    admin,
			Language: domain.NormalizeLanguage(admin.Language),
		}, nil
	}

	master, err := s.masters.GetByTelegramID(ctx, telegramID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, util.MapError(err)
	}
	if master != nil {
		return &Identity{
			Role:     domain.RoleMaster,
			Master:   master,
			Language: domain.NormalizeLanguage(master.Language),
		}, nil
	}

	owner, err := s.owners.GetByTelegramID(ctx, telegramID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, util.MapError(err)
	}
	if owner != nil {
		return &Identity{
			Role:     domain.RoleOwner,
			Owner:    owner,
			Language: domain.NormalizeLanguage(owner.Language),
		}, nil
	}

	return nil, util.NewNotFound("identity", map[string]any{"telegram_id": telegramID})
}

// EnrollOwner links a telegram id to a pre-registered owner record matched by
// phone. Only active owners can enroll.
func (s *IdentityService) EnrollOwner(ctx context.Context, telegramID int64, phone string) (*domain.Owner, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil, util.NewValidationError("phone required", nil)
	}

	owner, err := s.owners.GetByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("owner", map[string]any{"phone": normalized})
		}
		return nil, util.MapError(err)
	}

	if owner.TelegramID == nil || *owner.TelegramID != telegramID {
		if err := s.owners.LinkTelegramID(ctx, owner.ID, telegramID); err != nil {
			return nil, util.MapError(err)
		}
		owner.TelegramID = &telegramID
		s.logger.Info("owner enrolled",
			zap.Int64("owner_id", owner.ID),
			zap.Int64("telegram_id", telegramID))
	}
	return owner, nil
}

// SetLanguage stores the preferred language for an enrolled owner.
func (s *IdentityService) SetLanguage(ctx context.Context, telegramID int64, language string) error {
	owner, err := s.owners.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("owner", map[string]any{"telegram_id": telegramID})
		}
		return util.MapError(err)
	}
	return util.MapError(s.owners.SetLanguage(ctx, owner.ID, domain.NormalizeLanguage(language)))
}

// LoginResult is a successful dashboard login.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Login checks the configured dashboard credentials and issues a token.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username != s.authCfg.DashboardLogin || !auth.CheckPassword(password, s.authCfg.DashboardPasswordHash) {
		return nil, util.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokens.Issue(username, string(domain.RoleAdmin))
	if err != nil {
		return nil, util.MapError(err)
	}
	s.logger.Info("dashboard login", zap.String("user", username))
	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// NormalizePhone strips formatting and folds the local KZ trunk prefix: an
// 11-digit number starting with 8 becomes 7xxxxxxxxxx, so "8 (701) 234-56-78"
// and "+77012345678" match the same record.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) == 11 && normalized[0] == '8' {
		normalized = "7" + normalized[1:]
	}
	return normalized
}
