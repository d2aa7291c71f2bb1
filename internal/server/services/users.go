package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	logger                      logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	defaultStorageLimit         int64
	runTx                       txRunner
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		logger:                      logger.With("module", "users"),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		defaultStorageLimit:         cfg.DefaultStorageLimit,
		runTx:                       sqlTx(db),
	}
}

// Register creates the user together with its settings row, so uploads
// never meet a user without a storage limit.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", common.ErrInvalidArgument)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     username,
		PasswordHash: cryptox.HashPassword(password),
	}

	err := s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		user = created

		settings := &models.Settings{UserID: user.ID, StorageLimit: s.defaultStorageLimit}
		if err := s.repomanager.Settings(tx).Create(ctx, settings); err != nil {
			return fmt.Errorf("error creating user settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login returns a signed access token. Unknown users and wrong passwords
// are indistinguishable.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

func (s *UserService) GetSettings(ctx context.Context, userID string) (*models.Settings, error) {
	return s.repomanager.Settings(s.db).Get(ctx, userID)
}

// UpdateSettings changes the storage limit. Files already stored are kept
// when the new limit is below current usage; only later uploads are refused.
func (s *UserService) UpdateSettings(ctx context.Context, userID string, storageLimit int64) (*models.Settings, error) {
	if storageLimit < 0 {
		return nil, fmt.Errorf("storage limit must not be negative: %w", common.ErrInvalidArgument)
	}

	settings := &models.Settings{UserID: userID, StorageLimit: storageLimit}
	if err := s.repomanager.Settings(s.db).Update(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "storage limit updated", "user_id", userID, "storage_limit", storageLimit)
	return settings, nil
}
