package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
	runTx       txRunner
}

func NewFolderService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *FolderService {
	return &FolderService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "folders"),
		now:         nowUTC,
		runTx:       sqlTx(db),
	}
}

func (s *FolderService) checkParent(ctx context.Context, userID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if _, err := s.repomanager.Folders(s.db).Get(ctx, userID, *parentID); err != nil {
		return fmt.Errorf("parent folder %s: %w", *parentID, err)
	}
	return nil
}

func (s *FolderService) Create(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error) {
	if err := validateName("folder name", name); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, userID, parentID); err != nil {
		return nil, err
	}

	folder := &models.Folder{
		ID:       uuid.NewString(),
		UserID:   userID,
		Name:     name,
		ParentID: parentID,
	}
	if err := s.repomanager.Folders(s.db).Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("error creating folder: %w", err)
	}
	return folder, nil
}

// List returns the direct children of parentID, or the top level for nil.
func (s *FolderService) List(ctx context.Context, userID string, parentID *string) ([]*models.Folder, error) {
	if err := s.checkParent(ctx, userID, parentID); err != nil {
		return nil, err
	}
	folders, err := s.repomanager.Folders(s.db).List(ctx, userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("error listing folders: %w", err)
	}
	return folders, nil
}

func (s *FolderService) Rename(ctx context.Context, userID, folderID, name string) (*models.Folder, error) {
	if err := validateName("folder name", name); err != nil {
		return nil, err
	}
	repo := s.repomanager.Folders(s.db)
	folder, err := repo.Get(ctx, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("error loading folder: %w", err)
	}
	folder.Name = name
	if err := repo.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("error updating folder: %w", err)
	}
	return folder, nil
}

// Move reparents a folder. A folder can never become its own ancestor.
func (s *FolderService) Move(ctx context.Context, userID, folderID string, parentID *string) (*models.Folder, error) {
	repo := s.repomanager.Folders(s.db)
	folder, err := repo.Get(ctx, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("error loading folder: %w", err)
	}

	if parentID != nil {
		if err := s.checkParent(ctx, userID, parentID); err != nil {
			return nil, err
		}
		cycle, err := repo.InSubtree(ctx, userID, folderID, *parentID)
		if err != nil {
			return nil, fmt.Errorf("error checking folder tree: %w", err)
		}
		if cycle {
			return nil, common.ErrInvalidMove
		}
	}

	folder.ParentID = parentID
	if err := repo.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("error updating folder: %w", err)
	}
	return folder, nil
}

// Delete removes a folder with all its subfolders. Their files are moved to
// the trash at the root, so they keep the normal restore and purge path.
// It returns how many file rows were detached.
func (s *FolderService) Delete(ctx context.Context, userID, folderID string) (int64, error) {
	var trashed int64
	now := s.now()

	err := s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		folders := s.repomanager.Folders(tx)
		files := s.repomanager.Files(tx)

		ids, err := folders.Subtree(ctx, userID, folderID)
		if err != nil {
			return fmt.Errorf("error loading folder tree: %w", err)
		}
		if len(ids) == 0 {
			return common.ErrorNotFound
		}

		for _, id := range ids {
			n, err := files.TrashFolderFiles(ctx, userID, id, now)
			if err != nil {
				return fmt.Errorf("error trashing files of folder %s: %w", id, err)
			}
			trashed += n
		}

		if _, err := folders.DeleteTree(ctx, userID, folderID); err != nil {
			return fmt.Errorf("error deleting folders: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "folder deleted", "user_id", userID, "folder_id", folderID, "files_trashed", trashed)
	return trashed, nil
}
