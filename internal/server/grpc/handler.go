package grpc

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request")

	user, err := s.users.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.statusError(ctx, "register", err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username, "user_id", user.ID)
	return &api.RegisterResponse{UserID: user.ID}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	token, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.statusError(ctx, "login", err)
	}
	return &api.LoginResponse{AccessToken: token}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Upload(ctx context.Context, req *api.UploadRequest) (*api.FileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.files.Upload(ctx, services.UploadInput{
		UserID:      userID,
		FolderID:    req.FolderID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Data:        req.Data,
	})
	if err != nil {
		return nil, s.statusError(ctx, "upload", err)
	}
	return &api.FileResponse{File: fileInfo(f)}, nil
}

func (s *GRPCServer) Download(ctx context.Context, req *api.FileRequest) (*api.DownloadResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, data, err := s.files.Download(ctx, userID, req.FileID)
	if err != nil {
		return nil, s.statusError(ctx, "download", err)
	}
	return &api.DownloadResponse{File: fileInfo(f), Data: data}, nil
}

func (s *GRPCServer) DownloadRange(ctx context.Context, req *api.DownloadRangeRequest) (*api.DownloadRangeResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, data, err := s.files.DownloadRange(ctx, userID, req.FileID, req.Offset, min(req.Length, api.MaxDataSize))
	if err != nil {
		return nil, s.statusError(ctx, "download range", err)
	}
	return &api.DownloadRangeResponse{File: fileInfo(f), Data: data}, nil
}

func (s *GRPCServer) GetFile(ctx context.Context, req *api.FileRequest) (*api.FileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.files.GetFile(ctx, userID, req.FileID)
	if err != nil {
		return nil, s.statusError(ctx, "get file", err)
	}
	return &api.FileResponse{File: fileInfo(f)}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, req *api.ListFilesRequest) (*api.FilesResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	files, err := s.files.ListFiles(ctx, userID, req.FolderID)
	if err != nil {
		return nil, s.statusError(ctx, "list files", err)
	}
	return &api.FilesResponse{Files: fileInfos(files)}, nil
}

func (s *GRPCServer) ListTrash(ctx context.Context, _ *api.Empty) (*api.FilesResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	files, err := s.files.ListTrash(ctx, userID)
	if err != nil {
		return nil, s.statusError(ctx, "list trash", err)
	}
	return &api.FilesResponse{Files: fileInfos(files)}, nil
}

func (s *GRPCServer) SearchFiles(ctx context.Context, req *api.SearchFilesRequest) (*api.FilesResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	files, err := s.files.Search(ctx, userID, models.FileFilter{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		return nil, s.statusError(ctx, "search files", err)
	}
	return &api.FilesResponse{Files: fileInfos(files)}, nil
}

func (s *GRPCServer) FileStats(ctx context.Context, _ *api.Empty) (*api.FileStatsResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.files.Stats(ctx, userID)
	if err != nil {
		return nil, s.statusError(ctx, "file stats", err)
	}
	return &api.FileStatsResponse{
		TotalFiles: stats.TotalFiles,
		TotalSize:  stats.TotalSize,
		TopFiles:   fileInfos(stats.TopFiles),
	}, nil
}

func (s *GRPCServer) GetUsage(ctx context.Context, _ *api.Empty) (*api.UsageResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	u, err := s.files.Usage(ctx, userID)
	if err != nil {
		return nil, s.statusError(ctx, "usage", err)
	}
	return &api.UsageResponse{Used: u.Used, Limit: u.Limit, Available: u.Available()}, nil
}

func (s *GRPCServer) DeleteFile(ctx context.Context, req *api.FileRequest) (*api.Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.Delete(ctx, userID, req.FileID); err != nil {
		return nil, s.statusError(ctx, "delete file", err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) RestoreFile(ctx context.Context, req *api.FileRequest) (*api.FileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.files.Restore(ctx, userID, req.FileID)
	if err != nil {
		return nil, s.statusError(ctx, "restore file", err)
	}
	return &api.FileResponse{File: fileInfo(f)}, nil
}

func (s *GRPCServer) MoveFile(ctx context.Context, req *api.MoveFileRequest) (*api.FileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.files.Move(ctx, userID, req.FileID, req.FolderID)
	if err != nil {
		return nil, s.statusError(ctx, "move file", err)
	}
	return &api.FileResponse{File: fileInfo(f)}, nil
}

func (s *GRPCServer) RenameFile(ctx context.Context, req *api.RenameFileRequest) (*api.FileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.files.Rename(ctx, userID, req.FileID, req.Filename)
	if err != nil {
		return nil, s.statusError(ctx, "rename file", err)
	}
	return &api.FileResponse{File: fileInfo(f)}, nil
}

// CleanupTrash schedules a purge of the caller's expired trash and returns
// without waiting for it.
func (s *GRPCServer) CleanupTrash(ctx context.Context, _ *api.Empty) (*api.CleanupTrashResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if s.trash == nil {
		return nil, status.Error(codes.Unavailable, "trash cleanup is not running")
	}

	if !s.trash.CleanupUser(userID) {
		return nil, status.Error(codes.Unavailable, "server is shutting down")
	}
	return &api.CleanupTrashResponse{Status: "scheduled"}, nil
}

func (s *GRPCServer) InitiateUpload(ctx context.Context, req *api.InitiateUploadRequest) (*api.InitiateUploadResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.files.InitiateUpload(ctx, services.InitiateInput{
		UserID:      userID,
		FolderID:    req.FolderID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		return nil, s.statusError(ctx, "initiate upload", err)
	}
	return &api.InitiateUploadResponse{
		UploadID:   session.UploadID,
		ObjectPath: session.ObjectPath,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

func (s *GRPCServer) UploadChunk(ctx context.Context, req *api.UploadChunkRequest) (*api.UploadChunkResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	etag, err := s.files.UploadChunk(ctx, userID, req.UploadID, req.PartNumber, req.Data)
	if err != nil {
		return nil, s.statusError(ctx, "upload chunk", err)
	}
	return &api.UploadChunkResponse{ETag: etag}, nil
}

func (s *GRPCServer) CompleteUpload(ctx context.Context, req *api.CompleteUploadRequest) (*api.FileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	parts := make([]blobstore.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, blobstore.Part{Number: p.PartNumber, ETag: p.ETag})
	}

	f, err := s.files.CompleteUpload(ctx, userID, req.UploadID, req.ObjectPath, parts)
	if err != nil {
		return nil, s.statusError(ctx, "complete upload", err)
	}
	return &api.FileResponse{File: fileInfo(f)}, nil
}

func (s *GRPCServer) AbortUpload(ctx context.Context, req *api.AbortUploadRequest) (*api.Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.AbortUpload(ctx, userID, req.UploadID); err != nil {
		return nil, s.statusError(ctx, "abort upload", err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) CreateFolder(ctx context.Context, req *api.CreateFolderRequest) (*api.FolderResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.folders.Create(ctx, userID, req.Name, req.ParentID)
	if err != nil {
		return nil, s.statusError(ctx, "create folder", err)
	}
	return &api.FolderResponse{Folder: folderInfo(f)}, nil
}

func (s *GRPCServer) ListFolders(ctx context.Context, req *api.ListFoldersRequest) (*api.FoldersResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	folders, err := s.folders.List(ctx, userID, req.ParentID)
	if err != nil {
		return nil, s.statusError(ctx, "list folders", err)
	}
	out := make([]*api.FolderInfo, 0, len(folders))
	for _, f := range folders {
		out = append(out, folderInfo(f))
	}
	return &api.FoldersResponse{Folders: out}, nil
}

func (s *GRPCServer) RenameFolder(ctx context.Context, req *api.RenameFolderRequest) (*api.FolderResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.folders.Rename(ctx, userID, req.FolderID, req.Name)
	if err != nil {
		return nil, s.statusError(ctx, "rename folder", err)
	}
	return &api.FolderResponse{Folder: folderInfo(f)}, nil
}

func (s *GRPCServer) MoveFolder(ctx context.Context, req *api.MoveFolderRequest) (*api.FolderResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.folders.Move(ctx, userID, req.FolderID, req.ParentID)
	if err != nil {
		return nil, s.statusError(ctx, "move folder", err)
	}
	return &api.FolderResponse{Folder: folderInfo(f)}, nil
}

func (s *GRPCServer) DeleteFolder(ctx context.Context, req *api.DeleteFolderRequest) (*api.DeleteFolderResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.folders.Delete(ctx, userID, req.FolderID)
	if err != nil {
		return nil, s.statusError(ctx, "delete folder", err)
	}
	return &api.DeleteFolderResponse{TrashedFiles: n}, nil
}

func (s *GRPCServer) GetSettings(ctx context.Context, _ *api.Empty) (*api.SettingsResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.users.GetSettings(ctx, userID)
	if err != nil {
		return nil, s.statusError(ctx, "get settings", err)
	}
	return &api.SettingsResponse{StorageLimit: st.StorageLimit}, nil
}

func (s *GRPCServer) UpdateSettings(ctx context.Context, req *api.UpdateSettingsRequest) (*api.SettingsResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.users.UpdateSettings(ctx, userID, req.StorageLimit)
	if err != nil {
		return nil, s.statusError(ctx, "update settings", err)
	}
	return &api.SettingsResponse{StorageLimit: st.StorageLimit}, nil
}
