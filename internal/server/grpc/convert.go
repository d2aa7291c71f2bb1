package grpc

import (
	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

func fileInfo(f *models.File) *api.FileInfo {
	if f == nil {
		return nil
	}
	return &api.FileInfo{
		ID:          f.ID,
		FolderID:    f.FolderID,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		IsDeleted:   f.IsDeleted,
		DeletedAt:   f.DeletedAt,
		IsInfected:  f.IsInfected,
		UploadedAt:  f.UploadedAt,
	}
}

func fileInfos(files []*models.File) []*api.FileInfo {
	out := make([]*api.FileInfo, 0, len(files))
	for _, f := range files {
		out = append(out, fileInfo(f))
	}
	return out
}

func folderInfo(f *models.Folder) *api.FolderInfo {
	if f == nil {
		return nil
	}
	return &api.FolderInfo{ID: f.ID, Name: f.Name, ParentID: f.ParentID, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
}
