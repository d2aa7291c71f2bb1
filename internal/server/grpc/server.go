// Package grpc exposes the filevault services over gRPC. Messages are JSON
// encoded (content subtype "json"); the standard health service is
// registered next to FileVault.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID string, storageLimit int64) (*models.Settings, error)
}

type FileService interface {
	Upload(ctx context.Context, in services.UploadInput) (*models.File, error)
	Download(ctx context.Context, userID, fileID string) (*models.File, []byte, error)
	DownloadRange(ctx context.Context, userID, fileID string, offset, length int64) (*models.File, []byte, error)
	GetFile(ctx context.Context, userID, fileID string) (*models.File, error)
	ListFiles(ctx context.Context, userID string, folderID *string) ([]*models.File, error)
	ListTrash(ctx context.Context, userID string) ([]*models.File, error)
	Search(ctx context.Context, userID string, filter models.FileFilter) ([]*models.File, error)
	Stats(ctx context.Context, userID string) (*models.FileStats, error)
	Usage(ctx context.Context, userID string) (services.Usage, error)

	Delete(ctx context.Context, userID, fileID string) error
	Restore(ctx context.Context, userID, fileID string) (*models.File, error)
	Move(ctx context.Context, userID, fileID string, folderID *string) (*models.File, error)
	Rename(ctx context.Context, userID, fileID, filename string) (*models.File, error)

	InitiateUpload(ctx context.Context, in services.InitiateInput) (*models.UploadSession, error)
	UploadChunk(ctx context.Context, userID, uploadID string, partNumber int32, data []byte) (string, error)
	CompleteUpload(ctx context.Context, userID, uploadID, objectPath string, parts []blobstore.Part) (*models.File, error)
	AbortUpload(ctx context.Context, userID, uploadID string) error
}

type FolderService interface {
	Create(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error)
	List(ctx context.Context, userID string, parentID *string) ([]*models.Folder, error)
	Rename(ctx context.Context, userID, folderID, name string) (*models.Folder, error)
	Move(ctx context.Context, userID, folderID string, parentID *string) (*models.Folder, error)
	Delete(ctx context.Context, userID, folderID string) (int64, error)
}

// TrashCleaner schedules an expired-trash purge for one user. It returns
// false when no more work is accepted.
type TrashCleaner interface {
	CleanupUser(userID string) bool
}

type GRPCServer struct {
	address   string
	users     UserService
	files     FileService
	folders   FolderService
	trash     TrashCleaner
	logger    logging.Logger
	jwtSecret []byte
	health    *health.Server
}

func NewGRPCServer(a string, l logging.Logger, us UserService, fs FileService, fos FolderService, tc TrashCleaner, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		files:     fs,
		folders:   fos,
		trash:     tc,
		jwtSecret: []byte(secretKey),
		health:    health.NewServer(),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.MaxRecvMsgSize(api.MaxMessageSize),
		grpc.MaxSendMsgSize(api.MaxMessageSize),
	)

	srv.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then drains in-flight calls.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
