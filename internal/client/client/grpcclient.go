package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// minChunkSize is the smallest part the object store accepts for any part
// but the last.
const minChunkSize = 5 << 20

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	timeout     time.Duration
	chunkSize   int64
	rangeSize   int64
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewFileVaultClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults.
func NewFileVaultClient(endpointURL string, timeout time.Duration, chunkSize int64, opts ...grpc.DialOption) (*GRPCClient, error) {
	chunkSize = min(max(chunkSize, minChunkSize), api.MaxDataSize)
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout, chunkSize: chunkSize, rangeSize: api.MaxDataSize}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(api.CodecName),
			grpc.MaxCallRecvMsgSize(api.MaxMessageSize),
			grpc.MaxCallSendMsgSize(api.MaxMessageSize),
		),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, method string, req, resp any) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.mapError(s.conn.Invoke(ctx, api.FullMethod(method), req, resp))
}

func (s *GRPCClient) Register(ctx context.Context, username string, password []byte) (string, error) {
	var resp api.RegisterResponse
	if err := s.call(ctx, api.MethodRegister, &api.RegisterRequest{Username: username, Password: string(password)}, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (s *GRPCClient) Login(ctx context.Context, username string, password []byte) error {
	var resp api.LoginResponse
	if err := s.call(ctx, api.MethodLogin, &api.LoginRequest{Username: username, Password: string(password)}, &resp); err != nil {
		return err
	}
	s.accessToken = resp.AccessToken
	return nil
}

func (s *GRPCClient) Logout() {
	s.accessToken = ""
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp api.PingResponse
	if err := s.call(ctx, api.MethodPing, &api.PingRequest{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

// Upload sends data in one call, or through the chunked API when it is
// larger than the configured chunk size.
func (s *GRPCClient) Upload(ctx context.Context, folderID *string, filename, contentType string, data []byte) (*api.FileInfo, error) {
	if int64(len(data)) > s.chunkSize {
		return s.uploadChunked(ctx, folderID, filename, contentType, data)
	}

	var resp api.FileResponse
	req := &api.UploadRequest{FolderID: folderID, Filename: filename, ContentType: contentType, Data: data}
	if err := s.call(ctx, api.MethodUpload, req, &resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) uploadChunked(ctx context.Context, folderID *string, filename, contentType string, data []byte) (f *api.FileInfo, err error) {
	var session api.InitiateUploadResponse
	err = s.call(ctx, api.MethodInitiateUpload, &api.InitiateUploadRequest{
		FolderID:    folderID,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, &session)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = s.call(context.WithoutCancel(ctx), api.MethodAbortUpload, &api.AbortUploadRequest{UploadID: session.UploadID}, &api.Empty{})
		}
	}()

	var parts []api.CompletedPart
	for n, off := int32(1), int64(0); off < int64(len(data)); n, off = n+1, off+s.chunkSize {
		end := min(off+s.chunkSize, int64(len(data)))

		var resp api.UploadChunkResponse
		req := &api.UploadChunkRequest{UploadID: session.UploadID, PartNumber: n, Data: data[off:end]}
		if err := s.call(ctx, api.MethodUploadChunk, req, &resp); err != nil {
			return nil, fmt.Errorf("part %d: %w", n, err)
		}
		parts = append(parts, api.CompletedPart{PartNumber: n, ETag: resp.ETag})
	}

	var resp api.FileResponse
	err = s.call(ctx, api.MethodCompleteUpload, &api.CompleteUploadRequest{
		UploadID:   session.UploadID,
		ObjectPath: session.ObjectPath,
		Parts:      parts,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.File, nil
}

// Download fetches a file in one call when it fits a single message and in
// consecutive ranges otherwise.
func (s *GRPCClient) Download(ctx context.Context, fileID string) (*api.FileInfo, []byte, error) {
	var meta api.FileResponse
	if err := s.call(ctx, api.MethodGetFile, &api.FileRequest{FileID: fileID}, &meta); err != nil {
		return nil, nil, err
	}
	if meta.File.Size > s.rangeSize {
		return s.downloadRanges(ctx, meta.File)
	}

	var resp api.DownloadResponse
	if err := s.call(ctx, api.MethodDownload, &api.FileRequest{FileID: fileID}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.File, resp.Data, nil
}

func (s *GRPCClient) downloadRanges(ctx context.Context, f *api.FileInfo) (*api.FileInfo, []byte, error) {
	data := make([]byte, 0, f.Size)
	for int64(len(data)) < f.Size {
		var resp api.DownloadRangeResponse
		req := &api.DownloadRangeRequest{FileID: f.ID, Offset: int64(len(data)), Length: s.rangeSize}
		if err := s.call(ctx, api.MethodDownloadRange, req, &resp); err != nil {
			return nil, nil, fmt.Errorf("range at %d: %w", req.Offset, err)
		}
		if len(resp.Data) == 0 {
			return nil, nil, fmt.Errorf("range at %d of %d: %w", req.Offset, f.Size, io.ErrUnexpectedEOF)
		}
		data = append(data, resp.Data...)
	}
	return f, data, nil
}

func (s *GRPCClient) ListFiles(ctx context.Context, folderID *string) ([]*api.FileInfo, error) {
	var resp api.FilesResponse
	if err := s.call(ctx, api.MethodListFiles, &api.ListFilesRequest{FolderID: folderID}, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (s *GRPCClient) ListTrash(ctx context.Context) ([]*api.FileInfo, error) {
	var resp api.FilesResponse
	if err := s.call(ctx, api.MethodListTrash, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (s *GRPCClient) Search(ctx context.Context, query api.SearchFilesRequest) ([]*api.FileInfo, error) {
	var resp api.FilesResponse
	if err := s.call(ctx, api.MethodSearchFiles, &query, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (s *GRPCClient) Usage(ctx context.Context) (*api.UsageResponse, error) {
	var resp api.UsageResponse
	if err := s.call(ctx, api.MethodGetUsage, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) Delete(ctx context.Context, fileID string) error {
	return s.call(ctx, api.MethodDeleteFile, &api.FileRequest{FileID: fileID}, &api.Empty{})
}

func (s *GRPCClient) Restore(ctx context.Context, fileID string) (*api.FileInfo, error) {
	var resp api.FileResponse
	if err := s.call(ctx, api.MethodRestoreFile, &api.FileRequest{FileID: fileID}, &resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) Move(ctx context.Context, fileID string, folderID *string) (*api.FileInfo, error) {
	var resp api.FileResponse
	if err := s.call(ctx, api.MethodMoveFile, &api.MoveFileRequest{FileID: fileID, FolderID: folderID}, &resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) Rename(ctx context.Context, fileID, filename string) (*api.FileInfo, error) {
	var resp api.FileResponse
	if err := s.call(ctx, api.MethodRenameFile, &api.RenameFileRequest{FileID: fileID, Filename: filename}, &resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) CleanupTrash(ctx context.Context) error {
	return s.call(ctx, api.MethodCleanupTrash, &api.Empty{}, &api.CleanupTrashResponse{})
}

func (s *GRPCClient) Settings(ctx context.Context) (*api.SettingsResponse, error) {
	var resp api.SettingsResponse
	if err := s.call(ctx, api.MethodGetSettings, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) UpdateSettings(ctx context.Context, storageLimit int64) (*api.SettingsResponse, error) {
	var resp api.SettingsResponse
	if err := s.call(ctx, api.MethodUpdateSettings, &api.UpdateSettingsRequest{StorageLimit: storageLimit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) CreateFolder(ctx context.Context, name string, parentID *string) (*api.FolderInfo, error) {
	var resp api.FolderResponse
	if err := s.call(ctx, api.MethodCreateFolder, &api.CreateFolderRequest{Name: name, ParentID: parentID}, &resp); err != nil {
		return nil, err
	}
	return resp.Folder, nil
}

func (s *GRPCClient) ListFolders(ctx context.Context, parentID *string) ([]*api.FolderInfo, error) {
	var resp api.FoldersResponse
	if err := s.call(ctx, api.MethodListFolders, &api.ListFoldersRequest{ParentID: parentID}, &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

func (s *GRPCClient) DeleteFolder(ctx context.Context, folderID string) (int64, error) {
	var resp api.DeleteFolderResponse
	if err := s.call(ctx, api.MethodDeleteFolder, &api.DeleteFolderRequest{FolderID: folderID}, &resp); err != nil {
		return 0, err
	}
	return resp.TrashedFiles, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, st.Message())
	case codes.FailedPrecondition, codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
