package grpc

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/api"
	"google.golang.org/grpc"
)

// fileVaultServer is the handler type checked by RegisterService.
type fileVaultServer interface {
	Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error)
}

// unary adapts a typed handler to grpc's MethodHandler, running the chained
// interceptors the same way generated code does.
func unary[Req, Resp any](method string, call func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return call(s, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*fileVaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodRegister, (*GRPCServer).Register),
		unary(api.MethodLogin, (*GRPCServer).Login),
		unary(api.MethodPing, (*GRPCServer).Ping),
		unary(api.MethodUpload, (*GRPCServer).Upload),
		unary(api.MethodDownload, (*GRPCServer).Download),
		unary(api.MethodDownloadRange, (*GRPCServer).DownloadRange),
		unary(api.MethodGetFile, (*GRPCServer).GetFile),
		unary(api.MethodListFiles, (*GRPCServer).ListFiles),
		unary(api.MethodListTrash, (*GRPCServer).ListTrash),
		unary(api.MethodSearchFiles, (*GRPCServer).SearchFiles),
		unary(api.MethodFileStats, (*GRPCServer).FileStats),
		unary(api.MethodGetUsage, (*GRPCServer).GetUsage),
		unary(api.MethodDeleteFile, (*GRPCServer).DeleteFile),
		unary(api.MethodRestoreFile, (*GRPCServer).RestoreFile),
		unary(api.MethodMoveFile, (*GRPCServer).MoveFile),
		unary(api.MethodRenameFile, (*GRPCServer).RenameFile),
		unary(api.MethodCleanupTrash, (*GRPCServer).CleanupTrash),
		unary(api.MethodInitiateUpload, (*GRPCServer).InitiateUpload),
		unary(api.MethodUploadChunk, (*GRPCServer).UploadChunk),
		unary(api.MethodCompleteUpload, (*GRPCServer).CompleteUpload),
		unary(api.MethodAbortUpload, (*GRPCServer).AbortUpload),
		unary(api.MethodCreateFolder, (*GRPCServer).CreateFolder),
		unary(api.MethodListFolders, (*GRPCServer).ListFolders),
		unary(api.MethodRenameFolder, (*GRPCServer).RenameFolder),
		unary(api.MethodMoveFolder, (*GRPCServer).MoveFolder),
		unary(api.MethodDeleteFolder, (*GRPCServer).DeleteFolder),
		unary(api.MethodGetSettings, (*GRPCServer).GetSettings),
		unary(api.MethodUpdateSettings, (*GRPCServer).UpdateSettings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "filevault/v1/filevault",
}
