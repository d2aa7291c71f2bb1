// Package api holds the wire contract of the FileVault gRPC service: method
// names, JSON message types and the codec that carries them.
package api

// MaxMessageSize bounds a single request or response. Single-shot uploads
// larger than this go through the chunked API.
const MaxMessageSize = 64 << 20

// MaxDataSize bounds the file bytes one message carries. JSON base64 grows
// them by a third, so this stays well under MaxMessageSize. Larger files are
// downloaded with DownloadRange.
const MaxDataSize = 32 << 20

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "filevault.v1.FileVault"

const (
	MethodRegister       = "Register"
	MethodLogin          = "Login"
	MethodPing           = "Ping"
	MethodUpload         = "Upload"
	MethodDownload       = "Download"
	MethodDownloadRange  = "DownloadRange"
	MethodGetFile        = "GetFile"
	MethodListFiles      = "ListFiles"
	MethodListTrash      = "ListTrash"
	MethodSearchFiles    = "SearchFiles"
	MethodFileStats      = "FileStats"
	MethodGetUsage       = "GetUsage"
	MethodDeleteFile     = "DeleteFile"
	MethodRestoreFile    = "RestoreFile"
	MethodMoveFile       = "MoveFile"
	MethodRenameFile     = "RenameFile"
	MethodCleanupTrash   = "CleanupTrash"
	MethodInitiateUpload = "InitiateUpload"
	MethodUploadChunk    = "UploadChunk"
	MethodCompleteUpload = "CompleteUpload"
	MethodAbortUpload    = "AbortUpload"
	MethodCreateFolder   = "CreateFolder"
	MethodListFolders    = "ListFolders"
	MethodRenameFolder   = "RenameFolder"
	MethodMoveFolder     = "MoveFolder"
	MethodDeleteFolder   = "DeleteFolder"
	MethodGetSettings    = "GetSettings"
	MethodUpdateSettings = "UpdateSettings"
)

// FullMethod returns the wire name of a FileVault method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}
