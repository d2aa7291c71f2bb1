package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// RootFolderName is the path segment used for files stored outside any folder.
const RootFolderName = "root"
