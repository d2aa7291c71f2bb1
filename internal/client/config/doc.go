// Package config loads runtime configuration for the filevault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-t int      request timeout (seconds)
//	-k int      chunk size (MiB)
//	-o string   download directory
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "60s",
//	  "chunk_size": 8388608,
//	  "download_dir": "downloads"
//	}
package config
