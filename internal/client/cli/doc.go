// Package cli provides the interactive filevault command-line client.
//
// It wires configuration, the gRPC client and a REPL. Typical flow: log in,
// navigate folders with ls and cd, then upload, download or trash files.
// Downloads land in the configured download directory and never overwrite
// an existing file.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
