package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-m string     metrics bind address (empty disables)
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t int        access token validity, minutes
//	-k string     blob backend (s3, minio, memory)
//	-u string     S3 access key
//	-p string     S3 secret key
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-v string     clamd address
//	-x string     antivirus mode (clamd, off)
//	-w duration   trash retention
//	-q int        default storage limit, bytes
//	-l string     log format (json, zap)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-d", "-s", "-t", "-k", "-u", "-p", "-b", "-g", "-e", "-v", "-x", "-w", "-q", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port to serve metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend: s3, minio or memory")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.ClamdAddr, "v", config.ClamdAddr, "clamd address")
	fs.StringVar(&config.AntivirusMode, "x", config.AntivirusMode, "antivirus mode: clamd or off")
	fs.DurationVar(&config.TrashRetention, "w", config.TrashRetention, "trash retention")
	fs.Int64Var(&config.DefaultStorageLimit, "q", config.DefaultStorageLimit, "default storage limit (bytes)")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format: json or zap")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
