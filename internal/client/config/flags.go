package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
)

func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-k", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	chunk := fs.Int64("k", cfg.ChunkSize>>20, "chunk size (in MiB)")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.ChunkSize = *chunk << 20
}
