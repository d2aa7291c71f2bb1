package config

import "time"

// Config holds runtime settings for the filevault CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - RequestTimeout: deadline applied to every call.
//   - ChunkSize: files larger than this are sent with the chunked upload API,
//     in parts of this size. Parts other than the last must be at least 5 MiB.
//   - DownloadDir: directory downloaded files are written to.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	ChunkSize          int64
	DownloadDir        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 60 * time.Second
	c.ChunkSize = 8 << 20
	c.DownloadDir = "downloads"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
