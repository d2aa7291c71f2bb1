package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/timex"
)

type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	ChunkSize          int64          `json:"chunk_size"`
	DownloadDir        string         `json:"download_dir"`
}

// parseJson overlays the JSON file named by -c/-config. Fields missing from
// the file keep their current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerEndpointAddr: cfg.ServerEndpointAddr,
		RequestTimeout:     timex.Duration{Duration: cfg.RequestTimeout},
		ChunkSize:          cfg.ChunkSize,
		DownloadDir:        cfg.DownloadDir,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.ChunkSize = jc.ChunkSize
	cfg.DownloadDir = jc.DownloadDir
}
