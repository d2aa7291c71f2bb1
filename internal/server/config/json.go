package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// It is seeded from the current Config before unmarshalling, so keys absent
// from the file keep their previous values.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	MetricsAddr                 string         `json:"metrics_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`

	BlobBackend    string `json:"blob_backend"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	MinioEndpoint  string `json:"minio_endpoint"`
	MinioSecure    bool   `json:"minio_secure"`

	ClamdAddr          string         `json:"clamd_addr"`
	AntivirusMode      string         `json:"antivirus_mode"`
	ScanTimeout        timex.Duration `json:"scan_timeout"`
	ScanRetries        int            `json:"scan_retries"`
	ScanRetryDelay     timex.Duration `json:"scan_retry_delay"`
	ScanRescanInterval timex.Duration `json:"scan_rescan_interval"`

	TrashRetention       timex.Duration `json:"trash_retention"`
	ReaperInterval       timex.Duration `json:"reaper_interval"`
	UploadSessionTTL     timex.Duration `json:"upload_session_ttl"`
	SessionSweepInterval timex.Duration `json:"session_sweep_interval"`

	DefaultStorageLimit int64  `json:"default_storage_limit"`
	LogFormat           string `json:"log_format"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:            c.EndpointAddrGRPC,
		MetricsAddr:                 c.MetricsAddr,
		DatabaseDSN:                 c.DatabaseDSN,
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		BlobBackend:                 c.BlobBackend,
		S3AccessKey:                 c.S3AccessKey,
		S3SecretKey:                 c.S3SecretKey,
		S3Bucket:                    c.S3Bucket,
		S3Region:                    c.S3Region,
		S3BaseEndpoint:              c.S3BaseEndpoint,
		MinioEndpoint:               c.MinioEndpoint,
		MinioSecure:                 c.MinioSecure,
		ClamdAddr:                   c.ClamdAddr,
		AntivirusMode:               c.AntivirusMode,
		ScanTimeout:                 timex.Duration{Duration: c.ScanTimeout},
		ScanRetries:                 c.ScanRetries,
		ScanRetryDelay:              timex.Duration{Duration: c.ScanRetryDelay},
		ScanRescanInterval:          timex.Duration{Duration: c.ScanRescanInterval},
		TrashRetention:              timex.Duration{Duration: c.TrashRetention},
		ReaperInterval:              timex.Duration{Duration: c.ReaperInterval},
		UploadSessionTTL:            timex.Duration{Duration: c.UploadSessionTTL},
		SessionSweepInterval:        timex.Duration{Duration: c.SessionSweepInterval},
		DefaultStorageLimit:         c.DefaultStorageLimit,
		LogFormat:                   c.LogFormat,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.MetricsAddr = j.MetricsAddr
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.BlobBackend = j.BlobBackend
	c.S3AccessKey = j.S3AccessKey
	c.S3SecretKey = j.S3SecretKey
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.MinioEndpoint = j.MinioEndpoint
	c.MinioSecure = j.MinioSecure
	c.ClamdAddr = j.ClamdAddr
	c.AntivirusMode = j.AntivirusMode
	c.ScanTimeout = j.ScanTimeout.Duration
	c.ScanRetries = j.ScanRetries
	c.ScanRetryDelay = j.ScanRetryDelay.Duration
	c.ScanRescanInterval = j.ScanRescanInterval.Duration
	c.TrashRetention = j.TrashRetention.Duration
	c.ReaperInterval = j.ReaperInterval.Duration
	c.UploadSessionTTL = j.UploadSessionTTL.Duration
	c.SessionSweepInterval = j.SessionSweepInterval.Duration
	c.DefaultStorageLimit = j.DefaultStorageLimit
	c.LogFormat = j.LogFormat
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config flag; without
// it nothing is loaded. Unreadable files and invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}
