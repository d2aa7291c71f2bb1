package config

import (
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment overlay, e.g. FILEVAULT_DATABASE_DSN.
const EnvPrefix = "FILEVAULT"

// parseEnv overlays FILEVAULT_* environment variables. Only variables that
// are present override the current values.
func parseEnv(config *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("endpoint_addr_grpc", &config.EndpointAddrGRPC)
	str("metrics_addr", &config.MetricsAddr)
	str("database_dsn", &config.DatabaseDSN)
	str("secret_key", &config.SecretKey)
	str("blob_backend", &config.BlobBackend)
	str("s3_access_key", &config.S3AccessKey)
	str("s3_secret_key", &config.S3SecretKey)
	str("s3_bucket", &config.S3Bucket)
	str("s3_region", &config.S3Region)
	str("s3_base_endpoint", &config.S3BaseEndpoint)
	str("minio_endpoint", &config.MinioEndpoint)
	str("clamd_addr", &config.ClamdAddr)
	str("antivirus_mode", &config.AntivirusMode)
	str("log_format", &config.LogFormat)

	if v.IsSet("minio_secure") {
		config.MinioSecure = v.GetBool("minio_secure")
	}
	if v.IsSet("scan_retries") {
		config.ScanRetries = v.GetInt("scan_retries")
	}
	if v.IsSet("default_storage_limit") {
		config.DefaultStorageLimit = v.GetInt64("default_storage_limit")
	}

	durations := map[string]*time.Duration{
		"access_token_validity_duration": &config.AccessTokenValidityDuration,
		"scan_timeout":                   &config.ScanTimeout,
		"scan_retry_delay":               &config.ScanRetryDelay,
		"scan_rescan_interval":           &config.ScanRescanInterval,
		"trash_retention":                &config.TrashRetention,
		"reaper_interval":                &config.ReaperInterval,
		"upload_session_ttl":             &config.UploadSessionTTL,
		"session_sweep_interval":         &config.SessionSweepInterval,
	}
	for key, dst := range durations {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
}
