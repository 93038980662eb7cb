package filestore

// Provider identifies the object storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds the settings needed to reach an object storage backend.
type Config struct {
	Provider Provider

	// Endpoint is host:port, e.g. "localhost:9000".
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Region is only used by region-aware backends. Leave empty for MinIO.
	Region string
}

// DefaultConfig returns a local-dev MinIO config.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}
