package config

const defaultDataRoot = "/usr/local/var/crosstab/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 16 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultDataRoot + "/db/surveys.db"
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = defaultDataRoot + "/uploads"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaultDataRoot + "/surveys"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = defaultDataRoot + "/indices/bleve"
	}
	if cfg.Parser.Workers <= 0 {
		cfg.Parser.Workers = 4
	}
	if cfg.Ingest.AllowedExtensions == nil {
		cfg.Ingest.AllowedExtensions = []string{".xlsx", ".xlsm", ".csv"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
