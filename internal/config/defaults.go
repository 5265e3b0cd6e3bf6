package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Game.Timezone == "" {
		cfg.Game.Timezone = "Asia/Seoul"
	}
	if cfg.Game.TopK == 0 {
		cfg.Game.TopK = 1000
	}
	if cfg.Game.AnswersPath == "" {
		cfg.Game.AnswersPath = "/usr/local/var/ssamantle/data/answers.txt"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Vector.VecPath == "" {
		cfg.Vector.VecPath = "/usr/local/var/ssamantle/data/vectors.vec"
	}
	if cfg.Vector.Dimensions == 0 {
		cfg.Vector.Dimensions = 300
	}
	if cfg.Weaviate.Scheme == "" {
		cfg.Weaviate.Scheme = "http"
	}
	if cfg.Weaviate.Host == "" {
		cfg.Weaviate.Host = "localhost:8081"
	}
	if cfg.Weaviate.Class == "" {
		cfg.Weaviate.Class = "Word"
	}
	if cfg.Cache.Path == "" && !cfg.Cache.InMemory {
		cfg.Cache.Path = "/usr/local/var/ssamantle/data/cache"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "ssamantle"
	}
	// Refresh.Hour defaults to 1 via HourOrDefault; minute defaults to 0.
}
