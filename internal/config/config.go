package config

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Trainer TrainerConfig
	Model   ModelConfig
	Eval    EvalConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir      string
	WorkspaceDir string
}

type TrainerConfig struct {
	StepIntervalMS int
}

type ModelConfig struct {
	Default         string
	ResponseDelayMS int
}

type EvalConfig struct {
	EmpathyThreshold float64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir:      dataDir,
			WorkspaceDir: "", // derived from DataDir unless overridden
		},
		Trainer: TrainerConfig{
			StepIntervalMS: 50,
		},
		Model: ModelConfig{
			Default:         "microsoft/DialoGPT-medium",
			ResponseDelayMS: 1000,
		},
		Eval: EvalConfig{
			EmpathyThreshold: 0.7,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.empathyfine.app).
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/empathyfine/config.json.
//
// Environment variables (EMPATHYFINE_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Storage.WorkspaceDir == "" {
		cfg.Storage.WorkspaceDir = defaultWorkspaceDir(cfg.Storage.DataDir)
	}

	return cfg, nil
}
