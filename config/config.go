package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Files       FilesConfig   `yaml:"files"`
	Vendor      VendorConfig  `yaml:"vendor"`
	Endpoints   Endpoints     `yaml:"endpoints"`
	Credentials Credentials   `yaml:"credentials"`
	History     HistoryConfig `yaml:"history"`
}

// FilesConfig holds the paths of the persisted stores and the process log.
type FilesConfig struct {
	ConfigStore   string `yaml:"config_store"`
	ActivationLog string `yaml:"activation_log"`
	ProcessLog    string `yaml:"process_log"`
}

// VendorConfig holds everything needed to talk to the dealer API.
type VendorConfig struct {
	BaseURL        string        `yaml:"base_url"`
	EligibilityURL string        `yaml:"eligibility_url"`
	UserAgent      string        `yaml:"user_agent"`
	APIVersion     string        `yaml:"api_version"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
	RatePerSec     float64       `yaml:"rate_per_sec"`
}

// Endpoints lists the dealer API paths, one per workflow step on the
// primary host. The eligibility check lives on a different host and is
// configured by its full URL in VendorConfig.
type Endpoints struct {
	Login          string `yaml:"login"`
	VersionControl string `yaml:"version_control"`
	GetProperties  string `yaml:"get_properties"`
	SATRefresh     string `yaml:"sat_refresh"`
	CRMInfo        string `yaml:"crm_info"`
	DBUpdate       string `yaml:"db_update"`
	BlockList      string `yaml:"block_list"`
	CreateAccount  string `yaml:"create_account"`
	RefreshForCC   string `yaml:"refresh_for_cc"`
}

// Credentials holds the app key/secret sent during login. Environment
// variables override the configured (or embedded default) values.
type Credentials struct {
	AppKey    string `yaml:"app_key"`
	AppSecret string `yaml:"app_secret"`
}

// HistoryConfig holds the attempt-archive database configuration.
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from the given path and fills in defaults
// for anything left unset.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Files.ConfigStore == "" {
		cfg.Files.ConfigStore = "config.json"
	}
	if cfg.Files.ActivationLog == "" {
		cfg.Files.ActivationLog = "activation_log.json"
	}
	if cfg.Files.ProcessLog == "" {
		cfg.Files.ProcessLog = "activation.log"
	}

	if cfg.Vendor.BaseURL == "" {
		cfg.Vendor.BaseURL = "https://dealerapp.siriusxm.com"
	}
	if cfg.Vendor.EligibilityURL == "" {
		cfg.Vendor.EligibilityURL = "https://oemremarketing.custhelp.com/cgi-bin/oemremarketing.cfg/php/custom/src/oracle/program_status.php"
	}
	if cfg.Vendor.UserAgent == "" {
		cfg.Vendor.UserAgent = "SiriusXM Dealer/3.1.0 CFNetwork/1568.200.51 Darwin/24.1.0"
	}
	if cfg.Vendor.APIVersion == "" {
		cfg.Vendor.APIVersion = "1.0"
	}
	if cfg.Vendor.TimeoutSeconds <= 0 {
		cfg.Vendor.TimeoutSeconds = 10
	}
	cfg.Vendor.Timeout = time.Duration(cfg.Vendor.TimeoutSeconds) * time.Second
	if cfg.Vendor.RatePerSec <= 0 {
		cfg.Vendor.RatePerSec = 5
	}

	if cfg.Endpoints.Login == "" {
		cfg.Endpoints.Login = "/authService/100000002/login"
	}
	if cfg.Endpoints.VersionControl == "" {
		cfg.Endpoints.VersionControl = "/services/DealerAppService7/VersionControl"
	}
	if cfg.Endpoints.GetProperties == "" {
		cfg.Endpoints.GetProperties = "/services/DealerAppService7/getProperties"
	}
	if cfg.Endpoints.SATRefresh == "" {
		cfg.Endpoints.SATRefresh = "/services/USUpdateDeviceSATRefresh/updateDeviceSATRefreshWithPriority"
	}
	if cfg.Endpoints.CRMInfo == "" {
		cfg.Endpoints.CRMInfo = "/services/DemoConsumptionRules/GetCRMAccountPlanInformation"
	}
	if cfg.Endpoints.DBUpdate == "" {
		cfg.Endpoints.DBUpdate = "/services/DBSuccessUpdate/DBUpdateForGoogle"
	}
	if cfg.Endpoints.BlockList == "" {
		cfg.Endpoints.BlockList = "/services/USBlockListDevice/BlockListDevice"
	}
	if cfg.Endpoints.CreateAccount == "" {
		cfg.Endpoints.CreateAccount = "/services/DealerAppService3/CreateAccount"
	}
	if cfg.Endpoints.RefreshForCC == "" {
		cfg.Endpoints.RefreshForCC = "/services/USUpdateDeviceRefreshForCC/updateDeviceSATRefreshWithPriority"
	}

	if v := os.Getenv("SIRIUSXM_APP_KEY"); v != "" {
		cfg.Credentials.AppKey = v
	} else if cfg.Credentials.AppKey == "" {
		cfg.Credentials.AppKey = "67cfe0220c41a54cb4e768723ad56b41"
	}
	if v := os.Getenv("SIRIUSXM_APP_SECRET"); v != "" {
		cfg.Credentials.AppSecret = v
	} else if cfg.Credentials.AppSecret == "" {
		cfg.Credentials.AppSecret = "c086fca8646a72cf391f8ae9f15e5331"
	}

	if cfg.History.DSN == "" {
		cfg.History.DSN = "activation_history.db"
	}
}
