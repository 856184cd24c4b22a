package types

import "time"

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Server struct {
		Port string `yaml:"port" envconfig:"FRONTEND_SERVER_PORT"`
		Host string `yaml:"host" envconfig:"FRONTEND_SERVER_HOST"`
	} `yaml:"server"`

	Chain struct {
		Name       string `yaml:"name" envconfig:"CHAIN_NAME"`
		ConfigPath string `yaml:"configPath" envconfig:"CHAIN_CONFIG_PATH"`
		Config     ChainConfig
	} `yaml:"chain"`

	Frontend struct {
		Enabled bool `yaml:"enabled" envconfig:"FRONTEND_ENABLED"`
		Debug   bool `yaml:"debug" envconfig:"FRONTEND_DEBUG"`
		Pprof   bool `yaml:"pprof" envconfig:"FRONTEND_PPROF"`
		Minify  bool `yaml:"minify" envconfig:"FRONTEND_MINIFY"`

		SiteDomain      string `yaml:"siteDomain" envconfig:"FRONTEND_SITE_DOMAIN"`
		SiteName        string `yaml:"siteName" envconfig:"FRONTEND_SITE_NAME"`
		SiteSubtitle    string `yaml:"siteSubtitle" envconfig:"FRONTEND_SITE_SUBTITLE"`
		SiteDescription string `yaml:"siteDescription" envconfig:"FRONTEND_SITE_DESCRIPTION"`
		InfoBanner      string `yaml:"infoBanner" envconfig:"FRONTEND_INFO_BANNER"`

		LocalCacheSize   int    `yaml:"localCacheSize" envconfig:"FRONTEND_LOCAL_CACHE_SIZE"`
		RedisCacheAddr   string `yaml:"redisCacheAddr" envconfig:"FRONTEND_REDIS_CACHE_ADDR"`
		RedisCachePrefix string `yaml:"redisCachePrefix" envconfig:"FRONTEND_REDIS_CACHE_PREFIX"`

		PageCallTimeout  time.Duration `yaml:"pageCallTimeout" envconfig:"FRONTEND_PAGE_CALL_TIMEOUT"`
		HttpReadTimeout  time.Duration `yaml:"httpReadTimeout" envconfig:"FRONTEND_HTTP_READ_TIMEOUT"`
		HttpWriteTimeout time.Duration `yaml:"httpWriteTimeout" envconfig:"FRONTEND_HTTP_WRITE_TIMEOUT"`
		HttpIdleTimeout  time.Duration `yaml:"httpIdleTimeout" envconfig:"FRONTEND_HTTP_IDLE_TIMEOUT"`
		DisablePageCache bool          `yaml:"disablePageCache" envconfig:"FRONTEND_DISABLE_PAGE_CACHE"`
	} `yaml:"frontend"`

	Api struct {
		Enabled     bool     `yaml:"enabled" envconfig:"API_ENABLED"`
		CorsOrigins []string `yaml:"corsOrigins" envconfig:"API_CORS_ORIGINS"`

		AuthSecret  string `yaml:"authSecret" envconfig:"API_AUTH_SECRET"`
		RequireAuth bool   `yaml:"requireAuth" envconfig:"API_REQUIRE_AUTH"`
	} `yaml:"api"`

	RateLimit struct {
		Enabled        bool     `yaml:"enabled" envconfig:"RATELIMIT_ENABLED"`
		ProxyCount     uint     `yaml:"proxyCount" envconfig:"RATELIMIT_PROXY_COUNT"`
		Rate           uint     `yaml:"rate" envconfig:"RATELIMIT_RATE"`
		Burst          uint     `yaml:"burst" envconfig:"RATELIMIT_BURST"`
		WhitelistedIPs []string `yaml:"whitelistedIps" envconfig:"RATELIMIT_WHITELISTED_IPS"`
	} `yaml:"rateLimit"`

	ExecutionApi struct {
		Endpoint  string           `yaml:"endpoint" envconfig:"EXECUTIONAPI_ENDPOINT"`
		Endpoints []EndpointConfig `yaml:"endpoints"`

		CallTimeout      time.Duration `yaml:"callTimeout" envconfig:"EXECUTIONAPI_CALL_TIMEOUT"`
		OwnerProbeLimit  uint          `yaml:"ownerProbeLimit" envconfig:"EXECUTIONAPI_OWNER_PROBE_LIMIT"`
		AllowCustomRpc   bool          `yaml:"allowCustomRpc" envconfig:"EXECUTIONAPI_ALLOW_CUSTOM_RPC"`
		HeadPollInterval time.Duration `yaml:"headPollInterval" envconfig:"EXECUTIONAPI_HEAD_POLL_INTERVAL"`
	} `yaml:"executionApi"`

	Market struct {
		RefreshInterval     time.Duration `yaml:"refreshInterval" envconfig:"MARKET_REFRESH_INTERVAL"`
		ConfirmationTimeout time.Duration `yaml:"confirmationTimeout" envconfig:"MARKET_CONFIRMATION_TIMEOUT"`
		DisableActivityLog  bool          `yaml:"disableActivityLog" envconfig:"MARKET_DISABLE_ACTIVITY_LOG"`
	} `yaml:"market"`

	Wallets []WalletConfig `yaml:"wallets"`

	Database DatabaseConfig `yaml:"database"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Public  bool   `yaml:"public" envconfig:"METRICS_PUBLIC"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`
}

// ChainConfig holds the per-network parameters, loadable from an
// embedded preset (sepolia, mainnet) or an external yaml file.
type ChainConfig struct {
	PresetBase        string `yaml:"PRESET_BASE"`
	ConfigName        string `yaml:"CONFIG_NAME"`
	DisplayName       string `yaml:"DISPLAY_NAME"`
	ChainId           uint64 `yaml:"CHAIN_ID"`
	TokenSymbol       string `yaml:"TOKEN_SYMBOL"`
	CollectionAddress string `yaml:"COLLECTION_ADDRESS"`
	MarketAddress     string `yaml:"MARKET_ADDRESS"`
	CollectionSize    uint64 `yaml:"COLLECTION_SIZE"`
	ExplorerLink      string `yaml:"EXPLORER_LINK"`
}

type EndpointConfig struct {
	Url      string            `yaml:"url"`
	Name     string            `yaml:"name"`
	Priority int               `yaml:"priority"`
	Headers  map[string]string `yaml:"headers"`
}

// WalletConfig is a named signing wallet. The frontend selects wallets
// by name, mirroring the wallet picker of the original application.
type WalletConfig struct {
	Name       string `yaml:"name"`
	PrivateKey string `yaml:"privateKey" envconfig:"WALLET_PRIVATE_KEY"`
}

type DatabaseConfig struct {
	Engine string                `yaml:"engine" envconfig:"DATABASE_ENGINE"`
	Sqlite *SqliteDatabaseConfig `yaml:"sqlite"`
	Pgsql  *PgsqlDatabaseConfig  `yaml:"pgsql"`
}

type SqliteDatabaseConfig struct {
	File         string `yaml:"file" envconfig:"DATABASE_SQLITE_FILE"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_SQLITE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_SQLITE_MAX_IDLE_CONNS"`
}

type PgsqlDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"DATABASE_PGSQL_USERNAME"`
	Password     string `yaml:"password" envconfig:"DATABASE_PGSQL_PASSWORD"`
	Name         string `yaml:"name" envconfig:"DATABASE_PGSQL_NAME"`
	Host         string `yaml:"host" envconfig:"DATABASE_PGSQL_HOST"`
	Port         string `yaml:"port" envconfig:"DATABASE_PGSQL_PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_MAX_IDLE_CONNS"`
}
