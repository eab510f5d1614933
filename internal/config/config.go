package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration parameters.
type Config struct {
	TargetURL      string
	ContentID      string
	NextLinkText   string
	TotalPages     int
	ScrapeInterval time.Duration
	RenderWait     time.Duration
	ActionTimeout  time.Duration
	Headless       bool
	CSVFile        string

	ListenAddr string
	JWTSecret  string
	TokenTTL   time.Duration
	Users      map[string]string
	LoginRPS   float64
	LoginBurst int

	LogLevel  string
	LogFormat string

	// DBConn is empty when no database is configured.
	DBConn string
}

// Global constants for configuration keys
const (
	TargetURLKey      = "target_url"
	ContentIDKey      = "content_id"
	NextLinkTextKey   = "next_link_text"
	TotalPagesKey     = "total_pages"
	ScrapeIntervalKey = "scrape_interval"
	RenderWaitKey     = "render_wait"
	ActionTimeoutKey  = "action_timeout"
	HeadlessKey       = "headless"
	CSVFileKey        = "csv_file"
	ListenAddrKey     = "listen_addr"
	JWTSecretKey      = "jwt_secret"
	TokenTTLKey       = "token_ttl"
	UsersKey          = "users" // map of username to password in config.yaml
	APIUsernameKey    = "api_username"
	APIPasswordKey    = "api_password"
	LoginRPSKey       = "login_rps"
	LoginBurstKey     = "login_burst"
	LogLevelKey       = "log_level"
	LogFormatKey      = "log_format"

	DBHostKey     = "DB_HOST"
	DBPortKey     = "DB_PORT"
	DBUserKey     = "DB_USER"
	DBPasswordKey = "DB_PASSWORD"
	DBNameKey     = "DB_NAME"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(TargetURLKey, "https://ngxgroup.com/exchange/data/equities-price-list/")
	v.SetDefault(ContentIDKey, "content")
	v.SetDefault(NextLinkTextKey, "Next")
	v.SetDefault(TotalPagesKey, 6)
	v.SetDefault(ScrapeIntervalKey, 60*time.Second)
	v.SetDefault(RenderWaitKey, 5*time.Second)
	v.SetDefault(ActionTimeoutKey, 30*time.Second)
	v.SetDefault(HeadlessKey, true)
	v.SetDefault(CSVFileKey, "equities_data.csv")
	v.SetDefault(ListenAddrKey, ":5000")
	v.SetDefault(TokenTTLKey, 15*time.Minute)
	v.SetDefault(LoginRPSKey, 1.0)
	v.SetDefault(LoginBurstKey, 5)
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(LogFormatKey, "json")
	v.SetDefault(DBPortKey, "5432")
}

// Init loads .env, initializes Viper, sets defaults, and builds the Config.
func Init() *Config {
	// .env is optional
	_ = godotenv.Load()

	// --- File-based configuration ---
	viper.SetConfigName("config") // name of config file (e.g., config.yaml)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // look in the current directory

	// Set up Viper to read environment variables
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	SetDefaults(viper.GetViper())

	fileLoaded := false
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			slog.Warn("could not read config.yaml, using defaults and environment variables", "error", err)
		}
	} else {
		fileLoaded = true
	}

	if fileLoaded {
		viper.OnConfigChange(func(e fsnotify.Event) {
			slog.Info("config file changed; restart to apply", "file", e.Name, "op", e.Op.String())
		})
		viper.WatchConfig()
	}

	return FromViper(viper.GetViper())
}

// FromViper builds a Config from the values held by v.
func FromViper(v *viper.Viper) *Config {
	totalPages := v.GetInt(TotalPagesKey)
	if totalPages < 1 {
		totalPages = 1
	}

	users := map[string]string{}
	for name, password := range v.GetStringMapString(UsersKey) {
		users[name] = password
	}
	if name := v.GetString(APIUsernameKey); name != "" {
		users[name] = v.GetString(APIPasswordKey)
	}

	return &Config{
		TargetURL:      v.GetString(TargetURLKey),
		ContentID:      v.GetString(ContentIDKey),
		NextLinkText:   v.GetString(NextLinkTextKey),
		TotalPages:     totalPages,
		ScrapeInterval: v.GetDuration(ScrapeIntervalKey),
		RenderWait:     v.GetDuration(RenderWaitKey),
		ActionTimeout:  v.GetDuration(ActionTimeoutKey),
		Headless:       v.GetBool(HeadlessKey),
		CSVFile:        v.GetString(CSVFileKey),

		ListenAddr: v.GetString(ListenAddrKey),
		JWTSecret:  v.GetString(JWTSecretKey),
		TokenTTL:   v.GetDuration(TokenTTLKey),
		Users:      users,
		LoginRPS:   v.GetFloat64(LoginRPSKey),
		LoginBurst: v.GetInt(LoginBurstKey),

		LogLevel:  v.GetString(LogLevelKey),
		LogFormat: v.GetString(LogFormatKey),

		DBConn: buildDSN(v),
	}
}

// buildDSN constructs the PostgreSQL DSN from individual config values read by Viper.
// It returns "" when the database is not configured.
func buildDSN(v *viper.Viper) string {
	host := v.GetString(DBHostKey)
	port := v.GetString(DBPortKey)
	user := v.GetString(DBUserKey)
	password := v.GetString(DBPasswordKey)
	dbname := v.GetString(DBNameKey)

	if host == "" || user == "" || dbname == "" {
		return ""
	}

	// Standard PostgreSQL DSN format
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Africa/Lagos",
		host, user, password, dbname, port,
	)
}
