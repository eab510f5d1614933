package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(newViper())

	assert.Equal(t, "content", cfg.ContentID)
	assert.Equal(t, "Next", cfg.NextLinkText)
	assert.Equal(t, 6, cfg.TotalPages)
	assert.Equal(t, 60*time.Second, cfg.ScrapeInterval)
	assert.Equal(t, 5*time.Second, cfg.RenderWait)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "equities_data.csv", cfg.CSVFile)
	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.Users)
	assert.Empty(t, cfg.DBConn, "database is optional")
}

func TestFromViperEnvironment(t *testing.T) {
	t.Setenv("APP_TOTAL_PAGES", "3")
	t.Setenv("APP_SCRAPE_INTERVAL", "2m")
	t.Setenv("APP_HEADLESS", "false")
	t.Setenv("APP_API_USERNAME", "admin")
	t.Setenv("APP_API_PASSWORD", "secret")

	cfg := FromViper(newViper())

	assert.Equal(t, 3, cfg.TotalPages)
	assert.Equal(t, 2*time.Minute, cfg.ScrapeInterval)
	assert.False(t, cfg.Headless)
	assert.Equal(t, map[string]string{"admin": "secret"}, cfg.Users)
}

func TestFromViperClampsPageLimit(t *testing.T) {
	v := newViper()
	v.Set(TotalPagesKey, 0)

	assert.Equal(t, 1, FromViper(v).TotalPages)
}

func TestFromViperUsersMap(t *testing.T) {
	v := newViper()
	v.Set(UsersKey, map[string]any{"alice": "pw1", "bob": "pw2"})

	assert.Equal(t, map[string]string{"alice": "pw1", "bob": "pw2"}, FromViper(v).Users)
}

func TestBuildDSN(t *testing.T) {
	v := newViper()
	v.Set(DBHostKey, "localhost")
	v.Set(DBUserKey, "ngx")
	v.Set(DBPasswordKey, "pw")
	v.Set(DBNameKey, "prices")

	assert.Equal(t,
		"host=localhost user=ngx password=pw dbname=prices port=5432 sslmode=disable TimeZone=Africa/Lagos",
		buildDSN(v))

	v.Set(DBNameKey, "")
	assert.Empty(t, buildDSN(v))
}
