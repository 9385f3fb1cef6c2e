// Package config loads the process configuration and constructs the
// configured note store.
//
// Settings come from an optional `configuration` file in the working
// directory and from NOTEGRAF_-prefixed environment variables, the latter
// taking precedence (NOTEGRAF_DATABASE_HOST overrides database.host).
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/notegraf/notegraf/notestore"
	"github.com/notegraf/notegraf/notetype"
)

// Store backend selectors.
const (
	StoreTypeInMemory = "inmemory"
	StoreTypePostgres = "postgres"
)

var (
	ErrUnknownStoreType = errors.New("notestoretype must be either inmemory or postgres")
	ErrMissingDatabase  = errors.New("the database section is required when notestoretype is postgres")
	ErrMissingPassword  = errors.New("database password expected when a username is set")
	ErrMissingDBName    = errors.New("database name is required")
)

// Settings is the full process configuration.
type Settings struct {
	NoteStoreType    string            `mapstructure:"notestoretype"`
	Debug            bool              `mapstructure:"debug"`
	LogLevel         string            `mapstructure:"loglevel"`
	PopulateTestData bool              `mapstructure:"populatetestdata"`
	Database         *DatabaseSettings `mapstructure:"database"`
}

// DatabaseSettings are the PostgreSQL coordinates of the relational
// backing.
type DatabaseSettings struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Load reads the configuration file (if present) and the environment.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetDefault("notestoretype", StoreTypeInMemory)
	v.SetDefault("debug", false)
	v.SetDefault("loglevel", "info")
	v.SetDefault("populatetestdata", false)

	v.SetConfigName("configuration")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading configuration file: %w", err)
		}
	}

	v.SetEnvPrefix("notegraf")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv does not surface env-only nested keys through Unmarshal;
	// binding them explicitly does.
	for _, key := range []string{
		"notestoretype", "debug", "loglevel", "populatetestdata",
		"database.host", "database.port", "database.name",
		"database.username", "database.password",
	} {
		_ = v.BindEnv(key)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for consistency.
func (s *Settings) Validate() error {
	switch s.NoteStoreType {
	case StoreTypeInMemory:
		return nil
	case StoreTypePostgres:
		if s.Database == nil {
			return ErrMissingDatabase
		}
		return s.Database.Validate()
	default:
		return ErrUnknownStoreType
	}
}

// Validate checks the database coordinates.
func (d *DatabaseSettings) Validate() error {
	if d.Name == "" {
		return ErrMissingDBName
	}
	if d.Username != "" && d.Password == "" {
		return ErrMissingPassword
	}
	return nil
}

// URL renders the settings as a postgres connection URL.
func (d *DatabaseSettings) URL() string {
	return d.url(d.Name)
}

// URLWithoutName renders a connection URL against the server's default
// database, for administrative work such as creating databases.
func (d *DatabaseSettings) URLWithoutName() string {
	return d.url("")
}

func (d *DatabaseSettings) url(name string) string {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	port := d.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%s", host, port),
		Path:   "/" + name,
	}
	if d.Username != "" {
		u.User = url.UserPassword(d.Username, d.Password)
	}
	return u.String()
}

// OpenStore constructs the configured note store for bodies of the given
// type and seeds test data when requested.
func (s *Settings) OpenStore(ctx context.Context, typ notetype.Type) (notestore.Store, error) {
	var (
		store notestore.Store
		err   error
	)
	switch s.NoteStoreType {
	case StoreTypeInMemory:
		store = notestore.NewInMemory(typ)
	case StoreTypePostgres:
		if s.Database == nil {
			return nil, ErrMissingDatabase
		}
		store, err = notestore.NewPostgres(ctx, s.Database.URL(), typ)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownStoreType
	}
	if s.PopulateTestData {
		if err := notestore.PopulateTestData(ctx, store); err != nil {
			return nil, err
		}
	}
	return store, nil
}
