// Package mongodb connects to a MongoDB deployment and adapts its collections
// to the narrow interfaces the bridge consumes.
package mongodb

import (
	"net/url"
	"strings"
	"time"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
)

// Settings describe how to reach a database. URI, when set, is used as is;
// otherwise a connection string is built from the individual fields.
type Settings struct {
	URI            string        `yaml:"uri" mapstructure:"uri"`
	Server         string        `yaml:"server" mapstructure:"server"`
	Database       string        `yaml:"database" mapstructure:"database"`
	User           string        `yaml:"user" mapstructure:"user"`
	Password       string        `yaml:"password" mapstructure:"password"`
	AuthSource     string        `yaml:"auth_source" mapstructure:"auth_source"`
	SecondaryOK    bool          `yaml:"secondary_ok" mapstructure:"secondary_ok"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// Validate checks that the settings can produce a usable connection.
func (s Settings) Validate() error {
	if s.Database == "" {
		return errors.New(errors.ErrorTypeConfig, "database is required")
	}
	if s.URI != "" {
		if !strings.HasPrefix(s.URI, "mongodb://") && !strings.HasPrefix(s.URI, "mongodb+srv://") {
			return errors.New(errors.ErrorTypeConfig, "uri must use the mongodb:// or mongodb+srv:// scheme")
		}
		return nil
	}
	if s.Server == "" {
		return errors.New(errors.ErrorTypeConfig, "server is required")
	}
	if s.User != "" && s.Password == "" {
		return errors.New(errors.ErrorTypeConfig, "password is required when a user is set")
	}
	if s.User == "" && s.Password != "" {
		return errors.New(errors.ErrorTypeConfig, "user is required when a password is set")
	}
	return nil
}

// ConnectionString returns the URI the client connects with.
func (s Settings) ConnectionString() string {
	if s.URI != "" {
		return s.URI
	}
	u := &url.URL{Scheme: "mongodb", Host: s.Server, Path: "/"}
	if s.User != "" {
		u.User = url.UserPassword(s.User, s.Password)
	}
	q := url.Values{}
	if s.AuthSource != "" {
		q.Set("authSource", s.AuthSource)
	}
	if s.SecondaryOK {
		if !strings.Contains(s.Server, ",") {
			q.Set("directConnection", "true")
		}
		q.Set("readPreference", "secondaryPreferred")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted returns the connection string with the password masked.
func (s Settings) Redacted() string {
	u, err := url.Parse(s.ConnectionString())
	if err != nil {
		return "<invalid uri>"
	}
	return u.Redacted()
}
