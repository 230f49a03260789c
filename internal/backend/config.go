package backend

import (
	"errors"
	"fmt"
	"strings"

	"nrsnotify/internal/config"
)

// ErrUnknownBackend is returned for a DATA_BACKEND value outside GetBackendTypes.
var ErrUnknownBackend = errors.New("unknown backend type")

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	c := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if !c.Type.IsValid() {
		return Config{}, unknownBackend(c.Type)
	}
	return c, nil
}

// Validate checks that the chosen backend has what it needs. Every problem
// found is reported, not just the first.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, unknownBackend(c.Type))
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("SQLite database path is required for sqlite backend"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP URL is set"))
	}
	return errors.Join(errs...)
}

func unknownBackend(t BackendType) error {
	return fmt.Errorf("%w %q, want one of %s", ErrUnknownBackend, t, strings.Join(GetBackendTypeStrings(), ", "))
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{CookieBackend, MemoryBackend, SQLiteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = t.String()
	}
	return strs
}
