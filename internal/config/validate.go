package config

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/hay-kot/criterio"
)

// Validate reports every invalid field at once as criterio.FieldErrors.
func (c Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("API_PORT", c.APIPort, validPort),
		criterio.Run("WORKER_METRICS_PORT", c.WorkerMetricsPort, validPort),
		criterio.Run("STORE_DRIVER", c.StoreDriver, oneOf(StoreDriverPostgres, StoreDriverSQLite)),
		criterio.Run("CLASSIFIER_BACKEND", c.ClassifierBackend, oneOf(ClassifierOllama, ClassifierOpenAI, ClassifierAnthropic)),
		criterio.Run("GEO_DISPATCH", c.GeoDispatch, oneOf(GeoDispatchLocal, GeoDispatchNATS)),
		criterio.Run("CLASSIFIER_TIMEOUT", c.ClassifierTimeout, positiveDuration),
		criterio.Run("GEO_TIMEOUT", c.GeoTimeout, positiveDuration),
		criterio.Run("GEO_WORKERS", c.GeoWorkers, positiveInt),
		criterio.Run("GEO_QUEUE_SIZE", c.GeoQueueSize, positiveInt),
		criterio.Run("API_MAX_CONNECTIONS", c.APIMaxConnections, positiveInt),
		c.validateBackendCredentials(),
		c.validateStore(),
	)
}

func (c Config) validateBackendCredentials() error {
	var errs criterio.FieldErrorsBuilder
	switch c.ClassifierBackend {
	case ClassifierOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = errs.Append("OPENAI_API_KEY", fmt.Errorf("required when CLASSIFIER_BACKEND=openai"))
		}
	case ClassifierAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = errs.Append("ANTHROPIC_API_KEY", fmt.Errorf("required when CLASSIFIER_BACKEND=anthropic"))
		}
	case ClassifierOllama:
		if c.OllamaURL == "" {
			errs = errs.Append("OLLAMA_URL", fmt.Errorf("required when CLASSIFIER_BACKEND=ollama"))
		}
	}
	return errs.ToError()
}

func (c Config) validateStore() error {
	var errs criterio.FieldErrorsBuilder
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.PostgresDSN == "" {
			errs = errs.Append("POSTGRES_DSN", fmt.Errorf("required when STORE_DRIVER=postgres"))
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			errs = errs.Append("SQLITE_PATH", fmt.Errorf("required when STORE_DRIVER=sqlite"))
		}
	}
	return errs.ToError()
}

func validPort(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", v)
	}
	return nil
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		if slices.Contains(allowed, v) {
			return nil
		}
		return fmt.Errorf("must be one of %v, got %q", allowed, v)
	}
}

func positiveInt(v int) error {
	if v <= 0 {
		return fmt.Errorf("must be positive, got %d", v)
	}
	return nil
}

func positiveDuration(v time.Duration) error {
	if v <= 0 {
		return fmt.Errorf("must be positive, got %s", v)
	}
	return nil
}
