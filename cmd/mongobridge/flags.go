package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/mongobridge/pkg/config"
)

// configKeyAnnotation links a flag to the configuration key it overrides.
const configKeyAnnotation = "mongobridge/config-key"

// newViper resolves overrides from MONGOBRIDGE_* environment variables, so
// connection.password is read from MONGOBRIDGE_CONNECTION_PASSWORD.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MONGOBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func annotate(fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		_ = fs.SetAnnotation(name, configKeyAnnotation, []string{key})
	}
}

// bindCommand binds the annotated flags of the command being run. Several
// commands share flag names for different keys, so binding waits until the
// command is known.
func bindCommand(v *viper.Viper, cmd *cobra.Command) error {
	var err error
	bind := func(f *pflag.Flag) {
		keys, ok := f.Annotations[configKeyAnnotation]
		if !ok || len(keys) == 0 || err != nil {
			return
		}
		err = v.BindPFlag(keys[0], f)
	}
	cmd.InheritedFlags().VisitAll(bind)
	cmd.LocalFlags().VisitAll(bind)
	return err
}

// applyOverrides copies every key set by a flag or environment variable onto
// cfg. Flags win over the environment, which wins over the file.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	strs := map[string]*string{
		"connection.uri":             &cfg.Connection.URI,
		"connection.server":          &cfg.Connection.Server,
		"connection.database":        &cfg.Connection.Database,
		"connection.user":            &cfg.Connection.User,
		"connection.password":        &cfg.Connection.Password,
		"connection.auth_source":     &cfg.Connection.AuthSource,
		"source.collection":          &cfg.Source.Collection,
		"source.query":               &cfg.Source.Query,
		"source.condition_field":     &cfg.Source.ConditionField,
		"source.condition_from":      &cfg.Source.ConditionFrom,
		"source.condition_to":        &cfg.Source.ConditionTo,
		"source.timezone":            &cfg.Source.Timezone,
		"source.schema_file":         &cfg.Source.SchemaFile,
		"output.path":                &cfg.Output.Path,
		"output.error_path":          &cfg.Output.ErrorPath,
		"output.format":              &cfg.Output.Format,
		"output.compression":         &cfg.Output.Compression,
		"destination.collection":     &cfg.Destination.Collection,
		"destination.input":          &cfg.Destination.Input,
		"logging.level":              &cfg.Logging.Level,
		"logging.encoding":           &cfg.Logging.Encoding,
		"observability.metrics_addr": &cfg.Observability.MetricsAddr,
	}
	for key, p := range strs {
		if v.IsSet(key) {
			*p = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"source.sample_size":       &cfg.Source.SampleSize,
		"output.compression_level": &cfg.Output.CompressionLevel,
		"output.batch_size":        &cfg.Output.BatchSize,
		"destination.batch_size":   &cfg.Destination.BatchSize,
	}
	for key, p := range ints {
		if v.IsSet(key) {
			*p = v.GetInt(key)
		}
	}
}
