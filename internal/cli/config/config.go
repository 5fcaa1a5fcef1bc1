// Package config merges configuration from defaults, the optional YAML
// config file, a named profile, environment variables, and command-line
// flags, then validates the result into an oracle.Options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/seqlab/trace-oracle/pkg/oracle"
)

const (
	EnvPrefix         = "TRACEORACLE"
	DefaultConfigName = "trace-oracle"
)

// LoadAndValidate loads configuration from all sources (defaults, file,
// profile, env, flags), validates the merged configuration, and sets up the
// final logger. Precedence from lowest to highest: defaults, config file,
// profile, environment, flags.
func LoadAndValidate(cfgFile, profileName, appVersion string, verbose bool, flags *pflag.FlagSet) (oracle.Options, *slog.Logger, error) {
	var opts oracle.Options
	v := viper.New()

	tempLogHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	tempLogger := slog.New(tempLogHandler)

	setDefaults(v)

	// --- Load Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	// --- Apply Profile ---
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			err := fmt.Errorf("failed to load profile '%s' settings from config file '%s'", profileName, v.ConfigFileUsed())
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	// Each flag is bound to the viper key Unmarshal reads, so a set flag
	// beats env, profile and file values for the same key. The no-* toggle
	// flags invert or gate keys rather than mirror them and are applied
	// explicitly after Unmarshal.
	flagBindings := map[string]string{
		"inputPath":       "input",
		"outputPath":      "output",
		"verbose":         "verbose",
		"ignore":          "ignore",
		"onError":         "onError",
		"concurrency":     "concurrency",
		"cache":           "cache",
		"outputFormat":    "output-format",
		"traceExt":        "trace-ext",
		"defaultEncoding": "default-encoding",
	}
	for key, flagName := range flagBindings {
		flag := flags.Lookup(flagName)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", flagName))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", flagName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
		}
	}

	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Explicit flag values for core paths override anything unmarshalled.
	if flags.Changed("input") {
		if inputVal, _ := flags.GetString("input"); inputVal != "" {
			opts.InputPath = inputVal
		}
	}
	if flags.Changed("output") {
		if outputVal, _ := flags.GetString("output"); outputVal != "" {
			opts.OutputPath = outputVal
		}
	}

	// Boolean flags need explicit handling so a set flag always wins.
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	} else if verbose {
		opts.Verbose = true
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}
	if flags.Changed("cache") {
		opts.CacheEnabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("no-cache") {
		opts.IgnoreCacheRead, _ = flags.GetBool("no-cache")
	}
	if flags.Changed("clear-cache") {
		opts.ClearCache, _ = flags.GetBool("clear-cache")
	}

	// --- Setup Final Logger ---
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.Bool("verbose", opts.Verbose),
		slog.String("logLevel", logLevel.String()),
	)
	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options in Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", oracle.DefaultVerbose)
	v.SetDefault("tuiEnabled", oracle.DefaultTuiEnabled)
	v.SetDefault("onError", string(oracle.DefaultOnErrorMode))
	v.SetDefault("concurrency", oracle.DefaultConcurrency)
	v.SetDefault("cache", oracle.DefaultCacheEnabled)
	v.SetDefault("ignore", []string{})
	v.SetDefault("traceExt", oracle.DefaultTraceExtension)
	v.SetDefault("defaultEncoding", oracle.DefaultEncoding)
	v.SetDefault("outputFormat", string(oracle.DefaultOutputFormat))
	v.SetDefault("outputPath", oracle.DefaultOutputFile)
}

func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions performs semantic validation on the populated
// Options struct and calculates derived fields. Errors are wrapped with
// oracle.ErrConfigValidation.
func validateAndDeriveOptions(opts *oracle.Options, logger *slog.Logger) error {
	if opts.InputPath == "" {
		err := fmt.Errorf("%w: input path is required (-i, --input)", oracle.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "InputPath"))
		return err
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", oracle.ErrConfigValidation, opts.InputPath, err)
		logger.Error(err.Error(), slog.String("key", "InputPath"), slog.String("value", opts.InputPath))
		return err
	}
	opts.InputPath = absInput
	if _, statErr := os.Stat(opts.InputPath); statErr != nil {
		if os.IsNotExist(statErr) {
			err = fmt.Errorf("%w: input path '%s' does not exist", oracle.ErrConfigValidation, opts.InputPath)
		} else {
			err = fmt.Errorf("%w: cannot access input path '%s': %w", oracle.ErrConfigValidation, opts.InputPath, statErr)
		}
		logger.Error(err.Error(), slog.String("key", "InputPath"), slog.String("value", opts.InputPath))
		return err
	}

	if opts.OutputPath == "" {
		err := fmt.Errorf("%w: output path is required (-o, --output)", oracle.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "OutputPath"))
		return err
	}
	absOutput, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute output path '%s': %w", oracle.ErrConfigValidation, opts.OutputPath, err)
		logger.Error(err.Error(), slog.String("key", "OutputPath"), slog.String("value", opts.OutputPath))
		return err
	}
	opts.OutputPath = absOutput

	if !isValidEnumValue(opts.OnErrorMode, []oracle.OnErrorMode{oracle.OnErrorContinue, oracle.OnErrorStop}) {
		err := fmt.Errorf("%w: invalid onError mode '%s' (must be 'continue' or 'stop')", oracle.ErrConfigValidation, opts.OnErrorMode)
		logger.Error(err.Error(), slog.String("key", "onError"), slog.String("value", string(opts.OnErrorMode)))
		return err
	}
	if !isValidEnumValue(opts.OutputFormat, []oracle.OutputFormat{oracle.OutputFormatText, oracle.OutputFormatJSON, oracle.OutputFormatYAML}) {
		err := fmt.Errorf("%w: invalid output format '%s' (must be 'text', 'json' or 'yaml')", oracle.ErrConfigValidation, opts.OutputFormat)
		logger.Error(err.Error(), slog.String("key", "outputFormat"), slog.String("value", string(opts.OutputFormat)))
		return err
	}
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: concurrency cannot be negative", oracle.ErrConfigValidation)
		logger.Error(err.Error(), slog.Int("value", opts.Concurrency))
		return err
	}
	if opts.TraceExtension != "" && !strings.HasPrefix(opts.TraceExtension, ".") {
		opts.TraceExtension = "." + opts.TraceExtension
		logger.Debug("Normalized trace extension", slog.String("value", opts.TraceExtension))
	}

	if opts.CacheEnabled && opts.CacheFilePath == "" {
		opts.CacheFilePath = filepath.Join(filepath.Dir(opts.OutputPath), oracle.CacheFileName)
		logger.Debug("Derived cache file path", slog.String("path", opts.CacheFilePath))
	}

	// Verbose logging and the TUI fight over the terminal; verbose wins.
	if opts.Verbose && opts.TuiEnabled {
		opts.TuiEnabled = false
		logger.Debug("TUI disabled because verbose logging is active")
	}
	return nil
}
