package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ChaseCares/yapdd-release-creator/source"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const defaultTimeout = 30 * time.Second

// ReleaseOptions holds the raw, unvalidated inputs of a run
type ReleaseOptions struct {
	AuthToken       string
	TargetOwnerRepo string
	LocalOwnerRepo  string
	WebhookUrl      string
	TagRegex        string
	SourceType      string // "github", "gitlab", or "auto"
	ApiUrl          string
	LatestFrom      string // "tag" or "release"
	TargetCommitish string
	Timeout         time.Duration
	DryRun          bool

	// Project logger
	Logger *logrus.Entry
}

// Config is the validated configuration handed to every component of a run
type Config struct {
	Source          source.Source // Built from --source, --api-url, --latest-from and the token
	TargetRepo      source.Repo
	LocalRepo       source.Repo
	WebhookUrl      string // Empty disables notifications
	TagPattern      *regexp.Regexp
	TargetCommitish string
	Timeout         time.Duration
	DryRun          bool
}

// ConfigFile is the optional YAML file passed with --config. Values given as flags take precedence.
// The auth token is deliberately not read from the file.
type ConfigFile struct {
	TargetOwnerRepo string `yaml:"target_owner_repo"`
	LocalOwnerRepo  string `yaml:"local_owner_repo"`
	WebhookUrl      string `yaml:"discord_webhook"`
	TagRegex        string `yaml:"tag_regex"`
	Source          string `yaml:"source"`
	ApiUrl          string `yaml:"api_url"`
	LatestFrom      string `yaml:"latest_from"`
	TargetCommitish string `yaml:"target_commitish"`
	Timeout         string `yaml:"timeout"`
	DryRun          *bool  `yaml:"dry_run"`
}

func parseOptions(c *cli.Context, logger *logrus.Entry) (ReleaseOptions, error) {
	options := ReleaseOptions{
		AuthToken:       c.String(optionAuth),
		TargetOwnerRepo: c.String(optionTargetRepo),
		LocalOwnerRepo:  c.String(optionLocalRepo),
		WebhookUrl:      c.String(optionWebhook),
		TagRegex:        c.String(optionTagRegex),
		SourceType:      c.String(optionSource),
		ApiUrl:          c.String(optionApiUrl),
		LatestFrom:      c.String(optionLatestFrom),
		TargetCommitish: c.String(optionTargetCommitish),
		Timeout:         c.Duration(optionTimeout),
		DryRun:          c.Bool(optionDryRun),
		Logger:          logger,
	}

	configPath := c.String(optionConfig)
	if configPath == "" {
		return options, nil
	}

	configFile, err := loadConfigFile(configPath)
	if err != nil {
		return options, err
	}
	logger.Debugf("Loaded config file %s", configPath)

	if err := mergeConfigFile(&options, configFile, c.IsSet); err != nil {
		return options, err
	}

	return options, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(validationError, invalidConfigFile, "--"+optionConfig, err.Error())
	}

	var configFile ConfigFile
	if err := yaml.Unmarshal(data, &configFile); err != nil {
		return nil, newError(validationError, invalidConfigFile, "--"+optionConfig, fmt.Sprintf("could not parse %s: %s", path, err))
	}

	return &configFile, nil
}

// mergeConfigFile fills every option that wasn't explicitly set on the command line from the config file
func mergeConfigFile(options *ReleaseOptions, configFile *ConfigFile, isSet func(name string) bool) error {
	mergeString := func(name string, dest *string, value string) {
		if !isSet(name) && value != "" {
			*dest = value
		}
	}

	mergeString(optionTargetRepo, &options.TargetOwnerRepo, configFile.TargetOwnerRepo)
	mergeString(optionLocalRepo, &options.LocalOwnerRepo, configFile.LocalOwnerRepo)
	mergeString(optionWebhook, &options.WebhookUrl, configFile.WebhookUrl)
	mergeString(optionTagRegex, &options.TagRegex, configFile.TagRegex)
	mergeString(optionSource, &options.SourceType, configFile.Source)
	mergeString(optionApiUrl, &options.ApiUrl, configFile.ApiUrl)
	mergeString(optionLatestFrom, &options.LatestFrom, configFile.LatestFrom)
	mergeString(optionTargetCommitish, &options.TargetCommitish, configFile.TargetCommitish)

	if !isSet(optionTimeout) && configFile.Timeout != "" {
		timeout, err := time.ParseDuration(configFile.Timeout)
		if err != nil {
			return newError(validationError, invalidConfigFile, "--"+optionConfig, fmt.Sprintf("invalid timeout %q: %s", configFile.Timeout, err))
		}
		options.Timeout = timeout
	}

	if !isSet(optionDryRun) && configFile.DryRun != nil {
		options.DryRun = *configFile.DryRun
	}

	return nil
}

// validateOptions checks every input before any network call is made and returns the Config for the run
func validateOptions(options ReleaseOptions) (*Config, error) {
	if options.AuthToken == "" {
		return nil, newValidationError("--"+optionAuth, "The --%s flag (or the %s env var) is required. Run \"release-creator --help\" for full usage info.", optionAuth, envVarGithubToken)
	}
	if strings.IndexFunc(options.AuthToken, unicode.IsSpace) >= 0 {
		return nil, newValidationError("--"+optionAuth, "the auth token must not contain whitespace")
	}

	sourceType, err := source.ParseSourceType(options.SourceType)
	if err != nil {
		return nil, newValidationError("--"+optionSource, "%s", err)
	}

	if options.ApiUrl != "" {
		if err := validateHttpUrl(options.ApiUrl); err != nil {
			return nil, newValidationError("--"+optionApiUrl, "%s", err)
		}
	}

	latestFrom, err := source.ParseLatestFrom(options.LatestFrom)
	if err != nil {
		return nil, newValidationError("--"+optionLatestFrom, "%s", err)
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout < 0 {
		return nil, newValidationError("--"+optionTimeout, "timeout must be positive, got %s", timeout)
	}

	// Building the source only constructs a client, no request is made
	src, err := source.GetSource(sourceType, source.Config{
		ApiUrl:     options.ApiUrl,
		Token:      options.AuthToken,
		LatestFrom: latestFrom,
		HttpClient: &http.Client{Timeout: timeout},
		Logger:     options.Logger,
	})
	if err != nil {
		return nil, newValidationError("--"+optionSource, "Failed to create source: %s", err)
	}

	if options.TargetOwnerRepo == "" {
		return nil, newValidationError("--"+optionTargetRepo, "The --%s flag is required. Run \"release-creator --help\" for full usage info.", optionTargetRepo)
	}
	targetRepo, err := src.ParseRepo(options.TargetOwnerRepo)
	if err != nil {
		return nil, newValidationError("--"+optionTargetRepo, "%s", err)
	}

	if options.LocalOwnerRepo == "" {
		return nil, newValidationError("--"+optionLocalRepo, "The --%s flag is required. Run \"release-creator --help\" for full usage info.", optionLocalRepo)
	}
	localRepo, err := src.ParseRepo(options.LocalOwnerRepo)
	if err != nil {
		return nil, newValidationError("--"+optionLocalRepo, "%s", err)
	}

	if options.WebhookUrl != "" {
		if err := validateHttpUrl(options.WebhookUrl); err != nil {
			return nil, newValidationError("--"+optionWebhook, "%s", err)
		}
	}

	tagRegex := options.TagRegex
	if tagRegex == "" {
		tagRegex = defaultTagRegex
	}
	tagPattern, err := regexp.Compile(tagRegex)
	if err != nil {
		return nil, newValidationError("--"+optionTagRegex, "%q is not a valid regular expression: %s", tagRegex, err)
	}

	return &Config{
		Source:          src,
		TargetRepo:      targetRepo,
		LocalRepo:       localRepo,
		WebhookUrl:      options.WebhookUrl,
		TagPattern:      tagPattern,
		TargetCommitish: options.TargetCommitish,
		Timeout:         timeout,
		DryRun:          options.DryRun,
	}, nil
}

func validateHttpUrl(rawUrl string) error {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return fmt.Errorf("%q is not a valid URL: %s", rawUrl, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http or https URL", rawUrl)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", rawUrl)
	}
	return nil
}
