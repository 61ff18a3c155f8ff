package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ChaseCares/yapdd-release-creator/source"
	_ "github.com/ChaseCares/yapdd-release-creator/source/github" // Register GitHub source
	_ "github.com/ChaseCares/yapdd-release-creator/source/gitlab" // Register GitLab source
	"github.com/gruntwork-io/go-commons/logging"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// This variable is set at build time using -ldflags parameters. For more info, see:
// http://stackoverflow.com/a/11355611/483528
var VERSION string

const optionAuth = "auth"
const optionTargetRepo = "target_owner_repo"
const optionLocalRepo = "local_owner_repo"
const optionWebhook = "discord_webhook"
const optionTagRegex = "tag_regex"
const optionSource = "source"
const optionApiUrl = "api-url"
const optionLatestFrom = "latest-from"
const optionTargetCommitish = "target-commitish"
const optionTimeout = "timeout"
const optionDryRun = "dry-run"
const optionConfig = "config"
const optionLogLevel = "log-level"

const envVarGithubToken = "GITHUB_TOKEN"
const envVarWebhook = "DISCORD_WEBHOOK"

// Create the release-creator CLI App
func CreateReleaseCreatorCli(version string, writer io.Writer, errwriter io.Writer) *cli.App {
	app := &cli.App{
		Name:      "release-creator",
		Usage:     "release-creator compares the latest tag of a target repo with a local repo and creates a matching release in the local repo when the target is ahead.",
		UsageText: "release-creator --auth <token> --target_owner_repo <owner/name> --local_owner_repo <owner/name> [global options]",
		Version:   version,
		Writer:    writer,
		ErrWriter: errwriter,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    optionAuth,
				Usage:   "Required. Personal access token for the source-control API. Populate by setting env var",
				EnvVars: []string{envVarGithubToken},
			},
			&cli.StringFlag{
				Name:    optionTargetRepo,
				Aliases: []string{"target-repo"},
				Usage:   "Required. The target (upstream) repository, in 'owner/name' format.",
			},
			&cli.StringFlag{
				Name:    optionLocalRepo,
				Aliases: []string{"local-repo"},
				Usage:   "Required. The local repository to update, in 'owner/name' format.",
			},
			&cli.StringFlag{
				Name:    optionWebhook,
				Aliases: []string{"discord-webhook"},
				Usage:   "Optional chat webhook URL for notifications. Slack incoming-webhook URLs get a Slack payload,\n\tanything else gets a Discord-style {\"content\": ...} payload.",
				EnvVars: []string{envVarWebhook},
			},
			&cli.StringFlag{
				Name:    optionTagRegex,
				Aliases: []string{"tag-regex"},
				Usage:   "Regular expression used to extract the comparable version token from a tag. The token is the group\n\tnamed \"version\", else the first capture group, else the whole match. If left blank, whole tags are compared.",
			},
			&cli.StringFlag{
				Name:  optionSource,
				Value: string(source.TypeAuto),
				Usage: "The source type to use: \"github\", \"gitlab\", or \"auto\" (auto-detect from --api-url).",
			},
			&cli.StringFlag{
				Name:  optionApiUrl,
				Usage: "Base URL of the API, for GitHub Enterprise or self-hosted GitLab (e.g. https://ghe.example.com/api/v3).\n\tIf left blank, api.github.com or gitlab.com is used.",
			},
			&cli.StringFlag{
				Name:  optionLatestFrom,
				Value: string(source.LatestFromTag),
				Usage: "Where the latest tag comes from: \"tag\" (the newest git tag) or \"release\" (the latest published release).",
			},
			&cli.StringFlag{
				Name:  optionTargetCommitish,
				Usage: "The branch or commit the new tag is created from when it doesn't exist yet in the local repo.\n\tIf left blank, the local repo's default branch is used.",
			},
			&cli.DurationFlag{
				Name:  optionTimeout,
				Value: defaultTimeout,
				Usage: "Timeout for each API or webhook call.",
			},
			&cli.BoolFlag{
				Name:  optionDryRun,
				Usage: "Compare tags and notify, but don't create the release.",
			},
			&cli.StringFlag{
				Name:  optionConfig,
				Usage: "Path to a YAML config file. Flags given on the command line take precedence over it.",
			},
			&cli.StringFlag{
				Name:  optionLogLevel,
				Value: DEFAULT_LOG_LEVEL.String(),
				Usage: "The logging level of the command. Acceptable values\n\tare \"trace\", \"debug\", \"info\", \"warn\", \"error\", \"fatal\" and \"panic\".",
			},
		},
		Before: initLogger,
		Action: runReleaseCreatorWrapper,
	}

	return app
}

func main() {
	app := CreateReleaseCreatorCli(VERSION, os.Stdout, os.Stderr)

	// Run the definition of App.Action
	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// initLogger initializes the Logger before any command is actually executed. This function will handle all the setup
// code, such as setting up the logger with the appropriate log level.
func initLogger(cliContext *cli.Context) error {
	// Set logging level
	logLevel := cliContext.String(optionLogLevel)
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logLevelErr := newValidationError("--"+optionLogLevel, "%s", err)
		fmt.Fprintln(cliContext.App.ErrWriter, getErrorMessage(logLevelErr))
		return logLevelErr
	}
	logging.SetGlobalLogLevel(level)
	return nil
}

// We want the full error message logged once, in its friendliest form, before main turns it into an exit code
func runReleaseCreatorWrapper(c *cli.Context) error {
	// initialize the logger
	logger := GetProjectLoggerWithWriter(c.App.ErrWriter)
	_, err := runReleaseCreator(c, logger)
	if err != nil {
		logger.Errorf("%s\n", getErrorMessage(err))
		return err
	}
	return nil
}

// Run the release-creator program
func runReleaseCreator(c *cli.Context, logger *logrus.Entry) (Outcome, error) {
	options, err := parseOptions(c, logger)
	if err != nil {
		return Outcome{}, err
	}

	config, err := validateOptions(options)
	if err != nil {
		return Outcome{}, err
	}

	logger.Debugf("Using %s source", config.Source.Type())

	notifier := newNotifier(config.WebhookUrl, &http.Client{Timeout: config.Timeout})
	creator := NewReleaseCreator(config, config.Source, notifier, logger)

	outcome, err := creator.Run(c.Context)
	if err != nil {
		return outcome, err
	}

	if outcome.NotificationErr != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: release outcome could not be delivered to the webhook: %s\n", outcome.NotificationErr)
	}

	return outcome, nil
}
