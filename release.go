package main

import (
	"context"
	"fmt"

	"github.com/ChaseCares/yapdd-release-creator/source"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Outcome summarizes what a run found and did
type Outcome struct {
	TargetTag       source.Tag
	LocalTag        source.Tag
	Comparison      Comparison
	Release         *source.Release // Set only when a release was created
	DryRun          bool
	NotificationErr error // Reported, never fatal
}

// ReleaseCreator compares the target and local repos and mirrors the target's newest tag as a release
type ReleaseCreator struct {
	config   *Config
	src      source.Source
	notifier Notifier
	logger   *logrus.Entry
}

func NewReleaseCreator(config *Config, src source.Source, notifier Notifier, logger *logrus.Entry) *ReleaseCreator {
	return &ReleaseCreator{
		config:   config,
		src:      src,
		notifier: notifier,
		logger:   logger,
	}
}

// Run fetches both tags, compares them and, if the target is ahead, creates the release and notifies.
// Steps run strictly in order and any failure before the release is created aborts the run.
func (rc *ReleaseCreator) Run(ctx context.Context) (Outcome, error) {
	var outcome Outcome
	targetRepo := rc.config.TargetRepo
	localRepo := rc.config.LocalRepo

	rc.logger.Infof("Fetching latest tag from target repo: %s", targetRepo)
	targetTag, err := rc.fetchLatestTag(ctx, targetRepo)
	if err != nil {
		return outcome, err
	}
	outcome.TargetTag = targetTag
	rc.logger.Infof("Found target tag: %s", targetTag.Name)

	rc.logger.Infof("Fetching latest tag from local repo: %s", localRepo)
	localTag, err := rc.fetchLatestTag(ctx, localRepo)
	if err != nil {
		return outcome, err
	}
	outcome.LocalTag = localTag
	rc.logger.Infof("Found local tag: %s", localTag.Name)

	comparison, cmpErr := compareTags(rc.config.TagPattern, targetTag.Name, localTag.Name)
	outcome.Comparison = comparison
	if cmpErr != nil {
		return outcome, cmpErr
	}

	switch comparison {
	case Equal:
		rc.logger.Infof("Tags are identical. No update needed.")
		return outcome, nil
	case LocalNewer:
		rc.logger.Warnf("Local tag %s is newer than target tag %s. No update needed.", localTag.Name, targetTag.Name)
		return outcome, nil
	case Incomparable:
		rc.logger.Warnf("Tags %s and %s differ but cannot be ordered; treating the target as newer.", targetTag.Name, localTag.Name)
	}

	rc.logger.Warnf("Update needed for '%s'. Newest tag from '%s' is %s.", localRepo, targetRepo, targetTag.Name)

	if rc.config.DryRun {
		outcome.DryRun = true
		rc.logger.Infof("Dry run: not creating release '%s' in '%s'.", targetTag.Name, localRepo)
		outcome.NotificationErr = rc.notify(ctx, fmt.Sprintf("[dry run] Update needed for '%s'. Newest tag from '%s' is %s.", localRepo, targetRepo, targetTag.Name))
		return outcome, nil
	}

	rc.logger.Infof("Creating release '%s' in '%s'...", targetTag.Name, localRepo)
	release, err := rc.createRelease(ctx, targetTag)
	if err != nil {
		outcome.NotificationErr = rc.notify(ctx, fmt.Sprintf("ERROR: Operation failed: %s", err))
		return outcome, err
	}
	outcome.Release = &release

	successMessage := fmt.Sprintf("Successfully created release '%s' in '%s'.", targetTag.Name, localRepo)
	rc.logger.Infof("%s %s", successMessage, release.Url)

	if !targetTag.CreatedAt.IsZero() {
		successMessage = fmt.Sprintf("%s Upstream tagged it %s.", successMessage, humanize.Time(targetTag.CreatedAt))
	}
	outcome.NotificationErr = rc.notify(ctx, successMessage)

	return outcome, nil
}

func (rc *ReleaseCreator) fetchLatestTag(ctx context.Context, repo source.Repo) (source.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, rc.config.Timeout)
	defer cancel()

	tag, err := rc.src.LatestTag(ctx, repo)
	if err != nil {
		return tag, wrapError(fetchError, repo.String(), err)
	}
	return tag, nil
}

func (rc *ReleaseCreator) createRelease(ctx context.Context, targetTag source.Tag) (source.Release, error) {
	ctx, cancel := context.WithTimeout(ctx, rc.config.Timeout)
	defer cancel()

	req := source.ReleaseRequest{
		TagName:         targetTag.Name,
		Name:            targetTag.Name,
		Body:            releaseBody(rc.src.ReleaseUrl(rc.config.TargetRepo, targetTag.Name)),
		TargetCommitish: rc.config.TargetCommitish,
	}

	release, err := rc.src.CreateRelease(ctx, rc.config.LocalRepo, req)
	if err != nil {
		return release, wrapError(creationError, rc.config.LocalRepo.String(), err)
	}
	return release, nil
}

// notify delivers the message and logs (but never propagates) a delivery failure
func (rc *ReleaseCreator) notify(ctx context.Context, message string) error {
	ctx, cancel := context.WithTimeout(ctx, rc.config.Timeout)
	defer cancel()

	if err := rc.notifier.Notify(ctx, message); err != nil {
		notifyErr := newError(notificationError, failedToDeliverNotification, "webhook", err.Error())
		notifyErr.err = err
		rc.logger.Errorf("Failed to send notification: %s", notifyErr)
		return notifyErr
	}

	if rc.config.WebhookUrl != "" {
		rc.logger.Infof("Successfully sent notification.")
	}
	return nil
}

func releaseBody(upstreamReleaseUrl string) string {
	return fmt.Sprintf("This release was automatically generated.\nIt mirrors the upstream changes from %s", upstreamReleaseUrl)
}
