package main

// Error kinds, one per step of a run
const (
	validationError      = "validation"
	fetchError           = "fetch"
	patternMismatchError = "pattern mismatch"
	creationError        = "release creation"
	notificationError    = "notification"
)

const invalidInput = 100
const invalidConfigFile = 110

const noTagsFound = 200

const tagDoesNotMatchPattern = 300

const invalidTokenOrAccessDenied = 401
const repoDoesNotExistOrAccessDenied = 404
const releaseAlreadyExists = 409
const rateLimitExceeded = 429

const failedToCallApi = 500
const failedToDeliverNotification = 510

// Process exit codes
const exitCodeFailure = 1
const exitCodeInvalidInput = 2
