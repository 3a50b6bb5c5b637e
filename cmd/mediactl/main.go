// Command mediactl is the operator entry point for the profile-media store:
// it uploads local images, deletes them by URL and inspects buckets using the
// same configuration as the backend.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/gathr/service/internal/config"
	"github.com/gathr/service/internal/logging"
	"github.com/gathr/service/internal/media"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	err = newRootCmd(cfg, logger).Execute()
	cleanup()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell caller mistakes from retryable outages.
func exitCode(err error) int {
	switch {
	case media.IsMalformed(err):
		return 2
	case media.IsRetryable(err):
		return 3
	case errors.Is(err, media.ErrStorageRejected):
		return 4
	default:
		return 1
	}
}
