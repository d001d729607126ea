package cli

import (
	"time"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/mirror"
	"github.com/glorpus-work/chanmirror/pkg/model"
	"github.com/schollz/progressbar/v3"
)

// newRunHooks builds the event hooks for a mirror run: a progress bar on
// interactive runs, plain log lines otherwise.
func newRunHooks(total int, description string) mirror.Hooks {
	if !progressEnabled() {
		return loggingHooks()
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	return mirror.Hooks{OnEvent: func(e mirror.Event) {
		switch e.Phase {
		case model.StatusComplete, model.StatusSkipped, model.StatusFailed:
			_ = bar.Add(1)
		}
		if e.Phase == model.StatusFailed {
			logger.Error("record failed", logger.Fields{"record": e.ID, "reason": e.Msg})
		}
	}}
}

// newVerifyHooks counts verification outcomes, which terminate in
// Skipped, Corrupt or Missing rather than Complete.
func newVerifyHooks(total int) mirror.Hooks {
	if !progressEnabled() {
		return loggingHooks()
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("verifying"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	return mirror.Hooks{OnEvent: func(e mirror.Event) {
		switch e.Phase {
		case model.StatusSkipped, model.StatusCorrupt, model.StatusMissing:
			_ = bar.Add(1)
		}
	}}
}

func loggingHooks() mirror.Hooks {
	return mirror.Hooks{OnEvent: func(e mirror.Event) {
		fields := logger.Fields{"record": e.ID}
		if e.Msg != "" {
			fields["detail"] = e.Msg
		}
		switch e.Phase {
		case model.StatusFetching:
			logger.Debug("fetching", fields)
		case model.StatusVerifying:
			logger.Debug("verifying", fields)
		case model.StatusRetrying:
			logger.Warn("retrying", fields)
		case model.StatusCorrupt:
			logger.Warn("corrupt artifact", fields)
		case model.StatusSkipped:
			logger.Debug("already valid", fields)
		case model.StatusComplete:
			if e.Bytes > 0 {
				fields["bytes"] = e.Bytes
			}
			logger.Info("downloaded", fields)
		case model.StatusFailed:
			logger.Error("record failed", fields)
		case model.StatusMissing:
			logger.Warn("missing artifact", fields)
		}
	}}
}
