package executor

import (
	"context"
	"errors"

	"github.com/lumeng-dev/clipinsight/internal/provider"
)

// Friendly is the human-facing rendering of a failure: what happened,
// and what the user can do about it.
type Friendly struct {
	Title   string
	Message string
	Action  string
}

// FriendlyMessage maps a failure to user-facing text instead of the raw
// transport error.
func FriendlyMessage(err error) Friendly {
	if errors.Is(err, context.Canceled) {
		return Friendly{
			Title:   "Cancelled",
			Message: "The analysis was stopped.",
			Action:  "Start it again whenever you like.",
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Friendly{
			Title:   "Timed out",
			Message: "The analysis took too long and was stopped.",
			Action:  "Try again; the service may be slow right now.",
		}
	}
	if errors.Is(err, provider.ErrNoContent) {
		return Friendly{
			Title:   "No analysis produced",
			Message: "The model returned an empty response.",
			Action:  "Try again, or switch models.",
		}
	}

	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Status {
		case 401, 403:
			return Friendly{
				Title:   "Access denied",
				Message: "The service rejected the configured credentials.",
				Action:  "Check the API key in your configuration.",
			}
		case 404:
			return Friendly{
				Title:   "Not found",
				Message: "The video could not be found. It may be private or deleted.",
				Action:  "Check the share link and try another video.",
			}
		case 429:
			return Friendly{
				Title:   "Rate limited",
				Message: "The service is receiving too many requests.",
				Action:  "Wait a moment and try again.",
			}
		}
		if httpErr.Status >= 500 {
			return Friendly{
				Title:   "Service unavailable",
				Message: "The upstream service is having trouble.",
				Action:  "Try again in a few minutes.",
			}
		}
	}

	switch Classify(err) {
	case ClassRetryable:
		return Friendly{
			Title:   "Connection problem",
			Message: "The request could not reach the service.",
			Action:  "Check your network and try again.",
		}
	default:
		return Friendly{
			Title:   "Something went wrong",
			Message: "The analysis failed unexpectedly.",
			Action:  "Try again; if it keeps failing, check the logs.",
		}
	}
}
