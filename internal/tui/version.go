package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/naveenspark/storefront/pkg/client"
)

const releaseCheckTimeout = 5 * time.Second

// Releases reports the newest published client release.
type Releases interface {
	LatestRelease(ctx context.Context) (*client.Release, error)
}

// updateAvailableMsg names a newer release; tag is empty when there is none.
type updateAvailableMsg struct {
	tag string
}

// checkForUpdate looks up the latest release in the background. Development
// builds and a nil source skip the check.
func checkForUpdate(src Releases, current string, logger zerolog.Logger) tea.Cmd {
	if src == nil || current == "" || current == "dev" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), releaseCheckTimeout)
		defer cancel()
		rel, err := src.LatestRelease(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("release check failed")
			return updateAvailableMsg{}
		}
		if !rel.NewerThan(current) {
			return updateAvailableMsg{}
		}
		logger.Info().Str("current", current).Str("latest", rel.Version()).Msg("update available")
		return updateAvailableMsg{tag: rel.Version()}
	}
}
