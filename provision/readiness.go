package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/faults"
	"github.com/vaultmerge/vaultmerge/logger"
	"golang.org/x/sync/errgroup"
)

// ServingMarker is printed by the serve tool once the endpoint is up
const ServingMarker = "Serving via webdav"

const loopback = "127.0.0.1"

// ResolvedURL is the WebDAV endpoint found for one account
type ResolvedURL struct {
	Account string
	URL     string
	// Ready is false when URL is the fallback
	Ready bool
}

// ExtractURL returns the URL of a serving line, the text after the ": "
// that follows the marker. It returns "" for any other line.
func ExtractURL(line string) string {
	i := strings.Index(line, ServingMarker)
	if i < 0 {
		return ""
	}
	_, url, ok := strings.Cut(line[i+len(ServingMarker):], ": ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(url)
}

// FallbackURL is the endpoint assumed for an account that never reported one
func FallbackURL(port int) string {
	return fmt.Sprintf("http://%s:%d", loopback, port)
}

// Poller watches serve logs for the serving marker
type Poller struct {
	checks   int
	interval time.Duration
}

// NewPoller creates a Poller doing at most checks checks, interval apart
func NewPoller(checks int, interval time.Duration) *Poller {
	return &Poller{checks: checks, interval: interval}
}

// Wait polls the account log until it reports its URL. When the window
// passes, or ctx ends first, the fallback URL is returned instead.
func (p *Poller) Wait(ctx context.Context, a config.Account) ResolvedURL {
	entry := log.WithFields(log.Fields{"account": a.Name, "log": a.LogFile})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

poll:
	for i := 0; i < p.checks; i++ {
		line, found, err := logger.FindLine(a.LogFile, ServingMarker)
		if err != nil {
			entry.WithError(err).Debug("fail to read serve log")
		}
		if found {
			if url := ExtractURL(line); url != "" {
				entry.WithFields(log.Fields{"url": url}).Info("account is serving")
				return ResolvedURL{Account: a.Name, URL: url, Ready: true}
			}
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			break poll
		}
	}

	url := FallbackURL(a.Port)
	entry.WithFields(log.Fields{"url": url, log.ErrorKey: faults.ErrReadinessTimeout}).Warn("no serving URL in log, using fallback")
	return ResolvedURL{Account: a.Name, URL: url}
}

// Resolve waits for all accounts concurrently. The results follow the order
// of accounts.
func (p *Poller) Resolve(ctx context.Context, accounts []config.Account, limit int) []ResolvedURL {
	results := make([]ResolvedURL, len(accounts))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			results[i] = p.Wait(ctx, account)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
