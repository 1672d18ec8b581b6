package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StatsFunc supplies the aggregate numbers the digest reports.
type StatsFunc func(ctx context.Context) (total, failures7d int, topFailing []string, err error)

// Digest posts a scheduled stats summary to the chat webhook. It is an
// optional enhancement: with no schedule or no webhook it never fires.
type Digest struct {
	cron  *cron.Cron
	cliq  *CliqClient
	stats StatsFunc
	log   *slog.Logger
}

// NewDigest validates the cron expression and prepares the schedule.
// An empty expression disables the digest.
func NewDigest(schedule string, cliq *CliqClient, stats StatsFunc, log *slog.Logger) (*Digest, error) {
	if schedule == "" || !cliq.Configured() {
		return &Digest{log: log}, nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", schedule, err)
	}

	d := &Digest{
		cron:  cron.New(),
		cliq:  cliq,
		stats: stats,
		log:   log,
	}
	if _, err := d.cron.AddFunc(schedule, d.fire); err != nil {
		return nil, fmt.Errorf("schedule digest: %w", err)
	}
	return d, nil
}

// Start begins the schedule. A disabled digest is a no-op.
func (d *Digest) Start() {
	if d.cron != nil {
		d.cron.Start()
	}
}

// Stop halts the schedule, waiting for an in-flight post to finish.
func (d *Digest) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
}

func (d *Digest) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	total, failures, topFailing, err := d.stats(ctx)
	if err != nil {
		d.log.Warn("digest stats query failed", "error", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 CI digest: %d runs total, %d failures in the last 7 days.", total, failures)
	if len(topFailing) > 0 {
		fmt.Fprintf(&b, " Top failing workflows: %s.", strings.Join(topFailing, ", "))
	}

	if res := d.cliq.PostMessage(ctx, b.String()); !res.Success {
		d.log.Warn("digest not delivered", "reason", res.Reason, "error", res.Error)
	}
}
