// Package notify alerts operators about scan results over Telegram and
// Discord. Alerts are filtered by event type and by minimum ROI, and the same
// opportunity is not re-announced within the dedup window.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/scan"
)

// Event types.
const (
	EventArbDetected = "arb_detected"
	EventScanFailed  = "scan_failed"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a set
// of allowed event types; Notify only forwards messages whose event type is in
// the allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	minROI  float64
	dedup   *Dedup
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify.
// If events is empty, all event types are allowed.
//
// NotifyScan announces only opportunities with an ROI of at least minROI
// percent. dedup may be nil.
func NewNotifier(senders []Sender, events []string, minROI float64, dedup *Dedup, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		minROI:  minROI,
		dedup:   dedup,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyScan sends one arb_detected alert listing the best opportunity of
// every comparison type that clears the ROI threshold and was not announced
// within the dedup window. Nothing is sent when no opportunity qualifies.
// Opportunities count as announced only after every sender succeeded; delivery
// failures are logged and the alert is retried on the next scan.
func (n *Notifier) NotifyScan(ctx context.Context, res *scan.Result) {
	if !n.allowed(EventArbDetected) {
		return
	}
	var (
		lines []string
		ids   []string
	)
	for _, c := range res.Comparisons {
		o, ok := c.Best()
		if !ok || o.ROIPct < n.minROI {
			continue
		}
		if n.dedup != nil && n.dedup.Seen(o.ID) {
			continue
		}
		ids = append(ids, o.ID)
		lines = append(lines, fmt.Sprintf("• %s: %s\n  %s | cost %.4f | ROI %.2f%%",
			c.Type, o.Title(),
			o.Strategy.Describe(o.Pair.First.Platform, o.Pair.Second.Platform),
			o.Cost, o.ROIPct,
		))
	}
	if len(lines) == 0 {
		return
	}
	title := fmt.Sprintf("Arbitrage detected (%d)", len(lines))
	if len(res.Failed) > 0 {
		failed := make([]string, 0, len(res.Failed))
		for _, p := range res.FailedPlatforms() {
			failed = append(failed, p.DisplayName())
		}
		lines = append(lines, "Unavailable: "+strings.Join(failed, ", "))
	}

	if err := n.Notify(ctx, EventArbDetected, title, strings.Join(lines, "\n")); err != nil {
		n.logger.WarnContext(ctx, "scan notification failed", slog.String("error", err.Error()))
		return
	}
	if n.dedup != nil {
		n.dedup.Mark(ids...)
	}
}

// NotifyScanFailed sends a scan_failed alert.
func (n *Notifier) NotifyScanFailed(ctx context.Context, scanErr error) {
	if err := n.Notify(ctx, EventScanFailed, "Scan failed", scanErr.Error()); err != nil {
		n.logger.WarnContext(ctx, "failure notification failed", slog.String("error", err.Error()))
	}
}

// Notify sends a notification to all senders only if the event type is in the
// allowed list. If no events were configured (empty list), all events pass.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.allowed(event) {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	return n.dispatch(ctx, title, message)
}

func (n *Notifier) allowed(event string) bool {
	return len(n.events) == 0 || n.events[event]
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
