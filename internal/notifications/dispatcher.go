package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/blogqna-backend/internal/realtime"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/blogqna-backend/pkg/errors"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
	"github.com/angelmondragon/blogqna-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBroadcastConcurrency = 8
	defaultDeliverTimeout       = 10 * time.Second
)

// ChannelLookup finds the live channel for a user.
type ChannelLookup interface {
	Lookup(userID string) (realtime.Channel, bool)
}

// Dispatcher persists notifications and pushes them to online recipients.
// Persistence is authoritative; the push is best effort.
type Dispatcher struct {
	store       Store
	channels    ChannelLookup
	logg        *logger.Logger
	metrics     *metrics.RealtimeMetrics
	concurrency int
	timeout     time.Duration
	now         func() time.Time
}

func NewDispatcher(store Store, channels ChannelLookup, cfg config.NotificationsConfig, logg *logger.Logger, m *metrics.RealtimeMetrics) (*Dispatcher, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store required")
	}
	if channels == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "channel registry required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	concurrency := cfg.BroadcastConcurrency
	if concurrency < 1 {
		concurrency = defaultBroadcastConcurrency
	}
	timeout := cfg.DeliverTimeout
	if timeout <= 0 {
		timeout = defaultDeliverTimeout
	}
	return &Dispatcher{
		store:       store,
		channels:    channels,
		logg:        logg,
		metrics:     m,
		concurrency: concurrency,
		timeout:     timeout,
		now:         time.Now,
	}, nil
}

// Deliver assigns n its id and creation time, persists it, then pushes it to
// the target's live channel if there is one. Only a persistence failure is
// returned, as *DeliveryFailedError; push failures are logged and dropped.
//
// Delivery outlives the caller: ctx contributes values only, and the write is
// bounded by the dispatcher's own timeout.
func (d *Dispatcher) Deliver(ctx context.Context, n *models.Notification) error {
	if err := validate(n); err != nil {
		return err
	}
	ctx, cancel := d.detach(ctx)
	defer cancel()
	n.ID = uuid.NewString()
	n.CreatedAt = d.now().UTC().Truncate(time.Millisecond)
	n.Read = false

	ctx = d.logg.WithFields(ctx, map[string]any{
		"target_user_id":  n.TargetUserID,
		"kind":            n.Kind.String(),
		"notification_id": n.ID,
	})

	if err := d.store.Append(ctx, n); err != nil {
		d.metrics.IncDelivery(n.Kind.String(), metrics.DeliveryPersistFailed)
		d.logg.Error(ctx, "notification.persist_failed", err)
		return &DeliveryFailedError{TargetUserID: n.TargetUserID, Err: err}
	}

	ch, ok := d.channels.Lookup(n.TargetUserID)
	if !ok {
		d.metrics.IncDelivery(n.Kind.String(), metrics.DeliveryOffline)
		d.logg.Debug(ctx, "notification.offline")
		return nil
	}

	payload, err := json.Marshal(n)
	if err == nil {
		err = ch.Send(payload)
	}
	if err != nil {
		d.metrics.IncDelivery(n.Kind.String(), metrics.DeliveryPushFailed)
		d.logg.Warn(d.logg.WithField(ctx, "reason", err.Error()), "notification.push_failed")
		return nil
	}
	d.metrics.IncDelivery(n.Kind.String(), metrics.DeliveryPushed)
	return nil
}

// BroadcastResult summarizes a fan-out.
type BroadcastResult struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
}

// Broadcast delivers an independent copy of template to every recipient. A
// failure for one recipient never stops the others; all failures are combined
// into the returned error.
func (d *Dispatcher) Broadcast(ctx context.Context, template models.Notification, recipients []string) (BroadcastResult, error) {
	ctx = context.WithoutCancel(ctx)
	started := d.now()
	result := BroadcastResult{Recipients: len(recipients)}

	var (
		delivered atomic.Int64
		failed    atomic.Int64
		mu        sync.Mutex
		errs      error
	)

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, recipient := range recipients {
		n := template
		n.TargetUserID = recipient
		g.Go(func() error {
			if err := d.Deliver(ctx, &n); err != nil {
				failed.Add(1)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result.Delivered = int(delivered.Load())
	result.Failed = int(failed.Load())

	d.metrics.ObserveBroadcast(d.now().Sub(started))
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"kind":       template.Kind.String(),
		"recipients": result.Recipients,
		"delivered":  result.Delivered,
		"failed":     result.Failed,
	}), "notification.broadcast.complete")
	return result, errs
}

func (d *Dispatcher) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
}

func validate(n *models.Notification) error {
	switch {
	case n == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "notification required")
	case n.TargetUserID == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "target user id required")
	case !n.Kind.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind")
	case n.RelatedPostID == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "related post id required")
	case n.ActorUserID == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "actor user id required")
	case n.Kind.CarriesComment() != (n.RelatedCommentID != nil && *n.RelatedCommentID != ""):
		return pkgerrors.New(pkgerrors.CodeValidation, "related comment id must be set exactly for comment kinds")
	}
	return nil
}

// IsDeliveryFailed reports whether err came from a failed persist.
func IsDeliveryFailed(err error) bool {
	return errors.Is(err, ErrPersistence)
}
