package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gatherhub/gatherhub-backend/internal/clients/push"
	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/platform/ctxutil"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/realtime"
	"github.com/gatherhub/gatherhub-backend/internal/realtime/bus"
)

// NotificationDispatcher fans a message out to a broadcast topic or to the
// resolved device endpoints of a set of users. Dispatch is best-effort and
// always runs after the state write that triggered it; a transport failure
// surfaces as a dispatch error but never reverses anything.
type NotificationDispatcher interface {
	NotifyTopic(ctx context.Context, topicKey, title, body string, payload map[string]any) (*push.Receipt, error)
	NotifyUsers(ctx context.Context, userIDs []string, title, body string, payload map[string]any) (*push.Receipt, error)
}

// payloadFallbacks is the per-field fallback table applied when a payload
// value is absent or empty. Field semantics live here, not at call sites.
var payloadFallbacks = map[string]string{
	"items": FallbackNoItems,
}

type notificationDispatcher struct {
	log       *logger.Logger
	pushc     push.Client
	directory DirectoryService
	feedHub   *realtime.FeedHub
	feedBus   bus.Bus
	timeout   time.Duration
}

// NewNotificationDispatcher wires the dispatcher. feedHub and feedBus are
// optional; when present every topic send is mirrored onto the notification
// feed. timeout bounds every transport call so a stalled gateway cannot
// stall request handling.
func NewNotificationDispatcher(log *logger.Logger, pushc push.Client, directory DirectoryService, feedHub *realtime.FeedHub, feedBus bus.Bus, timeout time.Duration) NotificationDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &notificationDispatcher{
		log:       log.With("service", "NotificationDispatcher"),
		pushc:     pushc,
		directory: directory,
		feedHub:   feedHub,
		feedBus:   feedBus,
		timeout:   timeout,
	}
}

func (nd *notificationDispatcher) NotifyTopic(ctx context.Context, topicKey, title, body string, payload map[string]any) (*push.Receipt, error) {
	if topicKey == "" {
		return nil, apierr.Validation("topic is required")
	}
	data := coercePayload(payload, payloadFallbacks)
	msg := push.Message{Title: title, Body: body, Data: data}

	sendCtx, cancel := context.WithTimeout(ctxutil.Default(ctx), nd.timeout)
	defer cancel()

	receipt, err := nd.pushc.SendToTopic(sendCtx, topicKey, msg)
	if err != nil {
		nd.log.Error("Topic dispatch failed", "topic", topicKey, "error", err)
		return nil, apierr.Dispatch(err)
	}

	nd.mirrorToFeed(topicKey, title, body, data)

	nd.log.Info("Topic notification dispatched", "topic", topicKey, "message_id", receipt.MessageID)
	return receipt, nil
}

func (nd *notificationDispatcher) NotifyUsers(ctx context.Context, userIDs []string, title, body string, payload map[string]any) (*push.Receipt, error) {
	endpoints, err := nd.directory.ResolveEndpoints(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	// No reachable device anywhere is not an error; there is simply nothing
	// to deliver.
	if len(endpoints) == 0 {
		nd.log.Debug("No endpoints resolved; skipping dispatch", "user_count", len(userIDs))
		return &push.Receipt{}, nil
	}

	data := coercePayload(payload, payloadFallbacks)
	msg := push.Message{Title: title, Body: body, Data: data}

	sendCtx, cancel := context.WithTimeout(ctxutil.Default(ctx), nd.timeout)
	defer cancel()

	total := &push.Receipt{}
	g, gctx := errgroup.WithContext(sendCtx)
	results := make([]*push.Receipt, 0, (len(endpoints)+push.MaxEndpointsPerSend-1)/push.MaxEndpointsPerSend)

	for start := 0; start < len(endpoints); start += push.MaxEndpointsPerSend {
		end := start + push.MaxEndpointsPerSend
		if end > len(endpoints) {
			end = len(endpoints)
		}
		chunk := endpoints[start:end]
		idx := len(results)
		results = append(results, nil)
		g.Go(func() error {
			receipt, sendErr := nd.pushc.SendToEndpoints(gctx, chunk, msg)
			if sendErr != nil {
				return sendErr
			}
			results[idx] = receipt
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		nd.log.Error("User dispatch failed", "user_count", len(userIDs), "endpoint_count", len(endpoints), "error", err)
		return nil, apierr.Dispatch(err)
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		total.Delivered += r.Delivered
		total.Failed += r.Failed
		if total.MessageID == "" {
			total.MessageID = r.MessageID
		}
	}

	nd.log.Info("User notification dispatched",
		"user_count", len(userIDs),
		"endpoints", endpoints,
		"delivered", total.Delivered,
	)
	return total, nil
}

func (nd *notificationDispatcher) mirrorToFeed(topicKey, title, body string, data map[string]string) {
	msg := realtime.Message{Topic: topicKey, Title: title, Body: body, Data: data}
	if nd.feedHub != nil {
		nd.feedHub.Broadcast(msg)
	}
	if nd.feedBus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), nd.timeout)
		defer cancel()
		if err := nd.feedBus.Publish(ctx, msg); err != nil {
			nd.log.Warn("Feed bus publish failed", "topic", topicKey, "error", err)
		}
	}
}
