package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"hacker-tracker.backend/pkg/logger"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// notificationSource is the part of *pq.Listener the wake-up loop uses
type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

var newNotificationSource = func(dsn string, cb pq.EventCallbackType) notificationSource {
	return pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, cb)
}

// Listener turns Postgres NOTIFY on the job channel into worker wake-ups
type Listener struct {
	dsn      string
	channel  string
	onNotify func()
	log      *zap.Logger

	mu     sync.Mutex
	source notificationSource
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewListener creates a listener for NotifyChannel
func NewListener(dsn string, onNotify func()) *Listener {
	return &Listener{
		dsn:      dsn,
		channel:  NotifyChannel,
		onNotify: onNotify,
		log:      logger.Scope("jobs.listener"),
	}
}

// Start subscribes to the channel. Calling Start twice is a no-op.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.source != nil {
		return nil
	}

	source := newNotificationSource(l.dsn, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			l.log.Warn("notification listener connection problem", zap.Error(err))
		case pq.ListenerEventReconnected:
			l.log.Info("notification listener reconnected")
		}
	})
	if err := source.Listen(l.channel); err != nil {
		_ = source.Close()
		return err
	}

	l.source = source
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	go l.run(ctx, source, l.stopCh, l.doneCh)

	l.log.Info("listening for job notifications", zap.String("channel", l.channel))
	return nil
}

func (l *Listener) run(ctx context.Context, source notificationSource, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	notifications := source.NotificationChannel()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case _, ok := <-notifications:
			if !ok {
				return
			}
			// a nil notification follows a reconnect; poll anyway to catch up
			l.onNotify()
		case <-ticker.C:
			if err := source.Ping(); err != nil {
				l.log.Warn("notification listener ping failed", zap.Error(err))
			}
		}
	}
}

// Close stops the loop and releases the connection
func (l *Listener) Close() error {
	l.mu.Lock()
	source := l.source
	stopCh, doneCh := l.stopCh, l.doneCh
	l.source = nil
	l.mu.Unlock()

	if source == nil {
		return nil
	}
	close(stopCh)
	err := source.Close()
	<-doneCh
	return err
}
