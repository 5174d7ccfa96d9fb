package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hiresync/internal/logger"
	"hiresync/internal/validator"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PostgresBroker uses LISTEN/NOTIFY on one channel. Publishing goes through
// the application's gorm connection, listening through a dedicated pq.Listener.
type PostgresBroker struct {
	*hub
	db       *gorm.DB
	listener *pq.Listener
	channel  string
	stop     chan struct{}
	done     chan struct{}
}

func NewPostgresBroker(dsn string, db *gorm.DB, channel string, buffer int) (*PostgresBroker, error) {
	listener := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("postgres listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen on %q: %w", channel, err)
	}

	b := &PostgresBroker{
		hub:      newHub(buffer),
		db:       db,
		listener: listener,
		channel:  channel,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.run()
	return b, nil
}

func (b *PostgresBroker) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", b.channel, string(payload)).Error; err != nil {
		return fmt.Errorf("notify change event: %w", err)
	}
	return nil
}

func (b *PostgresBroker) run() {
	defer close(b.done)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case n, ok := <-b.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// reconnected; notifications sent meanwhile are lost
				logger.Info("postgres listener reconnected", "channel", b.channel)
				continue
			}
			evt, err := validator.DecodeRecord[Event]([]byte(n.Extra))
			if err != nil {
				logger.Warn("dropping malformed change event", "channel", n.Channel, "error", err)
				continue
			}
			b.dispatch(evt)
		case <-ticker.C:
			go func() {
				if err := b.listener.Ping(); err != nil {
					logger.Warn("postgres listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (b *PostgresBroker) Close() error {
	close(b.stop)
	<-b.done
	err := b.listener.Close()
	b.close()
	return err
}
