package brokersvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/notification"
)

// subject per user so clients can subscribe to their own stream only.
func notificationSubject(userPublicID string) string {
	return fmt.Sprintf("jifunze.notifications.%s", userPublicID)
}

type natsBroker struct {
	conn   *nats.Conn
	logger core.Logger
}

var _ notification.Broker = (*natsBroker)(nil)

func NewNatsBroker(conf *core.Config, logger core.Logger) (*natsBroker, error) {
	conn, err := nats.Connect(
		conf.NatsURL,
		nats.Name(conf.AppName),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn(fmt.Sprintf("nats disconnected: %v", err), err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected to " + nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to nats")
	}
	return &natsBroker{conn: conn, logger: logger}, nil
}

func (b *natsBroker) PublishNotification(ctx context.Context, userPublicID string, notif notification.Notification) error {
	data, err := json.Marshal(notif)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	if err := b.conn.Publish(notificationSubject(userPublicID), data); err != nil {
		return errors.Wrap(err, "publishing notification")
	}
	return nil
}

func (b *natsBroker) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}
