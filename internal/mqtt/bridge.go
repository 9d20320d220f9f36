package mqtt

import (
	"fmt"
	"time"

	"controlling_relay/internal/logger"
	"controlling_relay/internal/models"
	"controlling_relay/internal/notify"
	"controlling_relay/internal/service"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
)

// Submitter accepts parsed commands; satisfied by service.Dispatcher.
type Submitter interface {
	Submit(cmd service.Command) error
}

// Options configure the broker connection.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// Bridge publishes notifications and forwards <prefix>/command messages.
type Bridge struct {
	client    paho.Client
	prefix    string
	submitter Submitter
	log       *logger.Logger
}

var _ notify.Sink = (*Bridge)(nil)

// Connect dials the broker. The command subscription is renewed on every
// (re)connect.
func Connect(opts Options, submitter Submitter, log *logger.Logger) (*Bridge, error) {
	if log == nil {
		log = logger.Nop()
	}
	b := &Bridge{prefix: opts.TopicPrefix, submitter: submitter, log: log}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetWill(topic(b.prefix, TopicBridge), "offline", 1, true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		})

	b.client = paho.NewClient(co)
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.Broker, err)
	}
	return b, nil
}

func (b *Bridge) onConnect(c paho.Client) {
	b.log.Infow("mqtt_connected", "prefix", b.prefix)
	c.Publish(topic(b.prefix, TopicBridge), 1, true, "online")

	cmdTopic := topic(b.prefix, TopicCommand)
	token := c.Subscribe(cmdTopic, 0, func(_ paho.Client, m paho.Message) {
		b.handleCommand(m.Payload())
	})
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		b.log.Errorw("mqtt_subscribe_failed", "topic", cmdTopic, "err", token.Error())
	}
}

func (b *Bridge) handleCommand(payload []byte) {
	cmd, err := ParseCommandPayload(payload)
	if err != nil {
		b.log.Warnw("mqtt_command_rejected", "payload", string(payload), "err", err)
		return
	}
	if err := b.submitter.Submit(cmd); err != nil {
		b.log.Warnw("mqtt_command_not_queued", "command", string(cmd.Name), "err", err)
		return
	}
	b.log.Debugw("mqtt_command_queued", "command", string(cmd.Name), "minutes", cmd.Minutes)
}

// Notify implements notify.Sink.
func (b *Bridge) Notify(n models.Notification) {
	msg, ok, err := FormatMessage(b.prefix, n)
	if err != nil {
		b.log.Errorw("mqtt_format_failed", "kind", string(n.Kind), "err", err)
		return
	}
	if !ok {
		return
	}
	token := b.client.Publish(msg.Topic, 0, msg.Retained, msg.Payload)
	if !token.WaitTimeout(publishTimeout) {
		b.log.Warnw("mqtt_publish_timeout", "topic", msg.Topic)
		return
	}
	if err := token.Error(); err != nil {
		b.log.Warnw("mqtt_publish_failed", "topic", msg.Topic, "err", err)
	}
}

// Close announces the bridge offline and disconnects.
func (b *Bridge) Close() {
	token := b.client.Publish(topic(b.prefix, TopicBridge), 1, true, "offline")
	token.WaitTimeout(publishTimeout)
	b.client.Disconnect(1000)
}
