// Package mqtt carries l1 packets over an MQTT broker, which also serves as
// the registry: a device node publishes a retained "type/id/meta" message,
// receives commands on "type/id/cmd" and publishes on "type/id/msg".
package mqtt

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is called when a message arrives on a subscribed topic. The topic
// is stripped of the queue prefix.
type Handler func(topic string, payload []byte)

// ConnectHandler is called on connect and connection loss.
type ConnectHandler func(*Queue)

// Queue is a paho client with a topic prefix and local fan-out of
// subscriptions sharing a filter.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	lock sync.RWMutex
	subs map[string][]*Subscription
}

// Subscription is a handler on a topic filter.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	filter  string
	handler Handler
}

// MatchTopic matches a topic against an MQTT filter with "+" and "#".
func MatchTopic(topic, filter string) bool {
	levels, patterns := strings.Split(topic, "/"), strings.Split(filter, "/")
	for n, p := range patterns {
		if p == "#" {
			return n == len(patterns)-1
		}
		if n >= len(levels) {
			return false
		}
		if p != "+" && p != levels[n] {
			return false
		}
	}
	return len(levels) == len(patterns)
}

// ClientOptionsFromURL creates client options from
// mqtt://[user:pass@]host:port/topic-prefix/[?client-id=ID] and returns the
// topic prefix.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}
	opts := paho.NewClientOptions().
		AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if id := u.Query().Get("client-id"); id != "" {
		opts.SetClientID(id)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// NewQueue creates a Queue, the client is not connected.
func NewQueue(opts *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, subs: make(map[string][]*Subscription)}
	opts.SetOnConnectHandler(func(paho.Client) { q.connected() })
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) { q.lost(err) })
	q.Client = paho.NewClient(opts)
	return q
}

// NewQueueFromURL creates a Queue from a broker URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, prefix), nil
}

// Connect starts connecting.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub subscribes a handler to a topic filter. The broker subscription is
// made on the first handler of a filter.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.lock.Lock()
	existing := q.subs[filter]
	q.subs[filter] = append(existing, sub)
	q.lock.Unlock()
	if len(existing) > 0 {
		sub.Token = existing[0].Token
		return sub
	}
	glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
	sub.Token = q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatch)
	return sub
}

// Pub publishes with QoS 0.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain flag.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Filters returns the subscribed topic filters.
func (q *Queue) Filters() []string {
	q.lock.RLock()
	defer q.lock.RUnlock()
	filters := make([]string, 0, len(q.subs))
	for f := range q.subs {
		filters = append(filters, f)
	}
	return filters
}

func (q *Queue) connected() {
	glog.Info("MQTT connected")
	if filters := q.Filters(); len(filters) > 0 {
		m := make(map[string]byte, len(filters))
		for _, f := range filters {
			glog.V(2).Infof("SUB %q", q.TopicPrefix+f)
			m[q.TopicPrefix+f] = 0
		}
		q.Client.SubscribeMultiple(m, q.dispatch)
	}
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

func (q *Queue) lost(err error) {
	glog.Warningf("MQTT connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	topic = topic[len(q.TopicPrefix):]
	glog.V(2).Infof("RCV %q", topic)
	for _, h := range q.handlers(topic) {
		h(topic, msg.Payload())
	}
}

func (q *Queue) handlers(topic string) (hs []Handler) {
	q.lock.RLock()
	defer q.lock.RUnlock()
	for filter, subs := range q.subs {
		if MatchTopic(topic, filter) {
			for _, s := range subs {
				hs = append(hs, s.handler)
			}
		}
	}
	return
}

// Close removes the handler, the broker subscription is dropped with the
// last handler of the filter.
func (s *Subscription) Close() error {
	q := s.queue
	q.lock.Lock()
	subs := q.subs[s.filter]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n], subs[n+1:]...)
			break
		}
	}
	last := len(subs) == 0
	if last {
		delete(q.subs, s.filter)
	} else {
		q.subs[s.filter] = subs
	}
	q.lock.Unlock()
	if !last {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", q.TopicPrefix+s.filter)
	token := q.Client.Unsubscribe(q.TopicPrefix + s.filter)
	token.Wait()
	return token.Error()
}
