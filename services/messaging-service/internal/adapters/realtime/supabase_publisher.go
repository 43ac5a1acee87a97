package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/gorilla/websocket"
)

const (
	publisherQueueSize       = 512
	defaultHeartbeatInterval = 30 * time.Second
	writeTimeout             = 10 * time.Second
	// после стольких каналов соединение пересоздается, чтобы не копить подписки
	maxJoinedTopics = 1000
)

// SupabaseConfig - параметры Supabase Realtime.
type SupabaseConfig struct {
	URL               string
	APIKey            string
	HeartbeatInterval time.Duration
}

// phoenixMessage - кадр протокола Phoenix Channels, которым говорит Supabase Realtime.
type phoenixMessage struct {
	Topic   string      `json:"topic"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Ref     string      `json:"ref"`
	JoinRef string      `json:"join_ref,omitempty"`
}

type outbound struct {
	topic   string
	event   string
	payload json.RawMessage
}

// SupabasePublisher публикует события в broadcast-каналы Supabase Realtime.
// Клиенты подписываются на conversation:<id> и user:<id>.
// Соединением владеет только горутина Run.
type SupabasePublisher struct {
	wsURL     string
	heartbeat time.Duration
	dialer    websocket.Dialer
	queue     chan outbound
	logger    port.LoggerPort
	metrics   *Metrics

	conn   *websocket.Conn
	joined map[string]string
	ref    int
}

var _ port.BroadcasterPort = (*SupabasePublisher)(nil)

func NewSupabasePublisher(cfg SupabaseConfig, baseLogger port.LoggerPort, metrics *Metrics) (*SupabasePublisher, error) {
	wsURL, err := realtimeURL(cfg.URL, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &SupabasePublisher{
		wsURL:     wsURL,
		heartbeat: heartbeat,
		dialer:    websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		queue:     make(chan outbound, publisherQueueSize),
		logger:    baseLogger.WithFields(port.Fields{"component": "SupabasePublisher"}),
		metrics:   metrics,
		joined:    make(map[string]string),
	}, nil
}

func realtimeURL(base, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid supabase url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid supabase url scheme %q", u.Scheme)
	}
	u.Path += "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Topics - каналы, в которые уходит событие.
func Topics(event domain.RealtimeEvent) []string {
	if event.ConversationID != nil {
		return []string{"conversation:" + event.ConversationID.String()}
	}
	topics := make([]string, 0, len(event.Recipients))
	for _, userID := range event.Recipients {
		topics = append(topics, "user:"+userID.String())
	}
	return topics
}

// Broadcast ставит событие в очередь отправки. При полной очереди событие теряется.
func (p *SupabasePublisher) Broadcast(ctx context.Context, event domain.RealtimeEvent) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		p.logger.Error("Failed to marshal event", err, port.Fields{"event_type": event.Type})
		p.metrics.drop(sinkSupabase)
		return
	}
	for _, topic := range Topics(event) {
		select {
		case p.queue <- outbound{topic: topic, event: event.Type, payload: payload}:
		default:
			p.metrics.drop(sinkSupabase)
			p.logger.Warn("Realtime queue is full, event dropped", port.Fields{"topic": topic, "event_type": event.Type})
		}
	}
}

// Run отправляет события до отмены ctx. Соединение открывается при первой отправке
// и пересоздается после ошибки записи.
func (p *SupabasePublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.heartbeat)
	defer ticker.Stop()
	defer p.disconnect()

	p.logger.Info("Realtime publisher started", nil)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Realtime publisher stopped", nil)
			return
		case <-ticker.C:
			if p.conn == nil {
				continue
			}
			if err := p.write(phoenixMessage{Topic: "phoenix", Event: "heartbeat", Payload: struct{}{}, Ref: p.nextRef()}); err != nil {
				p.logger.Warn("Heartbeat failed, reconnecting on next event", port.Fields{"error": err.Error()})
				p.disconnect()
			}
		case msg := <-p.queue:
			if err := p.send(ctx, msg); err != nil {
				p.metrics.drop(sinkSupabase)
				p.logger.Warn("Failed to publish realtime event", port.Fields{
					"topic":      msg.topic,
					"event_type": msg.event,
					"error":      err.Error(),
				})
				p.disconnect()
				continue
			}
			p.metrics.delivery(sinkSupabase)
		}
	}
}

func (p *SupabasePublisher) send(ctx context.Context, msg outbound) error {
	if err := p.connect(ctx); err != nil {
		return err
	}
	channel := "realtime:" + msg.topic
	joinRef, ok := p.joined[channel]
	if !ok {
		if len(p.joined) >= maxJoinedTopics {
			p.disconnect()
			if err := p.connect(ctx); err != nil {
				return err
			}
		}
		joinRef = p.nextRef()
		join := phoenixMessage{
			Topic: channel,
			Event: "phx_join",
			Payload: map[string]interface{}{
				"config": map[string]interface{}{
					"broadcast": map[string]interface{}{"self": false, "ack": false},
					"presence":  map[string]interface{}{"key": ""},
					"private":   false,
				},
			},
			Ref:     joinRef,
			JoinRef: joinRef,
		}
		if err := p.write(join); err != nil {
			return fmt.Errorf("join %s: %w", channel, err)
		}
		p.joined[channel] = joinRef
	}

	return p.write(phoenixMessage{
		Topic: channel,
		Event: "broadcast",
		Payload: map[string]interface{}{
			"type":    "broadcast",
			"event":   msg.event,
			"payload": msg.payload,
		},
		Ref:     p.nextRef(),
		JoinRef: joinRef,
	})
}

func (p *SupabasePublisher) connect(ctx context.Context) error {
	if p.conn != nil {
		return nil
	}
	conn, _, err := p.dialer.DialContext(ctx, p.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	p.conn = conn
	p.joined = make(map[string]string)

	// ответы сервера (phx_reply) не нужны, но их надо вычитывать
	go func(c *websocket.Conn) {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}(conn)

	p.logger.Debug("Connected to Supabase Realtime", nil)
	return nil
}

func (p *SupabasePublisher) write(msg phoenixMessage) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return p.conn.WriteJSON(msg)
}

func (p *SupabasePublisher) disconnect() {
	if p.conn == nil {
		return
	}
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = p.conn.Close()
	p.conn = nil
	p.joined = make(map[string]string)
}

func (p *SupabasePublisher) nextRef() string {
	p.ref++
	return strconv.Itoa(p.ref)
}
