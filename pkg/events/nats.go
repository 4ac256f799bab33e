// Пакет events публикует события изменения кейсов в NATS
package events

import "strings"

// Conn определяет минимальный интерфейс NATS-подключения (*nats.Conn его реализует)
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher публикует события в темы вида <prefix>.<kind>
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// NewPublisher создаёт публикатор с базовой темой prefix
func NewPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject возвращает тему для вида события
func (n *NATSPublisher) Subject(kind string) string {
	if n.prefix == "" {
		return kind
	}
	return n.prefix + "." + kind
}

// Publish отправляет данные в тему события kind
func (n *NATSPublisher) Publish(kind string, data []byte) error {
	return n.conn.Publish(n.Subject(kind), data)
}

// Wildcard возвращает тему подписки на все виды событий с базовой темой prefix
func Wildcard(prefix string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return ">"
	}
	return prefix + ".>"
}
