package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartNotificationConsumer connects to RabbitMQ, declares both
// notification queues, and consumes them forever.  Each message is
// appended as a single human-readable line to logs/notifications.log,
// which doubles as the reconciliation/audit trail for point events.
// The function runs a reconnect loop with exponential backoff and never
// returns in normal operation; messages that cannot be handled are
// rejected without requeue so a poison message cannot wedge the queue.
func StartNotificationConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(BrokerURL())
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{PointsAwardedQueue, RedemptionConfirmedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	awarded, err := ch.Consume(PointsAwardedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PointsAwardedQueue, err)
	}
	redeemed, err := ch.Consume(RedemptionConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", RedemptionConfirmedQueue, err)
	}

	for {
		select {
		case d, ok := <-awarded:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handle(d, handleAwarded)
		case d, ok := <-redeemed:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handle(d, handleRedeemed)
		}
	}
}

func handle(d amqp.Delivery, fn func([]byte) error) {
	if err := fn(d.Body); err != nil {
		log.Printf("notify-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleAwarded(body []byte) error {
	var ev PointsAwardedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Points awarded | user_id=%d | amount=%d | category=%s | reason=%q | balance=%d\n",
		ev.AwardedAt, ev.UserID, ev.Amount, ev.Category, ev.Reason, ev.Balance)
	return appendLine(line)
}

func handleRedeemed(body []byte) error {
	var ev RedemptionConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Redemption confirmed | redemption_id=%d | user_id=%d | reward=%q | points_spent=%d | balance=%d\n",
		ev.PurchasedAt, ev.RedemptionID, ev.UserID, ev.RewardTitle, ev.PointsSpent, ev.Balance)
	return appendLine(line)
}

func appendLine(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
