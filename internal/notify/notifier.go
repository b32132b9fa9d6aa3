package notify

import (
	"fmt"
	"time"

	"github.com/guonaihong/gout"
	"github.com/stockpile-io/stockpile/config"
	"github.com/stockpile-io/stockpile/internal/inventory"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Notifier fans a low-stock event out to the configured channels. Channels
// with empty configuration are skipped; a delivery failure on one channel
// never blocks the others.
type Notifier struct {
	cfg *config.NotifyConfig
}

func NewNotifier(cfg *config.NotifyConfig) *Notifier {
	return &Notifier{cfg: cfg}
}

// lowStockMessage is the webhook payload.
type lowStockMessage struct {
	Event     string `json:"event"`
	ProductID int64  `json:"product_id,string"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
	At        string `json:"at"`
}

// HandleLowStock is subscribed to inventory.TopicLowStock on the event bus.
func (n *Notifier) HandleLowStock(ev inventory.LowStockEvent) {
	zap.L().Warn("low stock",
		zap.Int64("product_id", ev.ProductID),
		zap.String("name", ev.Name),
		zap.Int("quantity", ev.Quantity),
		zap.Int("threshold", ev.Threshold),
	)

	if n.cfg == nil {
		return
	}

	if n.cfg.WebhookURL != "" {
		n.postWebhook(lowStockMessage{
			Event:     inventory.TopicLowStock,
			ProductID: ev.ProductID,
			Name:      ev.Name,
			Quantity:  ev.Quantity,
			Threshold: ev.Threshold,
			At:        time.Now().Format(time.RFC3339),
		})
	}

	if n.cfg.SmtpHost != "" && n.cfg.MailTo != "" {
		n.sendMail(ev.Name, ev.Quantity, ev.Threshold)
	}
}

func (n *Notifier) postWebhook(msg lowStockMessage) {
	var code int
	err := gout.POST(n.cfg.WebhookURL).
		SetJSON(msg).
		SetTimeout(10 * time.Second).
		Code(&code).
		Do()
	if err != nil {
		zap.L().Error("low-stock webhook delivery failed", zap.Error(err))
		return
	}
	if code >= 300 {
		zap.L().Error("low-stock webhook rejected", zap.Int("status", code))
	}
}

func (n *Notifier) sendMail(name string, quantity, threshold int) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.SmtpUser)
	m.SetHeader("To", n.cfg.MailTo)
	m.SetHeader("Subject", fmt.Sprintf("Low stock alert: %s", name))
	m.SetBody("text/plain", fmt.Sprintf(
		"Product %q is down to %d units (threshold %d).", name, quantity, threshold))

	d := gomail.NewDialer(n.cfg.SmtpHost, n.cfg.SmtpPort, n.cfg.SmtpUser, n.cfg.SmtpPasswd)
	if err := d.DialAndSend(m); err != nil {
		zap.L().Error("low-stock mail delivery failed", zap.Error(err))
	}
}
