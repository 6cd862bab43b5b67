package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"warehousepos/internal/caching"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/logger"
)

// NotificationService sends the SMS messages customers and owners receive outside the OTP flow.
// Failures are logged, never returned to the caller that triggered them.
type NotificationService interface {
	OrderStatusChanged(ctx context.Context, order *models.Order)
	// LowStock texts the tenant about items not yet reported today and returns how many were new.
	LowStock(ctx context.Context, tenant *models.Tenant, store *models.Store, levels []*models.StockLevel) int
}

var orderTemplates = map[models.OrderStatus]string{
	models.OrderConfirmed: `Hi {{.Customer}}, your order #{{.Number}} at {{.Store}} is confirmed. Total {{.Currency}} {{.Total}}.`,
	models.OrderReady: `Hi {{.Customer}}, your order #{{.Number}} at {{.Store}} is ready` +
		`{{if .Pickup}} for pickup.{{else}} and waiting for a rider.{{end}}`,
	models.OrderInTransit: `Hi {{.Customer}}, your order #{{.Number}} from {{.Store}} is on its way.`,
	models.OrderDelivered: `Hi {{.Customer}}, your order #{{.Number}} has been delivered. Thank you for shopping with {{.Store}}.`,
}

const lowStockTemplate = `{{.Store}}: low stock on {{range $i, $l := .Items}}{{if $i}}, {{end}}{{$l.ProductName}} ({{$l.Quantity}}){{end}}.`

type orderMessage struct {
	Customer string
	Number   int
	Store    string
	Currency string
	Total    string
	Pickup   bool
}

type notificationService struct {
	sender       SMSSender
	customerRepo repositories.CustomerRepository
	storeRepo    repositories.StoreRepository
	cacheService caching.CacheService
	templates    map[models.OrderStatus]*template.Template
	lowStock     *template.Template
	dispatch     func(func())
	now          func() time.Time
	log          *logger.Logger
}

func NewNotificationService(sender SMSSender, customerRepo repositories.CustomerRepository, storeRepo repositories.StoreRepository, cacheService caching.CacheService, log *logger.Logger) NotificationService {
	s := &notificationService{
		sender:       sender,
		customerRepo: customerRepo,
		storeRepo:    storeRepo,
		cacheService: cacheService,
		templates:    make(map[models.OrderStatus]*template.Template, len(orderTemplates)),
		lowStock:     template.Must(template.New("low_stock").Parse(lowStockTemplate)),
		dispatch:     func(fn func()) { go fn() },
		now:          time.Now,
		log:          log,
	}
	for status, body := range orderTemplates {
		s.templates[status] = template.Must(template.New(string(status)).Parse(body))
	}
	return s
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func (s *notificationService) OrderStatusChanged(ctx context.Context, order *models.Order) {
	tmpl, ok := s.templates[order.Status]
	if !ok || order.CustomerID == nil {
		return
	}
	snapshot := *order
	ctx = context.WithoutCancel(ctx)
	s.dispatch(func() {
		ctx := s.log.WithFields(ctx, map[string]any{"order_id": snapshot.ID.String(), "status": snapshot.Status})
		if err := s.sendOrderMessage(ctx, tmpl, &snapshot); err != nil {
			s.log.Error(ctx, "order notification failed", err)
		}
	})
}

func (s *notificationService) sendOrderMessage(ctx context.Context, tmpl *template.Template, order *models.Order) error {
	customer, err := s.customerRepo.GetByID(ctx, order.TenantID, *order.CustomerID)
	if err != nil {
		return err
	}
	store, err := s.storeRepo.GetByID(ctx, order.TenantID, order.StoreID)
	if err != nil {
		return err
	}
	body, err := render(tmpl, orderMessage{
		Customer: firstName(customer.Name),
		Number:   order.OrderNumber,
		Store:    store.Name,
		Currency: store.Currency,
		Total:    order.Total.StringFixed(2),
		Pickup:   order.Fulfilment == models.FulfilmentPickup,
	})
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, customer.Phone, body)
}

func (s *notificationService) LowStock(ctx context.Context, tenant *models.Tenant, store *models.Store, levels []*models.StockLevel) int {
	day := s.now().UTC().Format("2006-01-02")
	var (
		fresh []*models.StockLevel
		keys  []string
	)
	for _, l := range levels {
		key := fmt.Sprintf("lowstock:%s:%s:%s:%s", tenant.ID, store.ID, l.ProductID, day)
		first, err := s.cacheService.SetNX(ctx, key, "1", 25*time.Hour)
		if err != nil {
			s.log.Error(ctx, "low stock dedupe", err)
			continue
		}
		if first {
			fresh = append(fresh, l)
			keys = append(keys, key)
		}
	}
	if len(fresh) == 0 {
		return 0
	}

	body, err := render(s.lowStock, struct {
		Store string
		Items []*models.StockLevel
	}{Store: store.Name, Items: fresh})
	if err != nil {
		s.log.Error(ctx, "render low stock message", err)
		s.releaseLowStock(ctx, keys)
		return 0
	}
	if err := s.sender.Send(ctx, tenant.Phone, body); err != nil {
		s.log.Error(ctx, "low stock notification failed", err)
		s.releaseLowStock(ctx, keys)
		return 0
	}
	return len(fresh)
}

// releaseLowStock frees the day's keys so the next scan retries an unsent alert.
func (s *notificationService) releaseLowStock(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.cacheService.Delete(ctx, key); err != nil {
			s.log.Error(ctx, "release low stock key", err)
		}
	}
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "there"
}
