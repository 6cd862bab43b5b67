package repositories

import (
	"context"
	"testing"
	"time"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrderRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      OrderRepository
	tenantID  uuid.UUID
	storeID   uuid.UUID
	productID uuid.UUID
	actorID   uuid.UUID
	context   context.Context
}

func (suite *OrderRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewOrderRepo(mock)
	suite.tenantID = uuid.New()
	suite.storeID = uuid.New()
	suite.productID = uuid.New()
	suite.actorID = uuid.New()
	suite.context = context.Background()
}

func (suite *OrderRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestOrderRepoTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepoTestSuite))
}

func (suite *OrderRepoTestSuite) newOrder() *models.Order {
	price := decimal.RequireFromString("12.50")
	return &models.Order{
		ID:            uuid.New(),
		TenantID:      suite.tenantID,
		StoreID:       suite.storeID,
		Channel:       models.ChannelPOS,
		Fulfilment:    models.FulfilmentPickup,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentUnpaid,
		Subtotal:      price.Mul(decimal.NewFromInt(2)),
		Total:         price.Mul(decimal.NewFromInt(2)),
		CreatedBy:     &suite.actorID,
		Items: []models.OrderItem{{
			ProductID:   suite.productID,
			ProductName: "Paracetamol 500mg",
			Quantity:    2,
			UnitPrice:   price,
			LineTotal:   price.Mul(decimal.NewFromInt(2)),
		}},
	}
}

func (suite *OrderRepoTestSuite) expectOrderHeader(order *models.Order, seq int) {
	now := time.Now()
	suite.mock.ExpectQuery(`UPDATE stores SET order_seq = order_seq \+ 1`).
		WithArgs(suite.tenantID, suite.storeID).
		WillReturnRows(pgxmock.NewRows([]string{"order_seq"}).AddRow(seq))
	suite.mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(order.ID, order.TenantID, order.StoreID, order.CustomerID, seq, order.Channel, order.Fulfilment,
			order.Status, order.PaymentStatus, order.Subtotal, order.Discount, order.DeliveryFee, order.Tax, order.Total,
			order.DeliveryAddress, order.DeliveryLat, order.DeliveryLng, order.ZoneID, order.Notes, order.CreatedBy).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	suite.mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(pgxmock.AnyArg(), suite.tenantID, order.ID, suite.productID, "Paracetamol 500mg", 2,
			order.Items[0].UnitPrice, order.Items[0].LineTotal).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func (suite *OrderRepoTestSuite) TestCreate_DecrementsStockAndRecordsEvent() {
	order := suite.newOrder()

	suite.mock.ExpectBegin()
	suite.expectOrderHeader(order, 42)
	suite.mock.ExpectQuery(`UPDATE stock_levels\s+SET quantity = quantity - \$1`).
		WithArgs(2, suite.tenantID, suite.storeID, suite.productID).
		WillReturnRows(pgxmock.NewRows([]string{"quantity", "reorder_level", "updated_at"}).AddRow(8, 5, time.Now()))
	suite.mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(pgxmock.AnyArg(), suite.tenantID, suite.storeID, suite.productID, -2, models.StockSale, &order.ID, &suite.actorID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO order_events`).
		WithArgs(pgxmock.AnyArg(), suite.tenantID, order.ID, (*models.OrderStatus)(nil), models.OrderPending, &suite.actorID, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.Create(suite.context, order)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 42, order.OrderNumber)
	assert.Equal(suite.T(), order.ID, order.Items[0].OrderID)
	assert.NotEqual(suite.T(), uuid.Nil, order.Items[0].ID)
}

func (suite *OrderRepoTestSuite) TestCreate_InsufficientStockAbortsOrder() {
	order := suite.newOrder()

	suite.mock.ExpectBegin()
	suite.expectOrderHeader(order, 7)
	suite.mock.ExpectQuery(`UPDATE stock_levels\s+SET quantity = quantity - \$1`).
		WithArgs(2, suite.tenantID, suite.storeID, suite.productID).
		WillReturnRows(pgxmock.NewRows([]string{"quantity", "reorder_level", "updated_at"}))
	suite.mock.ExpectRollback()

	err := suite.repo.Create(suite.context, order)
	require.Error(suite.T(), err)
	ae := apperr.As(err)
	require.NotNil(suite.T(), ae)
	assert.Equal(suite.T(), apperr.CodeStateConflict, ae.Code())
	assert.Equal(suite.T(), "insufficient stock for Paracetamol 500mg", ae.Message())
	assert.Equal(suite.T(), suite.productID.String(), ae.Details()["product_id"])
}

func (suite *OrderRepoTestSuite) TestTransitionStatus_ConcurrentChange() {
	orderID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE orders SET status = \$1`).
		WithArgs(models.OrderConfirmed, suite.tenantID, orderID, models.OrderPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	suite.mock.ExpectRollback()

	err := suite.repo.TransitionStatus(suite.context, OrderTransition{
		TenantID: suite.tenantID, OrderID: orderID, StoreID: suite.storeID,
		From: models.OrderPending, To: models.OrderConfirmed,
	})
	assert.True(suite.T(), apperr.Is(err, apperr.CodeStateConflict))
}

func (suite *OrderRepoTestSuite) TestTransitionStatus_CancelRestocksItems() {
	orderID := uuid.New()
	note := strPtr("customer changed their mind")

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`UPDATE orders SET status = \$1`).
		WithArgs(models.OrderCancelled, suite.tenantID, orderID, models.OrderConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	from := models.OrderConfirmed
	suite.mock.ExpectExec(`INSERT INTO order_events`).
		WithArgs(pgxmock.AnyArg(), suite.tenantID, orderID, &from, models.OrderCancelled, &suite.actorID, note).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectQuery(`SELECT product_id, quantity FROM order_items`).
		WithArgs(suite.tenantID, orderID).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "quantity"}).AddRow(suite.productID, 3))
	suite.mock.ExpectQuery(`INSERT INTO stock_levels`).
		WithArgs(suite.tenantID, suite.storeID, suite.productID, 3).
		WillReturnRows(pgxmock.NewRows([]string{"quantity", "reorder_level", "updated_at"}).AddRow(10, 2, time.Now()))
	suite.mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(pgxmock.AnyArg(), suite.tenantID, suite.storeID, suite.productID, 3, models.StockCancel, &orderID, &suite.actorID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.TransitionStatus(suite.context, OrderTransition{
		TenantID: suite.tenantID, OrderID: orderID, StoreID: suite.storeID,
		From: models.OrderConfirmed, To: models.OrderCancelled,
		ActorID: &suite.actorID, Note: note, Restock: true,
	})
	assert.NoError(suite.T(), err)
}

func (suite *OrderRepoTestSuite) TestSearch_BuildsFilters() {
	status := models.OrderReady
	filter := models.OrderSearchFilter{Query: "ama", StoreID: &suite.storeID, Status: &status, Limit: 20, Offset: 40}

	suite.mock.ExpectQuery(`c\.name ILIKE \$2 OR c\.phone ILIKE \$2\).*o\.store_id = \$3.*o\.status = \$4.*LIMIT \$5 OFFSET \$6`).
		WithArgs(suite.tenantID, "%ama%", suite.storeID, status, 20, 40).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	orders, err := suite.repo.Search(suite.context, suite.tenantID, filter)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), orders)
}
