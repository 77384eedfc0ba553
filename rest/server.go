// Package rest exposes the order service HTTP API and publishes order
// lifecycle events to the message bus.
package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ordinex/venue/protocol"
	"github.com/ordinex/venue/store"
)

// Publisher is the slice of the message bus the API needs: fire-and-forget
// event publication.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Server holds the handler dependencies.
type Server struct {
	store      *store.Store
	publisher  Publisher
	serializer protocol.Serializer
}

// NewServer creates the API server over the given store and publisher.
func NewServer(st *store.Store, publisher Publisher) *Server {
	return &Server{
		store:      st,
		publisher:  publisher,
		serializer: protocol.DefaultJSONSerializer{},
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/orders", s.placeOrder)
	r.GET("/orders", s.listOrders)
	r.GET("/orders/:id", s.orderStatus)
	r.PUT("/orders/:id", s.amendOrder)
	r.DELETE("/orders/:id", s.cancelOrder)
	r.GET("/open-orders", s.openOrders)
	r.POST("/trades", s.recordTrade)
	r.GET("/trades", s.listTrades)

	return r
}

type placeOrderRequest struct {
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Side     string          `json:"side"`
	TraderID int64           `json:"trader_id"`
}

type amendOrderRequest struct {
	UpdatedPrice decimal.Decimal `json:"updated_price"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}
	if !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
		return
	}
	if protocol.ParseSide(req.Side) == protocol.SideUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}

	order, err := s.store.CreateOrder(req.Quantity, req.Price, req.Side, req.TraderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.publishLifecycle(protocol.ActionCreate, order)
	c.JSON(http.StatusCreated, order.Payload())
}

func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.store.Orders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	payloads := make([]*protocol.OrderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, order.Payload())
	}
	c.JSON(http.StatusOK, payloads)
}

func (s *Server) orderStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	status, err := s.store.OrderStatus(id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) amendOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req amendOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.UpdatedPrice.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "updated_price must be positive"})
		return
	}

	order, err := s.store.AmendOrderPrice(id, req.UpdatedPrice)
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.publishLifecycle(protocol.ActionUpdate, order)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := s.store.CancelOrder(id)
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.publishLifecycle(protocol.ActionDelete, order)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) openOrders(c *gin.Context) {
	orders, err := s.store.OpenOrders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	payloads := make([]*protocol.OrderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, order.Payload())
	}
	c.JSON(http.StatusOK, payloads)
}

func (s *Server) recordTrade(c *gin.Context) {
	var req protocol.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity <= 0 || !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price and quantity must be positive"})
		return
	}

	trade, err := s.store.CreateTrade(&req)
	if err != nil {
		s.storeError(c, err)
		return
	}

	record := trade.Record()
	s.publishTrade(record)
	c.JSON(http.StatusCreated, record)
}

func (s *Server) listTrades(c *gin.Context) {
	trades, err := s.store.Trades()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	records := make([]*protocol.TradeRecord, 0, len(trades))
	for _, trade := range trades {
		records = append(records, trade.Record())
	}
	c.JSON(http.StatusOK, records)
}

// publishLifecycle notifies the matching service of an order mutation. A
// publish failure is logged, not surfaced: the row is already committed
// and the matching service reconciles from /open-orders at startup.
func (s *Server) publishLifecycle(action protocol.Action, order *store.Order) {
	event := protocol.OrderEvent{Action: action, Order: *order.Payload()}
	data, err := s.serializer.Marshal(event)
	if err != nil {
		slog.Error("failed to encode lifecycle event", "action", action, "order_id", order.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(protocol.SubjectForAction(action), data); err != nil {
		slog.Error("failed to publish lifecycle event", "action", action, "order_id", order.ID, "error", err)
	}
}

func (s *Server) publishTrade(record *protocol.TradeRecord) {
	data, err := s.serializer.Marshal(record)
	if err != nil {
		slog.Error("failed to encode trade record", "trade_id", record.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(protocol.SubjectTradeExecuted, data); err != nil {
		slog.Error("failed to publish trade record", "trade_id", record.ID, "error", err)
	}
}

func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrOrderFinal), errors.Is(err, store.ErrInvalidFill):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}
