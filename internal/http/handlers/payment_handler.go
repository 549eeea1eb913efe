package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/design-orders-backend/internal/http/handlers/common"
	"github.com/ignatzorin/design-orders-backend/internal/interface/http/response"
	"github.com/ignatzorin/design-orders-backend/internal/models"
)

type PaymentReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	GetEscrow(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
}

type PaymentHandler struct {
	payments PaymentReader
}

func NewPaymentHandler(payments PaymentReader) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// GetBalance GET /payments/balance
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	balance, err := h.payments.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, balance)
}

// Deposit POST /payments/deposit
func (h *PaymentHandler) Deposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректная сумма")
		return
	}

	transaction, err := h.payments.Deposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, transaction)
}

// ListTransactions GET /payments/transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	transactions, err := h.payments.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, transactions)
}

// GetEscrow GET /payments/escrow/:orderId
// Escrow виден только покупателю и продавцу заказа; чужой получает 404, чтобы не раскрывать заказ.
func (h *PaymentHandler) GetEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		response.BadRequest(c, "некорректный ID заказа")
		return
	}

	escrow, err := h.payments.GetEscrow(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if escrow.BuyerID != userID && escrow.SellerID != userID {
		response.NotFound(c, "escrow по заказу не найден")
		return
	}

	response.Success(c, escrow)
}
