package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/clock"
	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/interface/http/dto"
	"github.com/ignatzorin/design-orders-backend/internal/interface/http/response"
	"github.com/ignatzorin/design-orders-backend/internal/usecase/designorder"
)

type DesignOrderHandler struct {
	createUC          *designorder.CreateDesignOrderUseCase
	getUC             *designorder.GetDesignOrderUseCase
	listMyUC          *designorder.ListMyDesignOrdersUseCase
	historyUC         *designorder.GetHistoryUseCase
	startUC           *designorder.StartWorkUseCase
	uploadUC          *designorder.UploadDeliverableUseCase
	listDeliverableUC *designorder.ListDeliverablesUseCase
	deliverUC         *designorder.DeliverUseCase
	revisionUC        *designorder.RequestRevisionUseCase
	acceptUC          *designorder.AcceptUseCase
	disputeUC         *designorder.OpenDisputeUseCase
	cancelUC          *designorder.CancelUseCase
	clock             clock.Clock
}

func NewDesignOrderHandler(deps designorder.Deps, files repository.DeliverableRepository, store designorder.FileStore) *DesignOrderHandler {
	return &DesignOrderHandler{
		createUC:          designorder.NewCreateDesignOrderUseCase(deps),
		getUC:             designorder.NewGetDesignOrderUseCase(deps),
		listMyUC:          designorder.NewListMyDesignOrdersUseCase(deps),
		historyUC:         designorder.NewGetHistoryUseCase(deps),
		startUC:           designorder.NewStartWorkUseCase(deps),
		uploadUC:          designorder.NewUploadDeliverableUseCase(deps, files, store),
		listDeliverableUC: designorder.NewListDeliverablesUseCase(deps, files),
		deliverUC:         designorder.NewDeliverUseCase(deps, files),
		revisionUC:        designorder.NewRequestRevisionUseCase(deps),
		acceptUC:          designorder.NewAcceptUseCase(deps),
		disputeUC:         designorder.NewOpenDisputeUseCase(deps),
		cancelUC:          designorder.NewCancelUseCase(deps),
		clock:             deps.Clock,
	}
}

// CreateOrder POST /orders
func (h *DesignOrderHandler) CreateOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateDesignOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	sellerID, err := uuid.Parse(req.SellerID)
	if err != nil {
		response.BadRequest(c, "некорректный ID продавца")
		return
	}

	order, err := h.createUC.Execute(c.Request.Context(), designorder.CreateDesignOrderInput{
		BuyerID:          userID,
		SellerID:         sellerID,
		Title:            req.Title,
		Brief:            req.Brief,
		Amount:           req.Amount,
		Currency:         req.Currency,
		SellerTier:       req.SellerTier,
		RevisionsAllowed: req.RevisionsAllowed,
		DeliveryDays:     req.DeliveryDays,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, h.render(order))
}

// GetOrder GET /orders/:id
func (h *DesignOrderHandler) GetOrder(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	view, err := h.getUC.Execute(c.Request.Context(), orderID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDesignOrderResponse(*view))
}

// ListMyOrders GET /orders/my?role=buyer|seller
func (h *DesignOrderHandler) ListMyOrders(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	input := designorder.ListMyInput{
		UserID: userID,
		Role:   designorder.Role(c.DefaultQuery("role", string(designorder.RoleBuyer))),
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}
	if input.Offset < 0 {
		input.Offset = 0
	}

	views, total, err := h.listMyUC.Execute(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToDesignOrderResponses(views), total, input.Limit, input.Offset)
}

// GetHistory GET /orders/:id/history
func (h *DesignOrderHandler) GetHistory(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	entries, err := h.historyUC.Execute(c.Request.Context(), orderID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToHistoryResponses(entries))
}

// StartWork POST /orders/:id/start
func (h *DesignOrderHandler) StartWork(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	order, err := h.startUC.Execute(c.Request.Context(), orderID, userID)
	h.respond(c, order, err)
}

// UploadDeliverable POST /orders/:id/deliverables (multipart, поле file)
func (h *DesignOrderHandler) UploadDeliverable(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "файл обязателен")
		return
	}

	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	stored, err := h.uploadUC.Execute(c.Request.Context(), orderID, userID, header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToDeliverableFileResponse(*stored))
}

// ListDeliverables GET /orders/:id/deliverables
func (h *DesignOrderHandler) ListDeliverables(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	files, err := h.listDeliverableUC.Execute(c.Request.Context(), orderID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDeliverableFileResponses(files))
}

// Deliver POST /orders/:id/deliver
func (h *DesignOrderHandler) Deliver(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	var req dto.DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	order, err := h.deliverUC.Execute(c.Request.Context(), orderID, userID, entity.Deliverable{
		Files:   req.Files,
		Message: req.Message,
	})
	h.respond(c, order, err)
}

// RequestRevision POST /orders/:id/revisions
func (h *DesignOrderHandler) RequestRevision(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	var req dto.RevisionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	order, err := h.revisionUC.Execute(c.Request.Context(), orderID, userID, req.Note)
	h.respond(c, order, err)
}

// Accept POST /orders/:id/accept, тело {"confirm": true}
func (h *DesignOrderHandler) Accept(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	var req dto.AcceptRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	order, err := h.acceptUC.Execute(c.Request.Context(), orderID, userID, designorder.AcceptInput{Confirm: req.Confirm})
	h.respond(c, order, err)
}

// OpenDispute POST /orders/:id/dispute
func (h *DesignOrderHandler) OpenDispute(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	order, err := h.disputeUC.Execute(c.Request.Context(), orderID, userID, req.Reason)
	h.respond(c, order, err)
}

// Cancel POST /orders/:id/cancel
func (h *DesignOrderHandler) Cancel(c *gin.Context) {
	userID, orderID, ok := h.identify(c)
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	order, err := h.cancelUC.Execute(c.Request.Context(), orderID, userID, req.Reason)
	h.respond(c, order, err)
}

func (h *DesignOrderHandler) identify(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, uuid.Nil, false
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID заказа")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, orderID, true
}

func (h *DesignOrderHandler) respond(c *gin.Context, order *entity.DesignOrder, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.render(order))
}

func (h *DesignOrderHandler) render(order *entity.DesignOrder) dto.DesignOrderResponse {
	return dto.ToDesignOrderResponse(designorder.ViewAt(order, h.clock.Now()))
}

// bindOptionalJSON разрешает пустое тело запроса.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
