package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/septentria/land-office/internal/application/service"
	engine "github.com/septentria/land-office/internal/application/workflow"
	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
	"github.com/septentria/land-office/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	txnService     service.TransactionService
	controlService service.ControlService
	engine         engine.Engine
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	txnService service.TransactionService,
	controlService service.ControlService,
	wfEngine engine.Engine,
	logger Logger,
) *Handlers {
	return &Handlers{
		txnService:     txnService,
		controlService: controlService,
		engine:         wfEngine,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// statusFor maps workflow error kinds to HTTP status codes. Anything
// unmapped is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrPreconditionNotMet),
		errors.Is(err, workflow.ErrValidationFailure),
		errors.Is(err, workflow.ErrUnsupportedJurisdiction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error, msg string, keysAndValues ...interface{}) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append(keysAndValues, "error", err)...)
		c.JSON(status, Response{Success: false, Error: msg})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func transactionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid transaction ID"})
		return 0, false
	}
	return id, true
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateTransactionRequest is the intake payload
type CreateTransactionRequest struct {
	TypeID      int64  `json:"type_id" binding:"required"`
	DocTypeID   int64  `json:"doc_type_id"`
	RequestedBy string `json:"requested_by" binding:"required"`
	AgencyID    int64  `json:"agency_id"`
	FeeWaiver   bool   `json:"fee_waiver"`

	// BillingTaxCode is the requester's RFC, kept for invoicing
	BillingTaxCode string `json:"billing_tax_code"`
}

// CreateTransaction handles POST /api/transactions
func (h *Handlers) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	txn, err := h.txnService.Create(c.Request.Context(), principalFrom(c), service.CreateTransactionRequest{
		TypeID:         req.TypeID,
		DocTypeID:      req.DocTypeID,
		RequestedBy:    req.RequestedBy,
		AgencyID:       req.AgencyID,
		FeeWaiver:      req.FeeWaiver,
		BillingTaxCode: req.BillingTaxCode,
	})
	if err != nil {
		h.fail(c, err, "failed to create transaction")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: txn})
}

// ListTransactionsRequest represents query parameters for listing
type ListTransactionsRequest struct {
	Status string `form:"status" binding:"required"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// ListTransactions handles GET /api/transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	status := workflow.Status(req.Status)
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown status: " + req.Status})
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	txns, err := h.txnService.List(c.Request.Context(), status, req.Limit, req.Offset)
	if err != nil {
		h.fail(c, err, "failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: txns})
}

// GetTransaction handles GET /api/transactions/:id
func (h *Handlers) GetTransaction(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	txn, err := h.txnService.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get transaction", "id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: txn})
}

// GetTransactionByCode handles GET /api/transactions/code/:code
func (h *Handlers) GetTransactionByCode(c *gin.Context) {
	code := c.Param("code")
	if err := utils.ValidateTransactionCode(code); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	txn, err := h.txnService.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err, "failed to get transaction", "code", code)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: txn})
}

// GetStatus handles GET /api/transactions/:id/status
func (h *Handlers) GetStatus(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	info, err := h.engine.Status(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get transaction status", "id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

// GetControlData handles GET /api/transactions/:id/control-data
func (h *Handlers) GetControlData(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	cd, err := h.controlService.ControlFlags(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.fail(c, err, "failed to compute control data", "id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: cd})
}

// NotesRequest carries the optional clerk notes of a workflow operation
type NotesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handlers) workflowOp(c *gin.Context, name string, op func(p workflow.Principal, id int64, notes string) error) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	var req NotesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
			return
		}
	}

	if err := op(principalFrom(c), id, req.Notes); err != nil {
		h.fail(c, err, "failed to "+name+" transaction", "id", id)
		return
	}

	info, err := h.engine.Status(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get transaction status", "id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

// Receive handles POST /api/transactions/:id/receive
func (h *Handlers) Receive(c *gin.Context) {
	h.workflowOp(c, "receive", func(p workflow.Principal, id int64, notes string) error {
		return h.engine.Receive(c.Request.Context(), p, id, notes)
	})
}

// Take handles POST /api/transactions/:id/take
func (h *Handlers) Take(c *gin.Context) {
	h.workflowOp(c, "take", func(p workflow.Principal, id int64, notes string) error {
		return h.engine.Take(c.Request.Context(), p, id, notes)
	})
}

// SetNextStatusRequest is the routing decision payload
type SetNextStatusRequest struct {
	NextStatus string `json:"next_status" binding:"required"`
	Contact    string `json:"contact"`
	Notes      string `json:"notes"`
}

// SetNextStatus handles POST /api/transactions/:id/next-status
func (h *Handlers) SetNextStatus(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	var req SetNextStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	err := h.engine.SetNextStatus(c.Request.Context(), principalFrom(c), id,
		workflow.Status(req.NextStatus), req.Contact, req.Notes)
	if err != nil {
		h.fail(c, err, "failed to set next status", "id", id)
		return
	}

	info, err := h.engine.Status(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get transaction status", "id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

// Reentry handles POST /api/transactions/:id/reentry
func (h *Handlers) Reentry(c *gin.Context) {
	h.workflowOp(c, "reenter", func(p workflow.Principal, id int64, notes string) error {
		return h.engine.DoReentry(c.Request.Context(), p, id, notes)
	})
}

// ReturnToMe handles POST /api/transactions/:id/return-to-me
func (h *Handlers) ReturnToMe(c *gin.Context) {
	h.workflowOp(c, "recall", func(p workflow.Principal, id int64, notes string) error {
		return h.engine.ReturnToMe(c.Request.Context(), p, id)
	})
}

// DeleteTransaction handles DELETE /api/transactions/:id
func (h *Handlers) DeleteTransaction(c *gin.Context) {
	h.workflowOp(c, "delete", func(p workflow.Principal, id int64, notes string) error {
		return h.engine.Delete(c.Request.Context(), p, id)
	})
}

// UndeleteTransaction handles POST /api/transactions/:id/undelete
func (h *Handlers) UndeleteTransaction(c *gin.Context) {
	h.workflowOp(c, "undelete", func(p workflow.Principal, id int64, notes string) error {
		return h.engine.Undelete(c.Request.Context(), p, id)
	})
}

// AddItemRequest is the service line payload. Money fields are int64 cents.
type AddItemRequest struct {
	ItemTypeID            int64   `json:"item_type_id" binding:"required"`
	TreasuryCode          string  `json:"treasury_code" binding:"required"`
	Quantity              float64 `json:"quantity"`
	Unit                  string  `json:"unit"`
	OperationValueCents   int64   `json:"operation_value_cents"`
	RecordingRightsCents  int64   `json:"recording_rights_cents"`
	SheetsRevisionCents   int64   `json:"sheets_revision_cents"`
	ForeignRecordingCents int64   `json:"foreign_recording_cents"`
	DiscountCents         int64   `json:"discount_cents"`
}

// AddItem handles POST /api/transactions/:id/items
func (h *Handlers) AddItem(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	item, err := h.txnService.AddItem(c.Request.Context(), principalFrom(c), id, service.ItemRequest{
		ItemTypeID:          req.ItemTypeID,
		TreasuryCode:        req.TreasuryCode,
		Quantity:            req.Quantity,
		Unit:                req.Unit,
		OperationValueCents: req.OperationValueCents,
		Fee: entity.Fee{
			RecordingRightsCents:  req.RecordingRightsCents,
			SheetsRevisionCents:   req.SheetsRevisionCents,
			ForeignRecordingCents: req.ForeignRecordingCents,
			DiscountCents:         req.DiscountCents,
		},
	})
	if err != nil {
		h.fail(c, err, "failed to add item", "id", id)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: item})
}

// ItemsResponse bundles the lines with their running totals
type ItemsResponse struct {
	Items         []*entity.TransactionItem `json:"items"`
	SubTotalCents int64                     `json:"sub_total_cents"`
	TotalCents    int64                     `json:"total_cents"`
}

// ListItems handles GET /api/transactions/:id/items
func (h *Handlers) ListItems(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	items, err := h.txnService.GetItems(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to list items", "id", id)
		return
	}

	total := entity.TotalFee(items)
	c.JSON(http.StatusOK, Response{Success: true, Data: ItemsResponse{
		Items:         items,
		SubTotalCents: total.SubTotalCents(),
		TotalCents:    total.TotalCents(),
	}})
}

// RemoveItem handles DELETE /api/transactions/:id/items/:itemID
func (h *Handlers) RemoveItem(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(c.Param("itemID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid item ID"})
		return
	}

	if err := h.txnService.RemoveItem(c.Request.Context(), principalFrom(c), id, itemID); err != nil {
		h.fail(c, err, "failed to remove item", "id", id, "item_id", itemID)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// RegisterPaymentRequest is the treasury receipt payload
type RegisterPaymentRequest struct {
	ReceiptNo         string `json:"receipt_no" binding:"required"`
	ReceiptTotalCents int64  `json:"receipt_total_cents"`
}

// RegisterPayment handles POST /api/transactions/:id/payments
func (h *Handlers) RegisterPayment(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	var req RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if err := utils.ValidateReceiptNo(req.ReceiptNo); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	payment, err := h.txnService.RegisterPayment(c.Request.Context(), principalFrom(c), id,
		req.ReceiptNo, req.ReceiptTotalCents)
	if err != nil {
		h.fail(c, err, "failed to register payment", "id", id)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: payment})
}

// ListPayments handles GET /api/transactions/:id/payments
func (h *Handlers) ListPayments(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	payments, err := h.txnService.GetPayments(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to list payments", "id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: payments})
}

// GeneratePaymentOrder handles POST /api/transactions/:id/payment-order
func (h *Handlers) GeneratePaymentOrder(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	order, err := h.txnService.GeneratePaymentOrder(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.fail(c, err, "failed to generate payment order", "id", id)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: order})
}

// CancelPaymentOrder handles DELETE /api/transactions/:id/payment-order
func (h *Handlers) CancelPaymentOrder(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}

	if err := h.txnService.CancelPaymentOrder(c.Request.Context(), principalFrom(c), id); err != nil {
		h.fail(c, err, "failed to cancel payment order", "id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}
