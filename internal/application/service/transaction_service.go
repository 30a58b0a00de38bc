package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/septentria/land-office/internal/application/port"
	engine "github.com/septentria/land-office/internal/application/workflow"
	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
	"github.com/septentria/land-office/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateTransactionRequest carries the intake data for a new transaction
type CreateTransactionRequest struct {
	TypeID         int64
	DocTypeID      int64
	RequestedBy    string
	AgencyID       int64
	FeeWaiver      bool
	BillingTaxCode string
}

// ItemRequest carries one billable service line
type ItemRequest struct {
	ItemTypeID          int64
	TreasuryCode        string
	Quantity            float64
	Unit                string
	OperationValueCents int64
	Fee                 entity.Fee
}

// TransactionService manages transactions and their billable aggregates.
// Workflow transitions stay with the engine; this service owns intake,
// service lines and the payment ledger.
type TransactionService interface {
	Create(ctx context.Context, p workflow.Principal, req CreateTransactionRequest) (*entity.Transaction, error)
	Get(ctx context.Context, id int64) (*entity.Transaction, error)
	GetByCode(ctx context.Context, code string) (*entity.Transaction, error)
	List(ctx context.Context, status workflow.Status, limit, offset int) ([]*entity.Transaction, error)

	AddItem(ctx context.Context, p workflow.Principal, transactionID int64, req ItemRequest) (*entity.TransactionItem, error)
	RemoveItem(ctx context.Context, p workflow.Principal, transactionID, itemID int64) error
	GetItems(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error)
	GetTotalFee(ctx context.Context, transactionID int64) (entity.Fee, error)

	RegisterPayment(ctx context.Context, p workflow.Principal, transactionID int64, receiptNo string, totalCents int64) (*entity.Payment, error)
	GetPayments(ctx context.Context, transactionID int64) ([]*entity.Payment, error)
	GeneratePaymentOrder(ctx context.Context, p workflow.Principal, transactionID int64) (*entity.PaymentOrder, error)
	CancelPaymentOrder(ctx context.Context, p workflow.Principal, transactionID int64) error
}

type transactionServiceImpl struct {
	txnRepo      port.TransactionRepository
	itemRepo     port.ItemRepository
	paymentRepo  port.PaymentRepository
	codes        port.CodeGenerator
	txManager    port.TransactionManager
	engine       engine.Engine
	jurisdiction string
	logger       Logger
	now          func() time.Time
}

// NewTransactionService creates a new TransactionService bound to the
// deployment's jurisdiction
func NewTransactionService(
	txnRepo port.TransactionRepository,
	itemRepo port.ItemRepository,
	paymentRepo port.PaymentRepository,
	codes port.CodeGenerator,
	txManager port.TransactionManager,
	wfEngine engine.Engine,
	jurisdiction string,
	logger Logger,
) (TransactionService, error) {
	if _, err := workflow.PolicyFor(jurisdiction); err != nil {
		return nil, err
	}
	return &transactionServiceImpl{
		txnRepo:      txnRepo,
		itemRepo:     itemRepo,
		paymentRepo:  paymentRepo,
		codes:        codes,
		txManager:    txManager,
		engine:       wfEngine,
		jurisdiction: jurisdiction,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// preconfiguredItems lists the service lines certain transaction types
// always start with, keyed by transaction type id
var preconfiguredItems = map[int64][]ItemRequest{
	702: {{ItemTypeID: 712, TreasuryCode: "ART-122-IV", Quantity: 1, Unit: "certificate"}},
	706: {{ItemTypeID: 713, TreasuryCode: "ART-122-V", Quantity: 1, Unit: "certificate"}},
}

// Create registers a new transaction at the payment stage, assigns its
// code, starts the workflow chain and attaches any preconfigured services
func (s *transactionServiceImpl) Create(ctx context.Context, p workflow.Principal, req CreateTransactionRequest) (*entity.Transaction, error) {
	if strings.TrimSpace(req.RequestedBy) == "" {
		return nil, fmt.Errorf("%w: requested-by name is required", workflow.ErrPreconditionNotMet)
	}
	if req.BillingTaxCode != "" {
		if err := utils.ValidateBillingTaxCode(req.BillingTaxCode); err != nil {
			return nil, fmt.Errorf("%w: %v", workflow.ErrValidationFailure, err)
		}
	}

	code, err := s.codes.NextTransactionCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assign transaction code: %w", err)
	}

	txn := entity.NewTransaction(req.TypeID, req.DocTypeID, s.jurisdiction, req.RequestedBy, p.UserID, s.now())
	txn.Code = code
	txn.AgencyID = req.AgencyID
	txn.FeeWaiver = req.FeeWaiver
	txn.ExtData.BillingTaxCode = req.BillingTaxCode

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.txnRepo.Create(txCtx, txn); err != nil {
			return err
		}
		if err := s.engine.Start(txCtx, p, txn.ID, ""); err != nil {
			return err
		}
		for _, item := range preconfiguredItems[req.TypeID] {
			if err := s.createItem(txCtx, p, txn.ID, item); err != nil {
				return err
			}
		}
		return s.refreshComplexityIndex(txCtx, txn.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction created",
		"transaction_id", txn.ID, "code", txn.Code, "type_id", req.TypeID, "posted_by", p.UserID)
	return txn, nil
}

// Get retrieves a transaction by id
func (s *transactionServiceImpl) Get(ctx context.Context, id int64) (*entity.Transaction, error) {
	return s.txnRepo.GetByID(ctx, id)
}

// GetByCode retrieves a transaction by its human-readable code
func (s *transactionServiceImpl) GetByCode(ctx context.Context, code string) (*entity.Transaction, error) {
	return s.txnRepo.GetByCode(ctx, code)
}

// List returns transactions filtered by status
func (s *transactionServiceImpl) List(ctx context.Context, status workflow.Status, limit, offset int) ([]*entity.Transaction, error) {
	return s.txnRepo.List(ctx, status, limit, offset)
}

// AddItem attaches a billable service line while the transaction is still
// at the payment stage
func (s *transactionServiceImpl) AddItem(ctx context.Context, p workflow.Principal, transactionID int64, req ItemRequest) (*entity.TransactionItem, error) {
	if err := s.ensureEditable(ctx, transactionID); err != nil {
		return nil, err
	}
	if req.Fee.TotalCents() < 0 {
		return nil, fmt.Errorf("%w: the line total cannot be negative", workflow.ErrPreconditionNotMet)
	}

	item := s.buildItem(p, transactionID, req)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Create(txCtx, item); err != nil {
			return err
		}
		return s.refreshComplexityIndex(txCtx, transactionID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem soft-deletes a service line; the row stays for the audit trail
func (s *transactionServiceImpl) RemoveItem(ctx context.Context, p workflow.Principal, transactionID, itemID int64) error {
	if err := s.ensureEditable(ctx, transactionID); err != nil {
		return err
	}
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.SoftDelete(txCtx, itemID); err != nil {
			return err
		}
		return s.refreshComplexityIndex(txCtx, transactionID)
	})
}

// GetItems returns every service line of a transaction, soft-deleted
// lines included
func (s *transactionServiceImpl) GetItems(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error) {
	return s.itemRepo.GetByTransactionID(ctx, transactionID)
}

// GetTotalFee aggregates the fees of the transaction's active lines
func (s *transactionServiceImpl) GetTotalFee(ctx context.Context, transactionID int64) (entity.Fee, error) {
	items, err := s.itemRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return entity.Fee{}, err
	}
	return entity.TotalFee(items), nil
}

// RegisterPayment records a treasury receipt against the transaction
func (s *transactionServiceImpl) RegisterPayment(ctx context.Context, p workflow.Principal, transactionID int64, receiptNo string, totalCents int64) (*entity.Payment, error) {
	if strings.TrimSpace(receiptNo) == "" {
		return nil, fmt.Errorf("%w: a receipt number is required", workflow.ErrPreconditionNotMet)
	}
	if totalCents < 0 {
		return nil, fmt.Errorf("%w: the receipt total cannot be negative", workflow.ErrPreconditionNotMet)
	}
	if err := s.ensureEditable(ctx, transactionID); err != nil {
		return nil, err
	}

	payment := &entity.Payment{
		TransactionID:     transactionID,
		ReceiptNo:         receiptNo,
		ReceiptTotalCents: totalCents,
		PostedBy:          p.UserID,
		PostingTime:       s.now(),
		Status:            entity.PaymentStatusActive,
	}
	payment.Stamp()

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("Payment registered",
		"transaction_id", transactionID, "receipt_no", receiptNo, "total_cents", totalCents)
	return payment, nil
}

// GetPayments returns the transaction's payment ledger
func (s *transactionServiceImpl) GetPayments(ctx context.Context, transactionID int64) ([]*entity.Payment, error) {
	return s.paymentRepo.GetByTransactionID(ctx, transactionID)
}

// GeneratePaymentOrder issues the treasury payment slip for the
// transaction's current fee total
func (s *transactionServiceImpl) GeneratePaymentOrder(ctx context.Context, p workflow.Principal, transactionID int64) (*entity.PaymentOrder, error) {
	if err := s.ensureEditable(ctx, transactionID); err != nil {
		return nil, err
	}
	if existing, err := s.paymentRepo.GetOrder(ctx, transactionID); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: a payment order was already issued", workflow.ErrPreconditionNotMet)
	}

	total, err := s.GetTotalFee(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &entity.PaymentOrder{
		TransactionID: transactionID,
		RouteNumber:   fmt.Sprintf("PO-%d-%d", transactionID, now.Unix()),
		TotalCents:    total.TotalCents(),
		IssueTime:     now,
		DueDate:       now.AddDate(0, 0, 30),
		Status:        entity.PaymentStatusActive,
	}
	if err := s.paymentRepo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Payment order generated",
		"transaction_id", transactionID, "route_number", order.RouteNumber, "total_cents", order.TotalCents)
	return order, nil
}

// CancelPaymentOrder voids an unused payment order
func (s *transactionServiceImpl) CancelPaymentOrder(ctx context.Context, p workflow.Principal, transactionID int64) error {
	count, err := s.paymentRepo.CountActive(ctx, transactionID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: payments were already registered against the order", workflow.ErrPreconditionNotMet)
	}
	return s.paymentRepo.CancelOrder(ctx, transactionID)
}

// ensureEditable rejects aggregate mutations once the transaction left
// the payment stage
func (s *transactionServiceImpl) ensureEditable(ctx context.Context, transactionID int64) error {
	txn, err := s.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.Status != workflow.StatusPayment {
		return fmt.Errorf("%w: transaction %s was already received", workflow.ErrPreconditionNotMet, txn.Code)
	}
	return nil
}

func (s *transactionServiceImpl) buildItem(p workflow.Principal, transactionID int64, req ItemRequest) *entity.TransactionItem {
	return &entity.TransactionItem{
		TransactionID:       transactionID,
		ItemTypeID:          req.ItemTypeID,
		TreasuryCode:        req.TreasuryCode,
		Quantity:            req.Quantity,
		Unit:                req.Unit,
		OperationValueCents: req.OperationValueCents,
		Fee:                 req.Fee,
		Status:              entity.ItemStatusActive,
		PostedBy:            p.UserID,
		PostingTime:         s.now(),
	}
}

func (s *transactionServiceImpl) createItem(ctx context.Context, p workflow.Principal, transactionID int64, req ItemRequest) error {
	return s.itemRepo.Create(ctx, s.buildItem(p, transactionID, req))
}

// refreshComplexityIndex recomputes the workload weight from the current
// active lines; called after every item mutation
func (s *transactionServiceImpl) refreshComplexityIndex(ctx context.Context, transactionID int64) error {
	items, err := s.itemRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	return s.txnRepo.SetComplexityIndex(ctx, transactionID, entity.ComplexityIndex(items))
}
