package service

import (
	"context"
	"errors"
	"testing"
	"time"

	engine "github.com/septentria/land-office/internal/application/workflow"
	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
)

// Mock repositories

type mockTxnRepo struct {
	createFunc             func(ctx context.Context, txn *entity.Transaction) error
	getByIDFunc            func(ctx context.Context, id int64) (*entity.Transaction, error)
	getByCodeFunc          func(ctx context.Context, code string) (*entity.Transaction, error)
	setComplexityIndexFunc func(ctx context.Context, id int64, index float64) error
}

func (m *mockTxnRepo) Create(ctx context.Context, txn *entity.Transaction) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, txn)
	}
	txn.ID = 1
	return nil
}

func (m *mockTxnRepo) GetByID(ctx context.Context, id int64) (*entity.Transaction, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Transaction{ID: id, Code: "ZS-00001-TEST", Jurisdiction: "Zacatecas", Status: workflow.StatusPayment}, nil
}

func (m *mockTxnRepo) GetByCode(ctx context.Context, code string) (*entity.Transaction, error) {
	if m.getByCodeFunc != nil {
		return m.getByCodeFunc(ctx, code)
	}
	return &entity.Transaction{ID: 1, Code: code, Jurisdiction: "Zacatecas", Status: workflow.StatusPayment}, nil
}

func (m *mockTxnRepo) UpdateStatus(ctx context.Context, id int64, status workflow.Status) error {
	return nil
}

func (m *mockTxnRepo) SetPresentationTime(ctx context.Context, id int64, t time.Time) error { return nil }
func (m *mockTxnRepo) SetClosingTime(ctx context.Context, id int64, t time.Time) error     { return nil }
func (m *mockTxnRepo) SetLastDeliveryTime(ctx context.Context, id int64, t time.Time) error {
	return nil
}
func (m *mockTxnRepo) SetLastReentryTime(ctx context.Context, id int64, t time.Time) error {
	return nil
}

func (m *mockTxnRepo) SetComplexityIndex(ctx context.Context, id int64, index float64) error {
	if m.setComplexityIndexFunc != nil {
		return m.setComplexityIndexFunc(ctx, id, index)
	}
	return nil
}

func (m *mockTxnRepo) List(ctx context.Context, status workflow.Status, limit, offset int) ([]*entity.Transaction, error) {
	return []*entity.Transaction{}, nil
}

type mockTaskRepo struct {
	getCurrentFunc func(ctx context.Context, transactionID int64) (*entity.WorkflowTask, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, task *entity.WorkflowTask) error { return nil }

func (m *mockTaskRepo) GetChain(ctx context.Context, transactionID int64) ([]*entity.WorkflowTask, error) {
	return []*entity.WorkflowTask{}, nil
}

func (m *mockTaskRepo) GetCurrent(ctx context.Context, transactionID int64) (*entity.WorkflowTask, error) {
	if m.getCurrentFunc != nil {
		return m.getCurrentFunc(ctx, transactionID)
	}
	return &entity.WorkflowTask{
		TransactionID: transactionID,
		CurrentStatus: workflow.StatusPayment,
		NextStatus:    workflow.StatusEndPoint,
		Status:        workflow.TaskStatusPending,
	}, nil
}

func (m *mockTaskRepo) GetLast(ctx context.Context, transactionID int64) (*entity.WorkflowTask, error) {
	return m.GetCurrent(ctx, transactionID)
}

func (m *mockTaskRepo) Update(ctx context.Context, task *entity.WorkflowTask) error    { return nil }
func (m *mockTaskRepo) CloseTask(ctx context.Context, task *entity.WorkflowTask) error { return nil }

type mockItemRepo struct {
	createFunc             func(ctx context.Context, item *entity.TransactionItem) error
	getByTransactionIDFunc func(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error)
	softDeleteFunc         func(ctx context.Context, id int64) error
}

func (m *mockItemRepo) Create(ctx context.Context, item *entity.TransactionItem) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, item)
	}
	item.ID = 1
	return nil
}

func (m *mockItemRepo) GetByTransactionID(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error) {
	if m.getByTransactionIDFunc != nil {
		return m.getByTransactionIDFunc(ctx, transactionID)
	}
	return []*entity.TransactionItem{}, nil
}

func (m *mockItemRepo) SoftDelete(ctx context.Context, id int64) error {
	if m.softDeleteFunc != nil {
		return m.softDeleteFunc(ctx, id)
	}
	return nil
}

type mockPaymentRepo struct {
	createFunc      func(ctx context.Context, payment *entity.Payment) error
	countActiveFunc func(ctx context.Context, transactionID int64) (int, error)
	getOrderFunc    func(ctx context.Context, transactionID int64) (*entity.PaymentOrder, error)
	createOrderFunc func(ctx context.Context, order *entity.PaymentOrder) error
	cancelOrderFunc func(ctx context.Context, transactionID int64) error
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, payment)
	}
	payment.ID = 1
	return nil
}

func (m *mockPaymentRepo) GetByTransactionID(ctx context.Context, transactionID int64) ([]*entity.Payment, error) {
	return []*entity.Payment{}, nil
}

func (m *mockPaymentRepo) CountActive(ctx context.Context, transactionID int64) (int, error) {
	if m.countActiveFunc != nil {
		return m.countActiveFunc(ctx, transactionID)
	}
	return 0, nil
}

func (m *mockPaymentRepo) CreateOrder(ctx context.Context, order *entity.PaymentOrder) error {
	if m.createOrderFunc != nil {
		return m.createOrderFunc(ctx, order)
	}
	order.ID = 1
	return nil
}

func (m *mockPaymentRepo) GetOrder(ctx context.Context, transactionID int64) (*entity.PaymentOrder, error) {
	if m.getOrderFunc != nil {
		return m.getOrderFunc(ctx, transactionID)
	}
	return nil, workflow.ErrNotFound
}

func (m *mockPaymentRepo) CancelOrder(ctx context.Context, transactionID int64) error {
	if m.cancelOrderFunc != nil {
		return m.cancelOrderFunc(ctx, transactionID)
	}
	return nil
}

type mockCodeGen struct {
	nextFunc func(ctx context.Context) (string, error)
}

func (m *mockCodeGen) NextTransactionCode(ctx context.Context) (string, error) {
	if m.nextFunc != nil {
		return m.nextFunc(ctx)
	}
	return "ZS-00042-TEST", nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockEngine struct {
	startFunc func(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error
}

func (m *mockEngine) Start(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	if m.startFunc != nil {
		return m.startFunc(ctx, p, transactionID, notes)
	}
	return nil
}

func (m *mockEngine) Receive(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	return nil
}
func (m *mockEngine) Take(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	return nil
}
func (m *mockEngine) SetNextStatus(ctx context.Context, p workflow.Principal, transactionID int64, next workflow.Status, contact, notes string) error {
	return nil
}
func (m *mockEngine) DoReentry(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	return nil
}
func (m *mockEngine) ReturnToMe(ctx context.Context, p workflow.Principal, transactionID int64) error {
	return nil
}
func (m *mockEngine) Delete(ctx context.Context, p workflow.Principal, transactionID int64) error {
	return nil
}
func (m *mockEngine) Undelete(ctx context.Context, p workflow.Principal, transactionID int64) error {
	return nil
}
func (m *mockEngine) Status(ctx context.Context, transactionID int64) (*engine.StatusInfo, error) {
	return &engine.StatusInfo{TransactionID: transactionID}, nil
}

type mockInstruments struct {
	hasInstrumentFunc    func(ctx context.Context, transactionID int64) (bool, error)
	instrumentClosedFunc func(ctx context.Context, transactionID int64) (bool, error)
	historicFunc         func(ctx context.Context, transactionID int64) (bool, error)
	certificateCountFunc func(ctx context.Context, transactionID int64) (int, error)
}

func (m *mockInstruments) HasInstrument(ctx context.Context, transactionID int64) (bool, error) {
	if m.hasInstrumentFunc != nil {
		return m.hasInstrumentFunc(ctx, transactionID)
	}
	return false, nil
}

func (m *mockInstruments) IsInstrumentClosed(ctx context.Context, transactionID int64) (bool, error) {
	if m.instrumentClosedFunc != nil {
		return m.instrumentClosedFunc(ctx, transactionID)
	}
	return false, nil
}

func (m *mockInstruments) IsInstrumentHistoric(ctx context.Context, transactionID int64) (bool, error) {
	if m.historicFunc != nil {
		return m.historicFunc(ctx, transactionID)
	}
	return false, nil
}

func (m *mockInstruments) IssuedCertificateCount(ctx context.Context, transactionID int64) (int, error) {
	if m.certificateCountFunc != nil {
		return m.certificateCountFunc(ctx, transactionID)
	}
	return 0, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestService(t *testing.T, txnRepo *mockTxnRepo, itemRepo *mockItemRepo, paymentRepo *mockPaymentRepo, eng *mockEngine) TransactionService {
	t.Helper()
	if txnRepo == nil {
		txnRepo = &mockTxnRepo{}
	}
	if itemRepo == nil {
		itemRepo = &mockItemRepo{}
	}
	if paymentRepo == nil {
		paymentRepo = &mockPaymentRepo{}
	}
	if eng == nil {
		eng = &mockEngine{}
	}
	svc, err := NewTransactionService(txnRepo, itemRepo, paymentRepo, &mockCodeGen{}, &mockTxManager{}, eng, "Zacatecas", nopLogger{})
	if err != nil {
		t.Fatalf("NewTransactionService() error = %v", err)
	}
	return svc
}

var cashier = workflow.Principal{UserID: "cashier-1", Roles: []string{workflow.RoleCashier}}

func TestNewTransactionService_UnknownJurisdiction(t *testing.T) {
	_, err := NewTransactionService(&mockTxnRepo{}, &mockItemRepo{}, &mockPaymentRepo{}, &mockCodeGen{}, &mockTxManager{}, &mockEngine{}, "Atlantis", nopLogger{})
	if !errors.Is(err, workflow.ErrUnsupportedJurisdiction) {
		t.Errorf("expected ErrUnsupportedJurisdiction, got %v", err)
	}
}

func TestCreate_AssignsCodeAndStartsWorkflow(t *testing.T) {
	started := false
	eng := &mockEngine{
		startFunc: func(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
			started = true
			return nil
		},
	}
	svc := newTestService(t, nil, nil, nil, eng)

	txn, err := svc.Create(context.Background(), cashier, CreateTransactionRequest{
		TypeID:      700,
		RequestedBy: "Maria Lopez",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if txn.Code != "ZS-00042-TEST" {
		t.Errorf("Code = %q, want generated code", txn.Code)
	}
	if txn.Status != workflow.StatusPayment {
		t.Errorf("Status = %v, want Payment", txn.Status)
	}
	if !started {
		t.Error("workflow was not started")
	}
}

func TestCreate_RequiresRequestedBy(t *testing.T) {
	svc := newTestService(t, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), cashier, CreateTransactionRequest{TypeID: 700})
	if !errors.Is(err, workflow.ErrPreconditionNotMet) {
		t.Errorf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestCreate_RejectsMalformedBillingTaxCode(t *testing.T) {
	svc := newTestService(t, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), cashier, CreateTransactionRequest{
		TypeID:         700,
		RequestedBy:    "Juan Escutia",
		BillingTaxCode: "not-an-rfc",
	})
	if !errors.Is(err, workflow.ErrValidationFailure) {
		t.Errorf("expected ErrValidationFailure, got %v", err)
	}
}

func TestCreate_KeepsBillingTaxCode(t *testing.T) {
	var saved *entity.Transaction
	txnRepo := &mockTxnRepo{
		createFunc: func(ctx context.Context, txn *entity.Transaction) error {
			txn.ID = 1
			saved = txn
			return nil
		},
	}
	svc := newTestService(t, txnRepo, nil, nil, nil)

	_, err := svc.Create(context.Background(), cashier, CreateTransactionRequest{
		TypeID:         700,
		RequestedBy:    "Juan Escutia",
		BillingTaxCode: "XAXX010101000",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if saved.ExtData.BillingTaxCode != "XAXX010101000" {
		t.Errorf("billing tax code not kept, got %q", saved.ExtData.BillingTaxCode)
	}
}

func TestCreate_AttachesPreconfiguredItems(t *testing.T) {
	var createdItems []*entity.TransactionItem
	itemRepo := &mockItemRepo{
		createFunc: func(ctx context.Context, item *entity.TransactionItem) error {
			createdItems = append(createdItems, item)
			return nil
		},
	}
	svc := newTestService(t, nil, itemRepo, nil, nil)

	_, err := svc.Create(context.Background(), cashier, CreateTransactionRequest{
		TypeID:      702,
		RequestedBy: "Maria Lopez",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(createdItems) != 1 {
		t.Fatalf("preconfigured items = %d, want 1", len(createdItems))
	}
	if createdItems[0].TreasuryCode != "ART-122-IV" {
		t.Errorf("TreasuryCode = %q, want ART-122-IV", createdItems[0].TreasuryCode)
	}
}

func TestCreate_CodeGeneratorFailure(t *testing.T) {
	wantErr := errors.New("numbering service down")
	svc, err := NewTransactionService(
		&mockTxnRepo{}, &mockItemRepo{}, &mockPaymentRepo{},
		&mockCodeGen{nextFunc: func(ctx context.Context) (string, error) { return "", wantErr }},
		&mockTxManager{}, &mockEngine{}, "Zacatecas", nopLogger{})
	if err != nil {
		t.Fatalf("NewTransactionService() error = %v", err)
	}

	_, err = svc.Create(context.Background(), cashier, CreateTransactionRequest{TypeID: 700, RequestedBy: "Maria"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected code generator error, got %v", err)
	}
}

func TestAddItem_RecomputesComplexityIndex(t *testing.T) {
	items := []*entity.TransactionItem{
		{ID: 1, Status: entity.ItemStatusActive, Quantity: 2},
	}
	var gotIndex float64
	txnRepo := &mockTxnRepo{
		setComplexityIndexFunc: func(ctx context.Context, id int64, index float64) error {
			gotIndex = index
			return nil
		},
	}
	itemRepo := &mockItemRepo{
		getByTransactionIDFunc: func(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error) {
			return items, nil
		},
	}
	svc := newTestService(t, txnRepo, itemRepo, nil, nil)

	_, err := svc.AddItem(context.Background(), cashier, 1, ItemRequest{
		ItemTypeID:   710,
		TreasuryCode: "ART-122-I",
		Quantity:     2,
		Fee:          entity.Fee{RecordingRightsCents: 15000},
	})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if gotIndex != 2 {
		t.Errorf("complexity index = %v, want 2", gotIndex)
	}
}

func TestAddItem_RejectedAfterReception(t *testing.T) {
	txnRepo := &mockTxnRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Transaction, error) {
			return &entity.Transaction{ID: id, Code: "ZS-00001-TEST", Status: workflow.StatusControl}, nil
		},
	}
	svc := newTestService(t, txnRepo, nil, nil, nil)

	_, err := svc.AddItem(context.Background(), cashier, 1, ItemRequest{ItemTypeID: 710})
	if !errors.Is(err, workflow.ErrPreconditionNotMet) {
		t.Errorf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestAddItem_NegativeTotalRejected(t *testing.T) {
	svc := newTestService(t, nil, nil, nil, nil)

	_, err := svc.AddItem(context.Background(), cashier, 1, ItemRequest{
		ItemTypeID: 710,
		Fee:        entity.Fee{RecordingRightsCents: 1000, DiscountCents: 2000},
	})
	if !errors.Is(err, workflow.ErrPreconditionNotMet) {
		t.Errorf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestRemoveItem_SoftDeletes(t *testing.T) {
	deleted := false
	itemRepo := &mockItemRepo{
		softDeleteFunc: func(ctx context.Context, id int64) error {
			if id != 7 {
				t.Errorf("SoftDelete id = %d, want 7", id)
			}
			deleted = true
			return nil
		},
	}
	svc := newTestService(t, nil, itemRepo, nil, nil)

	if err := svc.RemoveItem(context.Background(), cashier, 1, 7); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if !deleted {
		t.Error("item was not soft-deleted")
	}
}

func TestGetTotalFee_SumsActiveLines(t *testing.T) {
	itemRepo := &mockItemRepo{
		getByTransactionIDFunc: func(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error) {
			return []*entity.TransactionItem{
				{Status: entity.ItemStatusActive, Fee: entity.Fee{RecordingRightsCents: 15000, SheetsRevisionCents: 9000}},
				{Status: entity.ItemStatusActive, Fee: entity.Fee{RecordingRightsCents: 2000, DiscountCents: 2000}},
				{Status: entity.ItemStatusDeleted, Fee: entity.Fee{RecordingRightsCents: 99999}},
			}, nil
		},
	}
	svc := newTestService(t, nil, itemRepo, nil, nil)

	total, err := svc.GetTotalFee(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetTotalFee() error = %v", err)
	}
	if total.SubTotalCents() != 26000 {
		t.Errorf("SubTotalCents = %d, want 26000", total.SubTotalCents())
	}
	if total.TotalCents() != 24000 {
		t.Errorf("TotalCents = %d, want 24000", total.TotalCents())
	}
}

func TestRegisterPayment_StampsIntegrity(t *testing.T) {
	var saved *entity.Payment
	paymentRepo := &mockPaymentRepo{
		createFunc: func(ctx context.Context, payment *entity.Payment) error {
			saved = payment
			return nil
		},
	}
	svc := newTestService(t, nil, nil, paymentRepo, nil)

	p, err := svc.RegisterPayment(context.Background(), cashier, 1, "RCP-1234", 24000)
	if err != nil {
		t.Fatalf("RegisterPayment() error = %v", err)
	}
	if saved == nil {
		t.Fatal("payment was not persisted")
	}
	if p.IntegrityHash == "" {
		t.Error("integrity hash was not stamped")
	}
	if !p.VerifyIntegrity() {
		t.Error("stamped payment fails its own integrity check")
	}
}

func TestRegisterPayment_Validation(t *testing.T) {
	svc := newTestService(t, nil, nil, nil, nil)

	if _, err := svc.RegisterPayment(context.Background(), cashier, 1, "", 1000); !errors.Is(err, workflow.ErrPreconditionNotMet) {
		t.Errorf("empty receipt: expected ErrPreconditionNotMet, got %v", err)
	}
	if _, err := svc.RegisterPayment(context.Background(), cashier, 1, "RCP-1", -1); !errors.Is(err, workflow.ErrPreconditionNotMet) {
		t.Errorf("negative total: expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestGeneratePaymentOrder_UsesFeeTotal(t *testing.T) {
	itemRepo := &mockItemRepo{
		getByTransactionIDFunc: func(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error) {
			return []*entity.TransactionItem{
				{Status: entity.ItemStatusActive, Fee: entity.Fee{RecordingRightsCents: 15000}},
			}, nil
		},
	}
	var saved *entity.PaymentOrder
	paymentRepo := &mockPaymentRepo{
		createOrderFunc: func(ctx context.Context, order *entity.PaymentOrder) error {
			saved = order
			return nil
		},
	}
	svc := newTestService(t, nil, itemRepo, paymentRepo, nil)

	order, err := svc.GeneratePaymentOrder(context.Background(), cashier, 1)
	if err != nil {
		t.Fatalf("GeneratePaymentOrder() error = %v", err)
	}
	if order.TotalCents != 15000 {
		t.Errorf("TotalCents = %d, want 15000", order.TotalCents)
	}
	if saved == nil || saved.RouteNumber == "" {
		t.Error("order was not persisted with a route number")
	}
}

func TestGeneratePaymentOrder_AlreadyIssued(t *testing.T) {
	paymentRepo := &mockPaymentRepo{
		getOrderFunc: func(ctx context.Context, transactionID int64) (*entity.PaymentOrder, error) {
			return &entity.PaymentOrder{ID: 1, TransactionID: transactionID}, nil
		},
	}
	svc := newTestService(t, nil, nil, paymentRepo, nil)

	_, err := svc.GeneratePaymentOrder(context.Background(), cashier, 1)
	if !errors.Is(err, workflow.ErrPreconditionNotMet) {
		t.Errorf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestCancelPaymentOrder_BlockedByPayments(t *testing.T) {
	paymentRepo := &mockPaymentRepo{
		countActiveFunc: func(ctx context.Context, transactionID int64) (int, error) {
			return 1, nil
		},
	}
	svc := newTestService(t, nil, nil, paymentRepo, nil)

	err := svc.CancelPaymentOrder(context.Background(), cashier, 1)
	if !errors.Is(err, workflow.ErrPreconditionNotMet) {
		t.Errorf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestCancelPaymentOrder_Succeeds(t *testing.T) {
	cancelled := false
	paymentRepo := &mockPaymentRepo{
		cancelOrderFunc: func(ctx context.Context, transactionID int64) error {
			cancelled = true
			return nil
		},
	}
	svc := newTestService(t, nil, nil, paymentRepo, nil)

	if err := svc.CancelPaymentOrder(context.Background(), cashier, 1); err != nil {
		t.Fatalf("CancelPaymentOrder() error = %v", err)
	}
	if !cancelled {
		t.Error("order was not cancelled")
	}
}
