package service

import (
	"context"
	"errors"

	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/domain/workflow"
)

// ControlService computes the per-caller action gates for a transaction
type ControlService interface {
	ControlFlags(ctx context.Context, p workflow.Principal, transactionID int64) (workflow.ControlData, error)
}

type controlServiceImpl struct {
	txnRepo     port.TransactionRepository
	taskRepo    port.TaskRepository
	paymentRepo port.PaymentRepository
	instruments port.InstrumentGateway
}

// NewControlService creates a new ControlService
func NewControlService(
	txnRepo port.TransactionRepository,
	taskRepo port.TaskRepository,
	paymentRepo port.PaymentRepository,
	instruments port.InstrumentGateway,
) ControlService {
	return &controlServiceImpl{
		txnRepo:     txnRepo,
		taskRepo:    taskRepo,
		paymentRepo: paymentRepo,
		instruments: instruments,
	}
}

// ControlFlags loads the transaction's workflow snapshot and projects the
// control data for the calling user. Terminal transactions have no open
// task; the gates then come from the transaction status alone.
func (s *controlServiceImpl) ControlFlags(ctx context.Context, p workflow.Principal, transactionID int64) (workflow.ControlData, error) {
	txn, err := s.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return workflow.ControlData{}, err
	}
	policy, err := workflow.PolicyFor(txn.Jurisdiction)
	if err != nil {
		return workflow.ControlData{}, err
	}

	in := workflow.ControlInput{
		Status:    txn.Status,
		TypeID:    txn.TypeID,
		DocTypeID: txn.DocTypeID,
		FeeWaiver: txn.FeeWaiver,
		Principal: p,
	}

	current, err := s.taskRepo.GetCurrent(ctx, transactionID)
	switch {
	case err == nil:
		in.NextStatus = current.NextStatus
		in.TaskStatus = current.Status
		in.Responsible = current.Responsible
	case errors.Is(err, workflow.ErrNotFound):
		// closed chain, no open task
	default:
		return workflow.ControlData{}, err
	}

	in.PaymentCount, err = s.paymentRepo.CountActive(ctx, transactionID)
	if err != nil {
		return workflow.ControlData{}, err
	}

	order, err := s.paymentRepo.GetOrder(ctx, transactionID)
	switch {
	case err == nil:
		in.HasPaymentOrder = order != nil
	case errors.Is(err, workflow.ErrNotFound):
	default:
		return workflow.ControlData{}, err
	}

	if in.HasInstrument, err = s.instruments.HasInstrument(ctx, transactionID); err != nil {
		return workflow.ControlData{}, err
	}
	if in.InstrumentClosed, err = s.instruments.IsInstrumentClosed(ctx, transactionID); err != nil {
		return workflow.ControlData{}, err
	}
	if in.DocIsHistoric, err = s.instruments.IsInstrumentHistoric(ctx, transactionID); err != nil {
		return workflow.ControlData{}, err
	}
	if in.CertificateCount, err = s.instruments.IssuedCertificateCount(ctx, transactionID); err != nil {
		return workflow.ControlData{}, err
	}

	return workflow.ComputeControlData(in, policy), nil
}
