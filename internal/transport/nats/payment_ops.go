package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jahb/WedDataManagement/internal/model"
	"github.com/Jahb/WedDataManagement/internal/service"
)

// RegisterPaymentOps binds the credit-channel operations to the ledger.
// DuplicateReplay (ErrAlreadyProcessed) is success on the wire: the barrier
// proves the mutation already happened on an earlier delivery.
func RegisterPaymentOps(r *Responder, svc service.PaymentService) {
	r.Handle(model.OpReserveCredit, func(ctx context.Context, data []byte) (any, error) {
		var req model.ReserveCreditRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpReserveCredit, err)
		}
		err := svc.ReserveCredit(ctx, req.UserID, req.OrderID, req.Amount)
		if err != nil && !errors.Is(err, service.ErrAlreadyProcessed) {
			return nil, err
		}
		return model.DoneReply{Done: true}, nil
	})

	r.Handle(model.OpReleaseCredit, func(ctx context.Context, data []byte) (any, error) {
		var req model.ReleaseCreditRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpReleaseCredit, err)
		}
		err := svc.ReleaseCredit(ctx, req.UserID, req.OrderID)
		if err != nil && !errors.Is(err, service.ErrAlreadyProcessed) {
			return nil, err
		}
		return model.DoneReply{Done: true}, nil
	})

	r.Handle(model.OpAddCredit, func(ctx context.Context, data []byte) (any, error) {
		var req model.AddCreditRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpAddCredit, err)
		}
		if err := svc.AddCredit(ctx, req.UserID, req.Amount); err != nil {
			return nil, err
		}
		return model.DoneReply{Done: true}, nil
	})

	r.Handle(model.OpPaymentStatus, func(ctx context.Context, data []byte) (any, error) {
		var req model.PaymentStatusRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpPaymentStatus, err)
		}
		paid, err := svc.PaymentStatus(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		return model.PaidReply{Paid: paid}, nil
	})
}
