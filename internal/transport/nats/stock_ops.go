package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jahb/WedDataManagement/internal/model"
	"github.com/Jahb/WedDataManagement/internal/service"
)

// RegisterStockOps binds the stock-channel operations to the ledger. A
// duplicate reserve_many key replies done without distinguishing how the
// original attempt ended: the key only promises "nothing left to do here".
func RegisterStockOps(r *Responder, svc service.StockService) {
	r.Handle(model.OpReserveStock, func(ctx context.Context, data []byte) (any, error) {
		var req model.ReserveStockRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpReserveStock, err)
		}
		err := svc.ReserveStock(ctx, req.ItemCounts, req.IdemKey)
		if err != nil && !errors.Is(err, service.ErrAlreadyProcessed) {
			return nil, err
		}
		return model.DoneReply{Done: true}, nil
	})

	r.Handle(model.OpReleaseStock, func(ctx context.Context, data []byte) (any, error) {
		var req model.ReleaseStockRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpReleaseStock, err)
		}
		if err := svc.ReleaseStock(ctx, req.ItemCounts); err != nil {
			return nil, err
		}
		return model.DoneReply{Done: true}, nil
	})

	r.Handle(model.OpAddStock, func(ctx context.Context, data []byte) (any, error) {
		var req model.AddStockRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpAddStock, err)
		}
		if err := svc.AddStock(ctx, req.ItemID, req.Amount); err != nil {
			return nil, err
		}
		return model.DoneReply{Done: true}, nil
	})

	r.Handle(model.OpTotalCost, func(ctx context.Context, data []byte) (any, error) {
		var req model.TotalCostRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", model.OpTotalCost, err)
		}
		total, err := svc.TotalCost(ctx, req.ItemCounts)
		if err != nil {
			return nil, err
		}
		return model.TotalCostReply{TotalCost: total}, nil
	})
}
