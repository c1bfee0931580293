package risk

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/bus"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"go.uber.org/zap"
)

// handleModifyOrder validates a ModifyOrder against the same price/
// quantity rules as submission, then either rejects it or routes it
// through the modify throttler.
func (e *Engine) handleModifyOrder(ctx context.Context, cmd types.ModifyOrder, tsNow int64) {
	if e.cfg.Bypass {
		e.forward(ctx, cmd)
		return
	}

	order, ok := e.cache.Order(cmd.ClientOrderId)
	if !ok {
		e.logger.Error("modify order: order not found", zap.String("client_order_id", string(cmd.ClientOrderId)))
		return
	}
	if order.IsClosed() {
		e.rejectModify(order, "order is closed", tsNow)
		return
	}
	if order.Status == types.OrderStatusPendingCancel {
		e.rejectModify(order, "order is pending cancel", tsNow)
		return
	}

	instrument, ok := e.cache.Instrument(cmd.InstrumentId)
	if !ok {
		e.rejectModify(order, "instrument not found", tsNow)
		return
	}

	newPrice := order.Price
	if cmd.Price != nil {
		newPrice = cmd.Price
	}
	newTrigger := order.TriggerPrice
	if cmd.TriggerPrice != nil {
		newTrigger = cmd.TriggerPrice
	}
	newQty := order.Quantity
	if cmd.Quantity != nil {
		newQty = *cmd.Quantity
	}

	if reason, bad := e.checkPrice(newPrice, instrument); bad {
		e.rejectModify(order, reason, tsNow)
		return
	}
	if reason, bad := e.checkPrice(newTrigger, instrument); bad {
		e.rejectModify(order, reason, tsNow)
		return
	}
	if reason, bad := e.checkQuantity(newQty, instrument); bad {
		e.rejectModify(order, reason, tsNow)
		return
	}

	if e.state == types.TradingStateReducing && newQty.GreaterThan(order.Quantity) {
		probe := &types.Order{Side: order.Side}
		if e.wouldIncreaseExposure(cmd.InstrumentId, probe) {
			e.rejectModify(order, "TradingState::REDUCING", tsNow)
			return
		}
	}

	if !e.modifyThrottler.Allow(ctx, string(cmd.InstrumentId.Venue)) {
		e.rejectModify(order, "Exceeded MAX_ORDER_MODIFY_RATE", tsNow)
		return
	}
	if e.bus != nil {
		if err := e.bus.Send(ctx, bus.EndpointExecEngineExecute, cmd); err != nil {
			e.logger.Warn("failed to forward modify command", zap.Error(err))
		}
	}
}
