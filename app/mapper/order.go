package mapper

import (
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/types"
)

func OrderToResponse(item *entity.Order) *types.Order {
	if item == nil {
		return nil
	}

	out := &types.Order{
		ID:           item.ID,
		IncrementID:  item.IncrementID,
		OrderUID:     item.ProviderUID(),
		HolestPayUID: derefString(item.HolestPayUID),
		Status:       item.Status,
		State:        item.State,
		HPayStatus:   item.HPayStatusValue(),
		GrandTotal:   item.GrandTotal.StringFixed(2),
		Currency:     item.CurrencyCode,
	}
	if raw := item.HPayDataValue(); raw != "" {
		out.HPayData = payload.ParseObjectOrEmpty(raw)
	}
	if !item.UpdatedAt.IsZero() {
		out.UpdatedAt = item.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func ShippingMethodToResponse(item *entity.ShippingMethod) *types.ShippingMethod {
	if item == nil {
		return nil
	}

	return &types.ShippingMethod{
		HPayID:           item.HPayID,
		Code:             entity.ShippingMethodCodePrefix + strconv.FormatInt(item.HPayID, 10),
		UID:              item.UID,
		Name:             item.Name,
		Description:      item.Description,
		ShippingCurrency: item.ShippingCurrency,
	}
}

func ShippingMethodsToResponse(items []*entity.ShippingMethod) []*types.ShippingMethod {
	result := make([]*types.ShippingMethod, 0, len(items))
	for _, item := range items {
		result = append(result, ShippingMethodToResponse(item))
	}
	return result
}

func ShippingQuoteToResponse(quote *service.ShippingQuote) *types.ShippingQuoteResponse {
	if quote == nil {
		return nil
	}

	return &types.ShippingQuoteResponse{
		Method:   ShippingMethodToResponse(quote.Method),
		Cost:     quote.Cost.StringFixed(2),
		Currency: quote.Method.ShippingCurrency,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
