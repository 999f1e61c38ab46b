package binance

import (
	"fmt"
	"strconv"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// searchRequest is the JSON body for the C2C adv search endpoint.
type searchRequest struct {
	Asset     string   `json:"asset"`
	Fiat      string   `json:"fiat"`
	TradeType string   `json:"tradeType"`
	Page      int      `json:"page"`
	Rows      int      `json:"rows"`
	PayTypes  []string `json:"payTypes"`
}

// searchResponse is the envelope the C2C search endpoint returns.
// Numeric fields arrive as strings.
type searchResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Success bool        `json:"success"`
	Total   int         `json:"total"`
	Data    []searchRow `json:"data"`
}

type searchRow struct {
	Adv apiAdv `json:"adv"`
}

type apiAdv struct {
	AdvNo          string `json:"advNo"`
	TradeType      string `json:"tradeType"`
	Price          string `json:"price"`
	SurplusAmount  string `json:"surplusAmount"`
	MinSingleTrans string `json:"minSingleTransAmount"`
	MaxSingleTrans string `json:"maxSingleTransAmount"`
}

// toRawOrder validates one advert row and converts it to a domain order.
// Any field that fails validation makes the whole page a data-integrity
// failure: a partially-garbled book must never feed the aggregator.
func (a *apiAdv) toRawOrder(side domain.Side) (domain.RawOrder, error) {
	price, err := strconv.ParseFloat(a.Price, 64)
	if err != nil {
		return domain.RawOrder{}, fmt.Errorf("%w: adv %s: price %q", domain.ErrMalformed, a.AdvNo, a.Price)
	}
	if price <= 0 {
		return domain.RawOrder{}, fmt.Errorf("%w: adv %s: non-positive price %g", domain.ErrMalformed, a.AdvNo, price)
	}

	amount, err := strconv.ParseFloat(a.SurplusAmount, 64)
	if err != nil {
		return domain.RawOrder{}, fmt.Errorf("%w: adv %s: available amount %q", domain.ErrMalformed, a.AdvNo, a.SurplusAmount)
	}
	if amount < 0 {
		return domain.RawOrder{}, fmt.Errorf("%w: adv %s: negative available amount %g", domain.ErrMalformed, a.AdvNo, amount)
	}

	return domain.RawOrder{
		Price:  price,
		Amount: amount,
		Side:   side,
	}, nil
}
