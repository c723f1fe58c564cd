package domain

import "encoding/json"

// Ticker is the upstream ticker payload for a single symbol and category.
type Ticker struct {
	Symbol     string          `json:"symbol"`
	Category   string          `json:"category"`
	LastPrice  float64         `json:"last_price"`
	Found      bool            `json:"found"`
	RetCode    int64           `json:"ret_code"`
	RetMsg     string          `json:"ret_msg"`
	HTTPStatus int             `json:"-"`
	Raw        json.RawMessage `json:"-"`
}
