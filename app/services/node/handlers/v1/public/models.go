package public

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
)

type name struct {
	Name       string        `json:"name"`
	Value      string        `json:"value"`
	TxID       string        `json:"txid"`
	Vout       uint16        `json:"vout"`
	Address    names.Address `json:"address"`
	KeyName    string        `json:"key_name,omitempty"`
	Height     uint64        `json:"height"`
	ExpiresIn  int64         `json:"expires_in"`
	Expired    bool          `json:"expired"`
	Superseded bool          `json:"superseded,omitempty"`
}

type account struct {
	state.Account
	KeyName string `json:"key_name"`
}

type scanQuery struct {
	Start string `json:"start"`
	Count int    `json:"count" validate:"gte=0,lte=10000"`
}

type filterQuery struct {
	Regexp string `json:"regexp" validate:"max=255"`
	MaxAge uint64 `json:"maxage"`
	From   int    `json:"from" validate:"gte=0"`
	Count  int    `json:"nb" validate:"gte=0,lte=10000"`
	Stat   bool   `json:"stat"`
}

func (q *filterQuery) parse(r *http.Request) error {
	v := r.URL.Query()

	q.Regexp = v.Get("regexp")

	var err error
	if s := v.Get("maxage"); s != "" {
		if q.MaxAge, err = strconv.ParseUint(s, 10, 64); err != nil {
			return fmt.Errorf("invalid maxage: %w", err)
		}
	}
	if s := v.Get("from"); s != "" {
		if q.From, err = strconv.Atoi(s); err != nil {
			return fmt.Errorf("invalid from: %w", err)
		}
	}
	if s := v.Get("nb"); s != "" {
		if q.Count, err = strconv.Atoi(s); err != nil {
			return fmt.Errorf("invalid nb: %w", err)
		}
	}
	if s := v.Get("stat"); s != "" {
		if q.Stat, err = strconv.ParseBool(s); err != nil {
			return fmt.Errorf("invalid stat: %w", err)
		}
	}

	return nil
}
