package binance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adshao/go-binance/v2/common"
)

func TestBrokerRejectionFromAPIError(t *testing.T) {
	err := &common.APIError{Code: -2021, Message: "Order would immediately trigger."}
	msg, ok := brokerRejection(err)
	assert.True(t, ok)
	assert.Equal(t, "Order would immediately trigger.", msg)
}

func TestBrokerRejectionFromWrappedAPIError(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", &common.APIError{Code: -4164, Message: "Order's notional must be no smaller than 5"})
	msg, ok := brokerRejection(wrapped)
	assert.True(t, ok)
	assert.Contains(t, msg, "notional")
}

func TestBrokerRejectionIgnoresTransportErrors(t *testing.T) {
	_, ok := brokerRejection(errors.New("dial tcp: i/o timeout"))
	assert.False(t, ok)
}

func TestFormatQty(t *testing.T) {
	assert.Equal(t, "0.5", formatQty(0.5))
	assert.Equal(t, "12", formatQty(12))
	assert.Equal(t, "0.001", formatQty(0.001))
}
