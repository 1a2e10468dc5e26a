package mandala

import (
	"context"
	"io"
	"testing"

	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFetchOrderStatusErrorsWithoutVenueOrderID(t *testing.T) {
	d := &Driver{
		client: NewClient("key", "secret", ""),
		log:    zerolog.New(io.Discard),
	}

	tx := transaction.Transaction{ID: "tx-1", Stage: transaction.BuyTransactionOpen}

	_, _, err := d.fetchOrderStatus(context.Background(), tx)

	assert.Error(t, err)
}

func TestFetchOrderStatusUsesSellOrderIDOnceSelling(t *testing.T) {
	buyID := "buy-order"
	sellID := "sell-order"
	tx := transaction.Transaction{
		ID:             "tx-1",
		Stage:          transaction.SellTransactionOpen,
		BuyExchangeID:  &buyID,
		SellExchangeID: &sellID,
	}

	// Without a live venue this call will fail on the network round trip,
	// but it must fail for that reason and not for a nil order id.
	d := &Driver{client: NewClient("key", "secret", "http://127.0.0.1:0"), log: zerolog.New(io.Discard)}
	_, _, err := d.fetchOrderStatus(context.Background(), tx)

	assert.Error(t, err)
	assert.NotContains(t, err.Error(), "no venue order id")
	assert.Contains(t, err.Error(), "orderId=sell-order")
}
