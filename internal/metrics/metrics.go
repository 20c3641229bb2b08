package metrics

import "expvar"

var (
	OrdersPlaced        = expvar.NewInt("orders_placed")
	ReplacedOrders      = expvar.NewInt("replaced_orders")
	CompletedRoundtrips = expvar.NewInt("completed_roundtrips")
)
