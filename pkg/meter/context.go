package meter

import (
	"context"

	"github.com/dmitrymomot/quotakit/pkg/entitlement"
)

type reservationCtxKey struct{}

func WithReservation(ctx context.Context, res *entitlement.Reservation) context.Context {
	return context.WithValue(ctx, reservationCtxKey{}, res)
}

// ReservationFromContext returns the reservation of a metered request.
func ReservationFromContext(ctx context.Context) (*entitlement.Reservation, bool) {
	res, ok := ctx.Value(reservationCtxKey{}).(*entitlement.Reservation)
	return res, ok && res != nil
}
