package wire

import (
	"context"
	"fmt"
	"time"

	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/inventory"
	"cinema-booking/internal/pricing"

	"go.uber.org/zap"
)

const DemoShowtimeID = "demo"

// seedDemo registers a 5x10 hall with a VIP back row and a small catalog,
// for runs without a database.
func seedDemo(inv *inventory.Inventory, currency string) *pricing.StaticCatalog {
	catalog := pricing.NewStaticCatalog()
	catalog.PutShowtime(entity.Showtime{ID: DemoShowtimeID, BasePrice: 50000, Currency: currency})
	catalog.PutSeatType(entity.SeatType{ID: "regular"})
	catalog.PutSeatType(entity.SeatType{ID: "vip", Surcharge: 25000})
	catalog.PutCombo(entity.Combo{ID: "popcorn", Name: "Popcorn + Soda", Price: 45000, IsActive: true})
	catalog.PutCombo(entity.Combo{ID: "nachos", Name: "Nachos", Price: 35000, IsActive: true})
	catalog.PutVoucher(entity.Voucher{
		Code:          "WELCOME10",
		DiscountType:  entity.DiscountPercent,
		DiscountValue: 10,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().AddDate(1, 0, 0),
		IsActive:      true,
	})

	var seats []entity.Seat
	for _, row := range []string{"A", "B", "C", "D", "E"} {
		seatType := "regular"
		if row == "E" {
			seatType = "vip"
		}
		for n := 1; n <= 10; n++ {
			seats = append(seats, entity.Seat{
				ID:         fmt.Sprintf("%s%d", row, n),
				Row:        row,
				Number:     n,
				SeatTypeID: seatType,
				Status:     entity.SeatAvailable,
			})
		}
	}
	inv.Register(DemoShowtimeID, seats)

	return catalog
}

// discardBookings stands in for the booking table when no database is set.
type discardBookings struct {
	log *zap.Logger
}

func (d discardBookings) SaveBooking(_ context.Context, booking *entity.Booking, seats []entity.BookingSeat) error {
	d.log.Info("Booking not persisted (no database)",
		zap.String("order_ref", booking.OrderRef),
		zap.Int("seats", len(seats)),
	)
	return nil
}
