package repository

import (
	"context"
	"fmt"

	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/database"

	"go.uber.org/zap"
)

type SeatRepository interface {
	// LoadLayout returns every seat of a showtime. Seats already sold
	// come back SOLD and maintenance seats come back BLOCKED.
	LoadLayout(ctx context.Context, showtimeID string) ([]entity.Seat, error)
}

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) LoadLayout(ctx context.Context, showtimeID string) ([]entity.Seat, error) {
	query := `
		SELECT s.seat_id, s.showtime_id, s.seat_row, s.seat_number, s.seat_type_id, s.blocked,
		       bs.seat_id IS NOT NULL AS sold
		FROM showtime_seats s
		LEFT JOIN booking_seats bs ON bs.showtime_id = s.showtime_id AND bs.seat_id = s.seat_id
		WHERE s.showtime_id = $1
		ORDER BY s.seat_row, s.seat_number
	`

	rows, err := r.db.Query(ctx, query, showtimeID)
	if err != nil {
		r.log.Error("Failed to load seat layout",
			zap.Error(err),
			zap.String("showtime_id", showtimeID),
		)
		return nil, fmt.Errorf("load layout for showtime %s: %w", showtimeID, err)
	}
	defer rows.Close()

	var seats []entity.Seat
	for rows.Next() {
		var (
			seat    entity.Seat
			blocked bool
			sold    bool
		)
		err := rows.Scan(
			&seat.ID,
			&seat.ShowtimeID,
			&seat.Row,
			&seat.Number,
			&seat.SeatTypeID,
			&blocked,
			&sold,
		)
		if err != nil {
			r.log.Error("Failed to scan seat row", zap.Error(err))
			return nil, fmt.Errorf("scan seat row: %w", err)
		}

		switch {
		case sold:
			seat.Status = entity.SeatSold
		case blocked:
			seat.Status = entity.SeatBlocked
		default:
			seat.Status = entity.SeatAvailable
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seat rows: %w", err)
	}

	r.log.Debug("Seat layout loaded",
		zap.String("showtime_id", showtimeID),
		zap.Int("seats", len(seats)),
	)
	return seats, nil
}
