package repository

import (
	"context"
	"errors"
	"fmt"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CatalogRepository reads the price catalog. Missing rows are apperr.NotFound.
type CatalogRepository interface {
	Showtime(ctx context.Context, showtimeID string) (*entity.Showtime, error)
	SeatType(ctx context.Context, seatTypeID string) (*entity.SeatType, error)
	Combo(ctx context.Context, comboID string) (*entity.Combo, error)
	VoucherByCode(ctx context.Context, code string) (*entity.Voucher, error)
}

type catalogRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCatalogRepository(db database.PgxIface, log *zap.Logger) CatalogRepository {
	return &catalogRepository{
		db:  db,
		log: log.With(zap.String("repository", "catalog")),
	}
}

func (r *catalogRepository) Showtime(ctx context.Context, showtimeID string) (*entity.Showtime, error) {
	query := `SELECT id, base_price, currency FROM showtimes WHERE id = $1`

	var st entity.Showtime
	err := r.db.QueryRow(ctx, query, showtimeID).Scan(&st.ID, &st.BasePrice, &st.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrShowtimeNotFound
	}
	if err != nil {
		r.log.Error("Failed to find showtime", zap.Error(err), zap.String("showtime_id", showtimeID))
		return nil, fmt.Errorf("find showtime %s: %w", showtimeID, err)
	}

	return &st, nil
}

func (r *catalogRepository) SeatType(ctx context.Context, seatTypeID string) (*entity.SeatType, error) {
	query := `SELECT id, surcharge FROM seat_types WHERE id = $1`

	var st entity.SeatType
	err := r.db.QueryRow(ctx, query, seatTypeID).Scan(&st.ID, &st.Surcharge)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "seat type %s not found", seatTypeID)
	}
	if err != nil {
		r.log.Error("Failed to find seat type", zap.Error(err), zap.String("seat_type_id", seatTypeID))
		return nil, fmt.Errorf("find seat type %s: %w", seatTypeID, err)
	}

	return &st, nil
}

func (r *catalogRepository) Combo(ctx context.Context, comboID string) (*entity.Combo, error) {
	query := `SELECT id, name, price, is_active FROM combos WHERE id = $1`

	var c entity.Combo
	err := r.db.QueryRow(ctx, query, comboID).Scan(&c.ID, &c.Name, &c.Price, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "combo %s not found", comboID)
	}
	if err != nil {
		r.log.Error("Failed to find combo", zap.Error(err), zap.String("combo_id", comboID))
		return nil, fmt.Errorf("find combo %s: %w", comboID, err)
	}

	return &c, nil
}

func (r *catalogRepository) VoucherByCode(ctx context.Context, code string) (*entity.Voucher, error) {
	query := `
		SELECT code, discount_type, discount_value, valid_from, valid_until,
		       usage_limit, used_count, restricted, is_active
		FROM vouchers
		WHERE code = $1
	`

	var v entity.Voucher
	err := r.db.QueryRow(ctx, query, code).Scan(
		&v.Code,
		&v.DiscountType,
		&v.DiscountValue,
		&v.ValidFrom,
		&v.ValidUntil,
		&v.UsageLimit,
		&v.UsedCount,
		&v.Restricted,
		&v.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "voucher %s not found", code)
	}
	if err != nil {
		r.log.Error("Failed to find voucher", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("find voucher %s: %w", code, err)
	}

	return &v, nil
}
