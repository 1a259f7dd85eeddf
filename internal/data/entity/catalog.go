package entity

type Showtime struct {
	ID        string `db:"id"`
	BasePrice int64  `db:"base_price"`
	Currency  string `db:"currency"`
}

type SeatType struct {
	ID        string `db:"id"`
	Surcharge int64  `db:"surcharge"`
}

type Combo struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Price    int64  `db:"price"`
	IsActive bool   `db:"is_active"`
}
