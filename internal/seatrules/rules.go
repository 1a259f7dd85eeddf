package seatrules

import (
	"fmt"
	"sort"

	"cinema-booking/internal/data/entity"
)

const (
	RuleNoSingleGap = "RULE_1"
	RuleNoLoneEdge  = "RULE_2"
	RuleMaxSeats    = "RULE_3"
	DefaultMaxSeats = 8
)

type Violation struct {
	Rule    string   `json:"rule"`
	Row     string   `json:"row,omitempty"`
	Seats   []string `json:"seats"`
	Message string   `json:"message"`
}

type Result struct {
	IsValid    bool        `json:"is_valid"`
	Violations []Violation `json:"violations"`
}

// Validate checks a selection against the current seat map. Seats in
// selected count as taken whatever their status in layout. Seats whose
// numbers are not consecutive are treated as separated by an aisle.
func Validate(layout []entity.Seat, selected []string, maxSeats int) Result {
	res := Result{IsValid: true, Violations: []Violation{}}
	if maxSeats <= 0 {
		maxSeats = DefaultMaxSeats
	}

	mine := make(map[string]bool, len(selected))
	for _, id := range selected {
		mine[id] = true
	}

	rows := make(map[string][]entity.Seat)
	var rowNames []string
	var labels []string
	for _, seat := range layout {
		if _, ok := rows[seat.Row]; !ok {
			rowNames = append(rowNames, seat.Row)
		}
		rows[seat.Row] = append(rows[seat.Row], seat)
		if mine[seat.ID] {
			labels = append(labels, seat.Label())
		}
	}
	sort.Strings(rowNames)

	if len(mine) > maxSeats {
		res.Violations = append(res.Violations, Violation{
			Rule:    RuleMaxSeats,
			Seats:   labels,
			Message: fmt.Sprintf("at most %d seats per booking", maxSeats),
		})
	}

	for _, name := range rowNames {
		res.Violations = append(res.Violations, checkRow(name, rows[name], mine)...)
	}

	res.IsValid = len(res.Violations) == 0
	return res
}

func checkRow(row string, seats []entity.Seat, mine map[string]bool) []Violation {
	sort.Slice(seats, func(i, j int) bool { return seats[i].Number < seats[j].Number })
	byNumber := make(map[int]entity.Seat, len(seats))
	for _, s := range seats {
		byNumber[s.Number] = s
	}
	taken := func(s entity.Seat) bool { return mine[s.ID] || s.Occupied() }

	var out []Violation
	for _, seat := range seats {
		if taken(seat) {
			continue
		}
		left, hasLeft := byNumber[seat.Number-1]
		right, hasRight := byNumber[seat.Number+1]

		switch {
		case hasLeft && hasRight:
			if taken(left) && taken(right) && (mine[left.ID] || mine[right.ID]) {
				out = append(out, Violation{
					Rule:    RuleNoSingleGap,
					Row:     row,
					Seats:   []string{seat.Label()},
					Message: fmt.Sprintf("seat %s would be left as a single empty seat", seat.Label()),
				})
			}
		case hasLeft && mine[left.ID], hasRight && mine[right.ID]:
			out = append(out, Violation{
				Rule:    RuleNoLoneEdge,
				Row:     row,
				Seats:   []string{seat.Label()},
				Message: fmt.Sprintf("seat %s would be left alone at the end of the row", seat.Label()),
			})
		}
	}
	return out
}
