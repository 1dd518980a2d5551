package model

import "time"

const DateLayout = "2006-01-02"

type Contact struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Surname   string     `json:"surname"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	Info      string     `json:"info,omitempty"`
	UserID    string     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	From time.Time
	To   time.Time
}

func NewDateWindow(from time.Time, days int) DateWindow {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	return DateWindow{From: start, To: start.AddDate(0, 0, days)}
}

func (w DateWindow) Contains(day *time.Time) bool {
	if day == nil {
		return false
	}
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(w.From) && !d.After(w.To)
}

type Page struct {
	Limit  int
	Offset int
}
