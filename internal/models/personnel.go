package models

import "time"

// Staff maps the initials used in calendar titles to a full name.
type Staff struct {
	Initials string `yaml:"initials"`
	Name     string `yaml:"name"`
}

type Personnel struct {
	ID        int64     `json:"id"`
	Ad        string    `json:"ad"`
	Rol       string    `json:"rol"` // makyaj, sac, asistan, ...
	Telefon   string    `json:"telefon"`
	Eposta    string    `json:"eposta"`
	Aktif     bool      `json:"aktif"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AttendanceRecord is one QR check-in or check-out.
type AttendanceRecord struct {
	ID          int64     `json:"id"`
	PersonnelID int64     `json:"personnel_id"`
	Direction   string    `json:"direction"` // giris, cikis
	Nonce       string    `json:"nonce"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	DirectionIn  = "giris"
	DirectionOut = "cikis"
)
