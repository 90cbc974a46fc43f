package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gys/internal/models"
)

// ErrDuplicateCheckIn marks an attendance nonce that was already used.
var ErrDuplicateCheckIn = errors.New("attendance nonce already recorded")

func (db *DB) CreatePersonnel(ctx context.Context, p *models.Personnel) error {
	query := `INSERT INTO personnel (ad, rol, telefon, eposta, aktif, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	res, err := db.db.ExecContext(ctx, query, p.Ad, p.Rol, p.Telefon, p.Eposta, p.Aktif, now, now)
	if err != nil {
		return fmt.Errorf("failed to create personnel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (db *DB) UpdatePersonnel(ctx context.Context, p *models.Personnel) error {
	query := `UPDATE personnel
              SET ad = ?, rol = ?, telefon = ?, eposta = ?, aktif = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	res, err := db.db.ExecContext(ctx, query, p.Ad, p.Rol, p.Telefon, p.Eposta, p.Aktif, now, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update personnel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("personnel %d not found", p.ID)
	}
	p.UpdatedAt = now
	return nil
}

func (db *DB) GetPersonnel(ctx context.Context, id int64) (*models.Personnel, error) {
	query := `SELECT id, ad, rol, telefon, eposta, aktif, created_at, updated_at
              FROM personnel WHERE id = ?`
	var p models.Personnel
	err := db.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Ad, &p.Rol, &p.Telefon, &p.Eposta, &p.Aktif, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) ListPersonnel(ctx context.Context, activeOnly bool) ([]*models.Personnel, error) {
	query := `SELECT id, ad, rol, telefon, eposta, aktif, created_at, updated_at
              FROM personnel`
	if activeOnly {
		query += ` WHERE aktif = 1`
	}
	query += ` ORDER BY ad`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Personnel
	for rows.Next() {
		var p models.Personnel
		if err := rows.Scan(&p.ID, &p.Ad, &p.Rol, &p.Telefon, &p.Eposta, &p.Aktif, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (db *DB) DeactivatePersonnel(ctx context.Context, id int64) error {
	query := `UPDATE personnel SET aktif = 0, updated_at = ? WHERE id = ?`
	res, err := db.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate personnel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("personnel %d not found", id)
	}
	return nil
}

func (db *DB) CreateAttendance(ctx context.Context, rec *models.AttendanceRecord) error {
	query := `INSERT INTO attendance (personnel_id, direction, nonce, created_at)
              VALUES (?, ?, ?, ?)`
	now := time.Now()
	res, err := db.db.ExecContext(ctx, query, rec.PersonnelID, rec.Direction, rec.Nonce, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateCheckIn
		}
		return fmt.Errorf("failed to record attendance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	rec.CreatedAt = now
	return nil
}

func (db *DB) ListAttendance(ctx context.Context, personnelID int64, from, to time.Time) ([]*models.AttendanceRecord, error) {
	query := `SELECT id, personnel_id, direction, nonce, created_at
              FROM attendance
              WHERE personnel_id = ? AND created_at >= ? AND created_at <= ?
              ORDER BY created_at`

	rows, err := db.db.QueryContext(ctx, query, personnelID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.PersonnelID, &rec.Direction, &rec.Nonce, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
