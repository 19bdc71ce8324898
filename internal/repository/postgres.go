package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"pharmaorder/internal/model"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
	}
	return false
}

// -- Orders --

type OrderPG struct {
	db *sql.DB
}

func NewOrderPG(db *sql.DB) *OrderPG {
	return &OrderPG{db: db}
}

const orderCols = `id, patient_id, pharmacy_id, prescription_id, medicines, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var medicines []byte
	if err := row.Scan(&o.ID, &o.PatientID, &o.PharmacyID, &o.PrescriptionID,
		&medicines, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(medicines, &o.Medicines); err != nil {
		return nil, fmt.Errorf("decode medicines: %w", err)
	}
	return &o, nil
}

func (r *OrderPG) Create(ctx context.Context, o *model.Order) error {
	medicines, err := json.Marshal(o.Medicines)
	if err != nil {
		return fmt.Errorf("encode medicines: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (patient_id, pharmacy_id, prescription_id, medicines, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, o.PatientID, o.PharmacyID, o.PrescriptionID, medicines, o.Status)

	if err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if isUniqueViolation(err, "uniq_active_order") {
			return ErrDuplicateActiveOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderPG) GetByID(ctx context.Context, id string) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderPG) FindActive(ctx context.Context, patientID, pharmacyID, prescriptionID string) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE patient_id = $1 AND pharmacy_id = $2 AND prescription_id = $3
		  AND status IN ('pending', 'confirmed', 'ready')
	`, patientID, pharmacyID, prescriptionID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active order: %w", err)
	}
	return o, nil
}

func (r *OrderPG) List(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders WHERE patient_id = $1`
	args := []any{f.PatientID}
	if f.PharmacyID != "" {
		args = append(args, f.PharmacyID)
		query += fmt.Sprintf(" AND pharmacy_id = $%d", len(args))
	}
	if f.PrescriptionID != "" {
		args = append(args, f.PrescriptionID)
		query += fmt.Sprintf(" AND prescription_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	return r.queryOrders(ctx, query, args...)
}

func (r *OrderPG) LatestPerPharmacy(ctx context.Context, patientID, prescriptionID string) ([]model.Order, error) {
	query := `
		SELECT DISTINCT ON (pharmacy_id) ` + orderCols + `
		FROM orders
		WHERE patient_id = $1`
	args := []any{patientID}
	if prescriptionID != "" {
		args = append(args, prescriptionID)
		query += fmt.Sprintf(" AND prescription_id = $%d", len(args))
	}
	query += " ORDER BY pharmacy_id, created_at DESC"

	return r.queryOrders(ctx, query, args...)
}

func (r *OrderPG) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+orderCols, status, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

func (r *OrderPG) ListByPharmacyStatus(ctx context.Context, pharmacyID string, status model.OrderStatus) ([]model.Order, error) {
	return r.queryOrders(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE pharmacy_id = $1 AND status = $2
		ORDER BY created_at ASC
	`, pharmacyID, status)
}

func (r *OrderPG) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return orders, nil
}

// -- Users --

type UserPG struct {
	db *sql.DB
}

func NewUserPG(db *sql.DB) *UserPG {
	return &UserPG{db: db}
}

func (r *UserPG) Create(ctx context.Context, u *model.User) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (login, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.Login, u.PasswordHash, u.Name, u.Role)

	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err, "users_login_key") {
			return ErrDuplicateLogin
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserPG) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, login, password_hash, name, role, created_at FROM users WHERE login = $1`, login)
	return scanUser(row)
}

func (r *UserPG) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, login, password_hash, name, role, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// -- Pharmacies --

type PharmacyPG struct {
	db *sql.DB
}

func NewPharmacyPG(db *sql.DB) *PharmacyPG {
	return &PharmacyPG{db: db}
}

func (r *PharmacyPG) Create(ctx context.Context, p *model.Pharmacy) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO pharmacies (name, address, phone)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, p.Name, p.Address, p.Phone)

	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert pharmacy: %w", err)
	}
	return nil
}

func (r *PharmacyPG) GetByID(ctx context.Context, id string) (*model.Pharmacy, error) {
	var p model.Pharmacy
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, address, phone, created_at FROM pharmacies WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Address, &p.Phone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pharmacy: %w", err)
	}
	return &p, nil
}

func (r *PharmacyPG) List(ctx context.Context) ([]model.Pharmacy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, phone, created_at FROM pharmacies ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pharmacies: %w", err)
	}
	defer rows.Close()

	var pharmacies []model.Pharmacy
	for rows.Next() {
		var p model.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Phone, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pharmacy: %w", err)
		}
		pharmacies = append(pharmacies, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return pharmacies, nil
}

// -- Prescriptions --

type PrescriptionPG struct {
	db *sql.DB
}

func NewPrescriptionPG(db *sql.DB) *PrescriptionPG {
	return &PrescriptionPG{db: db}
}

func (r *PrescriptionPG) Create(ctx context.Context, p *model.Prescription) error {
	medicines, err := json.Marshal(p.Medicines)
	if err != nil {
		return fmt.Errorf("encode medicines: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO prescriptions (patient_id, doctor_id, note, medicines)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, p.PatientID, p.DoctorID, p.Note, medicines)

	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *PrescriptionPG) GetByID(ctx context.Context, id string) (*model.Prescription, error) {
	var p model.Prescription
	var medicines []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, patient_id, doctor_id, note, medicines, created_at FROM prescriptions WHERE id = $1`, id).
		Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.Note, &medicines, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prescription: %w", err)
	}
	if err := json.Unmarshal(medicines, &p.Medicines); err != nil {
		return nil, fmt.Errorf("decode medicines: %w", err)
	}
	return &p, nil
}

func (r *PrescriptionPG) ListByPatient(ctx context.Context, patientID string) ([]model.Prescription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, doctor_id, note, medicines, created_at
		FROM prescriptions
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query prescriptions: %w", err)
	}
	defer rows.Close()

	var prescriptions []model.Prescription
	for rows.Next() {
		var p model.Prescription
		var medicines []byte
		if err := rows.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.Note, &medicines, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		if err := json.Unmarshal(medicines, &p.Medicines); err != nil {
			return nil, fmt.Errorf("decode medicines: %w", err)
		}
		prescriptions = append(prescriptions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return prescriptions, nil
}
