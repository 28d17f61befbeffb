package org

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	cryptoutil "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/crypto"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const employeeSelect = `
    SELECT e.id, e.full_name, e.email,
           COALESCE(e.nip, ''), COALESCE(e.phone, ''), COALESCE(e.address, ''),
           e.date_of_birth, COALESCE(e.place_of_birth, ''), COALESCE(e.gender, ''),
           COALESCE(e.division_id::text, ''), COALESCE(d.code, ''), COALESCE(d.name, ''),
           COALESCE(e.role_id::text, ''), COALESCE(r.name, ''),
           e.access_level,
           COALESCE(e.supervisor_id::text, ''), COALESCE(s.full_name, ''),
           e.join_date, COALESCE(e.employment_status, ''),
           COALESCE(e.bpjs_kesehatan, ''), e.bpjs_kesehatan_enc,
           COALESCE(e.bpjs_ketenagakerjaan, ''), e.bpjs_ketenagakerjaan_enc,
           e.overtime_rate, e.overtime_rate_enc,
           e.default_wfh_days,
           e.is_active, e.created_at, e.updated_at
    FROM employees e
    LEFT JOIN divisions d ON e.division_id = d.id
    LEFT JOIN roles r ON e.role_id = r.id
    LEFT JOIN employees s ON e.supervisor_id = s.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanEmployee(row rowScanner) (*Employee, error) {
	var emp Employee
	var bpjsKesEnc, bpjsTKEnc, rateEnc []byte
	var bpjsKesPlain, bpjsTKPlain string
	var ratePlain *float64
	if err := row.Scan(
		&emp.ID, &emp.FullName, &emp.Email,
		&emp.NIP, &emp.Phone, &emp.Address,
		&emp.DateOfBirth, &emp.PlaceOfBirth, &emp.Gender,
		&emp.DivisionID, &emp.DivisionCode, &emp.DivisionName,
		&emp.RoleID, &emp.RoleName,
		&emp.AccessLevel,
		&emp.SupervisorID, &emp.SupervisorName,
		&emp.JoinDate, &emp.EmploymentStatus,
		&bpjsKesPlain, &bpjsKesEnc,
		&bpjsTKPlain, &bpjsTKEnc,
		&ratePlain, &rateEnc,
		&emp.DefaultWFHDays,
		&emp.IsActive, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	emp.BPJSKesehatan = cryptoutil.DecryptStringFallback(s.Crypto, bpjsKesEnc, bpjsKesPlain)
	emp.BPJSKetenagakerjaan = cryptoutil.DecryptStringFallback(s.Crypto, bpjsTKEnc, bpjsTKPlain)
	emp.OvertimeRate = cryptoutil.DecryptFloatFallback(s.Crypto, rateEnc, ratePlain)
	return &emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, employeeSelect+` WHERE e.id = $1`, employeeID)
	return s.scanEmployee(row)
}

// ListFilter narrows ListEmployees. Zero values mean no filtering;
// Limit 0 returns every match.
type ListFilter struct {
	DivisionID string
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

func employeeListWhere(filter ListFilter) (string, []any) {
	clause := ` WHERE 1=1`
	args := []any{}
	if filter.DivisionID != "" {
		args = append(args, filter.DivisionID)
		clause += ` AND e.division_id = $` + strconv.Itoa(len(args))
	}
	if filter.ActiveOnly {
		clause += ` AND e.is_active`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		clause += ` AND (e.full_name ILIKE $` + n + ` OR e.email ILIKE $` + n + ` OR e.nip ILIKE $` + n + `)`
	}
	return clause, args
}

func (s *Store) ListEmployees(ctx context.Context, filter ListFilter) ([]Employee, error) {
	clause, args := employeeListWhere(filter)
	query := employeeSelect + clause + ` ORDER BY e.full_name`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

func (s *Store) CountEmployees(ctx context.Context, filter ListFilter) (int, error) {
	clause, args := employeeListWhere(filter)
	var count int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM employees e`+clause, args...).Scan(&count)
	return count, err
}

func (s *Store) ListDirectReports(ctx context.Context, supervisorID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, employeeSelect+`
    WHERE e.supervisor_id = $1 AND e.is_active
    ORDER BY e.full_name`, supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

// PotentialSupervisors lists the active employees eligible to approve,
// meaning access level 1 to 3.
func (s *Store) PotentialSupervisors(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, employeeSelect+`
    WHERE e.is_active AND e.access_level BETWEEN 1 AND 3
    ORDER BY e.access_level, e.full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

// CreateEmployeeWithUser inserts the employee and its credential row in
// one transaction.
func (s *Store) CreateEmployeeWithUser(ctx context.Context, emp Employee, passwordHash string, forceChange bool) (string, string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback(ctx)

	bpjsKesEnc, bpjsTKEnc, rateEnc := s.encryptSensitive(emp)
	var bpjsKesPlain, bpjsTKPlain any = nullIfEmpty(emp.BPJSKesehatan), nullIfEmpty(emp.BPJSKetenagakerjaan)
	var ratePlain any = emp.OvertimeRate
	if s.Crypto != nil && s.Crypto.Configured() {
		bpjsKesPlain = nil
		bpjsTKPlain = nil
		ratePlain = nil
	}

	var employeeID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO employees (full_name, email, nip, phone, address, date_of_birth, place_of_birth, gender,
      division_id, role_id, access_level, supervisor_id, join_date, employment_status,
      bpjs_kesehatan, bpjs_kesehatan_enc, bpjs_ketenagakerjaan, bpjs_ketenagakerjaan_enc,
      overtime_rate, overtime_rate_enc, default_wfh_days, is_active)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
    RETURNING id
  `,
		emp.FullName, emp.Email, nullIfEmpty(emp.NIP), emp.Phone, emp.Address, emp.DateOfBirth,
		nullIfEmpty(emp.PlaceOfBirth), nullIfEmpty(emp.Gender),
		nullIfEmpty(emp.DivisionID), nullIfEmpty(emp.RoleID), emp.AccessLevel, nullIfEmpty(emp.SupervisorID),
		emp.JoinDate, nullIfEmpty(emp.EmploymentStatus),
		bpjsKesPlain, bpjsKesEnc, bpjsTKPlain, bpjsTKEnc, ratePlain, rateEnc, emp.DefaultWFHDays, emp.IsActive,
	).Scan(&employeeID); err != nil {
		return "", "", err
	}

	var userID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO users (employee_id, email, password_hash, force_password_change)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, employeeID, emp.Email, passwordHash, forceChange).Scan(&userID); err != nil {
		return "", "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", err
	}
	return employeeID, userID, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, employeeID string, emp Employee) error {
	bpjsKesEnc, bpjsTKEnc, rateEnc := s.encryptSensitive(emp)
	var bpjsKesPlain, bpjsTKPlain any = nullIfEmpty(emp.BPJSKesehatan), nullIfEmpty(emp.BPJSKetenagakerjaan)
	var ratePlain any = emp.OvertimeRate
	if s.Crypto != nil && s.Crypto.Configured() {
		bpjsKesPlain = nil
		bpjsTKPlain = nil
		ratePlain = nil
	}

	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET full_name = $1,
        email = $2,
        nip = $3,
        phone = $4,
        address = $5,
        date_of_birth = $6,
        place_of_birth = $7,
        gender = $8,
        division_id = $9,
        role_id = $10,
        access_level = $11,
        join_date = $12,
        employment_status = $13,
        bpjs_kesehatan = $14,
        bpjs_kesehatan_enc = $15,
        bpjs_ketenagakerjaan = $16,
        bpjs_ketenagakerjaan_enc = $17,
        overtime_rate = $18,
        overtime_rate_enc = $19,
        default_wfh_days = $20,
        updated_at = now()
    WHERE id = $21
  `,
		emp.FullName, emp.Email, nullIfEmpty(emp.NIP), emp.Phone, emp.Address, emp.DateOfBirth,
		nullIfEmpty(emp.PlaceOfBirth), nullIfEmpty(emp.Gender),
		nullIfEmpty(emp.DivisionID), nullIfEmpty(emp.RoleID), emp.AccessLevel,
		emp.JoinDate, nullIfEmpty(emp.EmploymentStatus),
		bpjsKesPlain, bpjsKesEnc, bpjsTKPlain, bpjsTKEnc, ratePlain, rateEnc,
		emp.DefaultWFHDays,
		employeeID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) SetEmployeeActive(ctx context.Context, employeeID string, active bool) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees SET is_active = $1, updated_at = now() WHERE id = $2
  `, active, employeeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// RevokeEmployeeSessions ends every live session of the employee's
// user. Used when deactivating.
func (s *Store) RevokeEmployeeSessions(ctx context.Context, employeeID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions SET revoked_at = now()
    WHERE revoked_at IS NULL
      AND user_id IN (SELECT id FROM users WHERE employee_id = $1)
  `, employeeID)
	return err
}

func (s *Store) SetSupervisor(ctx context.Context, employeeID, supervisorID string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees SET supervisor_id = $1, updated_at = now() WHERE id = $2
  `, nullIfEmpty(supervisorID), employeeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) SupervisorOf(ctx context.Context, employeeID string) (string, error) {
	var supervisorID *string
	if err := s.DB.QueryRow(ctx, "SELECT supervisor_id FROM employees WHERE id = $1", employeeID).Scan(&supervisorID); err != nil {
		return "", err
	}
	if supervisorID == nil {
		return "", nil
	}
	return *supervisorID, nil
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE lower(email) = lower($1)
  `, email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (s *Store) encryptSensitive(emp Employee) ([]byte, []byte, []byte) {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return nil, nil, nil
	}
	bpjsKesEnc, _ := s.Crypto.EncryptString(emp.BPJSKesehatan)
	bpjsTKEnc, _ := s.Crypto.EncryptString(emp.BPJSKetenagakerjaan)
	var rateEnc []byte
	if emp.OvertimeRate != nil {
		rateEnc, _ = s.Crypto.EncryptString(strconv.FormatFloat(*emp.OvertimeRate, 'f', 2, 64))
	}
	return bpjsKesEnc, bpjsTKEnc, rateEnc
}

