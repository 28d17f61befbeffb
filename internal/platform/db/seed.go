package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/config"
)

var defaultDivisions = []struct {
	Code string
	Name string
}{
	{Code: "strategic", Name: "Strategic"},
	{Code: "admin", Name: "Admin"},
	{Code: "btn", Name: "BTN (Barudak Top Notch)"},
	{Code: "finance", Name: "Finance"},
	{Code: "hr", Name: "HR"},
}

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	divisionIDs, err := ensureDivisions(ctx, pool)
	if err != nil {
		return err
	}

	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}

	if err := ensureLevelPermissions(ctx, pool); err != nil {
		return err
	}

	return ensureAdminUser(ctx, pool, divisionIDs["admin"], cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureDivisions(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	divisionIDs := map[string]string{}
	for _, div := range defaultDivisions {
		var id string
		err := pool.QueryRow(ctx, "SELECT id FROM divisions WHERE code = $1", div.Code).Scan(&id)
		if err == nil {
			divisionIDs[div.Code] = id
			continue
		}

		err = pool.QueryRow(ctx, "INSERT INTO divisions (code, name) VALUES ($1, $2) RETURNING id", div.Code, div.Name).Scan(&id)
		if err != nil {
			return nil, err
		}
		divisionIDs[div.Code] = id
	}
	return divisionIDs, nil
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range auth.DefaultPermissions {
		_, err := pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureLevelPermissions(ctx context.Context, pool *pgxpool.Pool) error {
	permMap := map[string]string{}
	rows, err := pool.Query(ctx, "SELECT id, key FROM permissions")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return err
		}
		permMap[key] = id
	}

	for level, perms := range auth.LevelPermissions {
		for _, permKey := range perms {
			permID, ok := permMap[permKey]
			if !ok {
				return errors.New("permission not found: " + permKey)
			}
			_, err := pool.Exec(ctx, "INSERT INTO level_permissions (access_level, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", level, permID)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, divisionID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}

	var employeeID string
	err = pool.QueryRow(ctx, "SELECT id FROM employees WHERE email = $1", email).Scan(&employeeID)
	if err != nil {
		err = pool.QueryRow(ctx, `INSERT INTO employees (full_name, email, division_id, access_level, join_date, is_active)
			VALUES ('System Administrator', $1, $2, $3, CURRENT_DATE, TRUE) RETURNING id`,
			email, divisionID, auth.LevelAdmin).Scan(&employeeID)
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, "INSERT INTO users (employee_id, email, password_hash) VALUES ($1, $2, $3)", employeeID, email, hash)
	return err
}
