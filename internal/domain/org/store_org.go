package org

import (
	"context"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/approval"
)

func (s *Store) ListDivisions(ctx context.Context) ([]Division, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT d.id, d.code, d.name,
           COALESCE(d.head_id::text, ''), COALESCE(h.full_name, ''),
           (SELECT COUNT(1) FROM employees e WHERE e.division_id = d.id AND e.is_active),
           d.created_at
    FROM divisions d
    LEFT JOIN employees h ON d.head_id = h.id
    ORDER BY d.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Division
	for rows.Next() {
		var div Division
		if err := rows.Scan(&div.ID, &div.Code, &div.Name, &div.HeadID, &div.HeadName, &div.Members, &div.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, div)
	}
	return out, rows.Err()
}

func (s *Store) DivisionExists(ctx context.Context, divisionID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM divisions WHERE id = $1", divisionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CreateDivision(ctx context.Context, code, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO divisions (code, name) VALUES ($1, $2) RETURNING id
  `, code, name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetDivisionHead(ctx context.Context, divisionID, employeeID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE divisions SET head_id = $1 WHERE id = $2
  `, nullIfEmpty(employeeID), divisionID)
	return err
}

func (s *Store) DivisionMemberCount(ctx context.Context, divisionID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE division_id = $1
  `, divisionID).Scan(&count)
	return count, err
}

func (s *Store) DeleteDivision(ctx context.Context, divisionID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM divisions WHERE id = $1", divisionID)
	return err
}

func (s *Store) ListDivisionMembers(ctx context.Context, divisionID string) ([]Employee, error) {
	return s.ListEmployees(ctx, ListFilter{DivisionID: divisionID, ActiveOnly: true})
}

// DivisionsHeadedBy returns the ids of divisions the employee heads.
func (s *Store) DivisionsHeadedBy(ctx context.Context, employeeID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT id FROM divisions WHERE head_id = $1", employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.name,
           (SELECT COUNT(1) FROM employees e WHERE e.role_id = r.id),
           r.created_at
    FROM roles r
    ORDER BY r.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Members, &role.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// GetOrCreateRole returns the id of the role with the given name,
// creating it on first use. Job titles are free-form, so new ones
// appear as employees are added.
func (s *Store) GetOrCreateRole(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO roles (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) RoleMemberCount(ctx context.Context, roleID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE role_id = $1", roleID).Scan(&count)
	return count, err
}

func (s *Store) DeleteRole(ctx context.Context, roleID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM roles WHERE id = $1", roleID)
	return err
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByDivision: map[string]int{},
		ByLevel:    map[int]int{},
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COUNT(1) FILTER (WHERE is_active) FROM employees
  `).Scan(&stats.TotalEmployees, &stats.ActiveEmployees); err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT COALESCE(d.name, 'Unassigned'), COUNT(1)
    FROM employees e
    LEFT JOIN divisions d ON e.division_id = d.id
    WHERE e.is_active
    GROUP BY 1
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		stats.ByDivision[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	levelRows, err := s.DB.Query(ctx, `
    SELECT access_level, COUNT(1) FROM employees WHERE is_active GROUP BY 1
  `)
	if err != nil {
		return nil, err
	}
	defer levelRows.Close()
	for levelRows.Next() {
		var level, count int
		if err := levelRows.Scan(&level, &count); err != nil {
			return nil, err
		}
		stats.ByLevel[level] = count
	}
	return stats, levelRows.Err()
}

const personSelect = `SELECT p.id, p.full_name, p.email, p.access_level, p.is_active`

func scanPerson(row rowScanner) (approval.Person, error) {
	var p approval.Person
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.AccessLevel, &p.Active)
	return p, err
}

// Supervisor, DivisionHead, HRHead and FirstActiveAdmin make Store an
// approval.Directory.

func (s *Store) Supervisor(ctx context.Context, employeeID string) (approval.Person, bool, error) {
	rows, err := s.DB.Query(ctx, personSelect+`
    FROM employees e
    JOIN employees p ON e.supervisor_id = p.id
    WHERE e.id = $1
  `, employeeID)
	if err != nil {
		return approval.Person{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return approval.Person{}, false, rows.Err()
	}
	p, err := scanPerson(rows)
	return p, err == nil, err
}

func (s *Store) DivisionHead(ctx context.Context, employeeID string) (approval.Person, bool, error) {
	rows, err := s.DB.Query(ctx, personSelect+`
    FROM employees e
    JOIN divisions d ON e.division_id = d.id
    JOIN employees p ON d.head_id = p.id
    WHERE e.id = $1
  `, employeeID)
	if err != nil {
		return approval.Person{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return approval.Person{}, false, rows.Err()
	}
	p, err := scanPerson(rows)
	return p, err == nil, err
}

func (s *Store) HRHead(ctx context.Context) (approval.Person, bool, error) {
	rows, err := s.DB.Query(ctx, personSelect+`
    FROM divisions d
    JOIN employees p ON d.head_id = p.id
    WHERE d.code = 'hr'
  `)
	if err != nil {
		return approval.Person{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return approval.Person{}, false, rows.Err()
	}
	p, err := scanPerson(rows)
	return p, err == nil, err
}

func (s *Store) FirstActiveAdmin(ctx context.Context) (approval.Person, bool, error) {
	rows, err := s.DB.Query(ctx, personSelect+`
    FROM employees p
    WHERE p.access_level = 1 AND p.is_active
    ORDER BY p.created_at
    LIMIT 1
  `)
	if err != nil {
		return approval.Person{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return approval.Person{}, false, rows.Err()
	}
	p, err := scanPerson(rows)
	return p, err == nil, err
}
