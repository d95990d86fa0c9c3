package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/timemath"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) CreateProgramada(ctx context.Context, in model.Programada) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO programadas (id, descripcion, tipo_recurrencia, intervalo_recurrencia, asignados, creado_por, activa, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Descripcion, string(in.Recurrence.Kind), in.Recurrence.Interval,
		encodeList(in.Asignados), in.CreadoPor, boolInt(in.Activa), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetProgramada(ctx context.Context, id string) (model.Programada, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, descripcion, tipo_recurrencia, intervalo_recurrencia, asignados, creado_por, activa, created_at
		FROM programadas WHERE id = ?`, id)
	item, err := scanProgramada(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Programada{}, ErrNotFound
		}
		return model.Programada{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateProgramada(ctx context.Context, in model.Programada) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE programadas
		SET descripcion = ?, tipo_recurrencia = ?, intervalo_recurrencia = ?, asignados = ?, activa = ?
		WHERE id = ?`,
		in.Descripcion, string(in.Recurrence.Kind), in.Recurrence.Interval,
		encodeList(in.Asignados), boolInt(in.Activa), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) SetProgramadaActiva(ctx context.Context, id string, activa bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE programadas SET activa = ? WHERE id = ?`, boolInt(activa), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListProgramadas(ctx context.Context, filter ProgramadaFilter) ([]model.Programada, error) {
	query := `SELECT id, descripcion, tipo_recurrencia, intervalo_recurrencia, asignados, creado_por, activa, created_at FROM programadas`
	args := make([]any, 0, 3)
	if filter.Activa != nil {
		query += ` WHERE activa = ?`
		args = append(args, boolInt(*filter.Activa))
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Programada, 0)
	for rows.Next() {
		item, scanErr := scanProgramada(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateOcurrencia(ctx context.Context, in model.Ocurrencia) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ocurrencias (id, programada_id, descripcion, due_at, asignados, creado_por, estado, completed_at, finished_by, delay_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.ProgramadaID, in.Descripcion, mustTime(in.DueAt), encodeList(in.Asignados),
		in.CreadoPor, string(in.Estado), nullTime(in.CompletedAt), in.FinishedBy, nullInt(in.DelayMinutes), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetOcurrencia(ctx context.Context, id string) (model.Ocurrencia, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, programada_id, descripcion, due_at, asignados, creado_por, estado, completed_at, finished_by, delay_minutes, created_at
		FROM ocurrencias WHERE id = ?`, id)
	item, err := scanOcurrencia(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Ocurrencia{}, ErrNotFound
		}
		return model.Ocurrencia{}, err
	}
	return item, nil
}

// FinishOcurrencia applies the terminal transition only while the row is
// still fluid. A concurrent double submission makes the second update match
// zero rows, which surfaces as ErrAlreadyFinished instead of rewriting the
// frozen completion fields.
func (r *SQLiteRepository) FinishOcurrencia(ctx context.Context, in Finish) error {
	if !in.Estado.IsTerminal() {
		return fmt.Errorf("storage: finish requires a terminal estado, got %q", in.Estado)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE ocurrencias
		SET estado = ?, completed_at = ?, finished_by = ?, delay_minutes = ?
		WHERE id = ? AND estado NOT IN (?, ?)`,
		string(in.Estado), mustTime(in.CompletedAt), in.FinishedBy, in.DelayMinutes,
		in.OcurrenciaID, string(model.EstadoRealizada), string(model.EstadoCancelada),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM ocurrencias WHERE id = ?`, in.OcurrenciaID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyFinished
}

func (r *SQLiteRepository) ListOcurrencias(ctx context.Context, filter OcurrenciaFilter) ([]model.Ocurrencia, error) {
	query := `SELECT id, programada_id, descripcion, due_at, asignados, creado_por, estado, completed_at, finished_by, delay_minutes, created_at FROM ocurrencias`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.ProgramadaID != "" {
		clauses = append(clauses, "programada_id = ?")
		args = append(args, filter.ProgramadaID)
	}
	if filter.Estado != "" {
		clauses = append(clauses, "estado = ?")
		args = append(args, string(filter.Estado))
	}
	if filter.Fluid {
		clauses = append(clauses, "estado NOT IN (?, ?)")
		args = append(args, string(model.EstadoRealizada), string(model.EstadoCancelada))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY due_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Ocurrencia, 0)
	for rows.Next() {
		item, scanErr := scanOcurrencia(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreatePedido(ctx context.Context, in model.Pedido) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pedidos (id, problema, sector_id, puesto, estado, creado_por, created_at, finalizacion, transcurrido, solucion, resolvio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Problema, in.SectorID, in.Puesto, string(in.Estado), in.CreadoPor,
		mustTime(in.CreatedAt), nullTime(in.Finalizacion), in.Transcurrido, in.Solucion, in.Resolvio,
	)
	return err
}

func (r *SQLiteRepository) GetPedido(ctx context.Context, id string) (model.Pedido, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, problema, sector_id, puesto, estado, creado_por, created_at, finalizacion, transcurrido, solucion, resolvio
		FROM pedidos WHERE id = ?`, id)
	item, err := scanPedido(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Pedido{}, ErrNotFound
		}
		return model.Pedido{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdatePedido(ctx context.Context, in model.Pedido) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pedidos
		SET problema = ?, sector_id = ?, puesto = ?, estado = ?, finalizacion = ?, transcurrido = ?, solucion = ?, resolvio = ?
		WHERE id = ?`,
		in.Problema, in.SectorID, in.Puesto, string(in.Estado),
		nullTime(in.Finalizacion), in.Transcurrido, in.Solucion, in.Resolvio, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListPedidos(ctx context.Context, filter PedidoFilter) ([]model.Pedido, error) {
	query := `SELECT id, problema, sector_id, puesto, estado, creado_por, created_at, finalizacion, transcurrido, solucion, resolvio FROM pedidos`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.Estado != "" {
		clauses = append(clauses, "estado = ?")
		args = append(args, string(filter.Estado))
	}
	if filter.SectorID != "" {
		clauses = append(clauses, "sector_id = ?")
		args = append(args, filter.SectorID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Pedido, 0)
	for rows.Next() {
		item, scanErr := scanPedido(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateTarea(ctx context.Context, in model.Tarea) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tareas (id, pedido_id, descripcion, estado, asignados, creado_por, puesto, tiempo_desde_ultimo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.PedidoID, in.Descripcion, string(in.Estado), encodeList(in.Asignados),
		in.CreadoPor, in.Puesto, in.TiempoDesdeUltimo, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) ListTareas(ctx context.Context, filter TareaFilter) ([]model.Tarea, error) {
	query := `SELECT id, pedido_id, descripcion, estado, asignados, creado_por, puesto, tiempo_desde_ultimo, created_at FROM tareas`
	args := make([]any, 0, 3)
	if filter.PedidoID != "" {
		query += ` WHERE pedido_id = ?`
		args = append(args, filter.PedidoID)
	}
	query += ` ORDER BY created_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Tarea, 0)
	for rows.Next() {
		item, scanErr := scanTarea(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteTarea(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tareas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListSectores(ctx context.Context) ([]model.Sector, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, nombre, abrev FROM sectores ORDER BY nombre ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Sector, 0)
	for rows.Next() {
		var item model.Sector
		if scanErr := rows.Scan(&item.ID, &item.Nombre, &item.Abrev); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateSector(ctx context.Context, in model.Sector) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sectores (id, nombre, abrev) VALUES (?, ?, ?)`, in.ID, in.Nombre, in.Abrev)
	return err
}

func (r *SQLiteRepository) CreateUsuario(ctx context.Context, in model.Usuario) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO usuarios (id, nombre, email) VALUES (?, ?, ?)`, in.ID, in.Nombre, in.Email)
	return err
}

func (r *SQLiteRepository) GetUsuario(ctx context.Context, id string) (model.Usuario, error) {
	var item model.Usuario
	err := r.db.QueryRowContext(ctx, `SELECT id, nombre, email FROM usuarios WHERE id = ?`, id).
		Scan(&item.ID, &item.Nombre, &item.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Usuario{}, ErrNotFound
	}
	if err != nil {
		return model.Usuario{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) ListUsuarios(ctx context.Context) ([]model.Usuario, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, nombre, email FROM usuarios ORDER BY nombre ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Usuario, 0)
	for rows.Next() {
		var item model.Usuario
		if scanErr := rows.Scan(&item.ID, &item.Nombre, &item.Email); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

// parseDueTime is deliberately lenient: due_at rows imported from the
// previous system carry several layouts. An unparseable value yields a zero
// time so one bad record degrades to "unknown" downstream instead of failing
// the whole list.
func parseDueTime(raw string) time.Time {
	parsed, err := timemath.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgramada(s scanner) (model.Programada, error) {
	var out model.Programada
	var kind string
	var interval int
	var asignados string
	var activa int
	var created string
	if err := s.Scan(&out.ID, &out.Descripcion, &kind, &interval, &asignados, &out.CreadoPor, &activa, &created); err != nil {
		return model.Programada{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Programada{}, err
	}
	out.Recurrence = model.RecurrenceRule{Kind: model.RecurrenceKind(kind), Interval: interval}
	out.Asignados = decodeList(asignados)
	out.Activa = activa == 1
	out.CreatedAt = createdAt
	return out, nil
}

func scanOcurrencia(s scanner) (model.Ocurrencia, error) {
	var out model.Ocurrencia
	var due string
	var asignados string
	var estado string
	var completed sql.NullString
	var delay sql.NullInt64
	var created string
	if err := s.Scan(&out.ID, &out.ProgramadaID, &out.Descripcion, &due, &asignados, &out.CreadoPor, &estado, &completed, &out.FinishedBy, &delay, &created); err != nil {
		return model.Ocurrencia{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Ocurrencia{}, err
	}
	completedAt, err := parseNullableTime(completed)
	if err != nil {
		return model.Ocurrencia{}, err
	}
	out.DueAt = parseDueTime(due)
	out.Asignados = decodeList(asignados)
	out.Estado = model.Estado(estado)
	out.CompletedAt = completedAt
	if delay.Valid {
		v := int(delay.Int64)
		out.DelayMinutes = &v
	}
	out.CreatedAt = createdAt
	return out, nil
}

func scanPedido(s scanner) (model.Pedido, error) {
	var out model.Pedido
	var estado string
	var created string
	var finalizacion sql.NullString
	if err := s.Scan(&out.ID, &out.Problema, &out.SectorID, &out.Puesto, &estado, &out.CreadoPor, &created, &finalizacion, &out.Transcurrido, &out.Solucion, &out.Resolvio); err != nil {
		return model.Pedido{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Pedido{}, err
	}
	fin, err := parseNullableTime(finalizacion)
	if err != nil {
		return model.Pedido{}, err
	}
	out.Estado = model.TareaEstado(estado)
	out.CreatedAt = createdAt
	out.Finalizacion = fin
	return out, nil
}

func scanTarea(s scanner) (model.Tarea, error) {
	var out model.Tarea
	var estado string
	var asignados string
	var created string
	if err := s.Scan(&out.ID, &out.PedidoID, &out.Descripcion, &estado, &asignados, &out.CreadoPor, &out.Puesto, &out.TiempoDesdeUltimo, &created); err != nil {
		return model.Tarea{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Tarea{}, err
	}
	out.Estado = model.TareaEstado(estado)
	out.Asignados = decodeList(asignados)
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
