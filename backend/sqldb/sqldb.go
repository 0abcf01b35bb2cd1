// Package sqldb 关系型数据库后端，基于 database/sql。
// 支持 mysql、sqlite3、postgres 三种驱动，语句由 squirrel 组装，
// 条件值全部走参数绑定
package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/hatlonely/mapx/backend"
	"github.com/hatlonely/mapx/query"
)

type SQLOptions struct {
	Driver   string `cfg:"driver" def:"mysql"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
	MaxConns int    `cfg:"maxConns" def:"10"`
	MaxIdle  int    `cfg:"maxIdle" def:"5"`
}

type SQL struct {
	db          *sql.DB
	driver      string
	placeholder sq.PlaceholderFormat
}

func NewSQLWithOptions(options *SQLOptions) (*SQL, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Driver == "" {
		options.Driver = "mysql"
	}

	dsn := options.DSN
	if dsn == "" {
		switch options.Driver {
		case "mysql":
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
				options.Username, options.Password, options.Host, options.Port, options.Database, options.Charset)
		case "sqlite3":
			dsn = options.Database
		case "postgres":
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
				options.Username, options.Password, options.Host, options.Port, options.Database)
		default:
			return nil, errors.Errorf("unsupported driver: %s", options.Driver)
		}
	}

	// postgres 走 pgx 的 database/sql 适配层
	driverName := options.Driver
	if driverName == "postgres" {
		driverName = "pgx"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "sql.Open failed")
	}

	if options.MaxConns > 0 {
		db.SetMaxOpenConns(options.MaxConns)
	}
	if options.MaxIdle > 0 {
		db.SetMaxIdleConns(options.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.WithMessage(err, "db.Ping failed")
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if options.Driver == "postgres" {
		placeholder = sq.Dollar
	}

	return &SQL{db: db, driver: options.Driver, placeholder: placeholder}, nil
}

// whereExpr 将条件节点转换为 squirrel 的 WHERE 片段
func whereExpr(d *query.Descriptor) (sq.Sqlizer, error) {
	if d == nil || d.Cond() == nil {
		return nil, nil
	}
	clause, args, err := d.Cond().ToSQL()
	if err != nil {
		return nil, err
	}
	return sq.Expr(clause, args...), nil
}

func orderClauses(order []query.Order) []string {
	clauses := make([]string, 0, len(order))
	for _, o := range order {
		direction := "ASC"
		if o.Direction == query.Desc {
			direction = "DESC"
		}
		clauses = append(clauses, fmt.Sprintf("%s %s", o.Field, direction))
	}
	return clauses
}

func (s *SQL) Query(ctx context.Context, table string, d *query.Descriptor) ([]map[string]any, error) {
	columns := []string{"*"}
	if d != nil && len(d.Fields()) > 0 {
		columns = d.Fields()
	}

	builder := sq.Select(columns...).From(table).PlaceholderFormat(s.placeholder)

	where, err := whereExpr(d)
	if err != nil {
		return nil, err
	}
	if where != nil {
		builder = builder.Where(where)
	}
	if d != nil {
		if clauses := orderClauses(d.Order()); len(clauses) > 0 {
			builder = builder.OrderBy(clauses...)
		}
		if d.Limit() > 0 {
			builder = builder.Limit(uint64(d.Limit()))
		}
		if d.Offset() > 0 {
			builder = builder.Offset(uint64(d.Offset()))
		}
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.WithMessage(err, "build select failed")
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.WithMessage(err, "query failed")
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQL) Count(ctx context.Context, table string, d *query.Descriptor) (int64, error) {
	builder := sq.Select("COUNT(*)").From(table).PlaceholderFormat(s.placeholder)

	where, err := whereExpr(d)
	if err != nil {
		return 0, err
	}
	if where != nil {
		builder = builder.Where(where)
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.WithMessage(err, "build count failed")
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, errors.WithMessage(err, "count failed")
	}
	return count, nil
}

func (s *SQL) Insert(ctx context.Context, table string, data map[string]any) (any, error) {
	sqlStr, args, err := sq.Insert(table).SetMap(data).PlaceholderFormat(s.placeholder).ToSql()
	if err != nil {
		return nil, errors.WithMessage(err, "build insert failed")
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, translateError(err)
	}

	// postgres 不支持 LastInsertId，主键由调用方或键生成器提供
	if s.driver == "postgres" {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, nil
	}
	return id, nil
}

func (s *SQL) UpdateByKey(ctx context.Context, table string, key map[string]any, data map[string]any) (bool, error) {
	sqlStr, args, err := sq.Update(table).SetMap(data).
		Where(sq.Eq(key)).PlaceholderFormat(s.placeholder).ToSql()
	if err != nil {
		return false, errors.WithMessage(err, "build update failed")
	}
	return s.execAffected(ctx, sqlStr, args)
}

func (s *SQL) UpdateByQuery(ctx context.Context, table string, d *query.Descriptor, data map[string]any) (bool, error) {
	builder := sq.Update(table).SetMap(data).PlaceholderFormat(s.placeholder)

	where, err := whereExpr(d)
	if err != nil {
		return false, err
	}
	if where != nil {
		builder = builder.Where(where)
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return false, errors.WithMessage(err, "build update failed")
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return false, translateError(err)
	}
	return true, nil
}

func (s *SQL) DeleteByKey(ctx context.Context, table string, key map[string]any) (bool, error) {
	sqlStr, args, err := sq.Delete(table).Where(sq.Eq(key)).PlaceholderFormat(s.placeholder).ToSql()
	if err != nil {
		return false, errors.WithMessage(err, "build delete failed")
	}
	return s.execAffected(ctx, sqlStr, args)
}

func (s *SQL) DeleteByQuery(ctx context.Context, table string, d *query.Descriptor) (bool, error) {
	builder := sq.Delete(table).PlaceholderFormat(s.placeholder)

	where, err := whereExpr(d)
	if err != nil {
		return false, err
	}
	if where != nil {
		builder = builder.Where(where)
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return false, errors.WithMessage(err, "build delete failed")
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return false, translateError(err)
	}
	return true, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) execAffected(ctx context.Context, sqlStr string, args []any) (bool, error) {
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, translateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithMessage(err, "RowsAffected failed")
	}
	return affected > 0, nil
}

// translateError 将驱动特有的唯一键冲突错误归一化
func translateError(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return errors.WithMessage(backend.ErrDuplicateKey, err.Error())
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return errors.WithMessage(backend.ErrDuplicateKey, err.Error())
	}
	return err
}

func scanRow(rows *sql.Rows) (map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, err
	}

	data := make(map[string]any, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			data[col] = string(b)
			continue
		}
		data[col] = values[i]
	}
	return data, nil
}
