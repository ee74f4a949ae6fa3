// Package repository содержит журнал решений по авторизациям в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/spendcontrol-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDuplicateDecision возвращается при повторной записи решения с тем же
// идентификатором авторизации (повторная доставка того же запроса).
var ErrDuplicateDecision = errors.New("decision already recorded")

// PostgresRepository хранит журнал решений в PostgreSQL.
// Журнал опционален: решение по авторизации от него не зависит.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// RecordDecision сохраняет решение по авторизации в журнал.
// Запись идемпотентна по идентификатору авторизации.
func (r *PostgresRepository) RecordDecision(ctx context.Context, req model.AuthorizationRequest, verdict model.Verdict) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO authorization_decisions (authorization_id, card_id, amount_cents, verdict, reason)
			 VALUES ($1, $2, $3, $4, $5)`,
			req.ID.String(), req.CardID, req.AmountCents, string(verdict.Decision), verdict.Reason,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", ErrDuplicateDecision, req.ID)
			}
			return fmt.Errorf("insert decision: %w", err)
		}
		return nil
	})
}

// GetDecisionsByCard возвращает последние решения по карте, от новых к старым.
func (r *PostgresRepository) GetDecisionsByCard(ctx context.Context, cardID string, limit int) ([]model.DecisionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT authorization_id, card_id, amount_cents, verdict, reason, decided_at
		 FROM authorization_decisions
		 WHERE card_id = $1
		 ORDER BY decided_at DESC
		 LIMIT $2`,
		cardID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select decisions: %w", err)
	}
	defer rows.Close()

	var res []model.DecisionRecord
	for rows.Next() {
		var (
			authIDStr   string
			rec         model.DecisionRecord
			verdictName string
		)

		if err := rows.Scan(&authIDStr, &rec.CardID, &rec.AmountCents, &verdictName, &rec.Reason, &rec.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}

		authID, err := uuid.Parse(authIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse authorization id: %w", err)
		}

		rec.AuthorizationID = authID
		rec.Decision = model.Decision(verdictName)
		res = append(res, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
