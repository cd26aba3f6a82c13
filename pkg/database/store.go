package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"rfm-segmentation/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverMySQL  = "mysql"
	driverSQLite = "sqlite"
)

// Open DSN mariadb://, mysql:// ou sqlite:// → (db, driver)
// Un DSN sans schéma est passé tel quel au driver MySQL.
func Open(dsn string) (*sql.DB, string, error) {
	driver, conn, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, "", err
	}
	if driver == driverSQLite {
		// une seule connexion : évite les verrous sur le fichier
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, driver, nil
}

func resolveDSN(dsn string) (string, string, error) {
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("dsn vide")
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("dsn sqlite incomplet (chemin)")
		}
		return driverSQLite, path, nil
	case strings.HasPrefix(dsn, "file:"):
		return driverSQLite, dsn, nil
	default:
		conn, err := toMySQLDSN(dsn)
		return driverMySQL, conn, err
	}
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// Run décrit une exécution persistée du pipeline.
type Run struct {
	ID           string
	AnalysisDate time.Time
	InputPath    string
	Customers    int
	CreatedAt    time.Time
}

// NewRun crée un run avec un identifiant unique.
func NewRun(analysisDate time.Time, inputPath string, customers int) Run {
	return Run{
		ID:           uuid.NewString(),
		AnalysisDate: analysisDate,
		InputPath:    inputPath,
		Customers:    customers,
		CreatedAt:    time.Now().UTC(),
	}
}

// Schéma commun MySQL / SQLite ; une instruction par Exec (MySQL refuse le multi-statements par défaut).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rfm_runs (
		run_id        VARCHAR(36)  NOT NULL PRIMARY KEY,
		analysis_date VARCHAR(10)  NOT NULL,
		input_path    VARCHAR(512) NOT NULL,
		customers     INT          NOT NULL,
		created_at    DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rfm_scores (
		run_id          VARCHAR(36) NOT NULL,
		master_id       VARCHAR(64) NOT NULL,
		recency         INT         NOT NULL,
		frequency       DOUBLE      NOT NULL,
		monetary        DOUBLE      NOT NULL,
		recency_score   INT         NOT NULL,
		frequency_score INT         NOT NULL,
		monetary_score  INT         NOT NULL,
		rf_score        VARCHAR(2)  NOT NULL,
		segment         VARCHAR(32) NOT NULL,
		PRIMARY KEY (run_id, master_id)
	)`,
}

// Migrate crée les tables si besoin.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveRun enregistre le run et ses clients scorés dans une seule transaction.
func SaveRun(ctx context.Context, db *sql.DB, run Run, records []models.RFMRecord) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rfm_runs (run_id, analysis_date, input_path, customers, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.AnalysisDate.UTC().Format("2006-01-02"), run.InputPath, run.Customers, run.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rfm_scores (run_id, master_id, recency, frequency, monetary, recency_score, frequency_score, monetary_score, rf_score, segment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			run.ID, r.MasterID, r.Recency, r.Frequency, r.Monetary,
			r.RecencyScore, r.FrequencyScore, r.MonetaryScore, r.RFScore, string(r.Segment),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", r.MasterID, err)
		}
		inserted++
	}
	return inserted, tx.Commit()
}

// LoadScores relit les clients scorés d'un run, triés par master_id.
func LoadScores(ctx context.Context, db *sql.DB, runID string) ([]models.RFMRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT master_id, recency, frequency, monetary, recency_score, frequency_score, monetary_score, rf_score, segment
		 FROM rfm_scores WHERE run_id = ? ORDER BY master_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RFMRecord
	for rows.Next() {
		var (
			r   models.RFMRecord
			seg string
		)
		if err := rows.Scan(&r.MasterID, &r.Recency, &r.Frequency, &r.Monetary,
			&r.RecencyScore, &r.FrequencyScore, &r.MonetaryScore, &r.RFScore, &seg); err != nil {
			return nil, err
		}
		r.Segment = models.Segment(seg)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountRuns retourne le nombre de runs persistés.
func CountRuns(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rfm_runs`).Scan(&n)
	return n, err
}
