package reporting

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/meridian-sims/worldsim/cmd/worldsim/core"
)

// HistoryStore persists run histories to a local sqlite database so runs can
// be compared and replayed offline. It is a pure consumer of the snapshot
// sequence; nothing in the engine depends on it.
type HistoryStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	seed       INTEGER NOT NULL,
	steps      INTEGER NOT NULL,
	nations    INTEGER NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS step_aggregates (
	run_id              TEXT NOT NULL REFERENCES runs(id),
	step                INTEGER NOT NULL,
	total_gdp           REAL NOT NULL,
	total_population    REAL NOT NULL,
	gini                REAL NOT NULL,
	climate_index       REAL NOT NULL,
	living_nations      INTEGER NOT NULL,
	war_count           INTEGER NOT NULL,
	nuclear_detonations INTEGER NOT NULL,
	PRIMARY KEY (run_id, step)
);

CREATE TABLE IF NOT EXISTS nation_states (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	step          INTEGER NOT NULL,
	nation_id     INTEGER NOT NULL,
	name          TEXT NOT NULL,
	status        TEXT NOT NULL,
	government    TEXT NOT NULL,
	population    REAL NOT NULL,
	gdp           REAL NOT NULL,
	tfp           REAL NOT NULL,
	military      REAL NOT NULL,
	health        REAL NOT NULL,
	exchange_rate REAL NOT NULL,
	ally_count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, step, nation_id)
);

CREATE TABLE IF NOT EXISTS events (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	step      INTEGER NOT NULL,
	nation_id INTEGER NOT NULL,
	category  TEXT NOT NULL,
	detail    TEXT NOT NULL
);
`

// OpenHistoryStore opens (creating if needed) the database at path.
func OpenHistoryStore(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close releases the database handle.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a completed run's full history in one transaction.
func (s *HistoryStore) SaveRun(runID string, seed uint64, nations int, history []*core.WorldState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(
		`INSERT INTO runs (id, seed, steps, nations) VALUES (?, ?, ?, ?)`,
		runID, int64(seed), len(history), nations,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	aggStmt, err := tx.Prepare(`INSERT INTO step_aggregates
		(run_id, step, total_gdp, total_population, gini, climate_index, living_nations, war_count, nuclear_detonations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer aggStmt.Close()

	nationStmt, err := tx.Prepare(`INSERT INTO nation_states
		(run_id, step, nation_id, name, status, government, population, gdp, tfp, military, health, exchange_rate, ally_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nationStmt.Close()

	eventStmt, err := tx.Prepare(`INSERT INTO events
		(run_id, step, nation_id, category, detail) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for _, state := range history {
		agg := state.Aggregates
		if _, err = aggStmt.Exec(runID, state.Step, agg.TotalGDP, agg.TotalPopulation,
			agg.Gini, agg.ClimateIndex, agg.LivingNations, agg.WarCount, agg.NuclearDetonations); err != nil {
			return fmt.Errorf("failed to insert step %d aggregates: %w", state.Step, err)
		}

		for _, n := range state.Nations {
			status := "alive"
			if !n.Alive() {
				status = "extinct"
			}
			if _, err = nationStmt.Exec(runID, state.Step, n.ID, n.Name, status,
				n.Government.String(), n.Population, n.GDP, n.TFP, n.Military,
				n.Health, n.ExchangeRate, len(n.Allies)); err != nil {
				return fmt.Errorf("failed to insert nation state: %w", err)
			}
		}

		for _, ev := range state.Events {
			if _, err = eventStmt.Exec(runID, ev.Step, ev.NationID, ev.Category.String(), ev.Detail); err != nil {
				return fmt.Errorf("failed to insert event: %w", err)
			}
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the saved-runs listing.
type RunSummary struct {
	ID        string
	Seed      uint64
	Steps     int
	Nations   int
	CreatedAt string
}

// ListRuns returns saved runs, newest first.
func (s *HistoryStore) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, seed, steps, nations, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var seed int64
		if err := rows.Scan(&r.ID, &seed, &r.Steps, &r.Nations, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	return out, rows.Err()
}
