package lmr

import (
	"fmt"
	"strconv"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Store writes LMR meta and proxy value tables into a SQLite database, the
// flat-table layout the assimilation workflow reads.
type Store struct {
	conn *sqlite.Conn
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS meta (
	proxy_id      TEXT PRIMARY KEY,
	site          TEXT NOT NULL,
	lat           REAL NOT NULL,
	lon           REAL NOT NULL,
	archive_type  TEXT NOT NULL,
	measurement   TEXT NOT NULL,
	resolution_yr REAL NOT NULL,
	reference     TEXT,
	databases     TEXT,
	seasonality   TEXT,
	elevation     REAL,
	oldest_ce     REAL,
	youngest_ce   REAL
);
CREATE TABLE IF NOT EXISTS proxy (
	proxy_id TEXT NOT NULL REFERENCES meta(proxy_id),
	year_ce  REAL NOT NULL,
	value    REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS proxy_by_id ON proxy(proxy_id, year_ce);
`

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("opening lmr store: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, storeSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("preparing lmr store schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// seasonalityString matches the original flat-table encoding, a bracketed
// month list.
func seasonalityString(months []int) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = strconv.Itoa(m)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func databasesString(labels []string) string {
	return "[" + strings.Join(labels, ", ") + "]"
}

// Save writes one converted record's rows in a single transaction. An
// existing proxy ID is replaced, reruns over the same corpus stay
// idempotent.
func (s *Store) Save(meta []MetaRow, series []Series) (err error) {
	defer sqlitex.Save(s.conn)(&err)

	for i := range meta {
		m := &meta[i]
		err = sqlitex.Execute(s.conn,
			`INSERT OR REPLACE INTO meta
			(proxy_id, site, lat, lon, archive_type, measurement, resolution_yr,
			 reference, databases, seasonality, elevation, oldest_ce, youngest_ce)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				m.ProxyID, m.Site, m.Lat, m.Lon, m.ArchiveType, m.Measurement,
				m.ResolutionYr, m.Reference, databasesString(m.Databases),
				seasonalityString(m.Seasonality), m.Elevation, m.OldestCE, m.YoungestCE,
			}})
		if err != nil {
			return fmt.Errorf("storing meta for %s: %w", m.ProxyID, err)
		}
	}
	for i := range series {
		sr := &series[i]
		err = sqlitex.Execute(s.conn, `DELETE FROM proxy WHERE proxy_id = ?`,
			&sqlitex.ExecOptions{Args: []any{sr.ProxyID}})
		if err != nil {
			return fmt.Errorf("clearing proxy rows for %s: %w", sr.ProxyID, err)
		}
		for j := range sr.Values {
			err = sqlitex.Execute(s.conn,
				`INSERT INTO proxy (proxy_id, year_ce, value) VALUES (?, ?, ?)`,
				&sqlitex.ExecOptions{Args: []any{sr.ProxyID, sr.YearsCE[j], sr.Values[j]}})
			if err != nil {
				return fmt.Errorf("storing proxy rows for %s: %w", sr.ProxyID, err)
			}
		}
	}
	return nil
}

// ProxyIDs lists stored series identifiers.
func (s *Store) ProxyIDs() ([]string, error) {
	var out []string
	err := sqlitex.Execute(s.conn, `SELECT proxy_id FROM meta ORDER BY proxy_id`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, stmt.ColumnText(0))
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("listing proxies: %w", err)
	}
	return out, nil
}

// Values reads back one stored series ordered by year.
func (s *Store) Values(proxyID string) (years, values []float64, err error) {
	err = sqlitex.Execute(s.conn,
		`SELECT year_ce, value FROM proxy WHERE proxy_id = ? ORDER BY year_ce DESC`,
		&sqlitex.ExecOptions{
			Args: []any{proxyID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				years = append(years, stmt.ColumnFloat(0))
				values = append(values, stmt.ColumnFloat(1))
				return nil
			},
		})
	if err != nil {
		return nil, nil, fmt.Errorf("reading proxy %s: %w", proxyID, err)
	}
	return years, values, nil
}
