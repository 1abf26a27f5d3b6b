package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"spadesbot/apps/bot/internal/logging"
)

// sqlStore holds what the sqlite and postgres backends share. The queries
// differ only in placeholder syntax.
type sqlStore struct {
	db          *sql.DB
	hasher      *UserHasher
	insertQuery string
	recentQuery string
	log         *logrus.Entry
}

func newSQLStore(db *sql.DB, h *UserHasher, insertQuery, recentQuery string) sqlStore {
	return sqlStore{
		db:          db,
		hasher:      h,
		insertQuery: insertQuery,
		recentQuery: recentQuery,
		log:         logging.For("Ledger"),
	}
}

func (s *sqlStore) Record(ctx context.Context, e Entry) {
	rec := toRecord(0, s.hasher, e)
	args, err := json.Marshal(rec.Args)
	if err != nil {
		s.log.Warnf("marshal args failed: command=%s err=%v", rec.Command, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, s.insertQuery,
		rec.Scope, rec.UserHash, rec.Command, string(args), rec.Outcome, rec.At.UnixMilli(),
	); err != nil {
		s.log.Warnf("append failed: scope=%s command=%s err=%v", rec.Scope, rec.Command, err)
	}
}

func (s *sqlStore) Recent(ctx context.Context, scope string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.recentQuery, scope, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			rawArgs string
			atMs    int64
		)
		if err := rows.Scan(&rec.Seq, &rec.Scope, &rec.UserHash, &rec.Command, &rawArgs, &rec.Outcome, &atMs); err != nil {
			return nil, err
		}
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &rec.Args); err != nil {
				return nil, fmt.Errorf("decode args of record %d: %w", rec.Seq, err)
			}
		}
		rec.At = time.UnixMilli(atMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
