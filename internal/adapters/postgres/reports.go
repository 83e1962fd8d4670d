package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"secaudit/internal/domain"
)

// ReportStore is the reports side of DB; it satisfies ports.ReportRepository.
type ReportStore struct{ db *DB }

func (db *DB) Reports() *ReportStore { return &ReportStore{db: db} }

func (s *ReportStore) Insert(ctx context.Context, r domain.Report) error {
	results, err := json.Marshal(r.ScanResults)
	if err != nil {
		return fmt.Errorf("encode scan results: %w", err)
	}
	recs, err := json.Marshal(r.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	_, err = s.db.Pool.Exec(ctx, `
        INSERT INTO reports (id, score, grade, critical_issues, high_issues, medium_issues, low_issues,
                             scan_results, summary, recommendations, total_vulnerabilities, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, r.ID, r.Score.Score, r.Score.Grade, r.Score.CriticalIssues, r.Score.HighIssues, r.Score.MediumIssues, r.Score.LowIssues,
		results, r.Summary, recs, r.TotalVulnerabilities, r.CreatedAt)
	return err
}

func (s *ReportStore) Get(ctx context.Context, id string) (domain.Report, error) {
	var (
		r       domain.Report
		results []byte
		recs    []byte
	)
	err := s.db.Pool.QueryRow(ctx, `
        SELECT id::text, score, grade, critical_issues, high_issues, medium_issues, low_issues,
               scan_results, summary, recommendations, total_vulnerabilities, created_at
        FROM reports WHERE id = $1
    `, id).Scan(&r.ID, &r.Score.Score, &r.Score.Grade, &r.Score.CriticalIssues, &r.Score.HighIssues,
		&r.Score.MediumIssues, &r.Score.LowIssues, &results, &r.Summary, &recs, &r.TotalVulnerabilities, &r.CreatedAt)
	if err != nil {
		return domain.Report{}, notFound(err)
	}
	if err := json.Unmarshal(results, &r.ScanResults); err != nil {
		return domain.Report{}, fmt.Errorf("decode scan results: %w", err)
	}
	if err := json.Unmarshal(recs, &r.Recommendations); err != nil {
		return domain.Report{}, fmt.Errorf("decode recommendations: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

// List reads the page and the table total in one statement so both come from
// the same snapshot.
func (s *ReportStore) List(ctx context.Context, limit int) ([]domain.ReportSummary, int, error) {
	rows, err := s.db.Pool.Query(ctx, `
        SELECT id::text, score, grade, created_at, total_vulnerabilities, count(*) OVER () AS total
        FROM reports
        ORDER BY created_at DESC, seq DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var total int
	out := make([]domain.ReportSummary, 0, limit)
	for rows.Next() {
		var sum domain.ReportSummary
		if err := rows.Scan(&sum.ID, &sum.Score, &sum.Grade, &sum.CreatedAt, &sum.TotalVulnerabilities, &total); err != nil {
			return nil, 0, err
		}
		sum.CreatedAt = sum.CreatedAt.UTC()
		out = append(out, sum)
	}
	return out, total, rows.Err()
}

func (s *ReportStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		if isInvalidText(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
