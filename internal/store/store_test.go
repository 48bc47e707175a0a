package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/researcher/internal/research"
)

var (
	insertQuery = regexp.QuoteMeta(`INSERT INTO results (query, findings) VALUES ($1,$2) RETURNING id`)
	selectQuery = regexp.QuoteMeta(`SELECT id, query, findings, created_at FROM results WHERE id=$1`)
	listQuery   = regexp.QuoteMeta(`SELECT id, query, findings, created_at FROM results ORDER BY id DESC LIMIT $1`)
	deleteQuery = regexp.QuoteMeta(`DELETE FROM results WHERE id=$1`)
	countQuery  = regexp.QuoteMeta(`SELECT COUNT(*) FROM results`)
)

func sampleFindings() research.Findings {
	return research.Findings{
		Topic:     research.TopicCrypto,
		Summary:   "Research findings for bitcoin price: bitcoin trading at $45000.00 (2.50% over 24h)",
		Source:    "CoinGecko",
		FetchedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Items: []research.Item{
			{Label: "coin", Value: "bitcoin"},
			{Label: "price_usd", Value: "$45000.00"},
		},
	}
}

func TestAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(insertQuery).
		WithArgs("bitcoin price", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	id, err := st.Append(context.Background(), "bitcoin price", sampleFindings())
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendIdentifiersSurviveDeletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ctx := context.Background()

	mock.ExpectQuery(insertQuery).WithArgs("a", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(insertQuery).WithArgs("b", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec(deleteQuery).WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertQuery).WithArgs("c", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	ids := make([]int64, 0, 3)
	for _, q := range []string{"a", "b"} {
		id, err := st.Append(ctx, q, sampleFindings())
		if err != nil {
			t.Fatalf("Append %s: %v", q, err)
		}
		ids = append(ids, id)
	}
	if ok, err := st.Delete(ctx, 1); err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	id, err := st.Append(ctx, "c", sampleFindings())
	if err != nil {
		t.Fatalf("Append c: %v", err)
	}
	ids = append(ids, id)

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("identifiers not strictly increasing: %v", ids)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectQuery).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "query", "findings", "created_at"}).
			AddRow(int64(7), "bitcoin price", []byte(`{"topic":"crypto","summary":"s","source":"CoinGecko","fetched_at":"2025-06-01T12:00:00Z","items":[{"label":"coin","value":"bitcoin"}]}`), created))

	rec, ok, err := st.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected record")
	}
	if rec.ID != 7 || rec.Query != "bitcoin price" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Findings.Topic != research.TopicCrypto || len(rec.Findings.Items) != 1 {
		t.Fatalf("findings not decoded: %+v", rec.Findings)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at: %v", rec.CreatedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(selectQuery).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	_, ok, err := st.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListDefaultsAndOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	findings := []byte(`{"topic":"general","summary":"s","source":"Wikipedia","fetched_at":"2025-06-01T12:00:00Z","items":[]}`)
	mock.ExpectQuery(listQuery).WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "query", "findings", "created_at"}).
			AddRow(int64(3), "c", findings, time.Now()).
			AddRow(int64(2), "b", findings, time.Now()).
			AddRow(int64(1), "a", findings, time.Now()))

	out, err := st.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[0].ID != 3 || out[2].ID != 1 {
		t.Fatalf("expected most-recent-first order, got %v, %v, %v", out[0].ID, out[1].ID, out[2].ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListLimitOne(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	findings := []byte(`{"topic":"news","summary":"s","source":"NewsAPI","fetched_at":"2025-06-01T12:00:00Z","items":[]}`)
	mock.ExpectQuery(listQuery).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "query", "findings", "created_at"}).
			AddRow(int64(3), "newest", findings, time.Now()))

	out, err := st.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].ID != 3 {
		t.Fatalf("expected only the newest result, got %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(deleteQuery).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQuery).WithArgs(int64(6)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := st.Delete(context.Background(), 5)
	if err != nil || !ok {
		t.Fatalf("Delete existing: ok=%v err=%v", ok, err)
	}
	ok, err = st.Delete(context.Background(), 6)
	if err != nil {
		t.Fatalf("Delete missing must not error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for missing id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(countQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	n, err := st.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
