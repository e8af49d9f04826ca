package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/adapter/persistence/postgres"
)

func TestItemEventRepo_Append(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO item_events`)).
		WithArgs(int64(1), "ingested", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), now))

	repo := postgres.NewItemEventRepo(db)
	e := &entity.ItemEvent{ItemID: 1, Kind: entity.EventIngested}
	if err := repo.Append(context.Background(), e); err != nil {
		t.Fatalf("Append err=%v", err)
	}
	if e.ID != 9 || !e.CreatedAt.Equal(now) {
		t.Fatalf("unexpected event after append: %+v", e)
	}
}

func TestItemEventRepo_Append_InvalidRejected(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := postgres.NewItemEventRepo(db)
	err := repo.Append(context.Background(), &entity.ItemEvent{ItemID: 0, Kind: entity.EventIngested})
	if err == nil {
		t.Fatal("expected validation error for missing item id")
	}
}

func TestItemEventRepo_ListByItem(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "item_id", "kind", "detail", "created_at"}).
		AddRow(int64(1), int64(5), "ingested", "", now).
		AddRow(int64(2), int64(5), "classified", "retry_priority=high", now.Add(time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM item_events`)).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	repo := postgres.NewItemEventRepo(db)
	got, err := repo.ListByItem(context.Background(), 5)
	if err != nil || len(got) != 2 {
		t.Fatalf("ListByItem err=%v len=%d", err, len(got))
	}
	if got[0].Kind != entity.EventIngested || got[1].Kind != entity.EventClassified {
		t.Fatalf("unexpected kinds: %+v", got)
	}
}
