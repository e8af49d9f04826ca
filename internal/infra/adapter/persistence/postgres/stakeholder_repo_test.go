package postgres_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/adapter/persistence/postgres"
)

func stakeholderRow(s *entity.StakeholderEntry) *sqlmock.Rows {
	var sourceID any
	if s.SourceID != nil {
		sourceID = *s.SourceID
	}
	return sqlmock.NewRows([]string{"id", "name", "aliases", "is_member", "source_id"}).
		AddRow(s.ID, s.Name, []byte(`["MinFin"]`), s.IsMember, sourceID)
}

func TestStakeholderRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.StakeholderEntry{ID: 1, Name: "Finanzministerium", IsMember: false}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(1)).
		WillReturnRows(stakeholderRow(want))

	repo := postgres.NewStakeholderRepo(db)
	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got.Name != want.Name || len(got.Aliases) != 1 || got.Aliases[0] != "MinFin" {
		t.Fatalf("unexpected stakeholder: %+v", got)
	}
}

func TestStakeholderRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "aliases", "is_member", "source_id"}))

	repo := postgres.NewStakeholderRepo(db)
	_, err := repo.Get(context.Background(), 404)
	if err != entity.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStakeholderRepo_List(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM stakeholders`).
		WillReturnRows(stakeholderRow(&entity.StakeholderEntry{ID: 1, Name: "X"}))

	repo := postgres.NewStakeholderRepo(db)
	got, err := repo.List(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("List err=%v len=%d", err, len(got))
	}
}

func TestStakeholderRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO stakeholders`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	repo := postgres.NewStakeholderRepo(db)
	s := &entity.StakeholderEntry{Name: "Landtag", Aliases: []string{"HLT"}}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if s.ID != 3 {
		t.Fatalf("expected id 3, got %d", s.ID)
	}
}

func TestStakeholderRepo_Create_InvalidRejected(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := postgres.NewStakeholderRepo(db)
	if err := repo.Create(context.Background(), &entity.StakeholderEntry{Name: ""}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestStakeholderRepo_Delete(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM stakeholders WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewStakeholderRepo(db)
	if err := repo.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
}
