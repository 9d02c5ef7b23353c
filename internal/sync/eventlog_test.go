package syncx

import (
	"context"
	"testing"

	"github.com/mind-engage/ledgerquiz/internal/db"
)

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:eventlog_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	repo := NewEventRepo(conn)

	if err := repo.Append(ctx, NewEvent(TypeQuizSubmitted, "s1", map[string]any{"score": 1.5})); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, NewEvent(TypeLeaderboardCleared, "admin", nil)); err != nil {
		t.Fatal(err)
	}

	evs, err := repo.Since(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 || evs[0].Type != TypeQuizSubmitted || evs[0].DataJSON != `{"score":1.5}` || evs[0].SiteID != "local" {
		t.Fatalf("events: %+v", evs)
	}
	rest, err := repo.Since(ctx, evs[0].Seq, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].Type != TypeLeaderboardCleared {
		t.Fatalf("since: %+v", rest)
	}
}
