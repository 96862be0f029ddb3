//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"kaya-scraper/internal/adapter/sqlstore"
	"kaya-scraper/internal/domain"
	"kaya-scraper/internal/usecase"
)

type fakeSource struct{ pages map[int][]domain.Ascent }

func (f fakeSource) AscentsPage(ctx context.Context, gymID string, offset int) ([]domain.Ascent, error) {
	return f.pages[offset], nil
}

func strPtr(s string) *string { return &s }
func intPtr(v int64) *int64   { return &v }

func TestSyncToMySQL_UpsertsAscents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "testdb",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", "test", "pass", host, port.Port(), "testdb")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	store, err := sqlstore.NewClient(ctx, "mysql", dsn, "", logger)
	if err != nil {
		t.Fatalf("store client: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	src := fakeSource{pages: map[int][]domain.Ascent{
		0: {
			{SendID: "s-1", GymID: "G1", Date: strPtr("2026-08-01"), Grade: strPtr("V5"),
				Username: strPtr("crusher"), Rating: intPtr(5), IsPremium: true},
			{SendID: "s-2", GymID: "G1", Date: strPtr("2026-08-02"), Grade: strPtr("V3"),
				Username: strPtr("slabber"), Stiffness: intPtr(-1)},
		},
	}}

	uc := &usecase.SyncUseCase{Log: logger, Source: src, Store: store}
	if _, err := uc.Sync(ctx, "G1", usecase.SyncOptions{Mode: usecase.ModeFull, BatchSize: 10}); err != nil {
		t.Fatalf("sync run: %v", err)
	}

	// Verify rows
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sends").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}

	// Run again to assert idempotency (upsert)
	if _, err := uc.Sync(ctx, "G1", usecase.SyncOptions{Mode: usecase.ModeFull, BatchSize: 10}); err != nil {
		t.Fatalf("sync run 2: %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sends").Scan(&count); err != nil {
		t.Fatalf("count 2: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows after upsert, got %d", count)
	}

	// Incremental run against the now-populated store stops at the frontier.
	res, err := uc.Sync(ctx, "G1", usecase.SyncOptions{Mode: usecase.ModeIncremental, BatchSize: 10})
	if err != nil {
		t.Fatalf("incremental sync: %v", err)
	}
	if res.TotalWritten != 0 {
		t.Fatalf("expected 0 rows written incrementally, got %d", res.TotalWritten)
	}
}
