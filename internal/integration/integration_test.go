package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-lookup/internal/adapter/handler"
	"github.com/rl1809/stock-lookup/internal/adapter/storage"
	"github.com/rl1809/stock-lookup/internal/core/domain"
	"github.com/rl1809/stock-lookup/internal/core/service"
)

const tablePrefix = "itest_"

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	catalog *storage.MySQLAdapter
	server  *httptest.Server
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/wordpress?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	seed(t, db)
	rdb.Del(context.Background(), "attachment:500")

	catalog, err := storage.NewMySQLAdapter(db, storage.CatalogOptions{
		TablePrefix:    tablePrefix,
		UploadsBaseURL: "https://shop.example.com/wp-content/uploads",
	})
	if err != nil {
		t.Fatalf("NewMySQLAdapter failed: %v", err)
	}

	guarded := storage.NewBreakerCatalog(catalog, storage.BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  5,
		FailureRatio: 0.6,
	})
	attachments := storage.NewCachedAttachmentResolver(catalog, storage.NewRedisAdapter(rdb, time.Minute))
	lookup := service.NewLookupService(guarded, attachments)

	h := handler.NewHTTPHandler(lookup, catalog)
	srv := httptest.NewServer(handler.NewRouter(h.Routes(), handler.RouterOptions{RequestTimeout: 5 * time.Second}))

	return &testEnv{
		redis:   rdb,
		mysql:   db,
		catalog: catalog,
		server:  srv,
		cleanup: func() {
			srv.Close()
			db.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+tablePrefix+`posts`)
			db.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+tablePrefix+`postmeta`)
			rdb.Del(context.Background(), "attachment:500")
			rdb.Close()
			db.Close()
		},
	}
}

func seed(t *testing.T, db *sql.DB) {
	stmts := []string{
		`DROP TABLE IF EXISTS ` + tablePrefix + `posts`,
		`DROP TABLE IF EXISTS ` + tablePrefix + `postmeta`,
		`CREATE TABLE ` + tablePrefix + `posts (
			ID BIGINT UNSIGNED NOT NULL PRIMARY KEY,
			post_title TEXT NOT NULL,
			post_status VARCHAR(20) NOT NULL,
			post_type VARCHAR(20) NOT NULL,
			guid VARCHAR(255) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE ` + tablePrefix + `postmeta (
			meta_id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			post_id BIGINT UNSIGNED NOT NULL,
			meta_key VARCHAR(255),
			meta_value LONGTEXT
		)`,
		`INSERT INTO ` + tablePrefix + `posts VALUES
			(1, 'Stoneware Bowl', 'publish', 'product', ''),
			(2, 'Hidden Jug', 'private', 'product', ''),
			(500, 'bowl', 'inherit', 'attachment', 'https://shop.example.com/?attachment_id=500')`,
		`INSERT INTO ` + tablePrefix + `postmeta (post_id, meta_key, meta_value) VALUES
			(1, '_sku', 'BOWL-1'),
			(1, '_stock', '12'),
			(1, '_stock_status', 'instock'),
			(1, '_thumbnail_id', '500'),
			(1, '_depot_vente', 'no'),
			(2, '_sku', 'JUG-1'),
			(2, '_stock', '3'),
			(500, '_wp_attached_file', '2025/01/bowl.jpg')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestIntegration_LookupFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	resp, body := get(t, env.server.URL+"/lookup/bowl-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var record domain.ProductRecord
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.SKU != "BOWL-1" || record.StockQuantity != 12 || record.StockStatus != "instock" {
		t.Errorf("unexpected record: %+v", record)
	}
	if record.ImageURL != "https://shop.example.com/wp-content/uploads/2025/01/bowl.jpg" {
		t.Errorf("unexpected image url: %s", record.ImageURL)
	}
	if record.ConsignmentFlag != "no" {
		t.Errorf("expected depot_vente no, got %q", record.ConsignmentFlag)
	}

	// The attachment URL is now served from Redis.
	cached, err := env.redis.Get(context.Background(), "attachment:500").Result()
	if err != nil {
		t.Fatalf("expected cached attachment url: %v", err)
	}
	if cached != record.ImageURL {
		t.Errorf("cached url = %q, want %q", cached, record.ImageURL)
	}

	// Stock changes are visible on the next request.
	if _, err := env.mysql.Exec(`UPDATE `+tablePrefix+`postmeta SET meta_value = '0' WHERE post_id = 1 AND meta_key = '_stock'`); err != nil {
		t.Fatalf("update stock: %v", err)
	}
	_, body = get(t, env.server.URL+"/lookup/BOWL-1")
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.StockQuantity != 0 {
		t.Errorf("expected fresh stock 0, got %d", record.StockQuantity)
	}

	// Unpublished products stay hidden.
	resp, _ = get(t, env.server.URL+"/lookup/JUG-1")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for private product, got %d", resp.StatusCode)
	}

	resp, _ = get(t, env.server.URL+"/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected ready, got %d", resp.StatusCode)
	}
}

func TestIntegration_Batch(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	resp, err := http.Post(env.server.URL+"/product-stock-data/batch", "application/json",
		strings.NewReader(`{"skus":["JUG-1","bowl-1","NOPE"]}`))
	if err != nil {
		t.Fatalf("POST batch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var results []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantSKUs := []string{"JUG-1", "BOWL-1", "NOPE"}
	wantFound := []bool{false, true, false}
	for i, r := range results {
		if r["sku"] != wantSKUs[i] || r["found"] != wantFound[i] {
			t.Errorf("result %d = %v, want sku %s found %v", i, r, wantSKUs[i], wantFound[i])
		}
	}
}

func TestIntegration_ConcurrentLookups(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	const totalRequests = 100

	var okCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			resp, err := http.Get(env.server.URL + "/lookup/BOWL-1")
			if err != nil {
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				okCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if got := okCount.Load(); got != totalRequests {
		t.Errorf("expected %d successful lookups, got %d", totalRequests, got)
	}
}
