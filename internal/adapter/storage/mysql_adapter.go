package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/stock-lookup/internal/config"
	"github.com/rl1809/stock-lookup/internal/core/domain"
	"github.com/rl1809/stock-lookup/internal/metrics"
)

const (
	skuMetaKey          = "_sku"
	attachedFileMetaKey = "_wp_attached_file"
)

var ErrInvalidTablePrefix = errors.New("invalid table prefix")

type CatalogOptions struct {
	TablePrefix    string
	UploadsBaseURL string
	Keys           domain.AttributeKeys
}

// MySQLAdapter reads products from WordPress-style posts/postmeta tables.
type MySQLAdapter struct {
	db             *sql.DB
	uploadsBaseURL string

	recordQuery     string
	recordArgs      []any
	attachmentQuery string
}

func NewMySQLAdapter(db *sql.DB, opts CatalogOptions) (*MySQLAdapter, error) {
	if !config.ValidTablePrefix(opts.TablePrefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTablePrefix, opts.TablePrefix)
	}

	keys := opts.Keys
	if keys == nil {
		keys = domain.DefaultAttributeKeys()
	}

	query, args := buildRecordQuery(opts.TablePrefix, keys)
	return &MySQLAdapter{
		db:              db,
		uploadsBaseURL:  strings.TrimRight(opts.UploadsBaseURL, "/"),
		recordQuery:     query,
		recordArgs:      args,
		attachmentQuery: buildAttachmentQuery(opts.TablePrefix),
	}, nil
}

// buildRecordQuery pivots every attribute row of the product into one
// result row, so a lookup costs a single round trip.
func buildRecordQuery(prefix string, keys domain.AttributeKeys) (string, []any) {
	cases := make([]string, len(domain.Attributes))
	marks := make([]string, len(domain.Attributes))
	args := make([]any, 0, 2*len(domain.Attributes))

	for i, attr := range domain.Attributes {
		cases[i] = fmt.Sprintf("MAX(CASE WHEN pm.meta_key = ? THEN pm.meta_value END) AS attr_%d", i)
		marks[i] = "?"
		args = append(args, keys[attr])
	}
	for _, attr := range domain.Attributes {
		args = append(args, keys[attr])
	}

	query := fmt.Sprintf(`
		SELECT p.ID, p.post_title, p.post_status,
			%s
		FROM %spostmeta sku
		INNER JOIN %sposts p ON p.ID = sku.post_id AND p.post_type = 'product'
		LEFT JOIN %spostmeta pm ON pm.post_id = p.ID AND pm.meta_key IN (%s)
		WHERE sku.meta_key = '%s' AND sku.meta_value = ?
		GROUP BY p.ID, p.post_title, p.post_status
		ORDER BY p.ID
		LIMIT 1`,
		strings.Join(cases, ",\n\t\t\t"),
		prefix, prefix, prefix, strings.Join(marks, ", "),
		skuMetaKey,
	)
	return query, args
}

func buildAttachmentQuery(prefix string) string {
	return fmt.Sprintf(`
		SELECT p.guid, fm.meta_value
		FROM %sposts p
		LEFT JOIN %spostmeta fm ON fm.post_id = p.ID AND fm.meta_key = '%s'
		WHERE p.ID = ? AND p.post_type = 'attachment'
		LIMIT 1`,
		prefix, prefix, attachedFileMetaKey,
	)
}

func (m *MySQLAdapter) FetchRecord(ctx context.Context, sku string) (*domain.RawAttributes, error) {
	defer metrics.ObserveQuery("fetch_record", time.Now())

	raw := domain.RawAttributes{Values: make(map[domain.Attribute]*string, len(domain.Attributes))}
	values := make([]sql.NullString, len(domain.Attributes))

	dest := []any{&raw.ProductID, &raw.Title, &raw.PostStatus}
	for i := range values {
		dest = append(dest, &values[i])
	}

	args := append(append([]any(nil), m.recordArgs...), sku)
	err := m.db.QueryRowContext(ctx, m.recordQuery, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}

	for i, attr := range domain.Attributes {
		if values[i].Valid {
			v := values[i].String
			raw.Values[attr] = &v
		}
	}
	return &raw, nil
}

func (m *MySQLAdapter) ResolveAttachmentURL(ctx context.Context, attachmentID int64) (string, error) {
	defer metrics.ObserveQuery("resolve_attachment", time.Now())

	var guid string
	var file sql.NullString
	err := m.db.QueryRowContext(ctx, m.attachmentQuery, attachmentID).Scan(&guid, &file)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query attachment: %w", err)
	}

	return m.attachmentURL(guid, file.String), nil
}

// attachmentURL mirrors how WordPress derives an attachment URL: absolute
// file paths are used as-is, relative ones hang off the uploads directory,
// and the guid is the last resort.
func (m *MySQLAdapter) attachmentURL(guid, file string) string {
	file = strings.TrimSpace(file)
	switch {
	case strings.HasPrefix(file, "http://"), strings.HasPrefix(file, "https://"):
		return file
	case file != "" && m.uploadsBaseURL != "":
		return m.uploadsBaseURL + "/" + strings.TrimLeft(file, "/")
	default:
		return guid
	}
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
