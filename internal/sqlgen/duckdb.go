package sqlgen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// DuckDBAdapter renders and executes SQL for DuckDB reading hive-partitioned
// parquet from S3-compatible storage.
//
// Construction is cheap: the S3 secret is registered lazily on first
// Execute, never in the constructor.
type DuckDBAdapter struct {
	cfg        Config
	secretOnce sync.Once
	secretErr  error
}

// NewDuckDBAdapter creates a DuckDB adapter.
func NewDuckDBAdapter(cfg Config) *DuckDBAdapter {
	if cfg.S3.PathRoot == "" {
		cfg.S3.PathRoot = "raw/v1"
	}
	if cfg.S3.URLStyle == "" {
		cfg.S3.URLStyle = "path"
	}
	if cfg.S3.SecretName == "" {
		cfg.S3.SecretName = "nlq_s3"
	}
	return &DuckDBAdapter{cfg: cfg}
}

func (a *DuckDBAdapter) DialectName() string { return "duckdb" }

// TableSource renders a read_parquet scan over the table's hive-partitioned
// S3 layout. The schema argument is unused for parquet sources.
func (a *DuckDBAdapter) TableSource(table, _ string) string {
	return fmt.Sprintf("read_parquet('s3://%s/%s/%s/year=*/month=*/*.parquet', hive_partitioning=true)",
		a.cfg.S3.Bucket, a.cfg.S3.PathRoot, table)
}

func (a *DuckDBAdapter) Cast(expr, typ string) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, typ)
}

func (a *DuckDBAdapter) Concat(args ...string) string {
	return strings.Join(args, " || ")
}

func (a *DuckDBAdapter) Like(field, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", field, quoteLiteral(pattern))
}

func (a *DuckDBAdapter) Sum(field, alias string) string {
	return aliased(fmt.Sprintf("SUM(%s)", field), alias)
}

func (a *DuckDBAdapter) Count(field, alias string) string {
	return aliased(fmt.Sprintf("COUNT(%s)", field), alias)
}

func (a *DuckDBAdapter) Join(left, right, leftField, rightField, joinType string) string {
	return fmt.Sprintf("%s %s JOIN %s ON %s = %s", left, normalizeJoinType(joinType), right, leftField, rightField)
}

func (a *DuckDBAdapter) Limit(n int) string {
	return fmt.Sprintf("LIMIT %d", n)
}

// Execute registers the S3 secret on first use, then runs the query.
func (a *DuckDBAdapter) Execute(ctx context.Context, sqlQuery string) (*domain.SQLResult, error) {
	if a.cfg.DB == nil {
		return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: "duckdb connection not configured"}, nil
	}

	a.secretOnce.Do(func() {
		a.secretErr = a.registerS3Secret(ctx)
	})
	if a.secretErr != nil {
		return &domain.SQLResult{Success: false, SQLQuery: sqlQuery, Error: a.secretErr.Error()}, nil
	}

	return runQuery(ctx, a.cfg.DB, sqlQuery, a.cfg.QueryTimeout)
}

// registerS3Secret resolves credentials through the AWS provider chain
// entry point and installs them as a DuckDB secret. Skipped entirely when
// no key is configured (local parquet, tests).
func (a *DuckDBAdapter) registerS3Secret(ctx context.Context) error {
	if a.cfg.S3.KeyID == "" {
		return nil
	}

	provider := credentials.NewStaticCredentialsProvider(a.cfg.S3.KeyID, a.cfg.S3.Secret, "")
	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("resolve s3 credentials: %w", err)
	}

	secretSQL := fmt.Sprintf(
		"CREATE OR REPLACE SECRET %s (TYPE S3, KEY_ID %s, SECRET %s, ENDPOINT %s, REGION %s, URL_STYLE %s, USE_SSL false)",
		a.cfg.S3.SecretName,
		quoteLiteral(creds.AccessKeyID),
		quoteLiteral(creds.SecretAccessKey),
		quoteLiteral(a.cfg.S3.Endpoint),
		quoteLiteral(a.cfg.S3.Region),
		quoteLiteral(a.cfg.S3.URLStyle),
	)
	if _, err := a.cfg.DB.ExecContext(ctx, secretSQL); err != nil {
		return fmt.Errorf("create s3 secret %q: %w", a.cfg.S3.SecretName, err)
	}
	return nil
}

// ProbeS3 checks that the configured bucket is reachable. Advisory only;
// the server logs a warning on failure and keeps starting.
func (a *DuckDBAdapter) ProbeS3(ctx context.Context) error {
	if a.cfg.S3.KeyID == "" || a.cfg.S3.Bucket == "" {
		return nil
	}

	client := s3.New(s3.Options{
		Region:       a.cfg.S3.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(a.cfg.S3.KeyID, a.cfg.S3.Secret, ""),
		BaseEndpoint: aws.String(a.cfg.S3.Endpoint),
		UsePathStyle: a.cfg.S3.URLStyle == "path",
	})

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HeadBucket(probeCtx, &s3.HeadBucketInput{Bucket: aws.String(a.cfg.S3.Bucket)}); err != nil {
		return fmt.Errorf("head bucket %q: %w", a.cfg.S3.Bucket, err)
	}
	return nil
}

// normalizeJoinType maps a declared join type to SQL, defaulting to INNER.
func normalizeJoinType(joinType string) string {
	switch strings.ToUpper(strings.TrimSpace(joinType)) {
	case "LEFT":
		return "LEFT"
	case "RIGHT":
		return "RIGHT"
	case "FULL":
		return "FULL"
	default:
		return "INNER"
	}
}
