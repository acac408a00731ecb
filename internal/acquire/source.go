package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/born-ml/toxicprep/internal/config"
)

// DefaultMaxBytes caps a single downloaded file.
const DefaultMaxBytes = 1 << 30

// Common errors.
var (
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrTooLarge   = errors.New("download exceeds size limit")
)

// Source fetches one raw file by name.
type Source interface {
	Fetch(ctx context.Context, file string, w io.Writer) error
	Name() string
}

// HTTPDoer is the subset of *http.Client used by KaggleSource.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// KaggleSource downloads dataset files from the Kaggle public API using
// HTTP basic auth with the account username and API key.
type KaggleSource struct {
	BaseURL  string
	Handle   string // "owner/dataset"
	Username string
	Key      string
	Client   HTTPDoer
	MaxBytes int64
}

// NewKaggleSource creates a Kaggle source. Credentials are checked here, before
// any request is made.
func NewKaggleSource(baseURL, handle string, creds config.Credentials) (*KaggleSource, error) {
	if creds.Username == "" || creds.Key == "" {
		return nil, fmt.Errorf("%w: set %s and %s", config.ErrMissingCredentials, config.EnvUsername, config.EnvKey)
	}
	if strings.Count(handle, "/") != 1 {
		return nil, fmt.Errorf("%w: dataset handle %q is not owner/dataset", config.ErrInvalidConfig, handle)
	}
	return &KaggleSource{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Handle:   handle,
		Username: creds.Username,
		Key:      creds.Key,
		Client:   &http.Client{Timeout: 10 * time.Minute},
		MaxBytes: DefaultMaxBytes,
	}, nil
}

// Name identifies the source in logs.
func (k *KaggleSource) Name() string {
	return "kaggle:" + k.Handle
}

// Fetch streams file into w.
func (k *KaggleSource) Fetch(ctx context.Context, file string, w io.Writer) error {
	u := k.BaseURL + "/datasets/download/" + k.Handle + "/" + url.PathEscape(file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(k.Username, k.Key)

	resp, err := k.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", file, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limit := k.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	n, err := io.Copy(w, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	if n > limit {
		return fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, file, limit)
	}
	return nil
}

// S3API is the subset of *s3.Client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a mirrored copy of the dataset from an S3 bucket.
type S3Source struct {
	Client S3API
	Bucket string
	Prefix string
}

// Name identifies the source in logs.
func (s *S3Source) Name() string {
	return "s3://" + path.Join(s.Bucket, s.Prefix)
}

// Fetch streams the object <prefix>/<file> into w.
func (s *S3Source) Fetch(ctx context.Context, file string, w io.Writer) error {
	key := path.Join(s.Prefix, file)
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get s3://%s/%s: %w", s.Bucket, key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read s3://%s/%s: %w", s.Bucket, key, err)
	}
	return nil
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, opts...), nil
}

// NewSource builds the source selected by cfg.
func NewSource(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.Source.Kind {
	case config.SourceKaggle:
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
		return NewKaggleSource(cfg.Source.BaseURL, cfg.Source.Handle, cfg.Credentials)
	case config.SourceS3:
		client, err := NewS3Client(ctx, cfg.Source.S3Region, cfg.Source.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return &S3Source{Client: client, Bucket: cfg.Source.S3Bucket, Prefix: cfg.Source.S3Prefix}, nil
	default:
		return nil, &config.ConfigError{Field: "source.kind", Details: fmt.Sprintf("unknown source %q", cfg.Source.Kind)}
	}
}
