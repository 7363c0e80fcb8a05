package s3

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // S3 ETags of single-part uploads are MD5 digests
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/cdr-indicators-etl/internal/adapter/file"
	"github.com/couchcryptid/cdr-indicators-etl/internal/config"
	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// VersionLayout names dataset versions by their UTC creation time.
const VersionLayout = "20060102_150405"

// objectAPI is the subset of the S3 client used by the publisher.
type objectAPI interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads the indicator table as a new dataset version when its
// content differs from the latest version. It implements pipeline.Loader.
type Publisher struct {
	client objectAPI
	bucket string
	prefix string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates an S3 client from the dataset settings. Credentials
// come from the default AWS chain.
func NewPublisher(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) (*Publisher, error) {
	if cfg.DatasetBucket == "" {
		return nil, errors.New("DATASET_BUCKET is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DatasetRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.DatasetPathStyle
		if cfg.DatasetEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DatasetEndpoint)
		}
	})
	return newPublisher(client, cfg.DatasetBucket, cfg.DatasetPrefix, clock, logger), nil
}

func newPublisher(client objectAPI, bucket, prefix string, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		clock:  clock,
		logger: logger,
	}
}

func (p *Publisher) Name() string { return "dataset" }

// Load encodes rows and publishes them.
func (p *Publisher) Load(ctx context.Context, rows []domain.OutputRow) error {
	arts, err := file.Artifacts(rows)
	if err != nil {
		return err
	}
	_, err = p.Publish(ctx, arts)
	return err
}

// Publish uploads the artifacts under a new version directory and returns
// its name, or "" when every artifact matches the latest version.
func (p *Publisher) Publish(ctx context.Context, arts []file.Artifact) (string, error) {
	latest, err := p.latestVersion(ctx)
	if err != nil {
		return "", err
	}
	if latest != "" {
		unchanged, err := p.matches(ctx, latest, arts)
		if err != nil {
			return "", err
		}
		if unchanged {
			p.logger.Info("no changes detected, dataset version not created", "latest", latest)
			return "", nil
		}
	}

	version := p.clock.Now().UTC().Format(VersionLayout)
	for _, a := range arts {
		key := p.key(version, a.Name)
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(a.Body),
			ContentType: aws.String(a.ContentType),
		})
		if err != nil {
			return "", fmt.Errorf("put object %s: %w", key, err)
		}
	}
	p.logger.Info("dataset version created", "version", version, "files", len(arts))
	return version, nil
}

func (p *Publisher) key(version, name string) string {
	return path.Join(p.prefix, version, name)
}

// latestVersion lists the version directories and returns the greatest
// name, which is the most recent one.
func (p *Publisher) latestVersion(ctx context.Context) (string, error) {
	prefix := p.prefix + "/"
	var latest string
	var token *string
	for {
		out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return "", fmt.Errorf("list dataset versions: %w", err)
		}
		for _, obj := range out.Contents {
			if v := versionOf(prefix, obj); v > latest {
				latest = v
			}
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		return latest, nil
	}
}

func versionOf(prefix string, obj types.Object) string {
	rest := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
	v, _, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	return v
}

// matches reports whether every artifact's MD5 equals the ETag of the file
// with the same name in version.
func (p *Publisher) matches(ctx context.Context, version string, arts []file.Artifact) (bool, error) {
	for _, a := range arts {
		out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(p.key(version, a.Name)),
		})
		if err != nil {
			var notFound *types.NotFound
			if errors.As(err, &notFound) {
				return false, nil
			}
			return false, fmt.Errorf("head object %s: %w", a.Name, err)
		}
		if strings.Trim(aws.ToString(out.ETag), `"`) != md5Hex(a.Body) {
			return false, nil
		}
	}
	return true, nil
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec // content fingerprint, not a security boundary
	return hex.EncodeToString(sum[:])
}
