package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/lo"
)

// S3API is the subset of the S3 client used to list and fetch objects.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds explicit construction parameters. Empty credentials fall
// back to the default chain.
type S3Config struct {
	Region          string
	Endpoint        string // optional; e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// S3 resolves s3://bucket/key-pattern inputs. The key pattern uses path.Match
// syntax; listing starts at the literal prefix before the first meta character.
type S3 struct {
	Client S3API
}

func (S3) CanResolve(pattern string) bool { return strings.HasPrefix(pattern, "s3://") }

func (r S3) Resolve(ctx context.Context, pattern string) ([]Source, error) {
	bucket, keyPattern, err := splitS3URL(pattern)
	if err != nil {
		return nil, err
	}
	prefix := keyPattern
	if i := strings.IndexAny(keyPattern, "*?["); i >= 0 {
		prefix = keyPattern[:i]
	}
	var keys []string
	var token *string
	for {
		out, err := r.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if ok, _ := path.Match(keyPattern, key); ok {
				keys = append(keys, key)
			}
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	sort.Strings(keys)
	return lo.Map(keys, func(key string, _ int) Source {
		return Memoize(s3Object{client: r.Client, bucket: bucket, key: key})
	}), nil
}

type s3Object struct {
	client S3API
	bucket string
	key    string
}

func (o s3Object) Name() string { return "s3://" + o.bucket + "/" + o.key }

func (o s3Object) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &o.bucket, Key: &o.key})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", o.Name(), err)
	}
	return out.Body, nil
}

func splitS3URL(u string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(u, "s3://")
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 url %q: missing bucket", u)
	}
	if key == "" {
		key = "*"
	}
	return bucket, key, nil
}
