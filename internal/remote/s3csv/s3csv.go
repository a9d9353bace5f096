// Package s3csv implements remote.Store on an S3 bucket. Each collection is
// one CSV object whose first record is the header. Mutations rewrite the
// whole object, so concurrent writers follow last-write-wins.
package s3csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/docsync/internal/remote"
)

// ObjectAPI is the part of *s3.Client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Options configure Open.
type Options struct {
	Bucket       string
	Prefix       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

type Store struct {
	api    ObjectAPI
	bucket string
	prefix string

	// mu serializes read-modify-write cycles issued by this process.
	mu sync.Mutex
}

var _ remote.Store = (*Store)(nil)

func New(api ObjectAPI, bucket, prefix string) *Store {
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

// Open builds an S3 client. Static credentials and a base endpoint are used
// when given, which is how S3-compatible servers such as MinIO are reached.
func Open(ctx context.Context, o Options) (*Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
			so.UsePathStyle = true
		}
	})
	return New(client, o.Bucket, o.Prefix), nil
}

func (s *Store) key(collection string) string {
	return s.prefix + collection + ".csv"
}

func (s *Store) load(ctx context.Context, collection string) (*remote.Table, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(collection)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", collection, remote.ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", s.key(collection), err)
	}
	defer out.Body.Close()

	r := csv.NewReader(out.Body)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", s.key(collection), err)
	}
	if len(records) == 0 {
		return &remote.Table{}, nil
	}
	return &remote.Table{Header: records[0], Rows: records[1:]}, nil
}

func (s *Store) save(ctx context.Context, collection string, t *remote.Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return err
	}

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(collection)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.key(collection), err)
	}
	return nil
}

// mutate runs a read-modify-write cycle on one collection.
func (s *Store) mutate(ctx context.Context, collection string, fn func(t *remote.Table) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx, collection)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	return s.save(ctx, collection, t)
}

func (s *Store) Header(ctx context.Context, collection string) ([]string, error) {
	t, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	return t.Header, nil
}

func (s *Store) ReadAll(ctx context.Context, collection string) (*remote.Table, error) {
	return s.load(ctx, collection)
}

func (s *Store) FindRow(ctx context.Context, collection, column, value string) (*remote.Row, error) {
	t, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	return remote.FindInTable(t, column, value)
}

func (s *Store) AppendRows(ctx context.Context, collection string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	return s.mutate(ctx, collection, func(t *remote.Table) error {
		t.Rows = append(t.Rows, rows...)
		return nil
	})
}

func (s *Store) BatchUpdateCells(ctx context.Context, collection string, cells []remote.CellUpdate) error {
	if len(cells) == 0 {
		return nil
	}
	return s.mutate(ctx, collection, func(t *remote.Table) error {
		for _, c := range cells {
			i := c.Row - remote.FirstDataRow
			if i < 0 || i >= len(t.Rows) || c.Col < 1 {
				return fmt.Errorf("cell %d:%d: %w", c.Row, c.Col, remote.ErrRowNotFound)
			}
		}
		for _, c := range cells {
			i := c.Row - remote.FirstDataRow
			for len(t.Rows[i]) < c.Col {
				t.Rows[i] = append(t.Rows[i], "")
			}
			t.Rows[i][c.Col-1] = c.Value
		}
		return nil
	})
}

func (s *Store) CreateCollection(ctx context.Context, name string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.load(ctx, name)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", name, remote.ErrCollectionExists)
	case !errors.Is(err, remote.ErrCollectionNotFound):
		return err
	}
	return s.save(ctx, name, &remote.Table{Header: header})
}

func (s *Store) WriteHeader(ctx context.Context, collection string, header []string) error {
	return s.mutate(ctx, collection, func(t *remote.Table) error {
		t.Header = header
		return nil
	})
}

func (s *Store) DeleteRow(ctx context.Context, collection string, index int) error {
	return s.mutate(ctx, collection, func(t *remote.Table) error {
		i := index - remote.FirstDataRow
		if i < 0 || i >= len(t.Rows) {
			return fmt.Errorf("row %d: %w", index, remote.ErrRowNotFound)
		}
		t.Rows = append(t.Rows[:i], t.Rows[i+1:]...)
		return nil
	})
}

// String identifies the store in logs.
func (s *Store) String() string {
	return "s3://" + s.bucket + "/" + strings.TrimPrefix(s.prefix, "/")
}
