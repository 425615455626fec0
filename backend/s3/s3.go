// Package s3 implements remotefs.RemoteFs over an S3-compatible object
// store, using the AWS SDK for Go v2. S3 has no native directory or
// permission concept, so directories are represented by zero-length
// "dir/" marker keys and Setstat is a no-op beyond size truncation.
//
// Grounded on original_source/remotefs-fuse-cli/src/cli.rs's AwsS3Args
// (bucket, region, endpoint, profile) adapted to aws-sdk-go-v2's
// config.LoadDefaultConfig + s3.Client, the same loading convention used
// throughout the AWS SDK v2 example pack.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

// Config holds the bucket and connection parameters for one S3 session.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // non-empty for S3-compatible stores (MinIO, etc.)
	Profile  string
}

// Fs is a remotefs.RemoteFs backed by a single S3 bucket. The zero value
// is not usable; use New.
type Fs struct {
	cfg    Config
	client *s3.Client
}

func New(cfg Config) *Fs {
	return &Fs{cfg: cfg}
}

func (f *Fs) Connect(ctx context.Context) error {
	opts := []func(*config.LoadOptions) error{config.WithRegion(f.cfg.Region)}
	if f.cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(f.cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("s3: loading AWS config: %w", err)
	}

	f.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if f.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(f.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return nil
}

func (f *Fs) Disconnect(ctx context.Context) error { return nil }

func key(p string) string {
	return strings.TrimPrefix(p, "/")
}

func (f *Fs) Stat(ctx context.Context, p string) (remotefs.File, error) {
	if p == "/" {
		return remotefs.File{Path: "/", Type: remotefs.TypeDir}, nil
	}

	k := key(p)
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &f.cfg.Bucket, Key: &k})
	if err == nil {
		var mtime *time.Time
		if out.LastModified != nil {
			mtime = out.LastModified
		}
		size := uint64(0)
		if out.ContentLength != nil {
			size = uint64(*out.ContentLength)
		}
		return remotefs.File{Path: p, Type: remotefs.TypeFile, Size: size, Mtime: mtime}, nil
	}
	if !isNotFound(err) {
		return remotefs.File{}, translate(err)
	}

	dirKey := k + "/"
	_, err = f.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &f.cfg.Bucket, Key: &dirKey})
	if err == nil {
		return remotefs.File{Path: p, Type: remotefs.TypeDir}, nil
	}
	return remotefs.File{}, remotefs.ErrNoSuchFile
}

func (f *Fs) ListDir(ctx context.Context, p string) ([]remotefs.File, error) {
	prefix := key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var out []remotefs.File
	seen := make(map[string]bool)
	var token *string
	for {
		resp, err := f.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &f.cfg.Bucket,
			Prefix:            &prefix,
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, translate(err)
		}
		for _, cp := range resp.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, remotefs.File{Path: "/" + strings.TrimPrefix(aws.ToString(cp.Prefix), "/"), Type: remotefs.TypeDir})
		}
		for _, obj := range resp.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			size := uint64(0)
			if obj.Size != nil {
				size = uint64(*obj.Size)
			}
			out = append(out, remotefs.File{
				Path: "/" + aws.ToString(obj.Key), Type: remotefs.TypeFile,
				Size: size, Mtime: obj.LastModified,
			})
		}
		if resp.NextContinuationToken == nil {
			break
		}
		token = resp.NextContinuationToken
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *Fs) CreateDir(ctx context.Context, p string, mode uint32) error {
	k := key(p) + "/"
	_, err := f.client.PutObject(ctx, &s3.PutObjectInput{Bucket: &f.cfg.Bucket, Key: &k, Body: bytes.NewReader(nil)})
	return translate(err)
}

func (f *Fs) RemoveFile(ctx context.Context, p string) error {
	k := key(p)
	_, err := f.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &f.cfg.Bucket, Key: &k})
	return translate(err)
}

func (f *Fs) RemoveDir(ctx context.Context, p string) error {
	k := key(p) + "/"
	_, err := f.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &f.cfg.Bucket, Key: &k})
	return translate(err)
}

func (f *Fs) Symlink(ctx context.Context, newPath, target string) error {
	return remotefs.ErrUnsupportedFeature
}

func (f *Fs) Move(ctx context.Context, src, dest string) error {
	source := f.cfg.Bucket + "/" + key(src)
	destKey := key(dest)
	if _, err := f.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket: &f.cfg.Bucket, Key: &destKey, CopySource: &source,
	}); err != nil {
		return translate(err)
	}
	return f.RemoveFile(ctx, src)
}

func (f *Fs) Setstat(ctx context.Context, p string, md remotefs.Metadata) error {
	if md.Size == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := f.OpenFile(ctx, p, &buf); err != nil {
		return err
	}
	data := buf.Bytes()
	if int(*md.Size) <= len(data) {
		data = data[:*md.Size]
	} else {
		grown := make([]byte, *md.Size)
		copy(grown, data)
		data = grown
	}
	return f.CreateFile(ctx, p, md, bytes.NewReader(data))
}

func (f *Fs) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	k := key(p)
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &f.cfg.Bucket, Key: &k})
	if err != nil {
		return nil, translate(err)
	}
	return out.Body, nil
}

func (f *Fs) OnRead(ctx context.Context, r io.ReadCloser) error {
	return r.Close()
}

// buffer is a remotefs.WriteSeekCloser that accumulates writes locally;
// S3 has no partial-object write API, so the whole object is uploaded
// from OnWritten once the caller finishes.
type buffer struct {
	path string
	data []byte
	pos  int64
}

func (b *buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *buffer) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("%w: only SeekStart supported", remotefs.ErrIO)
	}
	b.pos = offset
	return offset, nil
}

func (b *buffer) Close() error { return nil }

func (f *Fs) Create(ctx context.Context, p string, md remotefs.Metadata) (remotefs.WriteSeekCloser, error) {
	var existing bytes.Buffer
	if err := f.OpenFile(ctx, p, &existing); err != nil && !errors.Is(err, remotefs.ErrNoSuchFile) {
		return nil, err
	}
	return &buffer{path: p, data: existing.Bytes()}, nil
}

func (f *Fs) OnWritten(ctx context.Context, w remotefs.WriteSeekCloser) error {
	b := w.(*buffer)
	return f.CreateFile(ctx, b.path, remotefs.Metadata{}, bytes.NewReader(b.data))
}

func (f *Fs) OpenFile(ctx context.Context, p string, w io.Writer) error {
	r, err := f.Open(ctx, p)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}

func (f *Fs) CreateFile(ctx context.Context, p string, md remotefs.Metadata, r io.Reader) error {
	k := key(p)
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	_, err = f.client.PutObject(ctx, &s3.PutObjectInput{Bucket: &f.cfg.Bucket, Key: &k, Body: bytes.NewReader(data)})
	return translate(err)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return remotefs.ErrNoSuchFile
	}
	return fmt.Errorf("%w: %v", remotefs.ErrIO, err)
}

var _ remotefs.RemoteFs = (*Fs)(nil)
