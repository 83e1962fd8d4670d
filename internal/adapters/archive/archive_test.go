package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	minio "github.com/minio/minio-go/v7"

	"secaudit/internal/domain"
)

type capturePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (p *capturePutter) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if p.err != nil {
		return minio.UploadInfo{}, p.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(len(b)) != size {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	p.bucket, p.key, p.contentType, p.body = bucket, key, opts.ContentType, b
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestPutUploadsReportJSON(t *testing.T) {
	p := &capturePutter{}
	c := &Client{put: p, bucket: "audit"}
	report := domain.Report{ID: "0b7c", Score: domain.SecurityScore{Score: 88, Grade: "B"}, Recommendations: []string{}}

	if err := c.Put(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	if p.bucket != "audit" || p.key != "reports/0b7c.json" || p.contentType != "application/json" {
		t.Fatalf("uploaded to %s/%s as %s", p.bucket, p.key, p.contentType)
	}
	var got domain.Report
	if err := json.Unmarshal(p.body, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "0b7c" || got.Score.Grade != "B" {
		t.Fatalf("body = %s", p.body)
	}
}

func TestPutWrapsUploadError(t *testing.T) {
	boom := errors.New("bucket gone")
	c := &Client{put: &capturePutter{err: boom}, bucket: "audit"}
	if err := c.Put(context.Background(), domain.Report{ID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
