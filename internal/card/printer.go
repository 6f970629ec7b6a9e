package card

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Printer hands a rendered card to a print sink.
type Printer interface {
	Print(ctx context.Context, a *Artifact) error
}

// NopPrinter discards artifacts.
type NopPrinter struct{}

func (NopPrinter) Print(context.Context, *Artifact) error { return nil }

// FilePrinter writes artifacts into a spool directory watched by a print
// station.
type FilePrinter struct {
	dir string
}

func NewFilePrinter(dir string) (*FilePrinter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create print dir: %w", err)
	}
	return &FilePrinter{dir: dir}, nil
}

func (p *FilePrinter) Print(_ context.Context, a *Artifact) error {
	name := filepath.Join(p.dir, objectName(a))
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, a.Body, 0o644); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	if err := os.Rename(tmp, name); err != nil {
		return fmt.Errorf("publish card: %w", err)
	}
	return nil
}

// objectPutter is the subset of *minio.Client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStorePrinter uploads artifacts to an S3-compatible bucket.
type ObjectStorePrinter struct {
	client objectPutter
	bucket string
}

// MinioConfig configures the object-store print sink.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewObjectStorePrinter connects to the configured endpoint.
func NewObjectStorePrinter(cfg MinioConfig) (*ObjectStorePrinter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &ObjectStorePrinter{client: client, bucket: cfg.Bucket}, nil
}

func (p *ObjectStorePrinter) Print(ctx context.Context, a *Artifact) error {
	_, err := p.client.PutObject(ctx, p.bucket, objectName(a), bytes.NewReader(a.Body), int64(len(a.Body)),
		minio.PutObjectOptions{
			ContentType:  a.ContentType,
			UserMetadata: map[string]string{"phn": a.PHN},
		})
	if err != nil {
		return fmt.Errorf("upload card to %s: %w", p.bucket, err)
	}
	return nil
}

// publisher is the subset of *amqp.Channel used for print jobs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PrintJob is the message published for queue-backed print stations.
type PrintJob struct {
	ID          string `json:"id"`
	PHN         string `json:"phn"`
	ContentType string `json:"content_type"`
	Document    []byte `json:"document"`
	CreatedAt   string `json:"created_at"`
}

// QueuePrinter publishes print jobs to a message queue.
type QueuePrinter struct {
	ch    publisher
	queue string
}

// NewQueuePrinter opens a channel on conn and declares a durable queue.
func NewQueuePrinter(conn *amqp.Connection, queue string) (*QueuePrinter, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &QueuePrinter{ch: ch, queue: queue}, nil
}

func (p *QueuePrinter) Print(ctx context.Context, a *Artifact) error {
	body, err := json.Marshal(PrintJob{
		ID:          a.ID,
		PHN:         a.PHN,
		ContentType: a.ContentType,
		Document:    a.Body,
		CreatedAt:   a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("marshal print job: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    a.ID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish print job: %w", err)
	}
	return nil
}

func objectName(a *Artifact) string {
	return fmt.Sprintf("%s-%s.html", a.PHN, a.ID)
}
