// Package backup writes snapshots of the stored data to a directory, renders
// them into an email draft, or queues them for a worker.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/metrics"
	"smartexpense/internal/records"
)

type Target string

const (
	TargetDirectory Target = "directory"
	TargetEmail     Target = "email"
	TargetQueue     Target = "queue"
)

var ErrUnknownTarget = errors.New("unknown backup target")

// ErrQueueDisabled is returned for queued backups when no broker is configured.
var ErrQueueDisabled = errors.New("backup queue is not configured")

func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetDirectory, TargetEmail, TargetQueue:
		return t, nil
	case "":
		return TargetDirectory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

type (
	SnapshotSource interface {
		ExportSnapshot(ctx context.Context) (records.Snapshot, error)
	}

	// Recorder keeps a history of completed backups.
	Recorder interface {
		RecordBackup(ctx context.Context, target, location string, size int64) error
	}

	Publisher interface {
		PublishBackupRequest(ctx context.Context, msg *amqp.BackupRequestMessage) error
	}
)

// Request selects where a snapshot goes. Email is the draft recipient and may be empty.
type Request struct {
	Target      Target
	Email       string
	RequestedBy string
}

// Result describes a finished or queued backup.
type Result struct {
	Target    Target `json:"target"`
	Location  string `json:"location,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
	Mailto    string `json:"mailto,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Service struct {
	source    SnapshotSource
	dir       string
	recorder  Recorder
	publisher Publisher
	logger    *log.Logger
}

type Option func(*Service)

// WithRecorder stores each directory backup in a history log.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithPublisher enables queued backups.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentBackup)
		}
	}
}

func NewService(source SnapshotSource, dir string, opts ...Option) *Service {
	s := &Service{
		source: source,
		dir:    dir,
		logger: log.Wrap(nil, log.ComponentBackup),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) QueueEnabled() bool { return s.publisher != nil }

// Run performs the requested backup.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	var (
		res Result
		err error
	)
	switch req.Target {
	case TargetDirectory:
		res, err = s.ToDirectory(ctx)
	case TargetEmail:
		res, err = s.EmailDraft(ctx, req.Email)
	case TargetQueue:
		res, err = s.Enqueue(ctx, req.RequestedBy)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownTarget, req.Target)
	}
	metrics.Backups.WithLabelValues(string(req.Target), metrics.Result(err)).Inc()
	if err != nil {
		s.logger.ErrorContext(ctx, "Backup failed",
			log.FieldBackupTarget, req.Target,
			log.FieldError, err)
		return Result{}, err
	}
	s.logger.InfoContext(ctx, "Backup completed",
		log.FieldBackupTarget, req.Target,
		"location", res.Location,
		"size_bytes", res.SizeBytes)
	return res, nil
}

// ToDirectory writes the current snapshot as a JSON file in the backup directory.
func (s *Service) ToDirectory(ctx context.Context) (Result, error) {
	snap, err := s.source.ExportSnapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export snapshot: %w", err)
	}
	path, size, err := WriteSnapshot(s.dir, snap)
	if err != nil {
		return Result{}, err
	}
	if s.recorder != nil {
		if err := s.recorder.RecordBackup(ctx, string(TargetDirectory), path, size); err != nil {
			s.logger.WarnContext(ctx, "Failed to record backup history", log.FieldError, err)
		}
	}
	return Result{Target: TargetDirectory, Location: path, SizeBytes: size}, nil
}

// EmailDraft renders the snapshot into a mailto link; nothing is sent.
func (s *Service) EmailDraft(ctx context.Context, to string) (Result, error) {
	snap, err := s.source.ExportSnapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export snapshot: %w", err)
	}
	link, err := MailtoDraft(to, snap)
	if err != nil {
		return Result{}, err
	}
	return Result{Target: TargetEmail, Mailto: link, SizeBytes: int64(len(link))}, nil
}

// Enqueue asks the backup worker to write a directory backup.
func (s *Service) Enqueue(ctx context.Context, requestedBy string) (Result, error) {
	if s.publisher == nil {
		return Result{}, ErrQueueDisabled
	}
	msg := amqp.NewBackupRequestMessage(requestedBy)
	if err := s.publisher.PublishBackupRequest(ctx, msg); err != nil {
		return Result{}, fmt.Errorf("queue backup: %w", err)
	}
	return Result{Target: TargetQueue, RequestID: msg.ID}, nil
}

// HandleRequest serves a queued request by writing a directory backup.
func (s *Service) HandleRequest(ctx context.Context, msg *amqp.BackupRequestMessage) error {
	s.logger.InfoContext(ctx, "Handling queued backup request",
		"id", msg.ID,
		"requested_by", msg.RequestedBy,
		"queued_at", msg.Timestamp)
	res, err := s.ToDirectory(ctx)
	metrics.Backups.WithLabelValues("worker", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Queued backup written", "id", msg.ID, "location", res.Location)
	return nil
}

// FileName names a snapshot file after its export time.
func FileName(snap records.Snapshot) string {
	return fmt.Sprintf("smartexpense-backup-%s.json", snap.ExportDate.UTC().Format("20060102-150405"))
}

// WriteSnapshot writes snap into dir atomically and returns the file path and size.
// Permission problems map to core.ErrStorageAccessDenied.
func WriteSnapshot(dir string, snap records.Snapshot) (string, int64, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, storageError("create backup directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".backup-*.json")
	if err != nil {
		return "", 0, storageError("create backup file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", 0, storageError("write backup file", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, storageError("close backup file", err)
	}

	path := filepath.Join(dir, FileName(snap))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, storageError("rename backup file", err)
	}
	return path, int64(len(data)), nil
}

func storageError(op string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrStorageAccessDenied, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// MailtoDraft builds a mailto link whose body is the snapshot JSON.
func MailtoDraft(to string, snap records.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	subject := "SmartExpense backup " + snap.ExportDate.UTC().Format(time.DateOnly)
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		url.PathEscape(strings.TrimSpace(to)),
		mailtoEscape(subject),
		mailtoEscape(string(data))), nil
}

// mailtoEscape percent-encodes a header value; spaces become %20 rather than '+'.
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
