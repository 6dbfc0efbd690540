// workers/event_archive_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-co-op/gocron/v2"
)

const archiveCheckpoint = "archive"

// ObjectPutter is satisfied by *s3.Client.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// EventArchiver copies the event log to object storage as NDJSON objects named
// events/<first-seq>-<last-seq>.ndjson.
type EventArchiver struct {
	events    EventLog
	store     ObjectPutter
	bucket    string
	batchSize int
}

func NewEventArchiver(events EventLog, store ObjectPutter, bucket string) *EventArchiver {
	return &EventArchiver{
		events:    events,
		store:     store,
		bucket:    bucket,
		batchSize: 1000,
	}
}

// ArchiveOnce uploads everything after the checkpoint and returns the number of events archived.
func (a *EventArchiver) ArchiveOnce(ctx context.Context) (int, error) {
	archived := 0
	for {
		since, err := a.events.Checkpoint(ctx, archiveCheckpoint)
		if err != nil {
			return archived, fmt.Errorf("failed to read archive checkpoint: %w", err)
		}
		batch, err := a.events.Events(ctx, since, a.batchSize)
		if err != nil {
			return archived, fmt.Errorf("failed to read events after seq %d: %w", since, err)
		}
		if len(batch) == 0 {
			return archived, nil
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, ev := range batch {
			if err := enc.Encode(ev); err != nil {
				return archived, fmt.Errorf("failed to encode event %d: %w", ev.Seq, err)
			}
		}

		first, last := batch[0].Seq, batch[len(batch)-1].Seq
		key := fmt.Sprintf("events/%d-%d.ndjson", first, last)
		if _, err := a.store.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("application/x-ndjson"),
		}); err != nil {
			return archived, fmt.Errorf("failed to upload %s: %w", key, err)
		}

		if err := a.events.SaveCheckpoint(ctx, archiveCheckpoint, last); err != nil {
			return archived, fmt.Errorf("failed to advance archive checkpoint to %d: %w", last, err)
		}
		archived += len(batch)
		log.Printf("📦 [ARCHIVE] Uploaded %s (%d events)", key, len(batch))

		if len(batch) < a.batchSize {
			return archived, nil
		}
	}
}

// Schedule registers the archive run on sched. Runs never overlap.
func (a *EventArchiver) Schedule(sched gocron.Scheduler, interval time.Duration) error {
	_, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := a.ArchiveOnce(context.Background())
			if err != nil {
				log.Printf("❌ [ARCHIVE] %v", err)
				return
			}
			if n == 0 {
				log.Println("[ARCHIVE] ➡️ No new events to archive")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}
