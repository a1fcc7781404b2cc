package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/refinehaus/clinic_backend/config"
	"github.com/refinehaus/clinic_backend/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.OutboxRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedBookingEvent(t *testing.T, db *gorm.DB, attempts int) models.OutboxRecord {
	t.Helper()
	rec := models.OutboxRecord{
		TransactionDateTime: time.Now().UTC(),
		ReferenceId:         42,
		ReferenceType:       models.OutboxReferenceTypeBooking,
		Action:              models.OutboxActionCreate,
		Payload:             []byte(`{"sell_invoice_id":42}`),
		PublishStatus:       models.OutboxPublishStatusPending,
		PublishAttempts:     attempts,
		CorrelationId:       "corr-1",
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rec
}

func testDispatcher(db *gorm.DB, publish PublishFunc) *OutboxDispatcher {
	d := NewOutboxDispatcher(db, logrus.New())
	d.Logger.SetOutput(io.Discard)
	d.Publish = publish
	d.MaxAttempts = 3
	return d
}

func reload(t *testing.T, db *gorm.DB, id int) models.OutboxRecord {
	t.Helper()
	var rec models.OutboxRecord
	if err := db.Where("outbox_record_id = ?", id).First(&rec).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	return rec
}

func TestDispatchOnce_PublishesAndMarksSent(t *testing.T) {
	db := openOutboxDB(t)
	rec := seedBookingEvent(t, db, 0)

	var published []config.PubSubMessage
	d := testDispatcher(db, func(ctx context.Context, msg config.PubSubMessage) (string, error) {
		published = append(published, msg)
		return "msg-1", nil
	})

	if n := d.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("expected 1 attempted, got %d", n)
	}
	if len(published) != 1 || published[0].ReferenceId != 42 || published[0].CorrelationId != "corr-1" {
		t.Fatalf("unexpected published messages %+v", published)
	}

	got := reload(t, db, rec.ID)
	if got.PublishStatus != models.OutboxPublishStatusSent {
		t.Fatalf("expected SENT, got %s", got.PublishStatus)
	}
	if got.PubSubMessageId == nil || *got.PubSubMessageId != "msg-1" {
		t.Fatalf("expected message id msg-1, got %v", got.PubSubMessageId)
	}
	if got.PublishAttempts != 1 || got.LockedBy != nil || got.PublishedAt == nil {
		t.Fatalf("unexpected row after send: %+v", got)
	}
}

func TestDispatchOnce_FailureSchedulesRetry(t *testing.T) {
	db := openOutboxDB(t)
	rec := seedBookingEvent(t, db, 0)

	d := testDispatcher(db, func(ctx context.Context, msg config.PubSubMessage) (string, error) {
		return "", errors.New("topic unavailable")
	})
	d.DispatchOnce(context.Background())

	got := reload(t, db, rec.ID)
	if got.PublishStatus != models.OutboxPublishStatusFailed {
		t.Fatalf("expected FAILED, got %s", got.PublishStatus)
	}
	if got.PublishAttempts != 1 || got.NextAttemptAt == nil {
		t.Fatalf("expected one attempt with a retry time, got %+v", got)
	}
	if got.LastPublishError == nil || *got.LastPublishError != "topic unavailable" {
		t.Fatalf("expected publish error recorded, got %v", got.LastPublishError)
	}
}

func TestDispatchOnce_LastFailedAttemptGoesDead(t *testing.T) {
	db := openOutboxDB(t)
	rec := seedBookingEvent(t, db, 2)

	calls := 0
	d := testDispatcher(db, func(ctx context.Context, msg config.PubSubMessage) (string, error) {
		calls++
		return "", errors.New("topic unavailable")
	})
	d.DispatchOnce(context.Background())

	if calls != 1 {
		t.Fatalf("expected one publish, got %d", calls)
	}
	got := reload(t, db, rec.ID)
	if got.PublishStatus != models.OutboxPublishStatusDead {
		t.Fatalf("expected DEAD, got %s", got.PublishStatus)
	}
	if got.PublishAttempts != 3 || got.NextAttemptAt != nil || got.LockedAt != nil {
		t.Fatalf("unexpected dead row %+v", got)
	}
}

func TestDispatchOnce_ExhaustedRowIsNotPublished(t *testing.T) {
	db := openOutboxDB(t)
	rec := seedBookingEvent(t, db, 3)

	calls := 0
	d := testDispatcher(db, func(ctx context.Context, msg config.PubSubMessage) (string, error) {
		calls++
		return "msg", nil
	})
	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("expected 0 attempted, got %d", n)
	}
	if calls != 0 {
		t.Fatalf("expected no publish, got %d", calls)
	}
	if got := reload(t, db, rec.ID); got.PublishStatus != models.OutboxPublishStatusDead {
		t.Fatalf("expected DEAD, got %s", got.PublishStatus)
	}
}

func TestDispatchOnce_LogsLostSentUpdate(t *testing.T) {
	db := openOutboxDB(t)
	seedBookingEvent(t, db, 0)

	d := testDispatcher(db, func(ctx context.Context, msg config.PubSubMessage) (string, error) {
		// The status update that follows has nowhere to land.
		if err := db.Migrator().DropTable(&models.OutboxRecord{}); err != nil {
			return "", err
		}
		return "msg-1", nil
	})
	nullLogger, hook := test.NewNullLogger()
	d.Logger = nullLogger

	d.DispatchOnce(context.Background())

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected an error log for the failed status update, got %v", hook.AllEntries())
	}
	if entry.Data["funcName"] != "markPublishSent" {
		t.Fatalf("expected markPublishSent in log, got %v", entry.Data)
	}
}
