package logger

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "demantive/internal/common/models"
	"demantive/internal/config"
	"demantive/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zapcore"
)

const logsCollection = "logs"

// LogEntry is what the zap core hands to the writer goroutine.
type LogEntry struct {
	Level     zapcore.Level
	Message   string
	IpAddress string
	TenantID  string
	Caller    string
}

type logInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// DBLogWriter persists log entries to Mongo without blocking the caller.
type DBLogWriter struct {
	collection logInserter
	logChan    chan LogEntry
	appId      string
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	return newDBLogWriter(mongodb.DB.Collection(logsCollection), cfg.AppId, 1000)
}

func newDBLogWriter(collection logInserter, appId string, buffer int) *DBLogWriter {
	writer := &DBLogWriter{
		collection: collection,
		logChan:    make(chan LogEntry, buffer),
		appId:      appId,
		done:       make(chan struct{}),
	}
	go writer.processLogs()
	return writer
}

// AddLog enqueues an entry, dropping it when the buffer is full or the writer is closed.
func (w *DBLogWriter) AddLog(entry LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.logChan <- entry:
	default:
		fmt.Println("DB log channel full, dropping log:", entry.Message)
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (w *DBLogWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.logChan)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		record := common_models.Log{
			Message:      entry.Message,
			Caller:       entry.Caller,
			IpAddress:    entry.IpAddress,
			TenantID:     entry.TenantID,
			AppID:        w.appId,
			LogLevelId:   mapLevelToInt(entry.Level),
			CreatedOnUtc: time.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		w.collection.InsertOne(ctx, record)
		cancel()
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
