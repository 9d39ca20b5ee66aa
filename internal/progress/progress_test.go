package progress_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"lumina-backend/internal/models"
	"lumina-backend/internal/progress"
)

func TestCollector_KeepsOrder(t *testing.T) {
	c := &progress.Collector{}
	id := uuid.New()
	for _, st := range []models.BundleState{models.StateQueued, models.StateDuplicateChecked, models.StateSkipped} {
		c.Emit(context.Background(), models.ProgressEvent{BundleID: id, State: st})
	}

	assert.Equal(t, []models.BundleState{models.StateQueued, models.StateDuplicateChecked, models.StateSkipped}, c.States())
	events := c.Events()
	events[0].State = models.StateFailed
	assert.Equal(t, models.StateQueued, c.Events()[0].State)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &progress.Collector{}, &progress.Collector{}
	sink := progress.Multi(a, nil, b)
	sink.Emit(context.Background(), models.ProgressEvent{State: models.StateCommitted})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestLogSink_WritesLevelAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := progress.NewLogSink(logger)

	sink.Emit(context.Background(), models.ProgressEvent{
		Filename: "IMG_0001.NEF",
		State:    models.StateAnalyzed,
		Level:    progress.LevelWarn,
		Message:  "vision analysis unavailable",
	})

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"filename":"IMG_0001.NEF"`)
	assert.Contains(t, out, `"state":"analyzed"`)
	assert.Contains(t, out, `"component":"progress"`)
}
