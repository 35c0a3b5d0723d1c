package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/testutil"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
	signErr error
	listErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Bucket() string { return "dti-exports" }

func (m *memoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if m.failOn != "" && key == m.failOn {
		return "", fmt.Errorf("bucket unreachable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return key, nil
}

func (m *memoryStore) URL(_ context.Context, key string) (string, error) {
	if m.signErr != nil {
		return "", m.signErr
	}
	return "http://minio.test/dti-exports/" + key + "?X-Amz-Signature=sig", nil
}

func (m *memoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

type recordedEvent struct {
	topic, eventType, key string
	payload               interface{}
}

type memoryPublisher struct {
	events []recordedEvent
	err    error
}

func (p *memoryPublisher) PublishEvent(_ context.Context, topic, eventType, key string, payload interface{}) error {
	p.events = append(p.events, recordedEvent{topic, eventType, key, payload})
	return p.err
}

func sampleBoard() *board.Board {
	cands := sampleCandidates()
	b := &board.Board{
		PassID:     "pass-1",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Projection: sampleProjection(),
	}
	for i, c := range cands {
		b.Cards = append(b.Cards, board.Card{Index: i, Label: fmt.Sprintf("Candidate %d", i+1), Candidate: c})
	}
	return b
}

func artifactNames(as []Artifact) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Name
	}
	return out
}

func TestArtifacts_All(t *testing.T) {
	as, err := Artifacts(sampleBoard(), DefaultArtifactOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"board.json", "affinity.png", "rules.png",
		"affinity.parquet", "properties.parquet", "radar.parquet", "rules.parquet",
		"board.html",
	}, artifactNames(as))

	var decoded board.Board
	require.NoError(t, json.Unmarshal(as[0].Data, &decoded))
	assert.Equal(t, "pass-1", decoded.PassID)
	assert.Len(t, decoded.Cards, 3)
}

func TestArtifacts_DocumentOnly(t *testing.T) {
	as, err := Artifacts(sampleBoard(), ArtifactOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"board.json"}, artifactNames(as))
}

func TestArtifacts_EmptyBoardSkipsCharts(t *testing.T) {
	as, err := Artifacts(&board.Board{PassID: "empty"}, ArtifactOptions{Charts: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"board.json"}, artifactNames(as))
}

func TestArtifacts_NilBoard(t *testing.T) {
	_, err := Artifacts(nil, DefaultArtifactOptions())
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestExporter_UploadsAndPublishes(t *testing.T) {
	store := newMemoryStore()
	pub := &memoryPublisher{}
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	exp := NewExporter(store,
		WithExportPublisher(pub, ""),
		WithExportClock(func() time.Time { return now }),
	)

	res, err := exp.Export(context.Background(), sampleBoard())
	require.NoError(t, err)
	assert.Equal(t, "pass-1", res.PassID)
	assert.Equal(t, "dti-exports", res.Bucket)
	require.Len(t, res.Keys, 8)
	assert.Equal(t, "boards/pass-1/board.json", res.Keys[0])
	assert.Equal(t, "image/png", store.types["boards/pass-1/affinity.png"])
	assert.Equal(t, "application/vnd.apache.parquet", store.types["boards/pass-1/rules.parquet"])
	assert.Equal(t, "text/html; charset=utf-8", store.types["boards/pass-1/board.html"])
	require.Len(t, res.URLs, 8)
	assert.Equal(t, "http://minio.test/dti-exports/boards/pass-1/board.json?X-Amz-Signature=sig", res.URLs["boards/pass-1/board.json"])

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, DefaultExportedTopic, ev.topic)
	assert.Equal(t, EventExported, ev.eventType)
	assert.Equal(t, "pass-1", ev.key)
	payload := ev.payload.(ExportedEvent)
	assert.Equal(t, res.Keys, payload.Keys)
	assert.Equal(t, now, payload.ExportedAt)
}

func TestExporter_UploadFailure(t *testing.T) {
	store := newMemoryStore()
	store.failOn = "boards/pass-1/rules.png"
	pub := &memoryPublisher{}
	log := testutil.NewMockLogger()
	exp := NewExporter(store, WithExportPublisher(pub, "custom"), WithExportLogger(log))

	_, err := exp.Export(context.Background(), sampleBoard())
	assert.True(t, errors.IsCode(err, errors.ErrCodeExportUploadFailed))
	assert.Empty(t, pub.events)
	assert.True(t, log.HasMessage("error", "board export failed"))
}

func TestExporter_PublishFailureIsNotFatal(t *testing.T) {
	pub := &memoryPublisher{err: fmt.Errorf("broker down")}
	log := testutil.NewMockLogger()
	exp := NewExporter(newMemoryStore(),
		WithExportPublisher(pub, "custom.topic"),
		WithExportLogger(log),
		WithArtifactOptions(ArtifactOptions{}),
	)

	res, err := exp.Export(context.Background(), sampleBoard())
	require.NoError(t, err)
	assert.Equal(t, []string{"boards/pass-1/board.json"}, res.Keys)
	assert.Equal(t, "custom.topic", pub.events[0].topic)
	assert.True(t, log.HasMessage("warn", "board exported event not published"))
}

func TestExporter_RequiresPassID(t *testing.T) {
	exp := NewExporter(newMemoryStore(), WithExportLogger(logging.NewNopLogger()))
	_, err := exp.Export(context.Background(), &board.Board{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestExporter_PresignFailureKeepsUpload(t *testing.T) {
	store := newMemoryStore()
	store.signErr = fmt.Errorf("no credentials")
	log := testutil.NewMockLogger()
	exp := NewExporter(store, WithExportLogger(log), WithArtifactOptions(ArtifactOptions{}))

	res, err := exp.Export(context.Background(), sampleBoard())
	require.NoError(t, err)
	assert.Equal(t, []string{"boards/pass-1/board.json"}, res.Keys)
	assert.Nil(t, res.URLs)
	assert.True(t, log.HasMessage("warn", "presign export object failed"))
}

func TestExporter_LookupListsEarlierExport(t *testing.T) {
	store := newMemoryStore()
	exp := NewExporter(store, WithArtifactOptions(ArtifactOptions{Charts: true}))
	_, err := exp.Export(context.Background(), sampleBoard())
	require.NoError(t, err)
	store.objects["boards/pass-10/board.json"] = []byte("{}")

	res, err := exp.Lookup(context.Background(), "pass-1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"boards/pass-1/affinity.png",
		"boards/pass-1/board.json",
		"boards/pass-1/rules.png",
	}, res.Keys)
	assert.Equal(t, "dti-exports", res.Bucket)
	assert.Len(t, res.URLs, 3)
}

func TestExporter_LookupErrors(t *testing.T) {
	store := newMemoryStore()
	exp := NewExporter(store)

	_, err := exp.Lookup(context.Background(), "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))

	_, err = exp.Lookup(context.Background(), "../other")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	_, err = exp.Lookup(context.Background(), "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	store.listErr = fmt.Errorf("bucket unreachable")
	_, err = exp.Lookup(context.Background(), "pass-1")
	assert.EqualError(t, err, "bucket unreachable")
}
