// v0
// internal/sink/sink_test.go
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/circuitbreaker"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/logging"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/metrics"
)

var t0 = time.Date(2023, 1, 2, 8, 0, 0, 0, time.UTC)

func records(n int, runID string) []generator.Record {
	out := make([]generator.Record, n)
	for i := range out {
		out[i] = generator.Record{
			Timestamp: t0.Add(time.Duration(i) * 10 * time.Minute),
			VenueID:   "venue-1",
			RunID:     runID,
			Metric:    "footfall",
			Value:     float64(i) + 0.123456,
			Weight:    1.5,
		}
	}
	return out
}

func batch(n int, runID string, update bool) Batch {
	return Batch{Collection: "footfall", RunID: runID, Records: records(n, runID), Update: update}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	require.NoError(t, sc.Err())
	return out
}

func TestToDocumentRoundsAndRejectsNaN(t *testing.T) {
	doc, err := ToDocument(records(1, "r")[0])
	require.NoError(t, err)
	assert.Equal(t, 0.1235, doc.Value)
	assert.Equal(t, "2023-01-02T08:00:00Z", doc.Timestamp)
	assert.Equal(t, t0.UnixMilli(), doc.EpochMS)

	bad := records(1, "r")[0]
	bad.Value = math.NaN()
	_, err = ToDocument(bad)
	assert.ErrorIs(t, err, ErrNotFinite)

	bad.Value = 1
	bad.Weight = math.Inf(1)
	_, err = ToDocument(bad)
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestEventDocument(t *testing.T) {
	ev := generator.EventWindow{Start: t0, End: t0.Add(4 * time.Hour), Peak: t0.Add(2 * time.Hour), Mean: 12.345678, SD: 2}
	doc, err := ToEventDocument(ev)
	require.NoError(t, err)
	assert.Equal(t, 12.3457, doc.Mean)
	assert.Equal(t, t0.Add(2*time.Hour).UnixMilli(), doc.PeakMS)
}

func TestFileSinkReplaceAndAppend(t *testing.T) {
	s, err := NewFileSink(t.TempDir(), logging.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, batch(3, "r1", false)))
	require.NoError(t, s.Write(ctx, batch(2, "r2", true)))
	lines := readLines(t, s.Path("footfall"))
	require.Len(t, lines, 5)

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &doc))
	assert.Equal(t, "r2", doc.RunID)

	require.NoError(t, s.Write(ctx, batch(1, "r3", false)))
	assert.Len(t, readLines(t, s.Path("footfall")), 1)
}

func TestFileSinkRejectsEmptyCollection(t *testing.T) {
	s, err := NewFileSink(t.TempDir(), logging.Discard())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Write(context.Background(), Batch{}), ErrEmptyCollection)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "free_seats-1", safeName("free seats-1"))
	assert.Equal(t, "______etc_passwd", safeName("../../etc/passwd"))
}

func TestRedisSinkSortedSet(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s, err := NewRedisSink(ctx, mr.Addr(), 0, "", "test")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(ctx, batch(4, "r1", false)))
	require.NoError(t, s.Write(ctx, batch(4, "r2", true)))
	members, err := mr.ZMembers(s.Key("footfall"))
	require.NoError(t, err)
	assert.Len(t, members, 8)

	got, err := s.Range(ctx, "footfall", t0, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 4)

	require.NoError(t, s.Write(ctx, batch(2, "r3", false)))
	members, err = mr.ZMembers(s.Key("footfall"))
	require.NoError(t, err)
	assert.Len(t, members, 2)

	score, err := mr.ZScore(s.Key("footfall"), members[0])
	require.NoError(t, err)
	assert.Equal(t, float64(t0.UnixMilli()), score)
}

func TestRedisSinkConnectFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisSink(ctx, "127.0.0.1:1", 0, "", "")
	assert.Error(t, err)
}

func TestSQLiteSinkReplaceAndAppend(t *testing.T) {
	s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "footfall.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, batch(5, "r1", false)))
	require.NoError(t, s.Write(ctx, batch(3, "r2", true)))
	n, err := s.Count(ctx, "footfall")
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	require.NoError(t, s.Write(ctx, batch(2, "r3", false)))
	n, err = s.Count(ctx, "footfall")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type stubPutter struct {
	mu   sync.Mutex
	keys []string
	body string
}

func (p *stubPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, *in.Key)
	p.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkKeys(t *testing.T) {
	p := &stubPutter{}
	s := NewS3SinkWithClient(p, "bucket", "synthetic")
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, batch(3, "r1", false)))
	require.NoError(t, s.Write(ctx, batch(3, "r2", true)))
	assert.Equal(t, []string{"synthetic/footfall.jsonl", "synthetic/footfall/r2.jsonl"}, p.keys)
	assert.Equal(t, 3, strings.Count(p.body, "\n"))
}

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	fail error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaSinkBatchesAndKeys(t *testing.T) {
	w := &recordingWriter{}
	s := NewKafkaSinkWithWriter(w, "synthetic", 0, logging.Discard())
	s.batchSize = 4

	require.NoError(t, s.Write(context.Background(), batch(10, "r1", true)))
	require.Len(t, w.msgs, 10)
	for _, m := range w.msgs {
		assert.Equal(t, "synthetic.footfall", m.Topic)
		assert.Equal(t, "venue-1", string(m.Key))
	}
	assert.Equal(t, t0, w.msgs[0].Time)
}

func TestKafkaSinkThroughBreaker(t *testing.T) {
	t.Setenv("CB_ENABLED", "false")
	kb, err := circuitbreaker.NewKafkaBreakerFromEnv("test", logging.Discard(), nil)
	require.NoError(t, err)
	w := &recordingWriter{fail: errors.New("broker down")}
	s := NewKafkaSinkWithWriter(circuitbreaker.NewCBKafkaWriter(w, kb), "", 0, logging.Discard())
	assert.Error(t, s.Write(context.Background(), batch(1, "r1", true)))
	assert.Equal(t, "footfall.footfall", s.Topic("footfall"))
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool { return true }

func (t doneToken) WaitTimeout(time.Duration) bool { return true }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t doneToken) Error() error { return t.err }

type stubPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *stubPublisher) Publish(topic string, _ byte, _ bool, _ interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return doneToken{err: p.err}
}

func TestMQTTSinkPublishes(t *testing.T) {
	p := &stubPublisher{}
	s := NewMQTTSinkWithClient(p, MQTTOptions{TopicPrefix: "venues"}, logging.Discard())
	require.NoError(t, s.Write(context.Background(), batch(3, "r1", true)))
	assert.Equal(t, []string{"venues/footfall", "venues/footfall", "venues/footfall"}, p.topics)

	p.err = errors.New("not connected")
	assert.Error(t, s.Write(context.Background(), batch(1, "r1", true)))
}

type failingSink struct{ name string }

func (f failingSink) Name() string { return f.name }

func (f failingSink) Write(context.Context, Batch) error { return errors.New("unavailable") }

func (f failingSink) Close() error { return nil }

func TestMultiWritesAllAndJoinsErrors(t *testing.T) {
	fs, err := NewFileSink(t.TempDir(), logging.Discard())
	require.NoError(t, err)
	m := NewMulti(logging.Discard(), metrics.New(), time.Second, fs, failingSink{name: "broken"})

	err = m.Write(context.Background(), batch(2, "r1", false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, readLines(t, fs.Path("footfall")), 2)
	assert.Equal(t, 2, m.Len())
	assert.NoError(t, m.Close())
}

func TestGuardOpensAfterFailures(t *testing.T) {
	b := circuitbreaker.New("broken-sink", circuitbreaker.Config{MaxFailures: 2, ResetTimeout: time.Hour, SuccessesToClose: 1}, logging.Discard(), nil)
	g := Guard(failingSink{name: "broken"}, b)
	ctx := context.Background()
	assert.Error(t, g.Write(ctx, batch(1, "r", false)))
	assert.ErrorIs(t, g.Write(ctx, batch(1, "r", false)), circuitbreaker.ErrOpen)
	assert.ErrorIs(t, g.Write(ctx, batch(1, "r", false)), circuitbreaker.ErrOpen)
	assert.Equal(t, "broken", g.Name())
}

func TestBuildFileAndSQLite(t *testing.T) {
	dir := t.TempDir()
	m, err := Build(context.Background(), Options{
		Enabled:    []string{"file", "sqlite"},
		FileDir:    dir,
		SQLitePath: filepath.Join(dir, "out.db"),
	}, logging.Discard(), metrics.New())
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 2, m.Len())
	require.NoError(t, m.Write(context.Background(), batch(3, "r1", false)))
}

func TestBuildUnknownSink(t *testing.T) {
	_, err := Build(context.Background(), Options{Enabled: []string{"mongo"}}, logging.Discard(), nil)
	assert.Error(t, err)
}

func TestFromResult(t *testing.T) {
	res := &generator.Result{RunID: "r9", Metric: "freeSeats", Records: records(2, "r9")}
	b := FromResult(res, "", true)
	assert.Equal(t, "freeSeats", b.Collection)
	assert.Equal(t, "r9", b.RunID)
	assert.Equal(t, 2, b.Len())
	assert.True(t, b.Update)
}
