package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/engine"
	"github.com/shaiso/Fabrica/internal/sink"
)

func testTemplate() *domain.EventTemplate {
	return &domain.EventTemplate{
		ID:      uuid.New(),
		Name:    "logon-success",
		Channel: domain.ChannelSecurity,
		EventID: 4624,
		Level:   domain.LevelInformational,
		Source:  "Microsoft-Windows-Security-Auditing",
		Parameters: []domain.ParameterSpec{
			{Name: "UserName", Type: domain.ParameterTypeString, Required: true},
			{Name: "LogonType", Type: domain.ParameterTypeInt},
		},
		MitreTechnique: "T1078",
	}
}

func newTestEngine(mem *sink.Memory) *Engine {
	return New(Config{
		Pipeline:  engine.NewPipeline(nil),
		Sink:      mem,
		ChunkSize: 10,
	})
}

func TestGenerateOne_WritesToSink(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	inst := &domain.EventInstance{
		ID:        uuid.New(),
		Channel:   domain.ChannelSecurity,
		EventID:   4624,
		Level:     domain.LevelInformational,
		Source:    "test",
		Timestamp: time.Now().UTC(),
		Payload:   []byte(`{"user":"alice"}`),
	}

	res := e.GenerateOne(context.Background(), inst)
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Message)
	}
	if res.InstanceID != inst.ID {
		t.Errorf("expected instance id %s, got %s", inst.ID, res.InstanceID)
	}
	if mem.Len() != 1 {
		t.Errorf("expected 1 event in sink, got %d", mem.Len())
	}
}

func TestGenerateOne_InvalidInstanceNeverHitsSink(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	inst := &domain.EventInstance{
		ID:        uuid.New(),
		Channel:   domain.ChannelSecurity,
		EventID:   4624,
		Level:     domain.LevelInformational,
		Source:    "test",
		Timestamp: time.Now().Add(time.Hour), // будущее
		Payload:   []byte(`{}`),
	}

	res := e.GenerateOne(context.Background(), inst)
	if res.Success {
		t.Error("expected failure for future timestamp")
	}
	if !strings.Contains(res.Message, "validation") {
		t.Errorf("expected validation message, got: %s", res.Message)
	}
	if mem.Len() != 0 {
		t.Errorf("invalid event must not reach sink, got %d", mem.Len())
	}
}

func TestGenerateOne_SinkFailure(t *testing.T) {
	mem := sink.NewMemory()
	mem.FailWith(errors.New("disk full"))
	e := newTestEngine(mem)

	inst := &domain.EventInstance{
		ID:        uuid.New(),
		Channel:   domain.ChannelSystem,
		EventID:   1,
		Source:    "test",
		Timestamp: time.Now(),
		Payload:   []byte(`{}`),
	}

	res := e.GenerateOne(context.Background(), inst)
	if res.Success {
		t.Error("expected failure when sink rejects write")
	}
	if !strings.Contains(res.Message, "write event") {
		t.Errorf("expected write error message, got: %s", res.Message)
	}
}

func TestGenerateFromTemplate(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	res := e.GenerateFromTemplate(context.Background(), testTemplate(), map[string]string{
		"UserName":  "alice",
		"LogonType": "3",
	})
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Message)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event in sink, got %d", len(events))
	}

	var body map[string]any
	if err := json.Unmarshal(events[0].Payload, &body); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if body["event_id"] != float64(4624) {
		t.Errorf("expected event_id 4624, got %v", body["event_id"])
	}
	if body["channel"] != "Security" {
		t.Errorf("expected channel Security, got %v", body["channel"])
	}
	if body["mitre_technique"] != "T1078" {
		t.Errorf("expected mitre_technique T1078, got %v", body["mitre_technique"])
	}

	params, ok := body["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("expected parameters object, got %T", body["parameters"])
	}
	if params["UserName"] != "alice" {
		t.Errorf("expected UserName alice, got %v", params["UserName"])
	}
	// int-параметр приведён к числу, не строке
	if params["LogonType"] != float64(3) {
		t.Errorf("expected LogonType 3, got %v", params["LogonType"])
	}
}

func TestGenerateFromTemplate_MissingRequiredBinding(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	res := e.GenerateFromTemplate(context.Background(), testTemplate(), map[string]string{
		"LogonType": "3",
	})
	if res.Success {
		t.Error("expected failure for missing required binding")
	}
	if !strings.Contains(res.Message, "bindings") {
		t.Errorf("expected bindings message, got: %s", res.Message)
	}
	if mem.Len() != 0 {
		t.Errorf("failed binding must not reach sink, got %d", mem.Len())
	}
}

func TestGenerateFromTemplate_InvalidTemplate(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	tpl := testTemplate()
	tpl.EventID = 0

	res := e.GenerateFromTemplate(context.Background(), tpl, map[string]string{"UserName": "alice"})
	if res.Success {
		t.Error("expected failure for invalid template")
	}
	if !strings.Contains(res.Message, "template") {
		t.Errorf("expected template message, got: %s", res.Message)
	}
}

func TestGenerateBatch_Chunks(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem) // chunkSize = 10

	res := e.GenerateBatch(context.Background(), testTemplate(), map[string]string{"UserName": "alice"}, 25)

	if res.Requested != 25 || res.Succeeded != 25 || res.Failed != 0 {
		t.Errorf("expected 25/25/0, got %d/%d/%d", res.Requested, res.Succeeded, res.Failed)
	}
	// ⌈25/10⌉ = 3
	if res.Chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", res.Chunks)
	}
	if mem.Len() != 25 {
		t.Errorf("expected 25 events in sink, got %d", mem.Len())
	}
}

func TestGenerateBatch_CountsAlwaysSum(t *testing.T) {
	mem := sink.NewMemory()
	mem.FailWith(errors.New("broker unavailable"))
	e := newTestEngine(mem)

	res := e.GenerateBatch(context.Background(), testTemplate(), map[string]string{"UserName": "alice"}, 12)

	if res.Succeeded+res.Failed != res.Requested {
		t.Errorf("succeeded+failed must equal requested: %d+%d != %d",
			res.Succeeded, res.Failed, res.Requested)
	}
	if res.Failed != 12 {
		t.Errorf("expected all 12 failed, got %d", res.Failed)
	}
	if len(res.Messages) == 0 {
		t.Error("expected failure messages")
	}
}

func TestGenerateBatch_InvalidBindingsFailFast(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	res := e.GenerateBatch(context.Background(), testTemplate(), map[string]string{"Ghost": "x"}, 50)

	if res.Failed != 50 || res.Succeeded != 0 {
		t.Errorf("expected 0/50, got %d/%d", res.Succeeded, res.Failed)
	}
	// Пакет отсекается до генерации, чанки не выполняются
	if res.Chunks != 0 {
		t.Errorf("expected 0 chunks, got %d", res.Chunks)
	}
	if mem.Len() != 0 {
		t.Errorf("expected empty sink, got %d", mem.Len())
	}
}

func TestGenerateBatch_ZeroCount(t *testing.T) {
	e := newTestEngine(sink.NewMemory())

	res := e.GenerateBatch(context.Background(), testTemplate(), nil, 0)
	if res.Requested != 0 || res.Succeeded != 0 || res.Failed != 0 || res.Chunks != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestGenerateBatch_CancelledContext(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.GenerateBatch(ctx, testTemplate(), map[string]string{"UserName": "alice"}, 25)
	if res.Chunks != 0 {
		t.Errorf("cancelled context must stop before first chunk, got %d chunks", res.Chunks)
	}
}

func testInstance(eventID int) *domain.EventInstance {
	return &domain.EventInstance{
		ID:        uuid.New(),
		Channel:   domain.ChannelSecurity,
		EventID:   eventID,
		Level:     domain.LevelInformational,
		Source:    "test",
		Timestamp: time.Now().UTC(),
		Payload:   []byte(`{}`),
	}
}

func TestGenerateInstances_Chunks(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem) // chunkSize = 10

	instances := make([]*domain.EventInstance, 25)
	for i := range instances {
		instances[i] = testInstance(4624 + i)
	}

	res := e.GenerateInstances(context.Background(), instances)

	if res.Requested != 25 || res.Succeeded != 25 || res.Failed != 0 {
		t.Errorf("expected 25/25/0, got %d/%d/%d", res.Requested, res.Succeeded, res.Failed)
	}
	// ⌈25/10⌉ = 3
	if res.Chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", res.Chunks)
	}
	if mem.Len() != 25 {
		t.Errorf("expected 25 events in sink, got %d", mem.Len())
	}
}

func TestGenerateInstances_MixedOutcomes(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	bad := testInstance(4625)
	bad.Timestamp = time.Now().Add(time.Hour) // будущее

	instances := []*domain.EventInstance{
		testInstance(4624),
		bad,
		nil,
		testInstance(4672),
	}

	res := e.GenerateInstances(context.Background(), instances)

	if res.Succeeded+res.Failed != res.Requested {
		t.Errorf("succeeded+failed must equal requested: %d+%d != %d",
			res.Succeeded, res.Failed, res.Requested)
	}
	if res.Succeeded != 2 || res.Failed != 2 {
		t.Errorf("expected 2/2, got %d/%d", res.Succeeded, res.Failed)
	}
	if len(res.Messages) != 2 {
		t.Errorf("expected 2 failure messages, got %d", len(res.Messages))
	}
	// Невалидный экземпляр не доходит до приёмника
	if mem.Len() != 2 {
		t.Errorf("expected 2 events in sink, got %d", mem.Len())
	}
}

func TestGenerateInstances_Empty(t *testing.T) {
	e := newTestEngine(sink.NewMemory())

	res := e.GenerateInstances(context.Background(), nil)
	if res.Requested != 0 || res.Succeeded != 0 || res.Failed != 0 || res.Chunks != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestGenerateInstances_CancelledContext(t *testing.T) {
	mem := sink.NewMemory()
	e := newTestEngine(mem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	instances := make([]*domain.EventInstance, 15)
	for i := range instances {
		instances[i] = testInstance(4624)
	}

	res := e.GenerateInstances(ctx, instances)
	if res.Chunks != 0 {
		t.Errorf("cancelled context must stop before first chunk, got %d chunks", res.Chunks)
	}
}

func TestRender(t *testing.T) {
	tpl := testTemplate()

	inst, err := Render(tpl, map[string]string{"UserName": "bob", "LogonType": "10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inst.TemplateID != tpl.ID {
		t.Errorf("expected template id %s, got %s", tpl.ID, inst.TemplateID)
	}
	if inst.Channel != domain.ChannelSecurity || inst.EventID != 4624 {
		t.Errorf("unexpected channel/event id: %s/%d", inst.Channel, inst.EventID)
	}
	if inst.Timestamp.IsZero() || inst.Timestamp.After(time.Now().Add(time.Second)) {
		t.Errorf("unexpected timestamp: %v", inst.Timestamp)
	}
	if !json.Valid(inst.Payload) {
		t.Error("payload must be valid JSON")
	}
}

func TestRender_NilTemplate(t *testing.T) {
	if _, err := Render(nil, nil); !errors.Is(err, engine.ErrNilReference) {
		t.Errorf("expected ErrNilReference, got %v", err)
	}
}

func TestRender_UndeclaredParameter(t *testing.T) {
	_, err := Render(testTemplate(), map[string]string{"Ghost": "x"})
	if !errors.Is(err, engine.ErrUndeclaredParameter) {
		t.Errorf("expected ErrUndeclaredParameter, got %v", err)
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name  string
		pt    domain.ParameterType
		value string
		want  any
	}{
		{"int", domain.ParameterTypeInt, "42", int64(42)},
		{"long", domain.ParameterTypeLong, "9000000000", int64(9000000000)},
		{"bool", domain.ParameterTypeBool, "true", true},
		{"string", domain.ParameterTypeString, "hello", "hello"},
		{"guid", domain.ParameterTypeGUID, "4b2d1c9e-0000-0000-0000-000000000000", "4b2d1c9e-0000-0000-0000-000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceValue(tt.pt, tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}

	if _, err := coerceValue(domain.ParameterTypeInt, "abc"); err == nil {
		t.Error("expected error for non-numeric int value")
	}
	if _, err := coerceValue("decimal", "1.5"); err == nil {
		t.Error("expected error for unknown parameter type")
	}
}
