package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gridwalk/protocol"
)

// 用 JSON Schema 交叉校验线上格式：结构体编组出的样例必须通过模式校验，
// 模式同时约束“恰好一个变体”
func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	roundtrip := func(v any) any {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return out
	}

	clientSchema := compile("client_envelope.schema.json")
	serverSchema := compile("server_envelope.schema.json")

	clientSamples := []protocol.ClientEnvelope{
		{Hello: &protocol.Hello{Name: "alice"}},
		{Input: &protocol.PlayerInput{Dir: protocol.DirRight}},
		{Chat: &protocol.ChatSend{Text: "hi there"}},
	}
	for i, env := range clientSamples {
		if err := clientSchema.Validate(roundtrip(env)); err != nil {
			t.Fatalf("client sample %d: %v", i, err)
		}
	}

	serverSamples := []protocol.ServerEnvelope{
		{Map: &protocol.InitialMapData{
			Rows:          []protocol.MapRow{{Tiles: []int32{0, 1}}, {Tiles: []int32{1, 0}}},
			TileWidth:     2,
			TileHeight:    2,
			TileSizePx:    32,
			WorldWidthPx:  64,
			WorldHeightPx: 64,
			PlayerID:      "p1",
		}},
		{Delta: &protocol.DeltaUpdate{
			Removed: []string{"p9"},
			Players: []protocol.Player{{ID: "p1", X: 10, Y: 20, Anim: protocol.AnimRunUp, Name: "alice"}},
		}},
		{Chat: &protocol.ChatBroadcast{From: "alice", Text: "hello"}},
	}
	for i, env := range serverSamples {
		if err := serverSchema.Validate(roundtrip(env)); err != nil {
			t.Fatalf("server sample %d: %v", i, err)
		}
	}

	// 空信封与双变体信封都不满足“恰好一个变体”
	var bad any
	_ = json.Unmarshal([]byte(`{}`), &bad)
	if err := serverSchema.Validate(bad); err == nil {
		t.Fatal("empty envelope unexpectedly passed schema")
	}
	_ = json.Unmarshal([]byte(`{"hello":{"name":"a"},"input":{"dir":1}}`), &bad)
	if err := clientSchema.Validate(bad); err == nil {
		t.Fatal("two-variant envelope unexpectedly passed schema")
	}
}
