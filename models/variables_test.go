package models

import (
	"encoding/json"
	"testing"
)

func TestOrderedVariablesKeepDocumentOrder(t *testing.T) {
	payload := []byte(`{"zeta":"last?","nome":"Ana","pedido":123,"ativo":true,"vazio":null}`)

	var vars OrderedVariables
	if err := json.Unmarshal(payload, &vars); err != nil {
		t.Fatal(err)
	}

	want := []TemplateVariable{
		{Name: "zeta", Value: "last?"},
		{Name: "nome", Value: "Ana"},
		{Name: "pedido", Value: "123"},
		{Name: "ativo", Value: "true"},
		{Name: "vazio", Value: ""},
	}
	if len(vars) != len(want) {
		t.Fatalf("want %d variables, got %d", len(want), len(vars))
	}
	for i := range want {
		if vars[i] != want[i] {
			t.Fatalf("variable %d = %+v, want %+v", i, vars[i], want[i])
		}
	}
}

func TestOrderedVariablesMarshalRoundTrip(t *testing.T) {
	vars := OrderedVariables{
		{Name: "b", Value: "2"},
		{Name: "a", Value: "1"},
	}

	data, err := json.Marshal(vars)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"b":"2","a":"1"}` {
		t.Fatalf("marshal lost key order: %s", data)
	}

	var back OrderedVariables
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[0].Name != "b" || back[1].Name != "a" {
		t.Fatalf("round trip changed order: %+v", back)
	}
}

func TestOrderedVariablesNull(t *testing.T) {
	var vars OrderedVariables
	if err := json.Unmarshal([]byte(`null`), &vars); err != nil {
		t.Fatal(err)
	}
	if vars != nil {
		t.Fatalf("null must decode to nil, got %+v", vars)
	}

	data, err := json.Marshal(vars)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Fatalf("nil must marshal to null, got %s", data)
	}
}

func TestOrderedVariablesRejectNonObject(t *testing.T) {
	var vars OrderedVariables
	if err := json.Unmarshal([]byte(`["a","b"]`), &vars); err == nil {
		t.Fatal("array payload must be rejected")
	}
}

func TestOrderedVariablesNestedValuesCollapse(t *testing.T) {
	var vars OrderedVariables
	if err := json.Unmarshal([]byte(`{"meta":{"x":1},"nome":"Ana"}`), &vars); err != nil {
		t.Fatal(err)
	}
	if len(vars) != 2 {
		t.Fatalf("want 2 variables, got %d", len(vars))
	}
	if vars[0].Value != `{"x":1}` {
		t.Fatalf("nested object should keep its JSON text, got %q", vars[0].Value)
	}
	if vars[1] != (TemplateVariable{Name: "nome", Value: "Ana"}) {
		t.Fatalf("key after nested value lost: %+v", vars[1])
	}
}
