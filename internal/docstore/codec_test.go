package docstore

import "testing"

type sampleDoc struct {
	Name     string   `mapstructure:"name"`
	Currency int      `mapstructure:"currency"`
	Items    []string `mapstructure:"items"`
}

func TestDecodeAcceptsBackendNumberTypes(t *testing.T) {
	testCases := []struct {
		name  string
		value any
	}{
		{"float64 from json", float64(42)},
		{"int32 from bson", int32(42)},
		{"int64 from bson", int64(42)},
		{"int from memory", 42},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var doc sampleDoc
			err := Decode(map[string]any{"name": "ann", "currency": tc.value, "items": []any{"a", "b"}}, &doc)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if doc.Currency != 42 {
				t.Errorf("Expected currency 42, got %d", doc.Currency)
			}
			if len(doc.Items) != 2 || doc.Items[1] != "b" {
				t.Errorf("Unexpected items %v", doc.Items)
			}
		})
	}
}

func TestDecodeRejectsWrongShape(t *testing.T) {
	var doc sampleDoc
	if err := Decode(map[string]any{"currency": "lots"}, &doc); err == nil {
		t.Fatal("Expected an error decoding a non-numeric currency")
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(sampleDoc{Name: "bob", Currency: 7, Items: []string{"x"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if data["name"] != "bob" {
		t.Errorf("Expected name bob, got %v", data["name"])
	}
	if n, ok := Int64(data["currency"]); !ok || n != 7 {
		t.Errorf("Expected currency 7, got %v", data["currency"])
	}
}
