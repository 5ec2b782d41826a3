package catalog

import (
	"testing"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid catalog",
			yaml: `
store:
  name: "CROMA"
  currency: "eur"
products:
  - slug: "oversized-tee-black"
    name: "Oversized Tee Black"
    price_cents: 4500
    images:
      - "/images/oversized-tee-black-1.webp"
    active: true
    stock:
      S: 10
      M: 15
      L: 8
`,
			wantErr: false,
		},
		{
			name:    "invalid yaml",
			yaml:    "invalid: yaml: content:",
			wantErr: true,
		},
	}

	parser := NewParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := parser.Parse([]byte(tt.yaml))

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if file == nil {
				t.Error("expected catalog but got nil")
				return
			}

			if file.Store.Name != "CROMA" {
				t.Errorf("expected store name 'CROMA', got '%s'", file.Store.Name)
			}

			if len(file.Products) != 1 {
				t.Fatalf("expected 1 product, got %d", len(file.Products))
			}

			if file.Products[0].Stock["M"] != 15 {
				t.Errorf("expected stock M=15, got %d", file.Products[0].Stock["M"])
			}
		})
	}
}
