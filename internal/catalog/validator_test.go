package catalog

import "testing"

func validCatalog() *CatalogFile {
	return &CatalogFile{
		Store: StoreConfig{Name: "CROMA", Currency: "eur"},
		Products: []ProductConfig{
			{
				Slug:       "oversized-tee-black",
				Name:       "Oversized Tee Black",
				PriceCents: 4500,
				Active:     true,
				Stock:      map[string]int{"S": 10, "M": 15},
			},
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*CatalogFile)
		wantErr bool
	}{
		{
			name:    "valid catalog",
			mutate:  func(f *CatalogFile) {},
			wantErr: false,
		},
		{
			name: "unsupported currency",
			mutate: func(f *CatalogFile) {
				f.Store.Currency = "usd"
			},
			wantErr: true,
		},
		{
			name: "no products",
			mutate: func(f *CatalogFile) {
				f.Products = nil
			},
			wantErr: true,
		},
		{
			name: "duplicate slug",
			mutate: func(f *CatalogFile) {
				f.Products = append(f.Products, f.Products[0])
			},
			wantErr: true,
		},
		{
			name: "invalid slug",
			mutate: func(f *CatalogFile) {
				f.Products[0].Slug = "Oversized Tee"
			},
			wantErr: true,
		},
		{
			name: "non-positive price",
			mutate: func(f *CatalogFile) {
				f.Products[0].PriceCents = 0
			},
			wantErr: true,
		},
		{
			name: "no stock sizes",
			mutate: func(f *CatalogFile) {
				f.Products[0].Stock = nil
			},
			wantErr: true,
		},
		{
			name: "negative stock",
			mutate: func(f *CatalogFile) {
				f.Products[0].Stock = map[string]int{"M": -1}
			},
			wantErr: true,
		},
	}

	validator := NewValidator()
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			file := validCatalog()
			tc.mutate(file)

			err := validator.Validate(file)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}
