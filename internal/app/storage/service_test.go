package storage

import "testing"

func TestValidateEmoteImage(t *testing.T) {
	cases := []struct {
		name     string
		mimeType string
		size     int64
		wantExt  string
		wantErr  bool
	}{
		{"png accepted", "image/png", 1024, "png", false},
		{"gif accepted", "image/gif", 1024, "gif", false},
		{"webp accepted", "image/webp", 1024, "webp", false},
		{"jpeg rejected", "image/jpeg", 1024, "", true},
		{"svg rejected", "image/svg+xml", 1024, "", true},
		{"zero size rejected", "image/png", 0, "", true},
		{"oversize rejected", "image/png", MaxEmoteImageBytes + 1, "", true},
		{"max size accepted", "image/png", MaxEmoteImageBytes, "png", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := ValidateEmoteImage(tc.mimeType, tc.size)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ext != tc.wantExt {
				t.Fatalf("ext = %q, want %q", ext, tc.wantExt)
			}
		})
	}
}

func TestEmoteKey(t *testing.T) {
	got := EmoteKey("chan1", "em42", "png")
	if got != "emotes/chan1/em42.png" {
		t.Fatalf("unexpected key %q", got)
	}
}
