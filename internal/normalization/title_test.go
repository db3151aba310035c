package normalization

import "testing"

func TestExtractDateToken(t *testing.T) {
	tests := []struct {
		title     string
		token     string
		ambiguous bool
		ok        bool
	}{
		{"11/5(火) 出玉データ", "11/5", false, true},
		{"2024/11/05 データ公開", "2024/11/05", false, true},
		{"２０２４年１１月５日 結果", "2024/11/5", false, true},
		{"11/5 データ 11/5 更新", "11/5", false, true},
		{"11/5 データ (11/6 更新)", "11/5", false, true},
		{"11/5 データ 11/6 更新", "11/5", true, true},
		{"24/11/05(火) Hall X", "24/11/05", false, true},
		{"2024/11/05 Hall X 11/5", "2024/11/05", false, true},
		{"2024/11/05 Hall X 11/6", "2024/11/05", true, true},
		{"2023/11/05 Hall X 2024/11/05", "2023/11/05", true, true},
		{"お知らせ", "", false, false},
		{"1/2/3/4", "", false, false},
		{"123/45", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			token, ambiguous, ok := ExtractDateToken(tt.title)
			if ok != tt.ok {
				t.Fatalf("ExtractDateToken(%q): expected ok=%v, got %v", tt.title, tt.ok, ok)
			}
			if token != tt.token {
				t.Errorf("ExtractDateToken(%q): expected token %q, got %q", tt.title, tt.token, token)
			}
			if ambiguous != tt.ambiguous {
				t.Errorf("ExtractDateToken(%q): expected ambiguous=%v, got %v", tt.title, tt.ambiguous, ambiguous)
			}
		})
	}
}
