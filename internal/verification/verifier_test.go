package verification

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"hall-data-lab/internal/domain"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestVerifyIdentity_Title(t *testing.T) {
	doc := parseDoc(t, `<html><head><title>2024/11/05 マルハン新宿店 データ</title></head><body></body></html>`)
	v := NewVerifier("マルハン新宿", 2024)

	identity, err := v.VerifyIdentity(doc)
	if err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if !strings.Contains(identity, "マルハン新宿") {
		t.Errorf("Expected identity to contain venue, got %q", identity)
	}
}

func TestVerifyIdentity_MetaAndSelectors(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"og title", `<html><head><meta property="og:title" content="Hall X report"></head></html>`},
		{"description", `<html><head><meta name="description" content="Daily data for Hall X"></head></html>`},
		{"heading", `<html><body><h1>Hall X</h1></body></html>`},
	}

	v := NewVerifier("Hall X", 2024)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyIdentity(parseDoc(t, tt.html)); err != nil {
				t.Errorf("Expected match, got %v", err)
			}
		})
	}
}

func TestVerifyIdentity_Mismatch(t *testing.T) {
	doc := parseDoc(t, `<html><head><title>Hall Y report</title></head><body><h1>Hall Y</h1></body></html>`)
	v := NewVerifier("Hall X", 2024)

	_, err := v.VerifyIdentity(doc)
	if !errors.Is(err, ErrIdentityMismatch) {
		t.Errorf("Expected ErrIdentityMismatch, got %v", err)
	}
}

func TestVerifyIdentity_NoVenueName(t *testing.T) {
	doc := parseDoc(t, `<html><head><title>anything</title></head></html>`)
	v := NewVerifier("", 2024)

	if _, err := v.VerifyIdentity(doc); !errors.Is(err, ErrIdentityMismatch) {
		t.Errorf("Expected ErrIdentityMismatch, got %v", err)
	}
}

func TestConfirmedDate(t *testing.T) {
	doc := parseDoc(t, `<html><head><title>Hall X</title></head><body><h1>Hall X</h1><h2>11/05(火) の結果</h2></body></html>`)
	v := NewVerifier("Hall X", 2024)

	if got := v.ConfirmedDate(doc); got != "11/05" {
		t.Errorf("Expected 11/05, got %q", got)
	}
}

func TestVerifyDate(t *testing.T) {
	task := domain.FetchTask{URL: "https://example.com/report/1", Date: domain.MustDate(2024, 11, 5)}
	v := NewVerifier("Hall X", 2024)

	tests := []struct {
		confirmed string
		wantErr   bool
	}{
		{"", false},
		{"2024/11/05", false},
		{"11/5", false},
		{"garbage", false},
		{"11/04", true},
		{"2023/11/05", true},
	}

	for _, tt := range tests {
		err := v.VerifyDate(tt.confirmed, task)
		if tt.wantErr && !errors.Is(err, ErrDateMismatch) {
			t.Errorf("VerifyDate(%q): expected ErrDateMismatch, got %v", tt.confirmed, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("VerifyDate(%q): unexpected error %v", tt.confirmed, err)
		}
	}
}
