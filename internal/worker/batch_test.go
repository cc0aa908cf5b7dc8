package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// mockAnalyzer implements ClaimAnalyzer
type mockAnalyzer struct {
	mu       sync.Mutex
	failOn   map[string]bool
	analyzed []string
}

func (m *mockAnalyzer) AnalyzeClaim(ctx context.Context, text string) (*model.AnalysisResult, error) {
	time.Sleep(5 * time.Millisecond) // Simulate work
	m.mu.Lock()
	m.analyzed = append(m.analyzed, text)
	m.mu.Unlock()

	if m.failOn[text] {
		return nil, model.NewError(model.KindNoSources, "no sources found", nil)
	}
	return &model.AnalysisResult{ID: "id-" + text, ClaimText: text}, nil
}

func writeClaimsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claims.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessClaims(t *testing.T) {
	analyzer := &mockAnalyzer{}
	processor := NewBatchProcessor(analyzer, 2)

	claims := []string{"Coffee causes cancer", "The earth is flat", "Water boils at 100C"}
	results := processor.ProcessClaims(context.Background(), claims)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Claim, res.Error)
			continue
		}
		if res.Claim != claims[i] {
			t.Errorf("result %d: expected claim %q, got %q", i, claims[i], res.Claim)
		}
		if res.Analysis == nil || res.Analysis.ClaimText != claims[i] {
			t.Errorf("result %d: analysis does not match claim", i)
		}
	}
}

func TestBatchProcessor_ProcessClaims_PartialError(t *testing.T) {
	analyzer := &mockAnalyzer{failOn: map[string]bool{"obscure claim here": true}}
	processor := NewBatchProcessor(analyzer, 2)

	results := processor.ProcessClaims(context.Background(), []string{"Coffee causes cancer", "obscure claim here"})

	if results[0].Error != nil {
		t.Errorf("expected first claim to succeed, got %v", results[0].Error)
	}
	if !errors.Is(results[1].Error, model.ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", results[1].Error)
	}
	if results[1].Analysis != nil {
		t.Error("expected nil analysis on error")
	}
}

func TestBatchProcessor_ProcessClaims_Cancelled(t *testing.T) {
	analyzer := &mockAnalyzer{}
	processor := NewBatchProcessor(analyzer, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessClaims(ctx, []string{"Coffee causes cancer", "The earth is flat"})
	for _, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", res.Error)
		}
	}
	if len(analyzer.analyzed) != 0 {
		t.Errorf("expected no analyzer calls after cancel, got %d", len(analyzer.analyzed))
	}
}

func TestBatchProcessor_ProcessClaims_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)

	results := processor.ProcessClaims(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	content := `Coffee causes cancer
# comment
The earth is flat
   
Coffee causes cancer
  Water boils at 100C   `

	claims, err := ReadClaimsFromFile(writeClaimsFile(t, content))
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	expected := []string{"Coffee causes cancer", "The earth is flat", "Water boils at 100C"}
	if strings.Join(claims, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %v, got %v", expected, claims)
	}
}

func TestReadClaimsFromFile_NonExistent(t *testing.T) {
	_, err := ReadClaimsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestClaimResult_GetError(t *testing.T) {
	r1 := &ClaimResult{Claim: "x"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("analysis failed")
	r2 := &ClaimResult{Claim: "x", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeClaimsFile(t, "Coffee causes cancer\nThe earth is flat\n# comment\n\nWater boils at 100C\n")

	processor := NewBatchProcessor(&mockAnalyzer{}, 2)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
