package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/statementsense/statement-pipeline/internal/categorize"
	"github.com/statementsense/statement-pipeline/internal/extract"
	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
	"github.com/statementsense/statement-pipeline/internal/jobs/inmemory"
	"github.com/statementsense/statement-pipeline/internal/pipeline"
	"github.com/statementsense/statement-pipeline/internal/statement"
)

// mockRepo is a StatementRepository with injectable behavior. It records
// every call so tests can assert on ordering and payloads. Status and
// extraction writes for a statement without a created row fail, the way
// an UPDATE against a missing row would be lost for real.
type mockRepo struct {
	mu      sync.Mutex
	events  []string
	created map[string]bool

	statements   []*infra.StatementRow
	transactions []*infra.TransactionRow
	statuses     []string // "status:detail" in call order
	runFailures  []string

	UpdateStatementStatusFunc     func(ctx context.Context, statementID string, status statement.Status, detail string) error
	CreateStatementFunc           func(ctx context.Context, statementID string) error
	UpdateStatementExtractionFunc func(ctx context.Context, row *infra.StatementRow) error
	InsertTransactionsFunc        func(ctx context.Context, rows []*infra.TransactionRow) error
	StartProcessingRunFunc        func(ctx context.Context, statementID string) (string, error)
}

func (m *mockRepo) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockRepo) CreateStatement(ctx context.Context, statementID string) error {
	m.record("create_statement")
	if m.CreateStatementFunc != nil {
		return m.CreateStatementFunc(ctx, statementID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.created == nil {
		m.created = make(map[string]bool)
	}
	m.created[statementID] = true
	m.statuses = append(m.statuses, string(statement.StatusProcessing)+":")
	return nil
}

func (m *mockRepo) UpdateStatementExtraction(ctx context.Context, row *infra.StatementRow) error {
	m.record("update_extraction")
	if m.UpdateStatementExtractionFunc != nil {
		return m.UpdateStatementExtractionFunc(ctx, row)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.created[row.StatementID] {
		return fmt.Errorf("no statement row for %s", row.StatementID)
	}
	m.statements = append(m.statements, row)
	return nil
}

func (m *mockRepo) InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error {
	m.record("insert_transactions")
	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, rows)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, rows...)
	return nil
}

func (m *mockRepo) UpdateStatementStatus(ctx context.Context, statementID string, status statement.Status, detail string) error {
	m.record("update_status_" + string(status))
	if m.UpdateStatementStatusFunc != nil {
		return m.UpdateStatementStatusFunc(ctx, statementID, status, detail)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.created[statementID] {
		return fmt.Errorf("no statement row for %s", statementID)
	}
	m.statuses = append(m.statuses, string(status)+":"+detail)
	return nil
}

func (m *mockRepo) StartProcessingRun(ctx context.Context, statementID string) (string, error) {
	m.record("start_run")
	if m.StartProcessingRunFunc != nil {
		return m.StartProcessingRunFunc(ctx, statementID)
	}
	return "run-1", nil
}

func (m *mockRepo) MarkProcessingRunSucceeded(ctx context.Context, runID string, method statement.Method) error {
	m.record("run_succeeded")
	return nil
}

func (m *mockRepo) MarkProcessingRunFailed(ctx context.Context, runID string, runErr error) {
	m.record("run_failed")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runFailures = append(m.runFailures, runErr.Error())
}

func (m *mockRepo) QueryCategoryTotals(ctx context.Context, statementID string) ([]infra.CategoryTotalRow, error) {
	return nil, nil
}

var _ infra.StatementRepository = (*mockRepo)(nil)

type mockLoader struct {
	LoadPagesFunc func(ctx context.Context, uri string) ([]statement.RawPage, error)
}

func (m *mockLoader) LoadPages(ctx context.Context, uri string) ([]statement.RawPage, error) {
	if m.LoadPagesFunc != nil {
		return m.LoadPagesFunc(ctx, uri)
	}
	return []statement.RawPage{{Index: 0, Text: "BBVA BANCOMER"}}, nil
}

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, pages []statement.RawPage) (*statement.Outcome, extract.State, error)
}

func (m *mockExtractor) Extract(ctx context.Context, pages []statement.RawPage) (*statement.Outcome, extract.State, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, pages)
	}
	return acceptedOutcome(), extract.StateAccepted, nil
}

type mockCategorizer struct {
	RunFunc func(ctx context.Context, bankID string, txs []statement.Transaction) ([]categorize.Assignment, categorize.Summary)
}

func (m *mockCategorizer) Run(ctx context.Context, bankID string, txs []statement.Transaction) ([]categorize.Assignment, categorize.Summary) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, bankID, txs)
	}
	assignments := make([]categorize.Assignment, len(txs))
	for i := range txs {
		assignments[i] = categorize.Assignment{Index: i, Category: categorize.CategoryFood, Confidence: 1.0, Tier: categorize.TierExact}
	}
	return assignments, categorize.Summary{}
}

func acceptedOutcome() *statement.Outcome {
	return &statement.Outcome{
		Metadata: statement.Metadata{BankID: "bbva", CardLastFour: "3456"},
		Transactions: []statement.Transaction{
			{OperationDate: time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC), Description: "OXXO", Amount: 45.00, Table: statement.TableRegular},
		},
		Confidence: 0.95,
		Method:     statement.MethodTemplate,
	}
}

func testDeps(repo *mockRepo) pipeline.Deps {
	return pipeline.Deps{
		Repo:        repo,
		Pages:       &mockLoader{},
		Extractor:   &mockExtractor{},
		Categorizer: &mockCategorizer{},
		Claims:      inmemory.NewStore(),
		RuleVersion: "builtin-1",
	}
}

func TestProcessSuccess(t *testing.T) {
	repo := &mockRepo{}
	deps := testDeps(repo)

	if err := pipeline.Process(context.Background(), deps, "stmt-1", "gs://bucket/pages.json"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	wantEvents := []string{
		"create_statement",
		"start_run",
		"update_extraction",
		"insert_transactions",
		"run_succeeded",
		"update_status_processed",
	}
	if got := strings.Join(repo.events, ","); got != strings.Join(wantEvents, ",") {
		t.Errorf("call order = %v, want %v", repo.events, wantEvents)
	}

	if len(repo.statements) != 1 {
		t.Fatalf("persisted %d statement rows, want 1", len(repo.statements))
	}
	row := repo.statements[0]
	if row.StatementID != "stmt-1" || row.BankID != "bbva" {
		t.Errorf("statement row = %+v", row)
	}
	if row.Method != "template" || row.Confidence != 0.95 {
		t.Errorf("statement row method/confidence = %q/%v", row.Method, row.Confidence)
	}
	if row.RuleVersion != "builtin-1" {
		t.Errorf("statement row RuleVersion = %q", row.RuleVersion)
	}
	if row.TotalTransactions != 1 || row.TotalDebits != 45.00 || row.TotalCredits != 0 {
		t.Errorf("statement row totals = %d/%v/%v", row.TotalTransactions, row.TotalDebits, row.TotalCredits)
	}

	if len(repo.transactions) != 1 {
		t.Fatalf("inserted %d transaction rows, want 1", len(repo.transactions))
	}
	tx := repo.transactions[0]
	if tx.StatementID != "stmt-1" || tx.RunID != "run-1" {
		t.Errorf("transaction row ids = %q/%q", tx.StatementID, tx.RunID)
	}
	if tx.Category != "alimentacion" || tx.CategoryTier != "exact" {
		t.Errorf("transaction row category = %q via %q", tx.Category, tx.CategoryTier)
	}

	// The claim must be free again after the run.
	if !deps.Claims.ClaimStatement("stmt-1") {
		t.Error("claim still held after Process returned")
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	repo := &mockRepo{}
	deps := testDeps(repo)
	deps.Extractor = &mockExtractor{
		ExtractFunc: func(ctx context.Context, pages []statement.RawPage) (*statement.Outcome, extract.State, error) {
			return nil, extract.StateFailed, &statement.FailedError{Issues: []statement.Issue{
				{Check: "reconciliation", Detail: "sum mismatch"},
			}}
		},
	}

	err := pipeline.Process(context.Background(), deps, "stmt-1", "gs://bucket/pages.json")
	if err == nil {
		t.Fatal("Process() error = nil, want extraction failure")
	}

	// The statement ends failed with the diagnostics, never processed.
	var failedDetail string
	for _, s := range repo.statuses {
		if strings.HasPrefix(s, "failed:") {
			failedDetail = s
		}
		if strings.HasPrefix(s, "processed") {
			t.Errorf("statement marked processed after failed extraction: %v", repo.statuses)
		}
	}
	if failedDetail == "" {
		t.Fatalf("no failed status recorded: %v", repo.statuses)
	}
	if !strings.Contains(failedDetail, "reconciliation") {
		t.Errorf("failure detail %q does not carry the diagnostics", failedDetail)
	}

	if len(repo.runFailures) != 1 {
		t.Errorf("run failures = %v, want exactly one", repo.runFailures)
	}
	if len(repo.statements) != 0 || len(repo.transactions) != 0 {
		t.Error("rows were persisted for a failed extraction")
	}

	if !deps.Claims.ClaimStatement("stmt-1") {
		t.Error("claim still held after failed Process")
	}
}

func TestProcessLoadFailure(t *testing.T) {
	repo := &mockRepo{}
	deps := testDeps(repo)
	deps.Pages = &mockLoader{
		LoadPagesFunc: func(ctx context.Context, uri string) ([]statement.RawPage, error) {
			return nil, fmt.Errorf("object not found: %s", uri)
		},
	}

	if err := pipeline.Process(context.Background(), deps, "stmt-1", "gs://bucket/missing.json"); err == nil {
		t.Fatal("Process() error = nil, want load failure")
	}

	found := false
	for _, s := range repo.statuses {
		if strings.HasPrefix(s, "failed:") {
			found = true
		}
	}
	if !found {
		t.Errorf("statement not marked failed: %v", repo.statuses)
	}
}

func TestProcessClaimBlocksConcurrentRun(t *testing.T) {
	repo := &mockRepo{}
	deps := testDeps(repo)

	release := make(chan struct{})
	started := make(chan struct{})
	deps.Extractor = &mockExtractor{
		ExtractFunc: func(ctx context.Context, pages []statement.RawPage) (*statement.Outcome, extract.State, error) {
			close(started)
			<-release
			return acceptedOutcome(), extract.StateAccepted, nil
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Process(context.Background(), deps, "stmt-1", "gs://bucket/pages.json")
	}()
	<-started

	// While the first run holds the claim, a second run for the same
	// statement must be rejected immediately.
	if err := pipeline.Process(context.Background(), deps, "stmt-1", "gs://bucket/pages.json"); err == nil {
		t.Error("concurrent Process() error = nil, want claim rejection")
	}

	// A different statement is unaffected.
	if !deps.Claims.ClaimStatement("stmt-2") {
		t.Error("unrelated statement claim rejected")
	}
	deps.Claims.ReleaseStatement("stmt-2")

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Process() error = %v", err)
	}

	// After the first run finishes, the statement can be claimed again.
	if !deps.Claims.ClaimStatement("stmt-1") {
		t.Error("claim still held after first run finished")
	}
}

func TestProcessPersistFailure(t *testing.T) {
	repo := &mockRepo{}
	repo.UpdateStatementExtractionFunc = func(ctx context.Context, row *infra.StatementRow) error {
		return fmt.Errorf("job error: quota exceeded")
	}
	deps := testDeps(repo)

	if err := pipeline.Process(context.Background(), deps, "stmt-1", "gs://bucket/pages.json"); err == nil {
		t.Fatal("Process() error = nil, want persist failure")
	}

	foundRunFailed := false
	for _, e := range repo.events {
		if e == "run_failed" {
			foundRunFailed = true
		}
		if e == "run_succeeded" || e == "update_status_processed" {
			t.Errorf("success event %q after persist failure", e)
		}
	}
	if !foundRunFailed {
		t.Errorf("run not marked failed: %v", repo.events)
	}
}

// Every status write must target a statement row that already exists:
// an UPDATE against a missing row matches nothing and the status is
// silently lost. mockRepo rejects writes for uncreated rows, so the
// assertions below only hold when the row is created up front.
func TestProcessStatusWritesLandOnExistingRow(t *testing.T) {
	repo := &mockRepo{}
	deps := testDeps(repo)

	if err := pipeline.Process(context.Background(), deps, "stmt-1", "gs://bucket/pages.json"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(repo.events) == 0 || repo.events[0] != "create_statement" {
		t.Fatalf("first repo call = %v, want create_statement", repo.events)
	}
	wantStatuses := []string{"processing:", "processed:"}
	if got := strings.Join(repo.statuses, ","); got != strings.Join(wantStatuses, ",") {
		t.Errorf("status lifecycle = %v, want %v", repo.statuses, wantStatuses)
	}

	// Failure before persistence: the failed status must still stick,
	// which requires the row from step one.
	repo = &mockRepo{}
	deps = testDeps(repo)
	deps.Pages = &mockLoader{
		LoadPagesFunc: func(ctx context.Context, uri string) ([]statement.RawPage, error) {
			return nil, fmt.Errorf("object not found: %s", uri)
		},
	}
	if err := pipeline.Process(context.Background(), deps, "stmt-2", "gs://bucket/missing.json"); err == nil {
		t.Fatal("Process() error = nil, want load failure")
	}
	found := false
	for _, s := range repo.statuses {
		if strings.HasPrefix(s, "failed:") {
			found = true
		}
	}
	if !found {
		t.Errorf("failed status lost: %v", repo.statuses)
	}
}
