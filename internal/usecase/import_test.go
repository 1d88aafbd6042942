package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/queue"
)

func csvWithRows(n int) string {
	var b strings.Builder
	b.WriteString("Full Name,Company Name,Email Address,Deal Value,Stage\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "Person %d,Company %d,p%d@example.com,%d,Qualified\n", i, i, i, i*100)
	}
	return b.String()
}

func uploaded(t *testing.T, body string) *ImportSession {
	t.Helper()
	s := NewImportSession()
	s.Now = clock
	require.NoError(t, s.Upload("leads.csv", "", strings.NewReader(body)))
	return s
}

func TestUploadAutoMapsHeaders(t *testing.T) {
	s := uploaded(t, csvWithRows(3))

	snap := s.Snapshot()
	assert.Equal(t, ImportMap, snap.Phase)
	assert.Equal(t, 3, snap.Rows)
	assert.Equal(t, "Full Name", snap.Mapping["name"])
	assert.Equal(t, "Company Name", snap.Mapping["company"])
	assert.Equal(t, "Email Address", snap.Mapping["email"])
	assert.Equal(t, "Deal Value", snap.Mapping["value"])
	assert.Equal(t, "Stage", snap.Mapping["stage"])
	assert.NotContains(t, snap.Mapping, "phone")
	assert.True(t, snap.CanImport)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	s := NewImportSession()

	err := s.Upload("leads.xlsx", "application/vnd.ms-excel", strings.NewReader("a,b\n1,2\n"))

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_FILE", de.Code)
	snap := s.Snapshot()
	assert.Equal(t, ImportUpload, snap.Phase)
	assert.Equal(t, "Please upload a valid CSV file.", snap.Error)
}

func TestUploadAcceptsCSVMimeType(t *testing.T) {
	s := NewImportSession()

	err := s.Upload("export", "text/csv; charset=utf-8", strings.NewReader("name\nA\n"))

	require.NoError(t, err)
	assert.Equal(t, ImportMap, s.Snapshot().Phase)
}

func TestUploadParseErrorStaysInUpload(t *testing.T) {
	cases := map[string]string{
		"empty file":     "",
		"ragged row":     "name,email\nA,a@b.co,extra\n",
		"unclosed quote": "name,email\n\"A,a@b.co\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewImportSession()

			err := s.Upload("leads.csv", "text/csv", strings.NewReader(body))

			var de *DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "CSV_PARSE_ERROR", de.Code)
			assert.Equal(t, ImportUpload, s.Snapshot().Phase)
			assert.Equal(t, "Error parsing CSV file.", s.Snapshot().Error)
		})
	}
}

func TestUploadStripsBOMAndRenamesDuplicateHeaders(t *testing.T) {
	s := uploaded(t, "\xEF\xBB\xBFName,Email,Email,Email_1\nA,a@b.co,c@d.co,x\n")

	headers := s.Snapshot().Headers
	assert.Equal(t, "Name", headers[0])
	assert.Equal(t, "Email", headers[1])
	assert.NotEqual(t, headers[2], headers[3])
	assert.Len(t, headers, 4)
	assert.Equal(t, "Email", s.Snapshot().Mapping["email"])
}

func TestSetMappingValidatesAndClears(t *testing.T) {
	s := uploaded(t, csvWithRows(1))

	err := s.SetMapping(map[string]string{"email": "Nope"})
	assert.True(t, IsDomainError(err))

	err = s.SetMapping(map[string]string{"favourite_colour": "Stage"})
	assert.True(t, IsDomainError(err))

	require.NoError(t, s.SetMapping(map[string]string{"email": ""}))
	assert.False(t, s.CanImport())

	var de *DomainError
	require.ErrorAs(t, s.Start(), &de)
	assert.Equal(t, "MAPPING_INCOMPLETE", de.Code)

	require.NoError(t, s.SetMapping(map[string]string{"email": "Email Address"}))
	assert.True(t, s.CanImport())
	require.NoError(t, s.Start())
	assert.Equal(t, ImportImporting, s.Snapshot().Phase)
}

func TestStartRequiresMapPhase(t *testing.T) {
	s := NewImportSession()

	var de *DomainError
	require.ErrorAs(t, s.Start(), &de)
	assert.Equal(t, "WRONG_IMPORT_PHASE", de.Code)
}

func TestExecuteHaltsOnFirstFailingBatch(t *testing.T) {
	s := uploaded(t, csvWithRows(25))
	require.NoError(t, s.Start())
	inserter := &batchRecorder{failOn: 2, err: errors.New("constraint violation")}

	err := s.Execute(context.Background(), inserter)

	var te *TechnicalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "IMPORT_FAILED", te.Code)
	assert.Equal(t, 2, inserter.calls())

	snap := s.Snapshot()
	assert.Equal(t, ImportFailed, snap.State)
	assert.Equal(t, 10, snap.Committed)
	assert.Equal(t, 40, snap.Progress)
	assert.Equal(t, "constraint violation", snap.Error)

	for _, batch := range inserter.batches {
		for _, lead := range batch {
			assert.NotEqual(t, "Person 21", lead.Name)
		}
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestExecuteInsertsEveryRowInBatches(t *testing.T) {
	s := uploaded(t, csvWithRows(25))
	require.NoError(t, s.Start())
	inserter := &batchRecorder{}

	require.NoError(t, s.Execute(context.Background(), inserter))

	require.Equal(t, 3, inserter.calls())
	assert.Len(t, inserter.batches[0], 10)
	assert.Len(t, inserter.batches[2], 5)

	first := inserter.batches[0][0]
	assert.Equal(t, "Person 1", first.Name)
	assert.Equal(t, 100.0, first.Value)
	assert.Equal(t, entity.StageQualified, first.Stage)
	assert.Nil(t, first.Phone)
	assert.NotNil(t, first.Tags)
	assert.Equal(t, fixedNow, first.LastActivityAt)

	snap := s.Snapshot()
	assert.Equal(t, ImportSucceeded, snap.State)
	assert.Equal(t, 100, snap.Progress)
}

func TestExecuteHeaderOnlyFile(t *testing.T) {
	s := uploaded(t, "name,company,email\n")
	require.NoError(t, s.Start())
	inserter := &batchRecorder{}

	require.NoError(t, s.Execute(context.Background(), inserter))

	assert.Equal(t, 0, inserter.calls())
	assert.Equal(t, 100, s.Snapshot().Progress)
}

func TestExecuteStopsWhenCancelled(t *testing.T) {
	s := uploaded(t, csvWithRows(5))
	require.NoError(t, s.Start())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Execute(ctx, &batchRecorder{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Snapshot().Committed)
}

func TestCoercions(t *testing.T) {
	assert.Equal(t, 0.0, coerceValue("abc"))
	assert.Equal(t, 0.0, coerceValue("-5"))
	assert.Equal(t, 0.0, coerceValue(""))
	assert.Equal(t, 1250.5, coerceValue("1250.5"))

	assert.Equal(t, entity.StageNew, coerceStage("Negotiating"))
	assert.Equal(t, entity.StageWon, coerceStage("won"))
}

func TestPercentRounds(t *testing.T) {
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 67, percent(2, 3))
	assert.Equal(t, 100, percent(0, 0))
}

func TestRegistryRunReloadsAndPublishes(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("List", mock.Anything).Return(threeLeads(), nil)
	events := new(MockPublisher)
	events.On("PublishLeadEvent", mock.Anything, mock.MatchedBy(func(e queue.LeadEvent) bool {
		return e.Type == queue.EventImportCompleted && e.Imported == 12 && e.Total == 12
	})).Return(nil)
	leads, store := newLeadService(repo, nil)
	rec := &fakeRecorder{}
	registry := NewImportRegistry(&batchRecorder{}, leads, events, nil, rec)
	registry.Now = clock

	session, err := registry.Create("leads.csv", "text/csv", strings.NewReader(csvWithRows(12)))
	require.NoError(t, err)

	_, err = registry.Run(context.Background(), session.ID)
	require.NoError(t, err)
	registry.Wait()

	assert.Equal(t, ImportSucceeded, session.Snapshot().State)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 12, rec.batches["success"])
	events.AssertExpectations(t)
}

func TestRegistryFailedRunPublishesFailure(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("List", mock.Anything).Return(threeLeads(), nil)
	events := new(MockPublisher)
	events.On("PublishLeadEvent", mock.Anything, mock.MatchedBy(func(e queue.LeadEvent) bool {
		return e.Type == queue.EventImportFailed && e.Imported == 10 && e.Error == "disk full"
	})).Return(nil)
	leads, _ := newLeadService(repo, nil)
	rec := &fakeRecorder{}
	registry := NewImportRegistry(&batchRecorder{failOn: 2, err: errors.New("disk full")}, leads, events, nil, rec)

	session, err := registry.Create("leads.csv", "", strings.NewReader(csvWithRows(25)))
	require.NoError(t, err)
	_, err = registry.Run(context.Background(), session.ID)
	require.NoError(t, err)
	registry.Wait()

	assert.Equal(t, 10, rec.batches["success"])
	assert.Equal(t, 10, rec.batches["error"])
	repo.AssertNumberOfCalls(t, "List", 1)
	events.AssertExpectations(t)
}

type blockingInserter struct {
	release chan struct{}
	calls   int
}

func (b *blockingInserter) InsertBatch(ctx context.Context, _ []entity.NewLead) error {
	b.calls++
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRegistryCancelStopsRun(t *testing.T) {
	inserter := &blockingInserter{release: make(chan struct{})}
	registry := NewImportRegistry(inserter, nil, nil, nil, nil)

	session, err := registry.Create("leads.csv", "", strings.NewReader(csvWithRows(30)))
	require.NoError(t, err)
	_, err = registry.Run(context.Background(), session.ID)
	require.NoError(t, err)

	require.NoError(t, registry.Cancel(session.ID))

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("import did not stop")
	}
	registry.Wait()

	assert.Equal(t, ImportFailed, session.Snapshot().State)
	assert.LessOrEqual(t, inserter.calls, 1)

	_, err = registry.Get(session.ID)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "IMPORT_NOT_FOUND", de.Code)
}

func TestRegistryDoesNotKeepRejectedUpload(t *testing.T) {
	registry := NewImportRegistry(&batchRecorder{}, nil, nil, nil, nil)

	session, err := registry.Create("notes.txt", "text/plain", strings.NewReader("hi"))

	require.Error(t, err)
	assert.Equal(t, ImportUpload, session.Snapshot().Phase)
	_, err = registry.Get(session.ID)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "IMPORT_NOT_FOUND", de.Code)
}

func TestRegistryDropsFinishedSessionAfterRetention(t *testing.T) {
	registry := NewImportRegistry(&batchRecorder{}, nil, nil, nil, nil)
	registry.Retention = 50 * time.Millisecond

	session, err := registry.Create("leads.csv", "", strings.NewReader(csvWithRows(5)))
	require.NoError(t, err)
	_, err = registry.Run(context.Background(), session.ID)
	require.NoError(t, err)
	registry.Wait()

	got, err := registry.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, ImportSucceeded, got.Snapshot().State)

	assert.Eventually(t, func() bool {
		_, err := registry.Get(session.ID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistryWithoutRetentionDropsOnFinish(t *testing.T) {
	registry := NewImportRegistry(&batchRecorder{failOn: 1, err: errors.New("boom")}, nil, nil, nil, nil)
	registry.Retention = 0

	session, err := registry.Create("leads.csv", "", strings.NewReader(csvWithRows(5)))
	require.NoError(t, err)
	_, err = registry.Run(context.Background(), session.ID)
	require.NoError(t, err)
	registry.Wait()

	_, err = registry.Get(session.ID)
	assert.Error(t, err)
	assert.Equal(t, ImportFailed, session.Snapshot().State)
}

// switchableSessions lets a test change the signed-in user mid-run.
type switchableSessions struct {
	mu      sync.Mutex
	session *entity.Session
}

func (s *switchableSessions) Current() *entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *switchableSessions) set(session *entity.Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}

// firstBatchGate blocks the first batch until released and counts every call.
type firstBatchGate struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *firstBatchGate) InsertBatch(context.Context, []entity.NewLead) error {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		<-g.release
	}
	return nil
}

func TestRegistryRefusesBatchesOnceUserChanges(t *testing.T) {
	sessions := &switchableSessions{session: session("ana@glassflow.app")}
	gate := &firstBatchGate{entered: make(chan struct{}), release: make(chan struct{})}
	registry := NewImportRegistry(gate, nil, nil, sessions, nil)

	imp, err := registry.Create("leads.csv", "", strings.NewReader(csvWithRows(20)))
	require.NoError(t, err)
	_, err = registry.Run(context.Background(), imp.ID)
	require.NoError(t, err)
	<-gate.entered

	sessions.set(session("bob@other.app"))
	close(gate.release)
	registry.Wait()

	snap := imp.Snapshot()
	assert.Equal(t, 1, gate.calls)
	assert.Equal(t, ImportFailed, snap.State)
	assert.Equal(t, 10, snap.Committed)
	assert.Contains(t, snap.Error, "signed-in user changed")
}
