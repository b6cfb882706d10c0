package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"shelfmatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	itemA = "https://www.amazon.com/dp/B000000AAA"
	itemB = "https://www.amazon.com/dp/B000000BBB"
)

type fakeExtractor struct {
	mu          sync.Mutex
	extractGate map[string]chan struct{}
	imageGate   map[string]chan struct{}
	imageCalls  map[string]int
	fetchCalls  int
	noise       bool
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		extractGate: make(map[string]chan struct{}),
		imageGate:   make(map[string]chan struct{}),
		imageCalls:  make(map[string]int),
	}
}

func (f *fakeExtractor) Extract(ctx context.Context, identity models.PageIdentity, markup string) (models.PageFacts, error) {
	f.mu.Lock()
	gate := f.extractGate[identity.ItemID]
	noise := f.noise
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if noise {
		return models.PageFacts{Noise: true}, models.ErrNoiseDetected
	}
	return models.PageFacts{Title: "Coffee " + identity.ItemID, ExtractedAt: time.Now()}, nil
}

func (f *fakeExtractor) ResolveImage(ctx context.Context, identity models.PageIdentity) (*string, error) {
	f.mu.Lock()
	f.imageCalls[identity.ItemID]++
	gate := f.imageGate[identity.ItemID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	u := "https://m.media-amazon.com/images/I/" + identity.ItemID + ".jpg"
	return &u, nil
}

func (f *fakeExtractor) FetchMarkup(ctx context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	return "<html></html>", nil
}

func (f *fakeExtractor) imageCallCount(itemID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageCalls[itemID]
}

func (f *fakeExtractor) fetchCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type fakeMatcher struct{ empty bool }

func (m fakeMatcher) Match(facts *models.PageFacts, identity models.PageIdentity, entries []models.CatalogEntry) models.MatchResult {
	if m.empty || facts.Noise {
		return models.MatchResult{Matches: []models.ScoredCandidate{}}
	}
	return models.MatchResult{
		Domains: []string{"coffee"},
		Matches: []models.ScoredCandidate{{Entry: &entries[0], Score: 80}},
	}
}

type fakeCatalog struct{}

func (fakeCatalog) Catalog(ctx context.Context) (*models.CatalogSnapshot, error) {
	return &models.CatalogSnapshot{
		Entries: []models.CatalogEntry{{ID: "stumptown", Name: "Stumptown Hair Bender"}},
		Source:  "static",
	}, nil
}

func testOptions() Options {
	return Options{
		PollInterval: 10 * time.Millisecond,
		ShowDelay:    20 * time.Millisecond,
		ToastTTL:     40 * time.Millisecond,
	}
}

func newTestSession(t *testing.T, extractor *fakeExtractor, matcher Matcher, opts Options) (*Session, *Outbox) {
	t.Helper()
	outbox := NewOutbox(0)
	s := NewSession("test", extractor, matcher, fakeCatalog{}, outbox, opts)
	t.Cleanup(s.Close)
	return s, outbox
}

func waitForSnapshot(t *testing.T, s *Session, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var last Snapshot
	require.Eventually(t, func() bool {
		snap, err := s.Snapshot(context.Background())
		if err != nil {
			return false
		}
		last = snap
		return cond(snap)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func kinds(triggers []models.Trigger) []models.TriggerKind {
	out := make([]models.TriggerKind, 0, len(triggers))
	for _, trigger := range triggers {
		out = append(out, trigger.Kind)
	}
	return out
}

func TestSession_ComputesAndShowsToastThenBadge(t *testing.T) {
	s, outbox := newTestSession(t, newFakeExtractor(), fakeMatcher{}, testOptions())
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))

	snap := waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.Visible == models.AffordanceBadge })
	assert.Equal(t, StateComputed, snap.State)
	assert.Equal(t, "B000000AAA", snap.Identity.ItemID)
	require.Len(t, snap.Matches, 1)

	triggers := outbox.Drain()
	require.Len(t, triggers, 2)
	assert.Equal(t, models.AffordanceToast, triggers[0].Affordance)
	assert.Equal(t, models.AffordanceBadge, triggers[1].Affordance)
	for _, trigger := range triggers {
		assert.Equal(t, models.TriggerShow, trigger.Kind)
		assert.Equal(t, "B000000AAA", trigger.Identity.ItemID)
	}
}

func TestSession_NoAlternativesShowsNothing(t *testing.T) {
	s, outbox := newTestSession(t, newFakeExtractor(), fakeMatcher{empty: true}, testOptions())
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))

	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, outbox.Len())
}

func TestSession_NoisePageSkipsMatching(t *testing.T) {
	extractor := newFakeExtractor()
	extractor.noise = true
	s, outbox := newTestSession(t, extractor, fakeMatcher{}, testOptions())
	require.NoError(t, s.PageLoaded(itemA, "<html>captcha</html>"))

	snap := waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })
	require.NotNil(t, snap.Facts)
	assert.True(t, snap.Facts.Noise)
	assert.Empty(t, snap.Matches)
	assert.Zero(t, extractor.imageCallCount("B000000AAA"))
	assert.Zero(t, outbox.Len())
}

func TestSession_DismissCancelsPendingToast(t *testing.T) {
	opts := testOptions()
	opts.ShowDelay = 80 * time.Millisecond
	s, outbox := newTestSession(t, newFakeExtractor(), fakeMatcher{}, opts)
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))

	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })
	require.NoError(t, s.Dismiss())

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, outbox.Len())
}

func TestSession_DismissHidesVisibleAffordance(t *testing.T) {
	opts := testOptions()
	opts.ToastTTL = time.Minute
	s, outbox := newTestSession(t, newFakeExtractor(), fakeMatcher{}, opts)
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))

	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.Visible == models.AffordanceToast })
	require.NoError(t, s.Dismiss())

	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.Visible == models.AffordanceNone })
	assert.Equal(t, []models.TriggerKind{models.TriggerShow, models.TriggerDismiss}, kinds(outbox.Drain()))
}

func TestSession_OpenModal(t *testing.T) {
	opts := testOptions()
	opts.ShowDelay = time.Minute
	s, outbox := newTestSession(t, newFakeExtractor(), fakeMatcher{}, opts)
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))

	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })
	require.NoError(t, s.OpenModal())

	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.Visible == models.AffordanceModal })
	triggers := outbox.Drain()
	require.Len(t, triggers, 1)
	assert.Equal(t, models.AffordanceModal, triggers[0].Affordance)
	assert.NotEmpty(t, triggers[0].Matches)
}

func TestSession_NavigationDismissesAndReclassifies(t *testing.T) {
	opts := testOptions()
	opts.ToastTTL = time.Minute
	s, outbox := newTestSession(t, newFakeExtractor(), fakeMatcher{empty: false}, opts)
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))
	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.Visible == models.AffordanceToast })
	outbox.Drain()

	require.NoError(t, s.LocationChanged(itemB))
	waitForSnapshot(t, s, func(snap Snapshot) bool {
		return snap.Identity.ItemID == "B000000BBB" && snap.Visible == models.AffordanceToast
	})

	triggers := outbox.Drain()
	require.Len(t, triggers, 3)
	assert.Equal(t, models.TriggerDismiss, triggers[0].Kind)
	assert.Equal(t, "B000000AAA", triggers[0].Identity.ItemID)
	assert.Equal(t, models.TriggerReclassified, triggers[1].Kind)
	assert.Equal(t, "B000000BBB", triggers[1].Identity.ItemID)
	assert.Equal(t, models.TriggerShow, triggers[2].Kind)
	assert.Equal(t, "B000000BBB", triggers[2].Identity.ItemID)
}

func TestSession_SameItemDoesNotRecompute(t *testing.T) {
	extractor := newFakeExtractor()
	s, outbox := newTestSession(t, extractor, fakeMatcher{empty: true}, testOptions())
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))
	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })

	require.NoError(t, s.LocationChanged(itemA+"?ref=sr_1_1&th=1"))
	time.Sleep(50 * time.Millisecond)

	snap := waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })
	assert.Equal(t, itemA, snap.Identity.URL)
	assert.Zero(t, outbox.Len())
	assert.Zero(t, extractor.fetchCallCount())
}

func TestSession_PollDetectsSilentNavigation(t *testing.T) {
	s, outbox := newTestSession(t, newFakeExtractor(), fakeMatcher{empty: true}, testOptions())
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))
	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })

	require.NoError(t, s.Observe(itemB))
	waitForSnapshot(t, s, func(snap Snapshot) bool {
		return snap.Identity.ItemID == "B000000BBB" && snap.State == StateComputed
	})
	assert.Equal(t, []models.TriggerKind{models.TriggerReclassified}, kinds(outbox.Drain()))
}

func TestSession_StaleImageIsNotAppliedAfterNavigation(t *testing.T) {
	extractor := newFakeExtractor()
	gateA := make(chan struct{})
	extractor.imageGate["B000000AAA"] = gateA

	s, _ := newTestSession(t, extractor, fakeMatcher{empty: true}, testOptions())
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))
	require.Eventually(t, func() bool { return extractor.imageCallCount("B000000AAA") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.PageLoaded(itemB, "<html></html>"))
	waitForSnapshot(t, s, func(snap Snapshot) bool {
		return snap.Identity.ItemID == "B000000BBB" && snap.Facts != nil && snap.Facts.ImageURL != nil
	})

	close(gateA)
	require.Eventually(t, func() bool { return s.StaleDiscarded() == 1 }, time.Second, 5*time.Millisecond)

	snap := waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })
	require.NotNil(t, snap.Facts.ImageURL)
	assert.Equal(t, "https://m.media-amazon.com/images/I/B000000BBB.jpg", *snap.Facts.ImageURL)
	assert.Equal(t, int64(1), snap.StaleDiscarded)
}

func TestSession_StaleExtractionIsDiscarded(t *testing.T) {
	extractor := newFakeExtractor()
	gateA := make(chan struct{})
	extractor.extractGate["B000000AAA"] = gateA

	s, _ := newTestSession(t, extractor, fakeMatcher{empty: true}, testOptions())
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))
	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateExtracting })

	require.NoError(t, s.PageLoaded(itemB, "<html></html>"))
	waitForSnapshot(t, s, func(snap Snapshot) bool {
		return snap.Identity.ItemID == "B000000BBB" && snap.State == StateComputed
	})

	close(gateA)
	require.Eventually(t, func() bool { return s.StaleDiscarded() == 1 }, time.Second, 5*time.Millisecond)

	snap := waitForSnapshot(t, s, func(snap Snapshot) bool { return true })
	assert.Equal(t, "Coffee B000000BBB", snap.Facts.Title)
}

func TestSession_ResolvedImagesAreCachedPerItem(t *testing.T) {
	extractor := newFakeExtractor()
	s, _ := newTestSession(t, extractor, fakeMatcher{empty: true}, testOptions())

	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))
	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.Facts != nil && snap.Facts.ImageURL != nil })

	// a reload of the same item re-extracts and reuses the resolved image
	require.NoError(t, s.PageLoaded(itemA, "<html></html>"))
	time.Sleep(30 * time.Millisecond)
	snap := waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })
	require.NotNil(t, snap.Facts.ImageURL)
	assert.Equal(t, 1, extractor.imageCallCount("B000000AAA"))
}

func TestSession_LocationChangeFetchesMarkup(t *testing.T) {
	extractor := newFakeExtractor()
	s, _ := newTestSession(t, extractor, fakeMatcher{empty: true}, testOptions())

	require.NoError(t, s.LocationChanged(itemA))
	waitForSnapshot(t, s, func(snap Snapshot) bool { return snap.State == StateComputed })

	assert.Equal(t, 1, extractor.fetchCallCount())
}

func TestSession_ClosedRejectsEvents(t *testing.T) {
	s, _ := newTestSession(t, newFakeExtractor(), fakeMatcher{}, testOptions())
	s.Close()

	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.PageLoaded(itemA, ""), models.ErrSessionClosed)
	assert.ErrorIs(t, s.Observe(itemA), models.ErrSessionClosed)
	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionClosed)
}
