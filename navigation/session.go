package navigation

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"shelfmatch/models"

	cache "github.com/go-pkgz/expirable-cache"
)

// State of a session's page knowledge
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateComputed   State = "computed"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultShowDelay    = 1500 * time.Millisecond
	defaultToastTTL     = 8 * time.Second
	imageCacheTTL       = 10 * time.Minute
	imageCacheKeys      = 256
	eventBuffer         = 32
)

// Extractor reads page facts and performs the secondary reads a session needs
type Extractor interface {
	Extract(ctx context.Context, identity models.PageIdentity, markup string) (models.PageFacts, error)
	ResolveImage(ctx context.Context, identity models.PageIdentity) (*string, error)
	FetchMarkup(ctx context.Context, rawURL string) (string, error)
}

// Matcher ranks catalog entries for a page
type Matcher interface {
	Match(facts *models.PageFacts, identity models.PageIdentity, entries []models.CatalogEntry) models.MatchResult
}

// CatalogProvider returns the shared catalog
type CatalogProvider interface {
	Catalog(ctx context.Context) (*models.CatalogSnapshot, error)
}

// Options configures session timing
type Options struct {
	PollInterval time.Duration
	ShowDelay    time.Duration
	ToastTTL     time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.ShowDelay <= 0 {
		o.ShowDelay = defaultShowDelay
	}
	if o.ToastTTL <= 0 {
		o.ToastTTL = defaultToastTTL
	}
	return o
}

// Snapshot is a read-only view of a session
type Snapshot struct {
	ID             string                   `json:"id"`
	State          State                    `json:"state"`
	Identity       models.PageIdentity      `json:"identity"`
	Facts          *models.PageFacts        `json:"facts"`
	Matches        []models.ScoredCandidate `json:"matches"`
	Visible        models.Affordance        `json:"visible,omitempty"`
	StaleDiscarded int64                    `json:"stale_discarded"`
	LastActive     time.Time                `json:"last_active"`
}

// events handled by the loop
type (
	pageEvent struct {
		url       string
		markup    string
		hasMarkup bool
	}
	extractionDone struct {
		seq      uint64
		identity models.PageIdentity
		facts    models.PageFacts
		result   models.MatchResult
	}
	imageResolved struct {
		identity models.PageIdentity
		url      *string
	}
	timerFired struct {
		affordance models.Affordance
		gen        uint64
	}
	dismissEvent  struct{}
	modalEvent    struct{}
	snapshotEvent struct{ reply chan Snapshot }
)

// Session is the navigation state machine of one browser tab. Every state change happens
// on the session's own goroutine; other goroutines only send events to it.
type Session struct {
	id        string
	opts      Options
	extractor Extractor
	matcher   Matcher
	catalog   CatalogProvider
	sink      Sink

	events    chan interface{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	observed   atomic.Value // string: last location reported by the host
	lastActive atomic.Int64
	stale      atomic.Int64

	// owned by the loop goroutine
	state      State
	identity   models.PageIdentity
	facts      *models.PageFacts
	matches    []models.ScoredCandidate
	visible    models.Affordance
	seq        uint64
	refreshing bool
	timerGen   uint64
	timers     []*time.Timer
	cancelWork context.CancelFunc
	images     cache.Cache
}

// NewSession creates a session and starts its loop
func NewSession(id string, extractor Extractor, matcher Matcher, catalog CatalogProvider, sink Sink, opts Options) *Session {
	images, err := cache.NewCache(cache.MaxKeys(imageCacheKeys), cache.TTL(imageCacheTTL))
	if err != nil {
		log.Printf("⚠️ Session %s: image cache disabled: %v", id, err)
	}

	s := &Session{
		id:        id,
		opts:      opts.withDefaults(),
		extractor: extractor,
		matcher:   matcher,
		catalog:   catalog,
		sink:      sink,
		events:    make(chan interface{}, eventBuffer),
		done:      make(chan struct{}),
		state:     StateIdle,
		images:    images,
	}
	s.observed.Store("")
	s.touch()

	s.wg.Add(1)
	go s.run()
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// LastActive returns when the host last signalled this session
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// StaleDiscarded returns how many async results were dropped for a previous identity
func (s *Session) StaleDiscarded() int64 {
	return s.stale.Load()
}

// PageLoaded reports a full load or a DOM snapshot of the current page
func (s *Session) PageLoaded(rawURL, markup string) error {
	s.touch()
	s.observed.Store(rawURL)
	return s.send(pageEvent{url: rawURL, markup: markup, hasMarkup: true})
}

// LocationChanged reports an in-page history mutation; markup is fetched
func (s *Session) LocationChanged(rawURL string) error {
	s.touch()
	s.observed.Store(rawURL)
	return s.send(pageEvent{url: rawURL})
}

// Observe records the host's current location without signalling a navigation.
// The poll loop notices if it no longer matches the current identity.
func (s *Session) Observe(rawURL string) error {
	select {
	case <-s.done:
		return models.ErrSessionClosed
	default:
	}
	s.touch()
	s.observed.Store(rawURL)
	return nil
}

// Dismiss hides any visible affordance and cancels pending UI timers
func (s *Session) Dismiss() error {
	s.touch()
	return s.send(dismissEvent{})
}

// OpenModal asks for the full alternatives view
func (s *Session) OpenModal() error {
	s.touch()
	return s.send(modalEvent{})
}

// Snapshot returns the current session view
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.send(snapshotEvent{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, models.ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Close stops the loop, its timers and any in-flight work
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) send(ev interface{}) error {
	select {
	case <-s.done:
		return models.ErrSessionClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return models.ErrSessionClosed
	}
}

func (s *Session) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	defer s.shutdown()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.poll()
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev interface{}) {
	switch e := ev.(type) {
	case pageEvent:
		s.onPage(e)
	case extractionDone:
		s.onExtraction(e)
	case imageResolved:
		s.onImage(e)
	case timerFired:
		s.onTimer(e)
	case dismissEvent:
		s.dismiss()
	case modalEvent:
		s.openModal()
	case snapshotEvent:
		e.reply <- s.snapshot()
	}
}

// poll funnels silently changed locations into the same path as notified navigations
func (s *Session) poll() {
	location, _ := s.observed.Load().(string)
	if location == "" {
		return
	}
	identity := models.NewPageIdentity(location)
	if s.identity.Same(identity) {
		return
	}
	log.Printf("🧭 Session %s: poll detected navigation to %s", s.id, location)
	s.onPage(pageEvent{url: location})
}

func (s *Session) onPage(e pageEvent) {
	identity := models.NewPageIdentity(e.url)
	if identity.IsZero() {
		return
	}

	if !s.identity.IsZero() && s.identity.Same(identity) {
		// fresh markup for the same item re-reads it without touching the UI
		if e.hasMarkup {
			s.startExtraction(e.markup, true)
		}
		return
	}

	previous := s.identity
	s.resetForNavigation()
	s.identity = identity

	if !previous.IsZero() {
		log.Printf("🧭 Session %s: %s -> %s", s.id, previous.URL, identity.URL)
		s.emit(models.NewTrigger(models.TriggerReclassified, identity))
	}
	s.startExtraction(e.markup, e.hasMarkup)
}

// resetForNavigation drops everything tied to the previous identity
func (s *Session) resetForNavigation() {
	s.cancelTimers()
	if s.visible != models.AffordanceNone {
		s.emit(models.NewTrigger(models.TriggerDismiss, s.identity))
		s.visible = models.AffordanceNone
	}
	if s.cancelWork != nil {
		s.cancelWork()
		s.cancelWork = nil
	}
	if s.images != nil {
		s.images.Purge()
	}
	s.facts = nil
	s.matches = nil
	s.refreshing = false
	s.state = StateIdle
}

func (s *Session) startExtraction(markup string, hasMarkup bool) {
	if s.cancelWork != nil {
		s.cancelWork()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelWork = cancel
	s.seq++
	s.refreshing = s.facts != nil
	s.state = StateExtracting

	seq, identity := s.seq, s.identity
	go func() {
		done := s.extract(ctx, identity, markup, hasMarkup)
		done.seq = seq
		_ = s.send(done)
	}()
}

// extract runs off the loop; it only reads its arguments
func (s *Session) extract(ctx context.Context, identity models.PageIdentity, markup string, hasMarkup bool) extractionDone {
	if !hasMarkup {
		fetched, err := s.extractor.FetchMarkup(ctx, identity.URL)
		if err != nil {
			log.Printf("⚠️ Session %s: could not fetch %s: %v", s.id, identity.URL, err)
		}
		markup = fetched
	}

	facts, err := s.extractor.Extract(ctx, identity, markup)
	if err != nil && !errors.Is(err, models.ErrNoiseDetected) {
		log.Printf("⚠️ Session %s: extraction failed for %s: %v", s.id, identity.URL, err)
	}

	result := models.MatchResult{Matches: []models.ScoredCandidate{}}
	if !facts.Noise {
		snapshot, err := s.catalog.Catalog(ctx)
		if err != nil {
			log.Printf("❌ Session %s: catalog unavailable: %v", s.id, err)
		} else {
			result = s.matcher.Match(&facts, identity, snapshot.Entries)
		}
	}
	return extractionDone{identity: identity, facts: facts, result: result}
}

func (s *Session) onExtraction(e extractionDone) {
	if e.seq != s.seq || !e.identity.Same(s.identity) {
		s.discardStale("extraction", e.identity)
		return
	}

	facts := e.facts
	s.facts = &facts
	s.matches = e.result.Matches
	s.state = StateComputed
	if s.cancelWork != nil {
		s.cancelWork()
		s.cancelWork = nil
	}
	log.Printf("🔍 Session %s: %d alternatives for %s", s.id, len(s.matches), s.identity.URL)

	if facts.ImageURL == nil && !facts.Noise {
		s.resolveImage()
	}
	if len(s.matches) > 0 && !s.refreshing {
		s.schedule(models.AffordanceToast, s.opts.ShowDelay)
	}
	s.refreshing = false
}

// resolveImage fills a missing image from cache or one secondary read
func (s *Session) resolveImage() {
	key := s.identity.ItemID
	if key == "" {
		key = s.identity.URL
	}
	if s.images != nil {
		if cached, ok := s.images.Get(key); ok {
			if u, ok := cached.(string); ok {
				facts := s.facts.WithImage(u)
				s.facts = &facts
				return
			}
		}
	}

	identity := s.identity
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	go func() {
		defer cancel()
		u, err := s.extractor.ResolveImage(ctx, identity)
		if err != nil {
			log.Printf("⚠️ Session %s: image resolution failed for %s: %v", s.id, identity.URL, err)
			return
		}
		if u != nil {
			_ = s.send(imageResolved{identity: identity, url: u})
		}
	}()
}

func (s *Session) onImage(e imageResolved) {
	if !e.identity.Same(s.identity) || s.facts == nil {
		s.discardStale("image", e.identity)
		return
	}

	facts := s.facts.WithImage(*e.url)
	s.facts = &facts

	key := e.identity.ItemID
	if key == "" {
		key = e.identity.URL
	}
	if s.images != nil {
		s.images.Set(key, *e.url, 0)
	}
}

func (s *Session) onTimer(e timerFired) {
	if e.gen != s.timerGen || s.facts == nil || len(s.matches) == 0 {
		return
	}

	switch e.affordance {
	case models.AffordanceToast:
		s.show(models.AffordanceToast)
		s.schedule(models.AffordanceBadge, s.opts.ToastTTL)
	case models.AffordanceBadge:
		s.show(models.AffordanceBadge)
	}
}

func (s *Session) openModal() {
	if s.facts == nil || len(s.matches) == 0 {
		return
	}
	s.cancelTimers()
	s.show(models.AffordanceModal)
}

func (s *Session) dismiss() {
	s.cancelTimers()
	if s.visible == models.AffordanceNone {
		return
	}
	s.emit(models.NewTrigger(models.TriggerDismiss, s.identity))
	s.visible = models.AffordanceNone
}

func (s *Session) show(affordance models.Affordance) {
	trigger := models.NewTrigger(models.TriggerShow, s.identity)
	trigger.Affordance = affordance
	trigger.Facts = s.facts
	trigger.Matches = s.matches
	s.emit(trigger)
	s.visible = affordance
}

// schedule arms a UI timer for the current generation
func (s *Session) schedule(affordance models.Affordance, delay time.Duration) {
	gen := s.timerGen
	s.timers = append(s.timers, time.AfterFunc(delay, func() {
		_ = s.send(timerFired{affordance: affordance, gen: gen})
	}))
}

// cancelTimers stops pending timers; a timer that already fired is ignored by generation
func (s *Session) cancelTimers() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.timerGen++
}

func (s *Session) discardStale(kind string, identity models.PageIdentity) {
	n := s.stale.Add(1)
	log.Printf("🗑️ Session %s: discarded stale %s result for %s (%d total): %v",
		s.id, kind, identity.URL, n, models.ErrStaleResult)
}

func (s *Session) emit(trigger models.Trigger) {
	if s.sink != nil {
		s.sink.Emit(trigger)
	}
}

func (s *Session) snapshot() Snapshot {
	matches := s.matches
	if matches == nil {
		matches = []models.ScoredCandidate{}
	}
	return Snapshot{
		ID:             s.id,
		State:          s.state,
		Identity:       s.identity,
		Facts:          s.facts,
		Matches:        matches,
		Visible:        s.visible,
		StaleDiscarded: s.stale.Load(),
		LastActive:     s.LastActive(),
	}
}

func (s *Session) shutdown() {
	s.cancelTimers()
	if s.cancelWork != nil {
		s.cancelWork()
	}
	if s.images != nil {
		s.images.Purge()
	}
}
