// Package controller implements the view controller: it reacts to user events,
// drives the favorites store and the gateway, and keeps the view state consistent.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/textweather/internal/client"
	"github.com/kjstillabower/textweather/internal/favorites"
	"github.com/kjstillabower/textweather/internal/models"
	"github.com/kjstillabower/textweather/internal/observability"
)

var (
	ErrNoSuchResult   = errors.New("no such search result")
	ErrNoSuchFavorite = errors.New("no such favorite")
)

// Controller owns the application state. Events are serialized by mu, matching a
// single event loop; gateway calls run with mu released and re-enter it to apply results.
type Controller struct {
	mu      sync.Mutex
	store   *favorites.Store
	gateway client.Gateway
	logger  *zap.Logger

	spawn        func(func())
	fetchTimeout time.Duration
	inflight     sync.WaitGroup
	launches     []func()

	mode        Mode
	activeID    string
	tabs        []Tab
	tabsVersion uint64
	city, state string
	status      string
	results     []models.Place
	forecast    ForecastView
	menu        ContextMenu

	// fetchSeq tags each forecast fetch; only the latest fetch for the active tab is applied.
	fetchSeq uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSpawner replaces how forecast fetches are started. Defaults to a new goroutine.
func WithSpawner(spawn func(func())) Option {
	return func(c *Controller) { c.spawn = spawn }
}

// WithFetchTimeout bounds each forecast fetch. Zero leaves the gateway's transport timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) { c.fetchTimeout = d }
}

// New returns a Controller in Setup mode. Call Init to load favorites.
func New(store *favorites.Store, gateway client.Gateway, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		gateway: gateway,
		logger:  zap.NewNop(),
		spawn:   func(fn func()) { go fn() },
		mode:    ModeSetup,
		tabs:    []Tab{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// unlock releases mu and then starts any fetches queued while it was held.
func (c *Controller) unlock() {
	launches := c.launches
	c.launches = nil
	c.mu.Unlock()
	for _, fn := range launches {
		c.inflight.Add(1)
		c.spawn(func() {
			defer c.inflight.Done()
			fn()
		})
	}
}

// Init loads the persisted favorites and activates the first one, or shows Setup.
func (c *Controller) Init(ctx context.Context) View {
	c.mu.Lock()
	defer c.unlock()
	observability.ControllerEventsTotal.WithLabelValues("init").Inc()

	list := c.store.Load(ctx)
	c.rebuildTabsLocked()
	if len(list) > 0 {
		c.switchTabLocked(list[0])
	} else {
		c.showSetupLocked()
	}
	c.logger.Info("favorites loaded", zap.Int("count", len(list)))
	return c.viewLocked()
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.unlock()
	return c.viewLocked()
}

// ShowSetup opens the search UI, clears the active tab and closes the context menu.
func (c *Controller) ShowSetup() View {
	c.mu.Lock()
	defer c.unlock()
	observability.ControllerEventsTotal.WithLabelValues("show_setup").Inc()
	c.menu = ContextMenu{}
	c.showSetupLocked()
	return c.viewLocked()
}

// Search looks up "<city>, <state>" and replaces the result list. Blank input is ignored.
func (c *Controller) Search(ctx context.Context, city, state string) View {
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)

	c.mu.Lock()
	observability.ControllerEventsTotal.WithLabelValues("search").Inc()
	c.city, c.state = city, state
	if city == "" || state == "" {
		v := c.viewLocked()
		c.unlock()
		return v
	}
	c.status = StatusSearching
	c.results = nil
	c.unlock()

	res := c.gateway.SearchLocation(ctx, city, state)

	c.mu.Lock()
	defer c.unlock()
	places, ok := res.Value()
	if !ok {
		c.status = StatusNoResults
		c.results = nil
		c.logger.Debug("search returned nothing",
			zap.String("city", city), zap.String("state", state), zap.Error(res.Err()))
		return c.viewLocked()
	}
	c.status = ""
	c.results = places
	return c.viewLocked()
}

// PickResult resolves the forecast endpoint for search result index and, on success,
// saves it as a new favorite and activates it. On failure the view stays in Setup.
func (c *Controller) PickResult(ctx context.Context, index int) (View, error) {
	c.mu.Lock()
	observability.ControllerEventsTotal.WithLabelValues("pick_result").Inc()
	if index < 0 || index >= len(c.results) {
		v := c.viewLocked()
		c.unlock()
		return v, ErrNoSuchResult
	}
	place := c.results[index]
	c.status = StatusFetching
	c.unlock()

	res := c.gateway.ResolveForecastEndpoint(ctx, place.Lat, place.Lon)

	c.mu.Lock()
	defer c.unlock()
	endpoint, ok := res.Value()
	if !ok {
		c.status = StatusNWSError
		c.logger.Info("forecast endpoint lookup failed",
			zap.String("place", place.DisplayName), zap.Error(res.Err()))
		return c.viewLocked(), nil
	}

	fav := models.Favorite{
		ID:          c.store.NewID(),
		Name:        place.ShortName(),
		FullName:    place.DisplayName,
		Lat:         place.Lat,
		Lon:         place.Lon,
		ForecastURL: endpoint.ForecastURL,
	}
	if err := c.store.Add(ctx, fav); err != nil {
		c.status = StatusSaveError
		c.logger.Error("save favorite", zap.String("id", fav.ID), zap.Error(err))
		return c.viewLocked(), nil
	}
	c.logger.Info("favorite added", zap.String("id", fav.ID), zap.String("name", fav.Name))

	c.city, c.state = "", ""
	c.results = nil
	c.status = ""
	c.rebuildTabsLocked()
	c.switchTabLocked(fav)
	return c.viewLocked(), nil
}

// SwitchTab activates favorite id and starts a fresh forecast fetch for it.
// Like any primary click it closes the context menu.
func (c *Controller) SwitchTab(id string) (View, error) {
	c.mu.Lock()
	defer c.unlock()
	observability.ControllerEventsTotal.WithLabelValues("switch_tab").Inc()
	fav, ok := c.store.Get(id)
	if !ok {
		return c.viewLocked(), ErrNoSuchFavorite
	}
	c.menu = ContextMenu{}
	c.switchTabLocked(fav)
	return c.viewLocked(), nil
}

// OpenContextMenu records id as the delete target and shows the menu.
func (c *Controller) OpenContextMenu(id string) (View, error) {
	c.mu.Lock()
	defer c.unlock()
	observability.ControllerEventsTotal.WithLabelValues("open_menu").Inc()
	if c.store.IndexOf(id) < 0 {
		return c.viewLocked(), ErrNoSuchFavorite
	}
	c.menu = ContextMenu{Visible: true, TargetID: id}
	return c.viewLocked(), nil
}

// PrimaryClick closes the context menu.
func (c *Controller) PrimaryClick() View {
	c.mu.Lock()
	defer c.unlock()
	observability.ControllerEventsTotal.WithLabelValues("primary_click").Inc()
	c.menu = ContextMenu{}
	return c.viewLocked()
}

// DeleteTarget deletes the favorite recorded by the last OpenContextMenu, regardless of
// which tab is active, and closes the menu.
func (c *Controller) DeleteTarget(ctx context.Context) View {
	c.mu.Lock()
	defer c.unlock()
	observability.ControllerEventsTotal.WithLabelValues("delete").Inc()

	id := c.menu.TargetID
	c.menu = ContextMenu{}
	if id == "" {
		return c.viewLocked()
	}

	index, found, err := c.store.Remove(ctx, id)
	if err != nil {
		c.status = StatusSaveError
		c.logger.Error("remove favorite", zap.String("id", id), zap.Error(err))
		return c.viewLocked()
	}
	if !found {
		return c.viewLocked()
	}
	c.logger.Info("favorite removed", zap.String("id", id))

	c.rebuildTabsLocked()
	if c.activeID != id {
		return c.viewLocked()
	}
	list := c.store.List()
	if next, ok := favorites.NextActive(list, index); ok {
		fav, _ := c.store.Get(next)
		c.switchTabLocked(fav)
	} else {
		c.showSetupLocked()
	}
	return c.viewLocked()
}

// Wait blocks until in-flight forecast fetches finish or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) showSetupLocked() {
	c.mode = ModeSetup
	c.activeID = ""
	c.markActiveLocked("")
}

// switchTabLocked activates fav and queues its forecast fetch. Tabs are not rebuilt.
func (c *Controller) switchTabLocked(fav models.Favorite) {
	c.mode = ModeForecast
	c.activeID = fav.ID
	c.markActiveLocked(fav.ID)
	c.forecast = ForecastView{FavoriteID: fav.ID, Loading: true, Message: ForecastLoading}

	c.fetchSeq++
	seq := c.fetchSeq
	id, forecastURL := fav.ID, fav.ForecastURL
	c.launches = append(c.launches, func() { c.fetchForecast(id, seq, forecastURL) })
}

func (c *Controller) fetchForecast(id string, seq uint64, forecastURL string) {
	ctx := context.Background()
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}
	res := c.gateway.GetForecast(ctx, forecastURL)

	c.mu.Lock()
	defer c.unlock()
	if c.activeID != id || c.fetchSeq != seq {
		observability.ForecastStaleDiscardsTotal.Inc()
		c.logger.Debug("discarding stale forecast", zap.String("id", id), zap.String("active", c.activeID))
		return
	}
	periods, ok := res.Value()
	if !ok {
		c.forecast = ForecastView{FavoriteID: id, Message: ForecastUnavailable}
		c.logger.Info("forecast unavailable", zap.String("id", id), zap.Error(res.Err()))
		return
	}
	c.forecast = ForecastView{FavoriteID: id, Periods: periods}
}

// rebuildTabsLocked regenerates every tab from the favorites list.
func (c *Controller) rebuildTabsLocked() {
	list := c.store.List()
	tabs := make([]Tab, len(list))
	for i, f := range list {
		tabs[i] = Tab{ID: f.ID, Name: f.Name, FullName: f.FullName, Active: f.ID == c.activeID}
	}
	c.tabs = tabs
	c.tabsVersion++
}

// markActiveLocked toggles the active marker without rebuilding tabs.
func (c *Controller) markActiveLocked(id string) {
	for i := range c.tabs {
		c.tabs[i].Active = c.tabs[i].ID == id
	}
}

func (c *Controller) viewLocked() View {
	v := View{
		Mode:        c.mode,
		ActiveID:    c.activeID,
		Tabs:        append([]Tab{}, c.tabs...),
		TabsVersion: c.tabsVersion,
		CityInput:   c.city,
		StateInput:  c.state,
		Status:      c.status,
		Results:     append([]models.Place{}, c.results...),
		Forecast:    c.forecast,
		Menu:        c.menu,
	}
	if c.forecast.Periods != nil {
		v.Forecast.Periods = append([]models.ForecastPeriod{}, c.forecast.Periods...)
	}
	return v
}
